package animator

import (
	"context"
	"image"
	"time"
)

type fakeSurface struct {
	ops        []string
	brightness []int
	commitErr  error
}

func (s *fakeSurface) Clear() error {
	s.ops = append(s.ops, "clear")
	return nil
}

func (s *fakeSurface) DrawImage(img image.Image) error {
	s.ops = append(s.ops, "image")
	return nil
}

func (s *fakeSurface) Commit() error {
	s.ops = append(s.ops, "commit")
	return s.commitErr
}

func (s *fakeSurface) SetBrightness(level int) error {
	s.brightness = append(s.brightness, level)
	return nil
}

func (s *fakeSurface) count(op string) int {
	n := 0
	for _, o := range s.ops {
		if o == op {
			n++
		}
	}
	return n
}

// fakeSleep records requested durations without blocking.
type fakeSleep struct {
	slept []time.Duration
}

func (f *fakeSleep) sleep(ctx context.Context, d time.Duration) error {
	f.slept = append(f.slept, d)
	return ctx.Err()
}

type feed struct {
	n int
}

func (f *feed) Count() int { return f.n }

// testScene erases and redraws a counter, recording what it had to erase.
type testScene struct {
	id     SceneID
	last   string
	erased []string
	drawn  int
}

func (s *testScene) ID() SceneID { return s.id }

func (s *testScene) Invalidate() { s.last = "" }

func (s *testScene) draw(tick Tick) error {
	if s.last != "" {
		s.erased = append(s.erased, s.last)
	}
	s.drawn++
	s.last = s.id.String()
	return nil
}

func logo() (image.Image, error) {
	return image.NewRGBA(image.Rect(0, 0, 4, 4)), nil
}
