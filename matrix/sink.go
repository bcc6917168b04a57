package matrix

import (
	"errors"
	"image"
	"sync"
)

// ErrNoHardwareBrightness is returned by sinks that cannot dim the panel
// themselves; the canvas then scales pixels instead.
var ErrNoHardwareBrightness = errors.New("sink has no hardware brightness control")

// Sink receives committed frames.
type Sink interface {
	Push(frame *image.RGBA) error
	Close() error
}

// Dimmable sinks control brightness in hardware.
type Dimmable interface {
	SetBrightness(level int) error
}

// NullSink drops frames, keeping only a count and the last one. Used when
// running headless and in tests.
type NullSink struct {
	mu     sync.Mutex
	frames int
	last   *image.RGBA
}

func (s *NullSink) Push(frame *image.RGBA) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil || s.last.Bounds() != frame.Bounds() {
		s.last = image.NewRGBA(frame.Bounds())
	}
	copy(s.last.Pix, frame.Pix)
	s.frames++
	return nil
}

func (s *NullSink) Frames() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

// Last is the most recent frame pushed, or nil.
func (s *NullSink) Last() *image.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *NullSink) Close() error {
	return nil
}
