package animator

import (
	"context"
	"image"
	"time"
)

// Surface is the shared output the loop draws to. Only the loop goroutine
// touches it, apart from the clear-and-commit the shutdown scheduler performs
// right before the machine powers off.
type Surface interface {
	// Clear blanks the drawing buffer. Nothing is shown until Commit.
	Clear() error
	// DrawImage paints img over the whole drawing buffer.
	DrawImage(img image.Image) error
	// Commit makes the drawing buffer visible.
	Commit() error
	// SetBrightness sets the output level, 0-100.
	SetBrightness(level int) error
}

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
