package animator

import (
	"sync/atomic"
	"time"
)

// Tick is one iteration of the animation loop.
type Tick uint64

// FrameClock hands out ticks and tracks the achieved frame rate.
type FrameClock struct {
	next   Tick
	last   atomic.Uint64
	period time.Duration

	// actual rate measurement, refreshed about once a second
	actualCt       int
	actualCtTarget int
	actualRefTime  time.Time
	actual         atomic.Uint64 // fps * 100
}

// NewFrameClock returns a clock running at fps ticks per second.
func NewFrameClock(fps int) *FrameClock {
	if fps <= 0 {
		fps = DefaultFrameRate
	}
	return &FrameClock{
		period:         time.Second / time.Duration(fps),
		actualCtTarget: fps,
	}
}

// Next returns the tick for the current iteration and advances the counter.
// The first call returns 0.
func (c *FrameClock) Next() Tick {
	t := c.next
	c.next++
	c.last.Store(uint64(t))
	return t
}

// Skip consumes n ticks without handing them out, as if they had passed.
// Current reports the last skipped tick.
func (c *FrameClock) Skip(n uint64) {
	if n == 0 {
		return
	}
	c.next += Tick(n)
	c.last.Store(uint64(c.next - 1))
}

// Current is the last tick handed out by Next. Safe to call from any goroutine.
func (c *FrameClock) Current() Tick {
	return Tick(c.last.Load())
}

// Period is the nominal duration of one tick.
func (c *FrameClock) Period() time.Duration {
	return c.period
}

// measure is called once per completed frame with the time it completed.
func (c *FrameClock) measure(now time.Time) {
	if c.actualRefTime.IsZero() {
		c.actualRefTime = now
		return
	}
	c.actualCt++
	if c.actualCt < c.actualCtTarget {
		return
	}
	elapsed := now.Sub(c.actualRefTime).Seconds()
	if elapsed > 0 {
		fps := float64(c.actualCt) / elapsed
		c.actual.Store(uint64(fps * 100))
		if fps > 1 {
			c.actualCtTarget = int(fps)
		} else {
			c.actualCtTarget = 1
		}
	}
	c.actualRefTime = now
	c.actualCt = 0
}

// ActualRate is the measured frames per second.
func (c *FrameClock) ActualRate() float64 {
	return float64(c.actual.Load()) / 100
}
