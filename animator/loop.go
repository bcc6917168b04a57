package animator

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"
)

const DefaultFrameRate = 60

type LoopConfig struct {
	FrameRate int
}

// Stats is a point in time view of the loop, readable from any goroutine.
type Stats struct {
	Tick             Tick    `json:"tick"`
	Frames           uint64  `json:"frames"`
	LateFrames       uint64  `json:"late_frames"`
	CallbackFailures uint64  `json:"callback_failures"`
	Overlays         uint64  `json:"overlays"`
	Brightness       int     `json:"brightness"`
	Mode             string  `json:"mode"`
	FPS              float64 `json:"fps"`
}

// Loop is the animation driver. It owns the frame clock and is the only
// writer of the surface while it runs.
type Loop struct {
	clock    *FrameClock
	registry *Registry
	scenes   *SceneManager
	overlay  *OverlayArbiter
	dimmer   *Dimmer
	surface  Surface

	now   func() time.Time
	sleep SleepFunc
	log   *slog.Logger

	brightness int
	// dirty is set when something other than the scenes drew on the surface
	dirty bool

	frames     atomic.Uint64
	late       atomic.Uint64
	failures   atomic.Uint64
	overlays   atomic.Uint64
	brightStat atomic.Int64
}

// NewLoop wires the engine together. overlay and dimmer may be nil.
func NewLoop(cfg LoopConfig, registry *Registry, scenes *SceneManager, overlay *OverlayArbiter, dimmer *Dimmer, surface Surface, log *slog.Logger) *Loop {
	if log == nil {
		log = slog.Default()
	}
	l := &Loop{
		clock:      NewFrameClock(cfg.FrameRate),
		registry:   registry,
		scenes:     scenes,
		overlay:    overlay,
		dimmer:     dimmer,
		surface:    surface,
		now:        time.Now,
		sleep:      sleepContext,
		log:        log.With("component", "loop"),
		brightness: -1,
	}
	l.brightStat.Store(-1)
	return l
}

// Run drives the loop at the nominal frame rate until ctx is cancelled, then
// blanks the surface. Only output backend failures end it early.
func (l *Loop) Run(ctx context.Context) error {
	period := l.clock.Period()
	l.log.Info("animation loop started", "fps", int(time.Second/period), "keyframes", l.registry.Len())
	for {
		if ctx.Err() != nil {
			return l.blank()
		}
		start := l.now()
		preempted, err := l.step(ctx, start)
		if err != nil {
			l.log.Error("output backend failed, stopping", "error", err)
			return err
		}
		if ctx.Err() != nil {
			return l.blank()
		}

		elapsed := l.now().Sub(start)
		if rest := period - elapsed; rest > 0 {
			_ = l.sleep(ctx, rest)
		} else if !preempted {
			// over budget: carry on with the next tick, no catch-up
			l.late.Add(1)
		}
		l.clock.measure(l.now())
	}
}

// Step runs a single iteration without pacing.
func (l *Loop) Step(ctx context.Context) (Tick, error) {
	_, err := l.step(ctx, l.now())
	return l.clock.Current(), err
}

func (l *Loop) step(ctx context.Context, t0 time.Time) (preempted bool, err error) {
	tick := l.clock.Next()

	if l.overlay != nil && l.overlay.ShouldPreempt(t0) {
		l.overlays.Add(1)
		l.dirty = true
		if err := l.overlay.Show(ctx, l.surface); err != nil {
			return true, fmt.Errorf("overlay: %w", err)
		}
		// the clock runs on through the hold; its ticks are never dispatched
		if n := uint64(l.now().Sub(t0) / l.clock.Period()); n > 1 {
			l.clock.Skip(n - 1)
		}
		return true, nil
	}

	if l.dimmer != nil {
		if b := l.dimmer.TargetBrightness(t0); b != l.brightness {
			if err := l.surface.SetBrightness(b); err != nil {
				return false, fmt.Errorf("set brightness: %w", err)
			}
			l.log.Info("brightness changed", "from", l.brightness, "to", b, "state", l.dimmer.State(t0))
			l.brightness = b
			l.brightStat.Store(int64(b))
		}
	}

	active, switched := l.scenes.Select()
	if l.dirty && !switched {
		l.scenes.InvalidateAll()
	}
	if switched || l.dirty {
		if err := l.surface.Clear(); err != nil {
			return false, fmt.Errorf("clear: %w", err)
		}
		l.dirty = false
	}
	for _, sc := range active {
		id := sc.ID()
		for _, cb := range l.registry.Due(tick, id) {
			if err := invoke(id, tick, cb); err != nil {
				l.failures.Add(1)
				l.log.Warn("keyframe failed", "scene", id, "tick", tick, "error", err)
			}
		}
	}

	if err := l.surface.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	l.frames.Add(1)
	return false, nil
}

// invoke runs one callback, turning errors and panics into a CallbackError.
func invoke(id SceneID, tick Tick, cb Callback) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &CallbackError{Scene: id, Tick: tick, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	if cerr := cb(tick); cerr != nil {
		return &CallbackError{Scene: id, Tick: tick, Err: cerr}
	}
	return nil
}

// blank is the best effort clear on the way out.
func (l *Loop) blank() error {
	if err := l.surface.Clear(); err != nil {
		l.log.Warn("clear on exit", "error", err)
		return nil
	}
	if err := l.surface.Commit(); err != nil {
		l.log.Warn("commit on exit", "error", err)
	}
	l.log.Info("animation loop stopped", "frames", l.frames.Load())
	return nil
}

func (l *Loop) Stats() Stats {
	return Stats{
		Tick:             l.clock.Current(),
		Frames:           l.frames.Load(),
		LateFrames:       l.late.Load(),
		CallbackFailures: l.failures.Load(),
		Overlays:         l.overlays.Load(),
		Brightness:       int(l.brightStat.Load()),
		Mode:             l.scenes.Mode().String(),
		FPS:              l.clock.ActualRate(),
	}
}
