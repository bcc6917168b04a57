package animator

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"sync/atomic"
	"time"
)

type OverlayConfig struct {
	Enabled  bool
	Interval time.Duration
	Duration time.Duration
}

// OverlayState is what the overlay is doing at a point in time. The zero
// value is idle.
type OverlayState struct {
	Showing   bool          `json:"showing"`
	StartedAt time.Time     `json:"started_at,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// OverlayArbiter decides when the logo takes over the whole surface.
type OverlayArbiter struct {
	cfg   OverlayConfig
	image image.Image
	err   error

	lastShown time.Time
	shownOnce bool

	requested atomic.Bool
	showingAt atomic.Int64 // unix nanos, 0 while idle

	sleep SleepFunc
	log   *slog.Logger
}

// NewOverlayArbiter loads the overlay asset with load. A failing load is
// logged once and leaves the overlay disabled for good.
func NewOverlayArbiter(cfg OverlayConfig, load func() (image.Image, error), log *slog.Logger) *OverlayArbiter {
	if log == nil {
		log = slog.Default()
	}
	a := &OverlayArbiter{
		cfg:   cfg,
		sleep: sleepContext,
		log:   log.With("component", "overlay"),
	}
	if !cfg.Enabled {
		return a
	}
	if load == nil {
		a.err = fmt.Errorf("%w: no overlay loader", ErrAssetLoad)
	} else if img, err := load(); err != nil {
		a.err = fmt.Errorf("%w: %v", ErrAssetLoad, err)
	} else if img == nil || img.Bounds().Empty() {
		a.err = fmt.Errorf("%w: empty overlay image", ErrAssetLoad)
	} else {
		a.image = img
	}
	if a.err != nil {
		a.log.Error("overlay disabled", "error", a.err)
		return a
	}
	a.log.Info("overlay loaded", "size", a.image.Bounds().Size(), "interval", cfg.Interval, "duration", cfg.Duration)
	return a
}

// Active reports whether the overlay can ever be shown.
func (a *OverlayArbiter) Active() bool {
	return a != nil && a.cfg.Enabled && a.image != nil
}

// Err is the asset error that disabled the overlay, if any.
func (a *OverlayArbiter) Err() error {
	return a.err
}

// Request asks for the overlay on the next tick regardless of the interval.
// Safe to call from any goroutine.
func (a *OverlayArbiter) Request() {
	if a.Active() {
		a.requested.Store(true)
	}
}

// ShouldPreempt reports whether the overlay must run instead of the scenes on
// this tick. A true result counts as showing the overlay at now.
func (a *OverlayArbiter) ShouldPreempt(now time.Time) bool {
	if !a.Active() {
		return false
	}
	requested := a.requested.Swap(false)
	if !requested && a.shownOnce && now.Sub(a.lastShown) < a.cfg.Interval {
		return false
	}
	a.lastShown = now
	a.shownOnce = true
	return true
}

// Show takes over the surface: clear, draw the overlay, commit, then hold for
// the configured duration. Only backend errors are returned; a cancelled
// context cuts the hold short.
func (a *OverlayArbiter) Show(ctx context.Context, s Surface) error {
	a.showingAt.Store(a.lastShown.UnixNano())
	defer a.showingAt.Store(0)

	if err := s.Clear(); err != nil {
		return err
	}
	if err := s.DrawImage(a.image); err != nil {
		return err
	}
	if err := s.Commit(); err != nil {
		return err
	}
	a.log.Debug("overlay shown", "hold", a.cfg.Duration)
	_ = a.sleep(ctx, a.cfg.Duration)
	return nil
}

// State reports whether the overlay currently owns the surface.
func (a *OverlayArbiter) State() OverlayState {
	if a == nil {
		return OverlayState{}
	}
	at := a.showingAt.Load()
	if at == 0 {
		return OverlayState{}
	}
	return OverlayState{Showing: true, StartedAt: time.Unix(0, at), Duration: a.cfg.Duration}
}
