package animator

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultShutdownPoll  = 30 * time.Second
	DefaultShutdownGrace = 2 * time.Second
)

type ShutdownConfig struct {
	Enabled bool
	// Time is the wall-clock trigger, "HH:MM" in 24h format.
	Time         string
	PollInterval time.Duration
	Grace        time.Duration
}

// ShutdownAction powers the machine off. Nothing is expected back: the
// process is usually gone before it would matter.
type ShutdownAction func(ctx context.Context)

// ParseShutdownTime parses "HH:MM" (24h).
func ParseShutdownTime(s string) (hour, minute int, err error) {
	hs, ms, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q is not HH:MM", ErrMalformedShutdownTime, s)
	}
	hour, herr := strconv.Atoi(hs)
	minute, merr := strconv.Atoi(ms)
	if herr != nil || merr != nil || len(ms) != 2 {
		return 0, 0, fmt.Errorf("%w: %q is not HH:MM", ErrMalformedShutdownTime, s)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("%w: %q is out of range", ErrMalformedShutdownTime, s)
	}
	return hour, minute, nil
}

// ShutdownGuard fires once per matching minute. It re-arms as soon as the
// minute no longer matches, so the same time fires again the next day.
type ShutdownGuard struct {
	Hour   int
	Minute int
	fired  bool
}

// Check reports whether the shutdown must fire at now.
func (g *ShutdownGuard) Check(now time.Time) bool {
	if now.Minute() != g.Minute {
		g.fired = false
		return false
	}
	if now.Hour() != g.Hour || g.fired {
		return false
	}
	g.fired = true
	return true
}

// Fired is true while the guard is holding off a second trigger.
func (g *ShutdownGuard) Fired() bool {
	return g.fired
}

// ShutdownScheduler runs on its own goroutine, independent of the loop.
type ShutdownScheduler struct {
	cfg     ShutdownConfig
	guard   ShutdownGuard
	surface Surface
	action  ShutdownAction
	err     error

	now   func() time.Time
	sleep SleepFunc
	log   *slog.Logger
}

// NewShutdownScheduler parses cfg.Time once. A malformed time is logged and
// disables the scheduler.
func NewShutdownScheduler(cfg ShutdownConfig, surface Surface, action ShutdownAction, log *slog.Logger) *ShutdownScheduler {
	if log == nil {
		log = slog.Default()
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultShutdownPoll
	}
	if cfg.Grace < 0 {
		cfg.Grace = DefaultShutdownGrace
	}
	s := &ShutdownScheduler{
		cfg:     cfg,
		surface: surface,
		action:  action,
		now:     time.Now,
		sleep:   sleepContext,
		log:     log.With("component", "shutdown"),
	}
	if !cfg.Enabled {
		return s
	}
	hour, minute, err := ParseShutdownTime(cfg.Time)
	if err != nil {
		s.err = err
		s.log.Error("auto shutdown disabled", "error", err)
		return s
	}
	s.guard = ShutdownGuard{Hour: hour, Minute: minute}
	s.log.Info("auto shutdown scheduled", "at", fmt.Sprintf("%02d:%02d", hour, minute))
	return s
}

func (s *ShutdownScheduler) Enabled() bool {
	return s.cfg.Enabled && s.err == nil && s.action != nil
}

// Err is the parse error that disabled the scheduler, if any.
func (s *ShutdownScheduler) Err() error {
	return s.err
}

// Poll checks the guard at now and runs the shutdown sequence when it fires.
func (s *ShutdownScheduler) Poll(ctx context.Context, now time.Time) bool {
	if !s.Enabled() || !s.guard.Check(now) {
		return false
	}
	s.log.Info("auto shutdown triggered", "at", now.Format("15:04"))

	// the loop may be mid-frame; the machine is going down either way
	if err := s.surface.Clear(); err != nil {
		s.log.Warn("clear before shutdown", "error", err)
	}
	if err := s.surface.Commit(); err != nil {
		s.log.Warn("commit before shutdown", "error", err)
	}
	if err := s.sleep(ctx, s.cfg.Grace); err != nil {
		return false
	}
	s.action(ctx)
	return true
}

// Run polls until ctx is cancelled.
func (s *ShutdownScheduler) Run(ctx context.Context) error {
	if !s.Enabled() {
		return nil
	}
	for {
		s.Poll(ctx, s.now())
		if err := s.sleep(ctx, s.cfg.PollInterval); err != nil {
			return nil
		}
	}
}
