package animator

import (
	"log/slog"
	"sync/atomic"
)

// SceneID names a scene. Keyframes are registered against it.
type SceneID int

const (
	SceneClock SceneID = iota
	SceneDate
	SceneWeather
	SceneFlightTracker
)

func (id SceneID) String() string {
	switch id {
	case SceneClock:
		return "clock"
	case SceneDate:
		return "date"
	case SceneWeather:
		return "weather"
	case SceneFlightTracker:
		return "flight-tracker"
	default:
		return "unknown"
	}
}

// Scene is a unit of display logic owning one or more keyframes.
type Scene interface {
	ID() SceneID
	// Invalidate forgets whatever the scene last drew, so the next keyframe
	// draws fresh instead of erasing a stale value.
	Invalidate()
}

// FlightFeed reports how many flights are currently tracked.
type FlightFeed interface {
	Count() int
}

// Mode is the scene set the manager currently shows.
type Mode int32

const (
	ModeIdle Mode = iota
	ModeFlight
)

func (m Mode) String() string {
	if m == ModeFlight {
		return "flight"
	}
	return "idle"
}

// SceneManager switches between the flight tracker and the idle scenes
// depending on whether any flight is being tracked.
type SceneManager struct {
	feed   FlightFeed
	idle   []Scene
	flight []Scene
	mode   atomic.Int32
	log    *slog.Logger
}

// NewSceneManager starts in idle mode. idle scenes are drawn together in the
// given order; so are the flight scenes.
func NewSceneManager(feed FlightFeed, idle, flight []Scene, log *slog.Logger) *SceneManager {
	if log == nil {
		log = slog.Default()
	}
	return &SceneManager{
		feed:   feed,
		idle:   idle,
		flight: flight,
		log:    log.With("component", "scenes"),
	}
}

// Select decides the active scene set for this tick. It must be called once
// per tick before any keyframe runs. switched is true when the mode changed,
// in which case every scene of both sets has been invalidated.
func (m *SceneManager) Select() (active []Scene, switched bool) {
	want := ModeIdle
	if m.feed != nil && len(m.flight) > 0 && m.feed.Count() > 0 {
		want = ModeFlight
	}

	cur := Mode(m.mode.Load())
	if want != cur {
		m.InvalidateAll()
		m.mode.Store(int32(want))
		m.log.Info("scene switch", "from", cur, "to", want)
		switched = true
	}

	if want == ModeFlight {
		return m.flight, switched
	}
	return m.idle, switched
}

// InvalidateAll makes every scene of both sets redraw from scratch.
func (m *SceneManager) InvalidateAll() {
	for _, s := range m.idle {
		s.Invalidate()
	}
	for _, s := range m.flight {
		s.Invalidate()
	}
}

// Mode is the current mode. Safe to call from any goroutine.
func (m *SceneManager) Mode() Mode {
	return Mode(m.mode.Load())
}
