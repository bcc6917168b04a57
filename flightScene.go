package main

import (
	"fmt"

	"github.com/photonicat/flightboard/animator"
	"github.com/photonicat/flightboard/matrix"
)

const kmPerMile = 1.609344

// flightScene shows one tracked flight at a time and steps through them.
// Its keyframes run in registration order: cycle, details, divider.
type flightScene struct {
	canvas *matrix.Canvas
	store  *flightStore
	units  string

	index int
	// shown is set once a flight has been drawn since the last invalidation
	shown bool

	callsign *textField
	altitude *textField
	speed    *textField
	distance *textField
	count    *textField

	width        int
	dividerY     int
	dividerDrawn bool
}

func newFlightScene(reg *animator.Registry, periods PeriodsConfig, canvas *matrix.Canvas, fonts Fonts, panel PanelConfig, units string, store *flightStore) (*flightScene, error) {
	large := fontHeight(fonts.Large)
	small := fontHeight(fonts.Small)
	dividerY := 1 + large + 1
	row := dividerY + 2

	s := &flightScene{
		canvas:   canvas,
		store:    store,
		units:    units,
		callsign: newTextField(fonts.Large, 1, 1),
		count:    newRightField(fonts.Small, panel.Width-1, 1),
		altitude: newTextField(fonts.Small, 1, row),
		speed:    newTextField(fonts.Small, 1, row+small+1),
		distance: newTextField(fonts.Small, 1, row+2*(small+1)),
		width:    panel.Width,
		dividerY: dividerY,
	}

	err := reg.RegisterAll(animator.SceneFlightTracker,
		animator.Keyframe{Period: periods.FlightCycle, Callback: s.cycle},
		animator.Keyframe{Period: periods.FlightDetails, Callback: s.details},
		animator.Keyframe{Period: periods.FlightDivider, Callback: s.divider},
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (s *flightScene) ID() animator.SceneID { return animator.SceneFlightTracker }

// Invalidate restarts from the nearest flight and forgets everything drawn.
func (s *flightScene) Invalidate() {
	s.index = 0
	s.shown = false
	s.dividerDrawn = false
	for _, f := range s.fields() {
		f.Invalidate()
	}
}

func (s *flightScene) fields() []*textField {
	return []*textField{s.callsign, s.altitude, s.speed, s.distance, s.count}
}

// cycle moves to the next flight. The first flight after an invalidation is
// always the nearest one.
func (s *flightScene) cycle(animator.Tick) error {
	if !s.shown {
		return nil
	}
	if n := s.store.Count(); n > 0 {
		s.index = (s.index + 1) % n
	}
	return nil
}

func (s *flightScene) details(animator.Tick) error {
	flights, _ := s.store.Snapshot()
	if len(flights) == 0 {
		return nil
	}
	if s.index >= len(flights) {
		s.index = 0
	}
	f := flights[s.index]
	s.shown = true

	s.callsign.Set(s.canvas, f.Callsign, CALLSIGN_COLOUR)
	s.count.Set(s.canvas, fmt.Sprintf("%d/%d", s.index+1, len(flights)), INDEX_COLOUR)
	s.altitude.Set(s.canvas, formatAltitude(f.Altitude), DETAIL_COLOUR)
	s.speed.Set(s.canvas, fmt.Sprintf("%.0fkt", f.Speed), DETAIL_COLOUR)
	s.distance.Set(s.canvas, formatDistance(f.DistanceKm, s.units), DETAIL_COLOUR)
	return nil
}

// divider draws the line under the callsign once per invalidation.
func (s *flightScene) divider(animator.Tick) error {
	if s.dividerDrawn {
		return nil
	}
	s.canvas.DrawLine(0, s.dividerY, s.width-1, s.dividerY, DIVIDER_COLOUR)
	s.dividerDrawn = true
	return nil
}

// formatAltitude uses flight levels from 10000ft up.
func formatAltitude(ft int) string {
	if ft >= 10000 {
		return fmt.Sprintf("FL%03d", ft/100)
	}
	return fmt.Sprintf("%dft", ft)
}

func formatDistance(km float64, units string) string {
	if units == "metric" {
		return fmt.Sprintf("%.1fkm", km)
	}
	return fmt.Sprintf("%.1fmi", km/kmPerMile)
}
