package main

import (
	"fmt"
	"image/color"
	"log/slog"
	"time"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/photonicat/flightboard/animator"
	"github.com/photonicat/flightboard/matrix"
)

// sunSource supplies today's sunrise and sunset.
type sunSource interface {
	SunTimes() (sunrise, sunset time.Time)
}

// buildScenes creates every scene and registers its keyframes. A scene that
// fails to register is logged and left out; the others still run.
func buildScenes(cfg Config, reg *animator.Registry, canvas *matrix.Canvas, fonts Fonts, store *flightStore, weather *weatherCache, log *slog.Logger) (idle, flight []animator.Scene) {
	add := func(set *[]animator.Scene, id animator.SceneID, s animator.Scene, err error) {
		if err != nil {
			log.Error("scene disabled", "scene", id, "error", err)
			return
		}
		*set = append(*set, s)
	}

	layout := newIdleLayout(cfg.Panel, fonts)

	clock, err := newClockScene(reg, cfg.Periods.Clock, canvas, fonts, layout, cfg.Clock, weather)
	add(&idle, animator.SceneClock, clock, err)

	date, err := newDateScene(reg, cfg.Periods.Date, canvas, fonts, layout)
	add(&idle, animator.SceneDate, date, err)

	if cfg.Weather.Enabled {
		w, err := newWeatherScene(reg, cfg.Periods.Weather, canvas, fonts, layout, weather)
		add(&idle, animator.SceneWeather, w, err)
	}

	if cfg.Flights.Source != "none" {
		f, err := newFlightScene(reg, cfg.Periods, canvas, fonts, cfg.Panel, cfg.Weather.Units, store)
		add(&flight, animator.SceneFlightTracker, f, err)
	}
	return idle, flight
}

// idleLayout positions the idle scenes on the panel.
type idleLayout struct {
	clockX, clockY int
	dateX, dateY   int
	tempX, tempY   int
	condX, condY   int
}

func newIdleLayout(panel PanelConfig, fonts Fonts) idleLayout {
	large := fontHeight(fonts.Large)
	small := fontHeight(fonts.Small)
	return idleLayout{
		clockX: 1, clockY: 1,
		dateX: 1, dateY: 1 + large + 2,
		tempX: panel.Width - 1, tempY: 1,
		condX: 1, condY: panel.Height - small - 1,
	}
}

//---------------- Clock ----------------

type clockScene struct {
	canvas   *matrix.Canvas
	field    *textField
	layout   string
	twilight time.Duration
	sun      sunSource
	now      func() time.Time
}

func newClockScene(reg *animator.Registry, period int, canvas *matrix.Canvas, fonts Fonts, l idleLayout, cfg ClockConfig, sun sunSource) (*clockScene, error) {
	s := &clockScene{
		canvas:   canvas,
		field:    newTextField(fonts.Large, l.clockX, l.clockY),
		layout:   "3:04",
		twilight: time.Duration(cfg.TwilightMinutes) * time.Minute,
		sun:      sun,
		now:      time.Now,
	}
	if cfg.Format == 24 {
		s.layout = "15:04"
	}
	if err := reg.Register(period, s.draw, animator.SceneClock); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *clockScene) ID() animator.SceneID { return animator.SceneClock }

func (s *clockScene) Invalidate() { s.field.Invalidate() }

func (s *clockScene) draw(animator.Tick) error {
	now := s.now()
	sunrise, sunset := s.sun.SunTimes()
	s.field.Set(s.canvas, now.Format(s.layout), clockColour(now, sunrise, sunset, s.twilight))
	return nil
}

// clockColour is the night colour before sunrise and after sunset and the
// day colour in between, blended through a twilight window centred on each.
// Without sun times yet the day colour is used.
func clockColour(now, sunrise, sunset time.Time, twilight time.Duration) color.RGBA {
	if sunrise.IsZero() || sunset.IsZero() {
		return DAY_COLOUR
	}
	d := daylight(now, sunrise, sunset, twilight)
	switch {
	case d <= 0:
		return NIGHT_COLOUR
	case d >= 1:
		return DAY_COLOUR
	}
	night, _ := colorful.MakeColor(NIGHT_COLOUR)
	day, _ := colorful.MakeColor(DAY_COLOUR)
	r, g, b := night.BlendLab(day, d).Clamped().RGB255()
	return color.RGBA{r, g, b, 255}
}

// daylight is 0 at night, 1 during the day and ramps linearly across the
// twilight window around sunrise and sunset.
func daylight(now, sunrise, sunset time.Time, twilight time.Duration) float64 {
	ramp := func(edge time.Time) float64 {
		if twilight <= 0 {
			if now.Before(edge) {
				return 0
			}
			return 1
		}
		x := float64(now.Sub(edge.Add(-twilight/2))) / float64(twilight)
		return clamp01(x)
	}
	return clamp01(ramp(sunrise) - ramp(sunset))
}

func clamp01(x float64) float64 {
	switch {
	case x < 0:
		return 0
	case x > 1:
		return 1
	}
	return x
}

//---------------- Date ----------------

type dateScene struct {
	canvas *matrix.Canvas
	field  *textField
	now    func() time.Time
}

func newDateScene(reg *animator.Registry, period int, canvas *matrix.Canvas, fonts Fonts, l idleLayout) (*dateScene, error) {
	s := &dateScene{
		canvas: canvas,
		field:  newTextField(fonts.Small, l.dateX, l.dateY),
		now:    time.Now,
	}
	if err := reg.Register(period, s.draw, animator.SceneDate); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *dateScene) ID() animator.SceneID { return animator.SceneDate }

func (s *dateScene) Invalidate() { s.field.Invalidate() }

func (s *dateScene) draw(animator.Tick) error {
	s.field.Set(s.canvas, s.now().Format("Mon 2 Jan"), DATE_COLOUR)
	return nil
}

//---------------- Weather ----------------

type weatherScene struct {
	canvas    *matrix.Canvas
	cache     *weatherCache
	temp      *textField
	condition *textField
}

func newWeatherScene(reg *animator.Registry, period int, canvas *matrix.Canvas, fonts Fonts, l idleLayout, cache *weatherCache) (*weatherScene, error) {
	s := &weatherScene{
		canvas:    canvas,
		cache:     cache,
		temp:      newRightField(fonts.Small, l.tempX, l.tempY),
		condition: newTextField(fonts.Small, l.condX, l.condY),
	}
	if err := reg.Register(period, s.draw, animator.SceneWeather); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *weatherScene) ID() animator.SceneID { return animator.SceneWeather }

func (s *weatherScene) Invalidate() {
	s.temp.Invalidate()
	s.condition.Invalidate()
}

func (s *weatherScene) draw(animator.Tick) error {
	w := s.cache.Get()
	if !w.HaveCurrent {
		s.temp.Set(s.canvas, "--", TEMP_COLOUR)
		return nil
	}
	s.temp.Set(s.canvas, formatTemperature(w.Temperature, w.Units), TEMP_COLOUR)
	s.condition.Set(s.canvas, w.Condition, CONDITION_COLOUR)
	return nil
}

func formatTemperature(t float64, units string) string {
	suffix := "F"
	if units == "metric" {
		suffix = "C"
	}
	return fmt.Sprintf("%.0f%s", t, suffix)
}
