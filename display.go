package main

import (
	"fmt"
	"image"
	"log/slog"

	"github.com/photonicat/flightboard/animator"
	"github.com/photonicat/flightboard/matrix"
)

// openDisplay opens the configured sink and wraps it in a canvas.
func openDisplay(cfg PanelConfig, log *slog.Logger) (*matrix.Canvas, error) {
	var sink matrix.Sink
	switch cfg.Sink {
	case "spi":
		s, err := matrix.OpenSPI(matrix.SPIConfig{
			Port:      cfg.SPIPort,
			SpeedHz:   cfg.SPISpeedHz,
			EnablePin: cfg.EnablePin,
		})
		if err != nil {
			return nil, fmt.Errorf("open panel on %s: %w", cfg.SPIPort, err)
		}
		sink = s
	case "null":
		sink = &matrix.NullSink{}
	default:
		return nil, fmt.Errorf("unknown panel sink %q", cfg.Sink)
	}
	log.Info("panel opened", "sink", cfg.Sink, "width", cfg.Width, "height", cfg.Height)
	return matrix.NewCanvas(cfg.Width, cfg.Height, sink), nil
}

// engine is everything the animation loop needs, wired together.
type engine struct {
	registry *animator.Registry
	scenes   *animator.SceneManager
	overlay  *animator.OverlayArbiter
	dimmer   *animator.Dimmer
	loop     *animator.Loop

	flights *flightStore
	weather *weatherCache
}

func newEngine(cfg Config, canvas *matrix.Canvas, fonts Fonts, log *slog.Logger) *engine {
	e := &engine{
		registry: animator.NewRegistry(),
		dimmer:   animator.NewDimmer(cfg.dimConfig()),
		flights:  &flightStore{},
		weather:  &weatherCache{},
	}

	idle, flight := buildScenes(cfg, e.registry, canvas, fonts, e.flights, e.weather, log.With("component", "scenes"))
	e.scenes = animator.NewSceneManager(e.flights, idle, flight, log)

	e.overlay = animator.NewOverlayArbiter(cfg.overlayConfig(), func() (image.Image, error) {
		return loadLogo(cfg.Overlay.Path, cfg.Panel.Width, cfg.Panel.Height)
	}, log)

	e.loop = animator.NewLoop(cfg.loopConfig(), e.registry, e.scenes, e.overlay, e.dimmer, canvas, log)
	return e
}
