package main

import (
	"image"
	"io"
	"log/slog"

	"github.com/photonicat/flightboard/matrix"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testConfig is the default config made headless, with periods filled in.
func testConfig() Config {
	cfg := defaultConfig()
	cfg.Panel.Sink = "null"
	cfg.Overlay.Enabled = false
	cfg.fillPeriods()
	return cfg
}

func testCanvas(cfg Config) *matrix.Canvas {
	return matrix.NewCanvas(cfg.Panel.Width, cfg.Panel.Height, &matrix.NullSink{})
}

// lit counts pixels in r that are not black.
func lit(img *image.RGBA, r image.Rectangle) int {
	n := 0
	r = r.Intersect(img.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			p := img.RGBAAt(x, y)
			if p.R != 0 || p.G != 0 || p.B != 0 {
				n++
			}
		}
	}
	return n
}
