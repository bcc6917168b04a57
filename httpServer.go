package main

import (
	"bytes"
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/photonicat/flightboard/animator"
	"github.com/photonicat/flightboard/matrix"
)

const (
	svgPitch     = 10
	maxDataBytes = 4 * 1024 * 1024
)

// httpServer serves the committed frame and the engine's state, and accepts
// pushed flight data.
type httpServer struct {
	session string
	canvas  *matrix.Canvas
	stats   func() animator.Stats
	overlay *animator.OverlayArbiter
	flights *flightStore
	weather *weatherCache
	probe   *netProbe
	cfg     FlightsConfig
	log     *slog.Logger
}

type statusResponse struct {
	Session string                `json:"session"`
	Loop    animator.Stats        `json:"loop"`
	Overlay animator.OverlayState `json:"overlay"`
	Flights []Flight              `json:"flights"`
	Updated time.Time             `json:"flights_updated"`
	Weather Weather               `json:"weather"`
	RTTMs   int64                 `json:"rtt_ms"`
}

func (s *httpServer) app() *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		BodyLimit:             maxDataBytes,
	})

	app.Get("/frame", s.serveFrame)
	app.Get("/frame.svg", s.serveFrameSVG)
	app.Get("/status", s.serveStatus)
	app.Post("/data", s.updateData)
	app.Post("/overlay", s.requestOverlay)
	return app
}

func (s *httpServer) serveFrame(c *fiber.Ctx) error {
	var buf bytes.Buffer
	if err := matrix.EncodePNG(&buf, s.canvas.Snapshot()); err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString("Failed to encode image")
	}

	c.Set("Content-Type", "image/png")
	c.Set("Content-Length", strconv.Itoa(buf.Len()))
	return c.Send(buf.Bytes())
}

func (s *httpServer) serveFrameSVG(c *fiber.Ctx) error {
	var buf bytes.Buffer
	matrix.EncodeSVG(&buf, s.canvas.Snapshot(), svgPitch)

	c.Set("Content-Type", "image/svg+xml")
	return c.Send(buf.Bytes())
}

func (s *httpServer) serveStatus(c *fiber.Ctx) error {
	flights, updated := s.flights.Snapshot()
	resp := statusResponse{
		Session: s.session,
		Flights: flights,
		Updated: updated,
		Weather: s.weather.Get(),
		RTTMs:   -1,
	}
	if s.stats != nil {
		resp.Loop = s.stats()
	}
	if s.overlay != nil {
		resp.Overlay = s.overlay.State()
	}
	if s.probe != nil {
		resp.RTTMs = s.probe.RTT()
	}
	return c.JSON(resp)
}

// updateData takes a dump1090 aircraft.json document, for receivers that
// push instead of being polled.
func (s *httpServer) updateData(c *fiber.Ctx) error {
	flights, err := parseAircraft(c.Body(), s.cfg)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("Invalid aircraft JSON")
	}
	s.flights.Set(flights, time.Now())
	s.log.Debug("flights pushed", "count", len(flights), "remote", c.IP())
	return c.JSON(fiber.Map{"tracked": len(flights)})
}

func (s *httpServer) requestOverlay(c *fiber.Ctx) error {
	if s.overlay == nil {
		return c.Status(fiber.StatusServiceUnavailable).SendString("Overlay disabled")
	}
	s.overlay.Request()
	return c.SendStatus(fiber.StatusAccepted)
}

// serve listens until ctx is done.
func (s *httpServer) serve(ctx context.Context, listen string) error {
	app := s.app()
	errc := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", "listen", listen)
		errc <- app.Listen(listen)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		return app.ShutdownWithTimeout(2 * time.Second)
	}
}
