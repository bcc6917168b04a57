package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/photonicat/flightboard/animator"
	"github.com/photonicat/flightboard/matrix"
)

const probeInterval = time.Minute

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:          "flightboard",
		Short:        "Clock, weather and overhead flights on an LED matrix",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "config.json", "path to the config file")

	root.AddCommand(
		&cobra.Command{
			Use:   "run",
			Short: "Drive the panel until interrupted",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runBoard(cmd.Context(), configPath, cmd.ErrOrStderr())
			},
		},
		&cobra.Command{
			Use:   "check",
			Short: "Validate the config, fonts and overlay image",
			RunE: func(cmd *cobra.Command, args []string) error {
				return checkConfig(configPath, cmd.OutOrStdout())
			},
		},
		newSnapshotCmd(&configPath),
	)
	return root
}

//---------------- run ----------------

func runBoard(ctx context.Context, configPath string, logOut io.Writer) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	session := uuid.NewString()
	log := newLogger(cfg.Log, logOut, session)
	log.Info("starting", "config", configPath, "fps", cfg.FrameRate)

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	canvas, err := openDisplay(cfg.Panel, log)
	if err != nil {
		return err
	}
	defer canvas.Close()

	fonts := loadFonts(cfg.Fonts, log)
	eng := newEngine(cfg, canvas, fonts, log)
	shutdown := animator.NewShutdownScheduler(cfg.shutdownConfig(), canvas,
		shutdownAction(cfg.Shutdown, log.With("component", "power")), log)
	probe := newNetProbe()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return eng.loop.Run(ctx) })
	g.Go(func() error { return shutdown.Run(ctx) })

	// collectors only log their failures; the panel keeps running on stale data
	collect := func(name string, fn func(context.Context, *slog.Logger) error) {
		clog := log.With("component", name)
		g.Go(func() error {
			if err := fn(ctx, clog); err != nil {
				clog.Error("collector stopped", "error", err)
			}
			return nil
		})
	}

	switch cfg.Flights.Source {
	case "http":
		collect("flights", func(ctx context.Context, l *slog.Logger) error {
			return pollFlights(ctx, cfg.Flights, eng.flights, l)
		})
	case "file":
		collect("flights", func(ctx context.Context, l *slog.Logger) error {
			return watchFlights(ctx, cfg.Flights, eng.flights, l)
		})
	}
	if cfg.Weather.Enabled {
		collect("weather", func(ctx context.Context, l *slog.Logger) error {
			return pollWeather(ctx, cfg.Weather, eng.weather, l)
		})
		if cfg.Weather.ProbeHost != "" {
			collect("probe", func(ctx context.Context, l *slog.Logger) error {
				return probe.run(ctx, cfg.Weather.ProbeHost, probeInterval, l)
			})
		}
	}
	if cfg.Input.Enabled {
		collect("input", func(ctx context.Context, l *slog.Logger) error {
			return watchKeys(ctx, cfg.Input, eng.overlay.Request, l)
		})
	}
	if cfg.HTTP.Enabled {
		srv := &httpServer{
			session: session,
			canvas:  canvas,
			stats:   eng.loop.Stats,
			overlay: eng.overlay,
			flights: eng.flights,
			weather: eng.weather,
			probe:   probe,
			cfg:     cfg.Flights,
			log:     log.With("component", "http"),
		}
		g.Go(func() error { return srv.serve(ctx, cfg.HTTP.Listen) })
	}

	err = g.Wait()
	log.Info("stopped", "error", err)
	return err
}

//---------------- check ----------------

// checkConfig loads everything run would load, without opening the panel.
func checkConfig(configPath string, out io.Writer) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	log := newLogger(cfg.Log, out, "check")

	var errs []error
	for name, f := range map[string]struct {
		path string
		size float64
	}{
		"large": {cfg.Fonts.Large, cfg.Fonts.LargeSize},
		"small": {cfg.Fonts.Small, cfg.Fonts.SmallSize},
	} {
		if f.path == "" {
			continue
		}
		if _, _, err := getFontFace(f.path, f.size); err != nil {
			errs = append(errs, fmt.Errorf("%s font: %w", name, err))
		}
	}
	if cfg.Overlay.Enabled {
		if _, err := loadLogo(cfg.Overlay.Path, cfg.Panel.Width, cfg.Panel.Height); err != nil {
			errs = append(errs, fmt.Errorf("%w: %v", animator.ErrAssetLoad, err))
		}
	}
	if cfg.Shutdown.Enabled {
		if _, _, err := animator.ParseShutdownTime(cfg.Shutdown.Time); err != nil {
			errs = append(errs, err)
		}
	}

	// register every scene against a throwaway canvas to surface bad periods
	reg := animator.NewRegistry()
	canvas := matrix.NewCanvas(cfg.Panel.Width, cfg.Panel.Height, &matrix.NullSink{})
	idle, flight := buildScenes(cfg, reg, canvas, loadFonts(cfg.Fonts, log), &flightStore{}, &weatherCache{}, log)

	fmt.Fprintf(out, "panel      %dx%d via %s\n", cfg.Panel.Width, cfg.Panel.Height, cfg.Panel.Sink)
	fmt.Fprintf(out, "frame rate %d fps\n", cfg.FrameRate)
	fmt.Fprintf(out, "scenes     %d idle, %d flight, %d keyframes\n", len(idle), len(flight), reg.Len())
	fmt.Fprintf(out, "flights    %s\n", cfg.Flights.Source)
	fmt.Fprintf(out, "overlay    %v\n", cfg.Overlay.Enabled)
	fmt.Fprintf(out, "shutdown   %v at %s\n", cfg.Shutdown.Enabled, cfg.Shutdown.Time)
	return errors.Join(errs...)
}

//---------------- snapshot ----------------

func newSnapshotCmd(configPath *string) *cobra.Command {
	var outPath, flightsPath string
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Render one frame headless and write it as PNG",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			f, err := os.Create(outPath)
			if err != nil {
				return err
			}
			defer f.Close()
			return snapshot(cmd.Context(), cfg, flightsPath, f, cmd.ErrOrStderr())
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "frame.png", "where to write the PNG")
	cmd.Flags().StringVar(&flightsPath, "flights", "", "aircraft.json to render the flight scene from")
	return cmd
}

// snapshot renders the first frame onto a headless canvas. The overlay is
// left out so the scenes are what gets captured.
func snapshot(ctx context.Context, cfg Config, flightsPath string, out io.Writer, logOut io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	log := newLogger(cfg.Log, logOut, "snapshot")
	cfg.Overlay.Enabled = false

	canvas := matrix.NewCanvas(cfg.Panel.Width, cfg.Panel.Height, &matrix.NullSink{})
	eng := newEngine(cfg, canvas, loadFonts(cfg.Fonts, log), log)
	if flightsPath != "" {
		data, err := os.ReadFile(flightsPath)
		if err != nil {
			return err
		}
		if err := updateFlights(data, cfg.Flights, eng.flights); err != nil {
			return err
		}
	}
	if _, err := eng.loop.Step(ctx); err != nil {
		return err
	}
	return matrix.EncodePNG(out, canvas.Snapshot())
}
