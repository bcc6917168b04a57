package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/photonicat/flightboard/animator"
)

//---------------- Config Structs ----------------

// PanelConfig describes the LED matrix and how frames reach it.
type PanelConfig struct {
	Width  int `json:"width"`
	Height int `json:"height"`
	// Sink is "spi" for a panel controller on an SPI bus or "null" to run
	// headless (preview over HTTP only).
	Sink       string `json:"sink"`
	SPIPort    string `json:"spi_port"`
	SPISpeedHz int64  `json:"spi_speed_hz"`
	EnablePin  string `json:"enable_pin"`
}

type DimConfig struct {
	StartHour  int `json:"start_hour"`
	EndHour    int `json:"end_hour"`
	Brightness int `json:"brightness"`
}

type OverlayConfig struct {
	Enabled         bool   `json:"enabled"`
	Path            string `json:"path"`
	IntervalSeconds int    `json:"interval_seconds"`
	DurationSeconds int    `json:"duration_seconds"`
}

type ShutdownConfig struct {
	Enabled bool     `json:"enabled"`
	Time    string   `json:"time"`
	Command []string `json:"command"`
	DryRun  bool     `json:"dry_run"`
}

// PeriodsConfig holds every keyframe period, in ticks.
type PeriodsConfig struct {
	Clock         int `json:"clock"`
	Date          int `json:"date"`
	Weather       int `json:"weather"`
	FlightDetails int `json:"flight_details"`
	FlightCycle   int `json:"flight_cycle"`
	FlightDivider int `json:"flight_divider"`
}

type ClockConfig struct {
	// Format is 12 or 24.
	Format          int `json:"format"`
	TwilightMinutes int `json:"twilight_minutes"`
}

type WeatherConfig struct {
	Enabled bool   `json:"enabled"`
	URL     string `json:"url"`
	APIKey  string `json:"api_key"`
	// Location is the OpenWeather city query, e.g. "Glasgow".
	Location            string `json:"location"`
	Units               string `json:"units"`
	PollIntervalSeconds int    `json:"poll_interval_seconds"`
	ProbeHost           string `json:"probe_host"`
}

type Zone struct {
	TopLeftLat     float64 `json:"tl_lat"`
	TopLeftLon     float64 `json:"tl_lon"`
	BottomRightLat float64 `json:"br_lat"`
	BottomRightLon float64 `json:"br_lon"`
}

type Location struct {
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
	AltKm float64 `json:"alt_km"`
}

type FlightsConfig struct {
	// Source is "http" (poll a dump1090 aircraft.json URL), "file" (watch an
	// aircraft.json written by the receiver) or "none".
	Source              string   `json:"source"`
	URL                 string   `json:"url"`
	File                string   `json:"file"`
	PollIntervalSeconds int      `json:"poll_interval_seconds"`
	Zone                Zone     `json:"zone"`
	Home                Location `json:"home"`
	MinAltitude         int      `json:"min_altitude"`
	MaxTracked          int      `json:"max_tracked"`
}

type HTTPConfig struct {
	Enabled bool   `json:"enabled"`
	Listen  string `json:"listen"`
}

type InputConfig struct {
	Enabled    bool   `json:"enabled"`
	DeviceName string `json:"device_name"`
}

type LogConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// FontsConfig points at TTF/OTF files. Empty paths use the built in 7x13
// bitmap face.
type FontsConfig struct {
	Large     string  `json:"large"`
	LargeSize float64 `json:"large_size"`
	Small     string  `json:"small"`
	SmallSize float64 `json:"small_size"`
}

// Config represents the overall config JSON. It is read once at startup.
type Config struct {
	Panel      PanelConfig    `json:"panel"`
	FrameRate  int            `json:"frame_rate"`
	Brightness int            `json:"brightness"`
	Dim        DimConfig      `json:"dim"`
	Overlay    OverlayConfig  `json:"overlay"`
	Shutdown   ShutdownConfig `json:"shutdown"`
	Periods    PeriodsConfig  `json:"periods"`
	Clock      ClockConfig    `json:"clock"`
	Weather    WeatherConfig  `json:"weather"`
	Flights    FlightsConfig  `json:"flights"`
	HTTP       HTTPConfig     `json:"http"`
	Input      InputConfig    `json:"input"`
	Log        LogConfig      `json:"log"`
	Fonts      FontsConfig    `json:"fonts"`
}

func defaultConfig() Config {
	return Config{
		Panel:      PanelConfig{Width: 128, Height: 64, Sink: "spi", SPIPort: "SPI0.0"},
		FrameRate:  animator.DefaultFrameRate,
		Brightness: 50,
		Dim:        DimConfig{StartHour: 22, EndHour: 7, Brightness: 15},
		Overlay: OverlayConfig{
			Enabled:         true,
			Path:            "images/logo.ppm",
			IntervalSeconds: 30,
			DurationSeconds: 5,
		},
		Shutdown: ShutdownConfig{
			Enabled: false,
			Time:    "23:30",
			Command: []string{"sudo", "shutdown", "-h", "now"},
		},
		Clock: ClockConfig{Format: 12, TwilightMinutes: 30},
		Weather: WeatherConfig{
			Enabled:             true,
			URL:                 "https://api.openweathermap.org/data/2.5/weather",
			Location:            "Glasgow",
			Units:               "imperial",
			PollIntervalSeconds: 600,
			ProbeHost:           "api.openweathermap.org",
		},
		Flights: FlightsConfig{
			Source:              "http",
			URL:                 "http://localhost:8080/data/aircraft.json",
			File:                "/run/dump1090-fa/aircraft.json",
			PollIntervalSeconds: 10,
			Zone:                Zone{TopLeftLat: 56.06403, TopLeftLon: -4.51589, BottomRightLat: 55.89088, BottomRightLon: -4.19694},
			Home:                Location{Lat: 55.9074356, Lon: -4.3331678, AltKm: 0.01781},
			MinAltitude:         100,
			MaxTracked:          5,
		},
		HTTP:  HTTPConfig{Enabled: true, Listen: ":8081"},
		Input: InputConfig{Enabled: false, DeviceName: "rk805 pwrkey"},
		Log:   LogConfig{Level: "info", Format: "text"},
		Fonts: FontsConfig{LargeSize: 16, SmallSize: 8},
	}
}

// fillPeriods derives unset keyframe periods from the frame rate. Periods
// set explicitly are kept as is, even invalid ones: the scene owning them
// fails to register and is left out.
func (cfg *Config) fillPeriods() {
	fps := cfg.FrameRate
	if fps <= 0 {
		fps = animator.DefaultFrameRate
	}
	set := func(p *int, v int) {
		if *p == 0 {
			*p = v
		}
	}
	set(&cfg.Periods.Clock, fps)
	set(&cfg.Periods.Date, fps*60)
	set(&cfg.Periods.Weather, fps*5)
	set(&cfg.Periods.FlightDetails, fps)
	set(&cfg.Periods.FlightCycle, fps*5)
	set(&cfg.Periods.FlightDivider, 1)
}

// loadConfig reads the config file over the defaults and validates it.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.fillPeriods()
	if err := cfg.validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// validate reports every bad field at once. A malformed shutdown time is
// not an error here: it only disables the scheduler.
func (cfg Config) validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(cfg.Panel.Width > 0 && cfg.Panel.Height > 0, "panel size %dx%d", cfg.Panel.Width, cfg.Panel.Height)
	check(cfg.Panel.Sink == "spi" || cfg.Panel.Sink == "null", "panel.sink %q is not spi or null", cfg.Panel.Sink)
	check(cfg.FrameRate > 0 && cfg.FrameRate <= 240, "frame_rate %d out of range", cfg.FrameRate)
	check(cfg.Brightness >= 0 && cfg.Brightness <= 100, "brightness %d out of range", cfg.Brightness)
	check(cfg.Dim.Brightness >= 0 && cfg.Dim.Brightness <= 100, "dim.brightness %d out of range", cfg.Dim.Brightness)
	check(validHour(cfg.Dim.StartHour) && validHour(cfg.Dim.EndHour), "dim window %d-%d", cfg.Dim.StartHour, cfg.Dim.EndHour)
	if cfg.Overlay.Enabled {
		check(cfg.Overlay.IntervalSeconds > 0, "overlay.interval_seconds must be positive")
		check(cfg.Overlay.DurationSeconds > 0, "overlay.duration_seconds must be positive")
	}
	if cfg.Shutdown.Enabled {
		check(len(cfg.Shutdown.Command) > 0, "shutdown.command is empty")
	}
	check(cfg.Clock.Format == 12 || cfg.Clock.Format == 24, "clock.format %d is not 12 or 24", cfg.Clock.Format)
	check(cfg.Weather.Units == "imperial" || cfg.Weather.Units == "metric", "weather.units %q", cfg.Weather.Units)
	if cfg.Weather.Enabled {
		check(cfg.Weather.PollIntervalSeconds > 0, "weather.poll_interval_seconds must be positive")
	}
	switch cfg.Flights.Source {
	case "http":
		check(cfg.Flights.URL != "", "flights.url is empty")
		check(cfg.Flights.PollIntervalSeconds > 0, "flights.poll_interval_seconds must be positive")
	case "file":
		check(cfg.Flights.File != "", "flights.file is empty")
	case "none":
	default:
		errs = append(errs, fmt.Errorf("flights.source %q is not http, file or none", cfg.Flights.Source))
	}
	check(cfg.Flights.MaxTracked > 0, "flights.max_tracked must be positive")
	if cfg.HTTP.Enabled {
		check(cfg.HTTP.Listen != "", "http.listen is empty")
	}
	check(cfg.Log.Format == "text" || cfg.Log.Format == "json", "log.format %q", cfg.Log.Format)
	return errors.Join(errs...)
}

func validHour(h int) bool {
	return h >= 0 && h <= 23
}

//---------------- Engine Config ----------------

func (cfg Config) loopConfig() animator.LoopConfig {
	return animator.LoopConfig{FrameRate: cfg.FrameRate}
}

func (cfg Config) dimConfig() animator.DimConfig {
	return animator.DimConfig{
		StartHour: cfg.Dim.StartHour,
		EndHour:   cfg.Dim.EndHour,
		Normal:    cfg.Brightness,
		Dimmed:    cfg.Dim.Brightness,
	}
}

func (cfg Config) overlayConfig() animator.OverlayConfig {
	return animator.OverlayConfig{
		Enabled:  cfg.Overlay.Enabled,
		Interval: time.Duration(cfg.Overlay.IntervalSeconds) * time.Second,
		Duration: time.Duration(cfg.Overlay.DurationSeconds) * time.Second,
	}
}

func (cfg Config) shutdownConfig() animator.ShutdownConfig {
	return animator.ShutdownConfig{
		Enabled:      cfg.Shutdown.Enabled,
		Time:         cfg.Shutdown.Time,
		PollInterval: animator.DefaultShutdownPoll,
		Grace:        animator.DefaultShutdownGrace,
	}
}
