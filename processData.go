package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-ping/ping"
	"github.com/gofiber/fiber/v2"

	"github.com/photonicat/flightboard/animator"
)

const fetchTimeout = 10 * time.Second

//---------------- Flights ----------------

// Flight is one aircraft inside the tracking zone.
type Flight struct {
	Hex        string  `json:"hex"`
	Callsign   string  `json:"callsign"`
	Altitude   int     `json:"altitude"`
	Speed      float64 `json:"speed"`
	Track      float64 `json:"track"`
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	DistanceKm float64 `json:"distance_km"`
}

// flightStore holds the latest tracked flights. Collectors write it, the
// scene manager and the flight scene read it.
type flightStore struct {
	mu      sync.RWMutex
	flights []Flight
	updated time.Time
}

func (s *flightStore) Set(flights []Flight, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flights = flights
	s.updated = at
}

// Count implements animator.FlightFeed.
func (s *flightStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.flights)
}

func (s *flightStore) Snapshot() ([]Flight, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Flight, len(s.flights))
	copy(out, s.flights)
	return out, s.updated
}

// aircraftJSON is the subset of dump1090's aircraft.json we use.
type aircraftJSON struct {
	Now      float64 `json:"now"`
	Aircraft []struct {
		Hex    string   `json:"hex"`
		Flight string   `json:"flight"`
		AltBar any      `json:"alt_baro"`
		Gs     float64  `json:"gs"`
		Track  float64  `json:"track"`
		Lat    *float64 `json:"lat"`
		Lon    *float64 `json:"lon"`
	} `json:"aircraft"`
}

// parseAircraft turns an aircraft.json document into the flights inside the
// zone and above the minimum altitude, nearest first.
func parseAircraft(data []byte, cfg FlightsConfig) ([]Flight, error) {
	var doc aircraftJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode aircraft: %w", err)
	}

	var flights []Flight
	for _, a := range doc.Aircraft {
		if a.Lat == nil || a.Lon == nil {
			continue
		}
		// "ground" and missing altitudes are not flying
		alt, ok := a.AltBar.(float64)
		if !ok || int(alt) < cfg.MinAltitude {
			continue
		}
		if !inZone(cfg.Zone, *a.Lat, *a.Lon) {
			continue
		}
		callsign := strings.TrimSpace(a.Flight)
		if callsign == "" {
			callsign = strings.ToUpper(a.Hex)
		}
		flights = append(flights, Flight{
			Hex:        a.Hex,
			Callsign:   callsign,
			Altitude:   int(alt),
			Speed:      a.Gs,
			Track:      a.Track,
			Lat:        *a.Lat,
			Lon:        *a.Lon,
			DistanceKm: haversineKm(cfg.Home.Lat, cfg.Home.Lon, *a.Lat, *a.Lon),
		})
	}

	sort.SliceStable(flights, func(i, j int) bool {
		return flights[i].DistanceKm < flights[j].DistanceKm
	})
	if cfg.MaxTracked > 0 && len(flights) > cfg.MaxTracked {
		flights = flights[:cfg.MaxTracked]
	}
	return flights, nil
}

func inZone(z Zone, lat, lon float64) bool {
	return lat <= z.TopLeftLat && lat >= z.BottomRightLat &&
		lon >= z.TopLeftLon && lon <= z.BottomRightLon
}

func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadiusKm = 6371.0
	rad := math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLon := (lon2 - lon1) * rad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(a))
}

// fetchURL GETs target with the fiber client.
func fetchURL(target string) ([]byte, error) {
	agent := fiber.Get(target)
	agent.Timeout(fetchTimeout)
	code, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %v", animator.ErrDataFetch, errors.Join(errs...))
	}
	if code != fiber.StatusOK {
		return nil, fmt.Errorf("%w: %s returned %d", animator.ErrDataFetch, target, code)
	}
	return body, nil
}

// pollFlights fetches aircraft.json every poll interval. Failures keep the
// last good list.
func pollFlights(ctx context.Context, cfg FlightsConfig, store *flightStore, log *slog.Logger) error {
	interval := time.Duration(cfg.PollIntervalSeconds) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		body, err := fetchURL(cfg.URL)
		if err == nil {
			err = updateFlights(body, cfg, store)
		}
		if err != nil {
			log.Warn("flight fetch failed, keeping last data", "url", cfg.URL, "error", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func updateFlights(data []byte, cfg FlightsConfig, store *flightStore) error {
	flights, err := parseAircraft(data, cfg)
	if err != nil {
		return fmt.Errorf("%w: %v", animator.ErrDataFetch, err)
	}
	store.Set(flights, time.Now())
	return nil
}

// watchFlights reloads the aircraft file whenever the receiver rewrites it.
// The directory is watched since receivers replace the file by renaming.
func watchFlights(ctx context.Context, cfg FlightsConfig, store *flightStore, log *slog.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("flight watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(cfg.File)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	reload := func() {
		data, err := os.ReadFile(cfg.File)
		if err == nil {
			err = updateFlights(data, cfg, store)
		}
		if err != nil {
			log.Warn("flight file unreadable, keeping last data", "file", cfg.File, "error", err)
		}
	}
	reload()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != filepath.Clean(cfg.File) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				reload()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("flight watcher error", "error", err)
		}
	}
}

//---------------- Weather ----------------

// Weather is the cached view of current conditions and today's sun times.
type Weather struct {
	Temperature float64   `json:"temperature"`
	Units       string    `json:"units"`
	Condition   string    `json:"condition"`
	Sunrise     time.Time `json:"sunrise"`
	Sunset      time.Time `json:"sunset"`
	Updated     time.Time `json:"updated"`
	HaveCurrent bool      `json:"have_current"`
	sunDate     string
}

type weatherCache struct {
	mu sync.RWMutex
	w  Weather
}

func (c *weatherCache) Get() Weather {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.w
}

// SunTimes returns today's sunrise and sunset, zero until first fetched.
func (c *weatherCache) SunTimes() (time.Time, time.Time) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.w.Sunrise, c.w.Sunset
}

// owmResponse is the subset of OpenWeather's current weather response we use.
type owmResponse struct {
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
	Main struct {
		Temp float64 `json:"temp"`
	} `json:"main"`
	Sys struct {
		Sunrise int64 `json:"sunrise"`
		Sunset  int64 `json:"sunset"`
	} `json:"sys"`
}

// applyWeather merges a response into the cache. Sun times are only taken
// when the calendar date has changed since they were last stored.
func (c *weatherCache) applyWeather(data []byte, units string, now time.Time) error {
	var r owmResponse
	if err := json.Unmarshal(data, &r); err != nil {
		return fmt.Errorf("%w: decode weather: %v", animator.ErrDataFetch, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.w.Temperature = r.Main.Temp
	c.w.Units = units
	if len(r.Weather) > 0 {
		c.w.Condition = r.Weather[0].Main
	}
	c.w.Updated = now
	c.w.HaveCurrent = true

	today := now.Format("2006-01-02")
	if c.w.sunDate != today && r.Sys.Sunrise > 0 && r.Sys.Sunset > 0 {
		c.w.Sunrise = time.Unix(r.Sys.Sunrise, 0)
		c.w.Sunset = time.Unix(r.Sys.Sunset, 0)
		c.w.sunDate = today
	}
	return nil
}

func weatherURL(cfg WeatherConfig) string {
	q := url.Values{}
	q.Set("q", cfg.Location)
	q.Set("units", cfg.Units)
	q.Set("appid", cfg.APIKey)
	return cfg.URL + "?" + q.Encode()
}

// pollWeather refreshes the weather cache; stale values stay on failure.
func pollWeather(ctx context.Context, cfg WeatherConfig, cache *weatherCache, log *slog.Logger) error {
	interval := time.Duration(cfg.PollIntervalSeconds) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	u := weatherURL(cfg)
	for {
		body, err := fetchURL(u)
		if err == nil {
			err = cache.applyWeather(body, cfg.Units, time.Now())
		}
		if err != nil {
			log.Warn("weather fetch failed, keeping last data", "location", cfg.Location, "error", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

//---------------- Connectivity ----------------

// netProbe keeps the last round trip time to a host; -1 when unreachable.
type netProbe struct {
	rttMs atomic.Int64
}

func newNetProbe() *netProbe {
	p := &netProbe{}
	p.rttMs.Store(-1)
	return p
}

func (p *netProbe) RTT() int64 {
	return p.rttMs.Load()
}

// pingICMP uses github.com/go-ping/ping to perform an ICMP ping.
func pingICMP(host string) (int64, error) {
	pinger, err := ping.NewPinger(host)
	if err != nil {
		return 0, err
	}
	// unprivileged mode sends UDP pings, no root needed
	pinger.SetPrivileged(false)
	pinger.Count = 1
	pinger.Timeout = 2 * time.Second

	if err := pinger.Run(); err != nil {
		return 0, err
	}
	stats := pinger.Statistics()
	if stats.PacketsRecv == 0 {
		return 0, fmt.Errorf("no reply from %s", host)
	}
	return int64(stats.AvgRtt / time.Millisecond), nil
}

func (p *netProbe) run(ctx context.Context, host string, every time.Duration, log *slog.Logger) error {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		rtt, err := pingICMP(host)
		if err != nil {
			if p.rttMs.Swap(-1) != -1 {
				log.Warn("network probe failed", "host", host, "error", err)
			}
		} else {
			p.rttMs.Store(rtt)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
