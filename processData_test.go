package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/photonicat/flightboard/animator"
)

const sampleAircraft = `{
  "now": 1700000000.0,
  "aircraft": [
    {"hex": "400a1b", "flight": "BAW123  ", "alt_baro": 35000, "gs": 451.2, "track": 90, "lat": 56.0, "lon": -4.4},
    {"hex": "4ca1fa", "flight": "", "alt_baro": 12000, "gs": 280, "track": 270, "lat": 55.95, "lon": -4.3},
    {"hex": "400c2d", "flight": "EZY45", "alt_baro": "ground", "gs": 10, "lat": 55.95, "lon": -4.3},
    {"hex": "400d3e", "flight": "RYR1", "alt_baro": 20000, "gs": 300, "lat": 55.0, "lon": -4.3},
    {"hex": "400e4f", "flight": "LOG9", "alt_baro": 9000, "gs": 200},
    {"hex": "400f50", "flight": "GLIDE", "alt_baro": 50, "gs": 40, "lat": 55.95, "lon": -4.3}
  ]
}`

func TestParseAircraft(t *testing.T) {
	cfg := defaultConfig().Flights

	flights, err := parseAircraft([]byte(sampleAircraft), cfg)
	if err != nil {
		t.Fatalf("parseAircraft: %v", err)
	}
	if len(flights) != 2 {
		t.Fatalf("got %d flights; want 2: %+v", len(flights), flights)
	}

	// nearest first
	if flights[0].Callsign != "4CA1FA" {
		t.Errorf("first callsign = %q; want hex fallback 4CA1FA", flights[0].Callsign)
	}
	if flights[1].Callsign != "BAW123" {
		t.Errorf("second callsign = %q; want BAW123", flights[1].Callsign)
	}
	if flights[1].Altitude != 35000 || flights[1].Speed != 451.2 {
		t.Errorf("BAW123 = %+v", flights[1])
	}
	if flights[0].DistanceKm >= flights[1].DistanceKm {
		t.Errorf("flights not sorted by distance: %.2f, %.2f", flights[0].DistanceKm, flights[1].DistanceKm)
	}

	cfg.MaxTracked = 1
	flights, err = parseAircraft([]byte(sampleAircraft), cfg)
	if err != nil {
		t.Fatal(err)
	}
	if len(flights) != 1 || flights[0].Callsign != "4CA1FA" {
		t.Errorf("max_tracked 1 kept %+v", flights)
	}
}

func TestParseAircraftInvalid(t *testing.T) {
	tests := []string{``, `{"aircraft": 5}`, `not json`}
	for _, in := range tests {
		if _, err := parseAircraft([]byte(in), defaultConfig().Flights); err == nil {
			t.Errorf("parseAircraft(%q) succeeded; want error", in)
		}
	}
}

func TestInZone(t *testing.T) {
	z := defaultConfig().Flights.Zone
	tests := []struct {
		lat, lon float64
		want     bool
	}{
		{55.95, -4.3, true},
		{z.TopLeftLat, z.TopLeftLon, true},
		{z.BottomRightLat, z.BottomRightLon, true},
		{56.1, -4.3, false},
		{55.8, -4.3, false},
		{55.95, -4.6, false},
		{55.95, -4.1, false},
	}
	for _, tt := range tests {
		if got := inZone(z, tt.lat, tt.lon); got != tt.want {
			t.Errorf("inZone(%v, %v) = %v; want %v", tt.lat, tt.lon, got, tt.want)
		}
	}
}

func TestHaversineKm(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lon1, lat2, lon2 float64
		want                   float64
	}{
		{"same point", 55.9, -4.3, 55.9, -4.3, 0},
		{"glasgow to edinburgh", 55.8642, -4.2518, 55.9533, -3.1883, 67.02},
		{"one degree of latitude", 0, 0, 1, 0, 111.19},
	}
	for _, tt := range tests {
		got := haversineKm(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
		if math.Abs(got-tt.want) > 0.1 {
			t.Errorf("%s: haversineKm = %.2f; want %.2f", tt.name, got, tt.want)
		}
	}
}

func TestFlightStore(t *testing.T) {
	var s flightStore
	if s.Count() != 0 {
		t.Fatal("new store not empty")
	}
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s.Set([]Flight{{Callsign: "A"}, {Callsign: "B"}}, at)

	snap, updated := s.Snapshot()
	if len(snap) != 2 || !updated.Equal(at) {
		t.Fatalf("snapshot = %v at %v", snap, updated)
	}
	snap[0].Callsign = "changed"
	if again, _ := s.Snapshot(); again[0].Callsign != "A" {
		t.Error("snapshot shares memory with the store")
	}
}

func TestUpdateFlightsKeepsLastOnError(t *testing.T) {
	var s flightStore
	cfg := defaultConfig().Flights
	if err := updateFlights([]byte(sampleAircraft), cfg, &s); err != nil {
		t.Fatal(err)
	}
	err := updateFlights([]byte(`{broken`), cfg, &s)
	if !errors.Is(err, animator.ErrDataFetch) {
		t.Errorf("error = %v; want ErrDataFetch", err)
	}
	if s.Count() != 2 {
		t.Errorf("store has %d flights after a bad update; want the last 2", s.Count())
	}
}

func TestWatchFlights(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "aircraft.json")
	if err := os.WriteFile(file, []byte(`{"aircraft": []}`), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := defaultConfig().Flights
	cfg.Source = "file"
	cfg.File = file
	var store flightStore

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- watchFlights(ctx, cfg, &store, discardLogger()) }()

	// written the way receivers do it: temp file then rename
	tmp := filepath.Join(dir, "aircraft.json.tmp")
	deadline := time.Now().Add(5 * time.Second)
	for store.Count() != 2 && time.Now().Before(deadline) {
		if err := os.WriteFile(tmp, []byte(sampleAircraft), 0o644); err != nil {
			t.Fatal(err)
		}
		if err := os.Rename(tmp, file); err != nil {
			t.Fatal(err)
		}
		time.Sleep(50 * time.Millisecond)
	}
	if store.Count() != 2 {
		t.Errorf("store has %d flights; want 2 after the file changed", store.Count())
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("watchFlights returned %v", err)
	}
}

const sampleWeather = `{
  "weather": [{"main": "Clouds", "description": "broken clouds"}],
  "main": {"temp": 54.3},
  "sys": {"sunrise": %d, "sunset": %d}
}`

func owmBody(sunrise, sunset time.Time) []byte {
	return []byte(fmt.Sprintf(sampleWeather, sunrise.Unix(), sunset.Unix()))
}

func TestApplyWeather(t *testing.T) {
	var c weatherCache
	day1 := time.Date(2024, 5, 1, 9, 0, 0, 0, time.Local)
	rise1 := time.Date(2024, 5, 1, 5, 30, 0, 0, time.Local)
	set1 := time.Date(2024, 5, 1, 21, 0, 0, 0, time.Local)

	if err := c.applyWeather(owmBody(rise1, set1), "imperial", day1); err != nil {
		t.Fatal(err)
	}
	w := c.Get()
	if !w.HaveCurrent || w.Temperature != 54.3 || w.Condition != "Clouds" || w.Units != "imperial" {
		t.Errorf("weather = %+v", w)
	}
	if sr, ss := c.SunTimes(); !sr.Equal(rise1) || !ss.Equal(set1) {
		t.Errorf("sun times = %v, %v; want %v, %v", sr, ss, rise1, set1)
	}

	// same day: sun times stay as first fetched
	later := day1.Add(3 * time.Hour)
	if err := c.applyWeather(owmBody(rise1.Add(time.Minute), set1.Add(time.Minute)), "imperial", later); err != nil {
		t.Fatal(err)
	}
	if sr, _ := c.SunTimes(); !sr.Equal(rise1) {
		t.Errorf("sunrise changed within the day: %v", sr)
	}

	// next day: refreshed
	day2 := day1.AddDate(0, 0, 1)
	rise2 := rise1.AddDate(0, 0, 1).Add(-2 * time.Minute)
	if err := c.applyWeather(owmBody(rise2, set1.AddDate(0, 0, 1)), "imperial", day2); err != nil {
		t.Fatal(err)
	}
	if sr, _ := c.SunTimes(); !sr.Equal(rise2) {
		t.Errorf("sunrise = %v; want %v on the next day", sr, rise2)
	}
}

func TestApplyWeatherInvalidKeepsCache(t *testing.T) {
	var c weatherCache
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.Local)
	if err := c.applyWeather(owmBody(now, now.Add(time.Hour)), "metric", now); err != nil {
		t.Fatal(err)
	}
	err := c.applyWeather([]byte(`<html>`), "metric", now)
	if !errors.Is(err, animator.ErrDataFetch) {
		t.Errorf("error = %v; want ErrDataFetch", err)
	}
	if w := c.Get(); w.Temperature != 54.3 {
		t.Errorf("cache lost its last value: %+v", w)
	}
}

func TestWeatherURL(t *testing.T) {
	cfg := defaultConfig().Weather
	cfg.APIKey = "k3y"
	u := weatherURL(cfg)
	for _, want := range []string{"q=Glasgow", "units=imperial", "appid=k3y"} {
		if !strings.Contains(u, want) {
			t.Errorf("weatherURL = %q; missing %q", u, want)
		}
	}
	if !strings.HasPrefix(u, cfg.URL+"?") {
		t.Errorf("weatherURL = %q; want prefix %q", u, cfg.URL)
	}
}

func TestNetProbeStartsUnreachable(t *testing.T) {
	if rtt := newNetProbe().RTT(); rtt != -1 {
		t.Errorf("RTT = %d; want -1 before the first probe", rtt)
	}
}
