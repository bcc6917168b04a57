package main

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/font/basicfont"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		cfg       LogConfig
		debugSeen bool
	}{
		{LogConfig{Level: "info", Format: "json"}, false},
		{LogConfig{Level: "debug", Format: "json"}, true},
		{LogConfig{Level: "nonsense", Format: "json"}, false},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		log := newLogger(tt.cfg, &buf, "abc-123")
		log.Debug("dbg")
		log.Info("hello", "n", 1)

		lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
		if want := map[bool]int{true: 2, false: 1}[tt.debugSeen]; len(lines) != want {
			t.Errorf("level %q: %d lines logged; want %d", tt.cfg.Level, len(lines), want)
			continue
		}
		var rec map[string]any
		if err := json.Unmarshal(lines[len(lines)-1], &rec); err != nil {
			t.Fatalf("not JSON: %s", lines[len(lines)-1])
		}
		if rec["session"] != "abc-123" || rec["msg"] != "hello" {
			t.Errorf("record = %v", rec)
		}
	}
}

func TestLoadFontsFallback(t *testing.T) {
	fonts := loadFonts(FontsConfig{
		Large:     filepath.Join(t.TempDir(), "missing.ttf"),
		LargeSize: 16,
	}, discardLogger())
	if fonts.Large != basicfont.Face7x13 || fonts.Small != basicfont.Face7x13 {
		t.Error("missing fonts did not fall back to the bitmap face")
	}
}

func TestGetFontFaceErrors(t *testing.T) {
	dir := t.TempDir()
	bogus := filepath.Join(dir, "bogus.ttf")
	if err := os.WriteFile(bogus, []byte("not a font"), 0o644); err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name string
		path string
		size float64
	}{
		{"zero size", bogus, 0},
		{"missing file", filepath.Join(dir, "none.ttf"), 12},
		{"unsupported extension", filepath.Join(dir, "font.woff"), 12},
		{"corrupt ttf", bogus, 12},
	}
	for _, tt := range tests {
		if _, _, err := getFontFace(tt.path, tt.size); err == nil {
			t.Errorf("%s: getFontFace succeeded", tt.name)
		}
	}
}

func TestFontHeight(t *testing.T) {
	if h := fontHeight(basicfont.Face7x13); h != 13 {
		t.Errorf("fontHeight(Face7x13) = %d; want 13", h)
	}
}

func TestLoadLogo(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 20, 20))
	for i := range src.Pix {
		src.Pix[i] = 0xff
	}
	path := filepath.Join(t.TempDir(), "logo.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, src); err != nil {
		t.Fatal(err)
	}
	f.Close()

	logo, err := loadLogo(path, 128, 64)
	if err != nil {
		t.Fatal(err)
	}
	if logo.Bounds() != image.Rect(0, 0, 128, 64) {
		t.Errorf("logo bounds = %v; want panel size", logo.Bounds())
	}
	// square logo on a wide panel: sides stay black
	if c := color.RGBAModel.Convert(logo.At(2, 32)).(color.RGBA); c.R != 0 || c.G != 0 || c.B != 0 {
		t.Errorf("left margin = %v; want black", c)
	}
	if c := color.RGBAModel.Convert(logo.At(64, 32)).(color.RGBA); c.R != 0xff {
		t.Errorf("centre = %v; want white", c)
	}

	if _, err := loadLogo(filepath.Join(t.TempDir(), "missing.png"), 128, 64); err == nil {
		t.Error("missing logo loaded")
	}
}
