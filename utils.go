package main

import (
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/opentype"

	"github.com/photonicat/flightboard/matrix"
)

//---------------- Fonts ----------------

// Fonts holds the faces every scene draws with.
type Fonts struct {
	Large font.Face
	Small font.Face
}

// loadFonts loads the configured faces. A face that fails to load falls back
// to the 7x13 bitmap face so the panel still shows something.
func loadFonts(cfg FontsConfig, log *slog.Logger) Fonts {
	load := func(name, path string, size float64) font.Face {
		if path == "" {
			return basicfont.Face7x13
		}
		face, height, err := getFontFace(path, size)
		if err != nil {
			log.Warn("font fallback", "font", name, "path", path, "error", err)
			return basicfont.Face7x13
		}
		log.Debug("font loaded", "font", name, "path", path, "height", height)
		return face
	}
	return Fonts{
		Large: load("large", cfg.Large, cfg.LargeSize),
		Small: load("small", cfg.Small, cfg.SmallSize),
	}
}

// getFontFace parses a TTF or OTF file and returns the face and its line
// height in pixels.
func getFontFace(path string, size float64) (font.Face, int, error) {
	if size <= 0 {
		return nil, 0, fmt.Errorf("font size %v", size)
	}
	fontBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, fmt.Errorf("error reading font file: %w", err)
	}

	var face font.Face
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".ttf":
		ttf, err := truetype.Parse(fontBytes)
		if err != nil {
			return nil, 0, fmt.Errorf("error parsing font: %w", err)
		}
		face = truetype.NewFace(ttf, &truetype.Options{
			Size:    size,
			DPI:     72,
			Hinting: font.HintingFull,
		})
	case ".otf":
		otf, err := opentype.Parse(fontBytes)
		if err != nil {
			return nil, 0, fmt.Errorf("error parsing font: %w", err)
		}
		face, err = opentype.NewFace(otf, &opentype.FaceOptions{
			Size:    size,
			DPI:     72,
			Hinting: font.HintingFull,
		})
		if err != nil {
			return nil, 0, err
		}
	default:
		return nil, 0, fmt.Errorf("unsupported font format: %s", ext)
	}

	metrics := face.Metrics()
	return face, metrics.Ascent.Round() + metrics.Descent.Round(), nil
}

// fontHeight is the pixel height of one line of face.
func fontHeight(face font.Face) int {
	m := face.Metrics()
	return m.Ascent.Round() + m.Descent.Round()
}

//---------------- Assets ----------------

// loadLogo loads the overlay image and fits it to the panel.
func loadLogo(path string, width, height int) (image.Image, error) {
	img, err := matrix.LoadImage(path)
	if err != nil {
		return nil, err
	}
	return matrix.FitCentered(img, width, height), nil
}

//---------------- Logging ----------------

func newLogger(cfg LogConfig, out io.Writer, session string) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	if cfg.Format == "json" {
		h = slog.NewJSONHandler(out, opts)
	} else {
		h = slog.NewTextHandler(out, opts)
	}
	return slog.New(h).With("session", session)
}
