package matrix

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDecodePPM(t *testing.T) {
	data := []byte("P6\n# logo\n2 1\n255\n")
	data = append(data, 255, 0, 0, 0, 0, 255)
	img, err := decodePPM(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() != 2 || img.Bounds().Dy() != 1 {
		t.Fatalf("bounds = %v", img.Bounds())
	}
	r, _, b, _ := img.At(0, 0).RGBA()
	if r>>8 != 255 || b != 0 {
		t.Errorf("pixel 0 = %v", img.At(0, 0))
	}
	_, _, b, _ = img.At(1, 0).RGBA()
	if b>>8 != 255 {
		t.Errorf("pixel 1 = %v", img.At(1, 0))
	}
}

func TestDecodePPMErrors(t *testing.T) {
	tests := []string{
		"P3\n1 1\n255\n",
		"P6\n1 x\n255\n",
		"P6\n1 1\n65535\n",
		"P6\n2 2\n255\n\x00\x00",
	}
	for _, in := range tests {
		if _, err := decodePPM(strings.NewReader(in)); err == nil {
			t.Errorf("decodePPM(%q) should fail", in)
		}
	}
}

func TestLoadImage(t *testing.T) {
	if _, err := LoadImage("/nonexistent/logo.png"); err == nil {
		t.Error("LoadImage should fail for a missing file")
	}

	dir := t.TempDir()
	bad := filepath.Join(dir, "logo.bmp")
	_ = os.WriteFile(bad, []byte("BM"), 0644)
	if _, err := LoadImage(bad); err == nil || !strings.Contains(err.Error(), "unsupported") {
		t.Errorf("LoadImage(.bmp) = %v", err)
	}

	src := image.NewRGBA(image.Rect(0, 0, 3, 2))
	src.Set(1, 1, color.RGBA{0, 255, 0, 255})
	var buf bytes.Buffer
	_ = png.Encode(&buf, src)
	good := filepath.Join(dir, "logo.png")
	_ = os.WriteFile(good, buf.Bytes(), 0644)
	img, err := LoadImage(good)
	if err != nil {
		t.Fatal(err)
	}
	if img.RGBAAt(1, 1).G != 255 {
		t.Errorf("pixel = %v", img.RGBAAt(1, 1))
	}

	svgPath := filepath.Join(dir, "logo.svg")
	_ = os.WriteFile(svgPath, []byte(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 20 10"><rect x="0" y="0" width="20" height="10" fill="#ff0000"/></svg>`), 0644)
	img, err = LoadImage(svgPath)
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() != 20 || img.Bounds().Dy() != 10 {
		t.Errorf("svg bounds = %v", img.Bounds())
	}
}

func TestFitCentered(t *testing.T) {
	wide := image.NewRGBA(image.Rect(0, 0, 200, 50))
	for i := range wide.Pix {
		wide.Pix[i] = 255
	}
	out := FitCentered(wide, 128, 64)
	if out.Bounds().Dx() != 128 || out.Bounds().Dy() != 64 {
		t.Fatalf("bounds = %v", out.Bounds())
	}
	// 200x50 fits to 128x32, centred vertically from row 16
	if out.RGBAAt(64, 2).R != 0 {
		t.Error("letterbox area should be black")
	}
	if out.RGBAAt(64, 32).R < 200 {
		t.Errorf("centre pixel = %v", out.RGBAAt(64, 32))
	}
}

func TestEncodeSVG(t *testing.T) {
	frame := image.NewRGBA(image.Rect(0, 0, 4, 2))
	frame.SetRGBA(1, 1, color.RGBA{255, 128, 0, 255})
	frame.SetRGBA(3, 0, color.RGBA{0, 0, 255, 255})
	var buf bytes.Buffer
	EncodeSVG(&buf, frame, 10)
	out := buf.String()
	if n := strings.Count(out, "<circle"); n != 2 {
		t.Errorf("%d LEDs drawn; want 2", n)
	}
	if !strings.Contains(out, "fill:#FF8000") {
		t.Error("LED colour missing")
	}
}
