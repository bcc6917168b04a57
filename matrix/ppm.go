package matrix

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"strconv"
)

// decodePPM reads a binary (P6) portable pixmap with a max value of 255 or
// less.
func decodePPM(r io.Reader) (image.Image, error) {
	br := bufio.NewReader(r)
	magic, err := ppmToken(br)
	if err != nil {
		return nil, err
	}
	if magic != "P6" {
		return nil, fmt.Errorf("ppm: unsupported magic %q", magic)
	}

	var vals [3]int
	for i := range vals {
		tok, err := ppmToken(br)
		if err != nil {
			return nil, err
		}
		vals[i], err = strconv.Atoi(tok)
		if err != nil || vals[i] <= 0 {
			return nil, fmt.Errorf("ppm: bad header value %q", tok)
		}
	}
	w, h, maxVal := vals[0], vals[1], vals[2]
	if maxVal > 255 {
		return nil, errors.New("ppm: 16-bit samples are not supported")
	}

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	px := make([]byte, w*3)
	for y := 0; y < h; y++ {
		if _, err := io.ReadFull(br, px); err != nil {
			return nil, fmt.Errorf("ppm: row %d: %w", y, err)
		}
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{
				R: uint8(int(px[x*3]) * 255 / maxVal),
				G: uint8(int(px[x*3+1]) * 255 / maxVal),
				B: uint8(int(px[x*3+2]) * 255 / maxVal),
				A: 255,
			})
		}
	}
	return img, nil
}

// ppmToken returns the next whitespace separated header token, skipping
// comments. It consumes exactly one whitespace byte after the token, which
// is what the format requires before the raster.
func ppmToken(br *bufio.Reader) (string, error) {
	var tok []byte
	for {
		c, err := br.ReadByte()
		if err != nil {
			if len(tok) > 0 && err == io.EOF {
				return string(tok), nil
			}
			return "", fmt.Errorf("ppm: header: %w", err)
		}
		switch {
		case c == '#' && len(tok) == 0:
			if _, err := br.ReadString('\n'); err != nil {
				return "", fmt.Errorf("ppm: header: %w", err)
			}
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			if len(tok) > 0 {
				return string(tok), nil
			}
		default:
			tok = append(tok, c)
		}
	}
}
