package main

import (
	"image/color"

	"golang.org/x/image/font"

	"github.com/photonicat/flightboard/matrix"
)

var (
	DAY_COLOUR       = color.RGBA{255, 165, 80, 255}
	NIGHT_COLOUR     = color.RGBA{80, 140, 255, 255}
	DATE_COLOUR      = color.RGBA{255, 96, 160, 255}
	TEMP_COLOUR      = color.RGBA{255, 229, 0, 255}
	CONDITION_COLOUR = color.RGBA{98, 116, 130, 255}
	CALLSIGN_COLOUR  = color.RGBA{255, 255, 255, 255}
	DETAIL_COLOUR    = color.RGBA{70, 235, 145, 255}
	DIVIDER_COLOUR   = color.RGBA{0, 60, 120, 255}
	INDEX_COLOUR     = color.RGBA{226, 72, 38, 255}
)

// textField is one piece of text a scene redraws differentially: the old
// value is erased before the new one is drawn, and nothing is drawn when
// neither text nor colour changed.
type textField struct {
	x, y int
	face font.Face
	// right aligns the text to end at x when set
	right bool

	last      string
	lastX     int
	lastColor color.Color
	known     bool
}

func newTextField(face font.Face, x, y int) *textField {
	return &textField{x: x, y: y, face: face}
}

// newRightField ends its text at x.
func newRightField(face font.Face, x, y int) *textField {
	return &textField{x: x, y: y, face: face, right: true}
}

// Set draws text, erasing the previous value first. It reports whether the
// canvas changed.
func (f *textField) Set(c *matrix.Canvas, text string, clr color.Color) bool {
	if f.known && text == f.last && sameColour(clr, f.lastColor) {
		return false
	}
	if f.known && f.last != "" {
		c.EraseText(f.face, f.lastX, f.y, f.last)
	}
	x := f.x
	if f.right {
		x -= font.MeasureString(f.face, text).Round()
	}
	if text != "" {
		c.DrawText(f.face, x, f.y, clr, text)
	}
	f.last = text
	f.lastX = x
	f.lastColor = clr
	f.known = true
	return true
}

// Invalidate forgets the last value; the next Set draws without erasing.
func (f *textField) Invalidate() {
	f.last = ""
	f.lastColor = nil
	f.known = false
}

func sameColour(a, b color.Color) bool {
	if a == nil || b == nil {
		return a == b
	}
	r1, g1, b1, a1 := a.RGBA()
	r2, g2, b2, a2 := b.RGBA()
	return r1 == r2 && g1 == g2 && b1 == b2 && a1 == a2
}
