package matrix

import (
	"errors"
	"image"
	"image/color"
	"image/draw"
	"sync"

	"github.com/llgcode/draw2d/draw2dimg"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

var Black = color.RGBA{0, 0, 0, 255}

// Canvas is a double buffered frame. Scenes draw into the back buffer,
// Commit copies it to the front buffer and pushes that to the sink.
type Canvas struct {
	back *image.RGBA

	mu         sync.RWMutex
	front      *image.RGBA
	scaled     *image.RGBA
	brightness int
	software   bool // brightness applied by scaling pixels
	commits    uint64
	sink       Sink
}

// NewCanvas returns a blank width x height canvas at full brightness.
func NewCanvas(width, height int, sink Sink) *Canvas {
	if sink == nil {
		sink = &NullSink{}
	}
	r := image.Rect(0, 0, width, height)
	c := &Canvas{
		back:       image.NewRGBA(r),
		front:      image.NewRGBA(r),
		scaled:     image.NewRGBA(r),
		brightness: 100,
		sink:       sink,
	}
	clearFrame(c.back)
	clearFrame(c.front)
	return c
}

func (c *Canvas) Bounds() image.Rectangle {
	return c.back.Bounds()
}

// Image is the back buffer.
func (c *Canvas) Image() *image.RGBA {
	return c.back
}

func (c *Canvas) Clear() error {
	clearFrame(c.back)
	return nil
}

// DrawImage paints img centred over the back buffer, replacing what was there.
func (c *Canvas) DrawImage(img image.Image) error {
	if img == nil {
		return errors.New("nil image")
	}
	b := c.back.Bounds()
	ib := img.Bounds()
	x := (b.Dx() - ib.Dx()) / 2
	y := (b.Dy() - ib.Dy()) / 2
	draw.Draw(c.back, image.Rect(x, y, x+ib.Dx(), y+ib.Dy()), img, ib.Min, draw.Src)
	return nil
}

// DrawImageAt composites img over the back buffer with its top left at x, y.
func (c *Canvas) DrawImageAt(img image.Image, x, y int) {
	ib := img.Bounds()
	draw.Draw(c.back, image.Rect(x, y, x+ib.Dx(), y+ib.Dy()), img, ib.Min, draw.Over)
}

// DrawText draws text with its top left corner at x, y and returns the x
// where the text ends. Drawing the same string again in Black erases it.
func (c *Canvas) DrawText(face font.Face, x, y int, clr color.Color, text string) int {
	d := &font.Drawer{
		Dst:  c.back,
		Src:  image.NewUniform(clr),
		Face: face,
	}
	d.Dot = fixed.P(x, y+face.Metrics().Ascent.Round())
	d.DrawString(text)
	return d.Dot.X.Round()
}

// EraseText blanks every pixel a previous DrawText of the same text at the
// same position touched, including anti-aliased edges.
func (c *Canvas) EraseText(face font.Face, x, y int, text string) {
	dot := fixed.P(x, y+face.Metrics().Ascent.Round())
	prev := rune(-1)
	for _, r := range text {
		if prev >= 0 {
			dot.X += face.Kern(prev, r)
		}
		dr, mask, mp, advance, ok := face.Glyph(dot, r)
		if ok {
			for py := dr.Min.Y; py < dr.Max.Y; py++ {
				for px := dr.Min.X; px < dr.Max.X; px++ {
					_, _, _, a := mask.At(mp.X+px-dr.Min.X, mp.Y+py-dr.Min.Y).RGBA()
					if a > 0 && image.Pt(px, py).In(c.back.Bounds()) {
						c.back.SetRGBA(px, py, Black)
					}
				}
			}
		}
		dot.X += advance
		prev = r
	}
}

// DrawLine strokes a one pixel line.
func (c *Canvas) DrawLine(x0, y0, x1, y1 int, clr color.Color) {
	gc := draw2dimg.NewGraphicContext(c.back)
	gc.SetStrokeColor(clr)
	gc.SetLineWidth(1)
	gc.MoveTo(float64(x0)+0.5, float64(y0)+0.5)
	gc.LineTo(float64(x1)+0.5, float64(y1)+0.5)
	gc.Stroke()
}

func (c *Canvas) FillRect(x, y, w, h int, clr color.Color) {
	draw.Draw(c.back, image.Rect(x, y, x+w, y+h), image.NewUniform(clr), image.Point{}, draw.Src)
}

// Commit publishes the back buffer. The back buffer is left as is so scenes
// can keep drawing differentially on top of it.
func (c *Canvas) Commit() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	copy(c.front.Pix, c.back.Pix)
	c.commits++

	out := c.front
	if c.software && c.brightness < 100 {
		ScaleBrightness(c.scaled, c.front, c.brightness)
		out = c.scaled
	}
	return c.sink.Push(out)
}

// SetBrightness sets the output level, clamped into 0..100. Sinks without
// hardware dimming get scaled pixels from the next Commit on.
func (c *Canvas) SetBrightness(level int) error {
	switch {
	case level < 0:
		level = 0
	case level > 100:
		level = 100
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.brightness = level
	c.software = false
	if d, ok := c.sink.(Dimmable); ok {
		err := d.SetBrightness(level)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrNoHardwareBrightness) {
			return err
		}
	}
	c.software = true
	return nil
}

func (c *Canvas) Brightness() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.brightness
}

// Commits is the number of frames published so far.
func (c *Canvas) Commits() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.commits
}

// Snapshot copies the last committed frame.
func (c *Canvas) Snapshot() *image.RGBA {
	c.mu.RLock()
	defer c.mu.RUnlock()
	img := image.NewRGBA(c.front.Bounds())
	copy(img.Pix, c.front.Pix)
	return img
}

func (c *Canvas) Close() error {
	return c.sink.Close()
}

func clearFrame(frame *image.RGBA) {
	for i := 0; i < len(frame.Pix); i += 4 {
		frame.Pix[i] = 0
		frame.Pix[i+1] = 0
		frame.Pix[i+2] = 0
		frame.Pix[i+3] = 255
	}
}

// ScaleBrightness writes src into dst with every channel scaled to level percent.
func ScaleBrightness(dst, src *image.RGBA, level int) {
	for i := 0; i < len(src.Pix) && i < len(dst.Pix); i += 4 {
		dst.Pix[i] = uint8(int(src.Pix[i]) * level / 100)
		dst.Pix[i+1] = uint8(int(src.Pix[i+1]) * level / 100)
		dst.Pix[i+2] = uint8(int(src.Pix[i+2]) * level / 100)
		dst.Pix[i+3] = src.Pix[i+3]
	}
}
