package matrix

import (
	"fmt"
	"image"
	"image/png"
	"io"

	svg "github.com/ajstarks/svgo"
)

// EncodePNG writes frame as a PNG.
func EncodePNG(w io.Writer, frame *image.RGBA) error {
	return png.Encode(w, frame)
}

// EncodeSVG draws frame the way it looks on the panel: one round LED per
// lit pixel, pitch SVG units apart, on a dark board.
func EncodeSVG(w io.Writer, frame *image.RGBA, pitch int) {
	if pitch < 2 {
		pitch = 2
	}
	b := frame.Bounds()
	canvas := svg.New(w)
	canvas.Start(b.Dx()*pitch, b.Dy()*pitch)
	canvas.Rect(0, 0, b.Dx()*pitch, b.Dy()*pitch, "fill:#0A0A0A")
	radius := pitch * 2 / 5
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			px := frame.RGBAAt(x, y)
			if px.R == 0 && px.G == 0 && px.B == 0 {
				continue
			}
			cx := (x-b.Min.X)*pitch + pitch/2
			cy := (y-b.Min.Y)*pitch + pitch/2
			canvas.Circle(cx, cy, radius, fmt.Sprintf("fill:#%02X%02X%02X", px.R, px.G, px.B))
		}
	}
	canvas.End()
}
