package watermark

import (
	"image"
	"image/color"
	"math"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// textLayer is contact text rasterized on a transparent layer: a black
// outline first, then the white fill.
type textLayer struct {
	face   font.Face
	text   string
	stroke int
	size   image.Point
	ascent int
}

func strokeRadius(fontSize float64) int {
	return max(1, int(math.Round(fontSize/12)))
}

func newTextLayer(f *truetype.Font, text string, fontSize float64) *textLayer {
	if text == "" || f == nil {
		return nil
	}
	face := truetype.NewFace(f, &truetype.Options{
		Size:    fontSize,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	m := face.Metrics()
	r := strokeRadius(fontSize)
	w := font.MeasureString(face, text).Ceil()
	h := m.Ascent.Ceil() + m.Descent.Ceil()
	return &textLayer{
		face:   face,
		text:   text,
		stroke: r,
		size:   image.Pt(w+2*r, h+2*r),
		ascent: m.Ascent.Ceil(),
	}
}

// Size of the rendered layer including the outline.
func (t *textLayer) Size() image.Point {
	if t == nil {
		return image.Point{}
	}
	return t.size
}

func (t *textLayer) render() *image.NRGBA {
	dst := image.NewNRGBA(image.Rectangle{Max: t.size})
	base := image.Pt(t.stroke, t.stroke+t.ascent)
	outline := image.NewUniform(color.NRGBA{A: 255})
	rr := t.stroke * t.stroke
	for dy := -t.stroke; dy <= t.stroke; dy++ {
		for dx := -t.stroke; dx <= t.stroke; dx++ {
			if dx*dx+dy*dy > rr || (dx == 0 && dy == 0) {
				continue
			}
			t.draw(dst, outline, base.Add(image.Pt(dx, dy)))
		}
	}
	t.draw(dst, image.NewUniform(color.NRGBA{R: 255, G: 255, B: 255, A: 255}), base)
	return dst
}

func (t *textLayer) draw(dst *image.NRGBA, src image.Image, at image.Point) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  src,
		Face: t.face,
		Dot:  fixed.P(at.X, at.Y),
	}
	d.DrawString(t.text)
}
