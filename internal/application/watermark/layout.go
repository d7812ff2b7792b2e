package watermark

import (
	"image"
	"math"
)

const (
	logoRatio   = 0.15
	minFontSize = 14.0
	fontDivisor = 40.0
	// Gap is the vertical space between logo and text.
	Gap = 15
	// Margin is the distance from the anchored canvas edges.
	Margin = 20
	// JPEGQuality of the re-encoded output.
	JPEGQuality = 90
)

// Placement is where the overlay lands on the canvas.
type Placement struct {
	Box      image.Rectangle `json:"box"`
	Logo     image.Rectangle `json:"logo"`
	Text     image.Rectangle `json:"text"`
	FontSize float64         `json:"font_size"`
}

// LogoSize is the target logo size: height min(W,H)*0.15*scale, width from
// the logo's own aspect ratio. A missing logo has zero size.
func LogoSize(w, h int, logo image.Point, scale float64) image.Point {
	if logo.X <= 0 || logo.Y <= 0 {
		return image.Point{}
	}
	lh := float64(min(w, h)) * logoRatio * scale
	lw := lh * float64(logo.X) / float64(logo.Y)
	return image.Pt(int(math.Round(lw)), int(math.Round(lh)))
}

// FontSize is max(14, W/40) * scale.
func FontSize(w int, scale float64) float64 {
	return math.Max(minFontSize, float64(w)/fontDivisor) * scale
}

// Layout stacks the logo above the text and pins the combined box to the
// anchor. Both sizes always contribute to the box, whichever mode draws.
func Layout(w, h int, logo, text image.Point, opts Options) Placement {
	gap := 0
	if logo.Y > 0 && text.Y > 0 {
		gap = Gap
	}
	bw := max(logo.X, text.X)
	bh := logo.Y + gap + text.Y

	var origin image.Point
	if r := opts.Relative; r != nil {
		origin = image.Pt(
			int(math.Round(float64(w-bw)*r.X)),
			int(math.Round(float64(h-bh)*r.Y)),
		)
	} else {
		switch opts.Anchor {
		case AnchorTopLeft:
			origin = image.Pt(Margin, Margin)
		case AnchorTopRight:
			origin = image.Pt(w-Margin-bw, Margin)
		case AnchorBottomLeft:
			origin = image.Pt(Margin, h-Margin-bh)
		case AnchorCenter:
			origin = image.Pt((w-bw)/2, (h-bh)/2)
		default:
			origin = image.Pt(w-Margin-bw, h-Margin-bh)
		}
	}

	box := image.Rectangle{Min: origin, Max: origin.Add(image.Pt(bw, bh))}
	logoMin := image.Pt(origin.X+(bw-logo.X)/2, origin.Y)
	textMin := image.Pt(origin.X+(bw-text.X)/2, origin.Y+logo.Y+gap)
	return Placement{
		Box:  box,
		Logo: image.Rectangle{Min: logoMin, Max: logoMin.Add(logo)},
		Text: image.Rectangle{Min: textMin, Max: textMin.Add(text)},
	}
}
