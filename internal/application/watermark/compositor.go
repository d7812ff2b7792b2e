// Package watermark overlays the brokerage logo and contact text on listing
// photos and re-encodes them as JPEG.
package watermark

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"

	"github.com/disintegration/imaging"
	"github.com/golang/freetype/truetype"
	"github.com/rs/zerolog/log"
	"golang.org/x/image/font/gofont/goregular"
	_ "golang.org/x/image/webp"
)

// ErrNothingToDraw is returned when the mode's elements are all unavailable.
var ErrNothingToDraw = errors.New("watermark has nothing to draw: no logo and no contact text")

// Compositor renders watermarks. It holds only the parsed font, so one
// value can serve every request.
type Compositor struct {
	font *truetype.Font
}

// NewCompositor parses fontData (TrueType). nil selects the Go Regular face.
func NewCompositor(fontData []byte) (*Compositor, error) {
	if fontData == nil {
		fontData = goregular.TTF
	}
	f, err := truetype.Parse(fontData)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	return &Compositor{font: f}, nil
}

// Result is a rendered image with what was actually drawn.
type Result struct {
	Image     *image.NRGBA `json:"-"`
	Placement Placement    `json:"placement"`
	LogoDrawn bool         `json:"logo_drawn"`
	TextDrawn bool         `json:"text_drawn"`
}

// Render composites the overlay onto a copy of src; src is never modified.
// A nil logo degrades logo modes to text only.
func (c *Compositor) Render(src, logo image.Image, opts Options) (*Result, error) {
	if src == nil {
		return nil, errors.New("source image is required")
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()

	var logoDims image.Point
	if logo != nil {
		logoDims = logo.Bounds().Size()
	}
	logoSize := LogoSize(w, h, logoDims, opts.Scale)
	fontSize := FontSize(w, opts.Scale)
	text := newTextLayer(c.font, opts.ContactText, fontSize)

	p := Layout(w, h, logoSize, text.Size(), opts)
	p.FontSize = fontSize

	drawLogo := opts.Mode.drawsLogo() && !logoSize.Eq(image.Point{})
	// Without a logo, logo-only falls back to the contact text.
	drawText := text != nil && (opts.Mode.drawsText() || (opts.Mode == ModeLogoOnly && !drawLogo))
	if !drawLogo && !drawText {
		return nil, ErrNothingToDraw
	}
	if opts.Mode.drawsLogo() && !drawLogo {
		log.Warn().Str("mode", string(opts.Mode)).Msg("watermark: logo unavailable, drawing text only")
	}

	canvas := imaging.Clone(src)
	if drawLogo {
		scaled := imaging.Resize(logo, logoSize.X, logoSize.Y, imaging.Lanczos)
		canvas = imaging.Overlay(canvas, scaled, p.Logo.Min, opts.Opacity)
	}
	if drawText {
		canvas = imaging.Overlay(canvas, text.render(), p.Text.Min, opts.Opacity)
	}
	return &Result{Image: canvas, Placement: p, LogoDrawn: drawLogo, TextDrawn: drawText}, nil
}

// Compose renders and encodes the result as JPEG at JPEGQuality.
func (c *Compositor) Compose(src, logo image.Image, opts Options) ([]byte, *Result, error) {
	res, err := c.Render(src, logo, opts)
	if err != nil {
		return nil, nil, err
	}
	out, err := Encode(res.Image)
	if err != nil {
		return nil, nil, err
	}
	return out, res, nil
}

// Encode writes img as JPEG at JPEGQuality.
func Encode(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(JPEGQuality)); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode reads a JPEG, PNG, GIF or WebP image, applying EXIF orientation.
func Decode(r io.Reader) (image.Image, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// LoadLogo opens the logo asset from disk.
func LoadLogo(path string) (image.Image, error) {
	if path == "" {
		return nil, errors.New("logo path is empty")
	}
	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("load logo: %w", err)
	}
	return img, nil
}
