package watermark

import (
	"archive/zip"
	"bytes"
	"image"
	"image/color"
	"io"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solid(w, h int, c color.NRGBA) *image.NRGBA {
	return imaging.New(w, h, c)
}

var gray = color.NRGBA{R: 128, G: 128, B: 128, A: 255}

func newTestCompositor(t *testing.T) *Compositor {
	c, err := NewCompositor(nil)
	require.NoError(t, err)
	return c
}

func opts(mode Mode, anchor Anchor) Options {
	o := DefaultOptions("0939 344 0944")
	o.Mode = mode
	o.Anchor = anchor
	return o
}

func regionUnchanged(a, b *image.NRGBA, r image.Rectangle) bool {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if a.NRGBAAt(x, y) != b.NRGBAAt(x, y) {
				return false
			}
		}
	}
	return true
}

func TestLayout_Anchors(t *testing.T) {
	logo, text := image.Pt(150, 60), image.Pt(100, 30)

	p := Layout(1000, 800, logo, text, Options{Anchor: AnchorTopLeft})
	assert.Equal(t, image.Rect(20, 20, 170, 125), p.Box)
	assert.Equal(t, image.Rect(20, 20, 170, 80), p.Logo)
	assert.Equal(t, image.Rect(45, 95, 145, 125), p.Text)

	p = Layout(1000, 800, logo, text, Options{Anchor: AnchorBottomRight})
	assert.Equal(t, 1000-Margin, p.Box.Max.X)
	assert.Equal(t, 800-Margin, p.Box.Max.Y)

	p = Layout(1000, 800, logo, text, Options{Anchor: AnchorTopRight})
	assert.Equal(t, image.Pt(830, 20), p.Box.Min)

	p = Layout(1000, 800, logo, text, Options{Anchor: AnchorBottomLeft})
	assert.Equal(t, image.Pt(20, 675), p.Box.Min)

	p = Layout(1000, 800, logo, text, Options{Anchor: AnchorCenter})
	assert.Equal(t, image.Pt(425, 347), p.Box.Min)
}

func TestLayout_RelativeOverridesAnchor(t *testing.T) {
	logo, text := image.Pt(150, 60), image.Pt(100, 30)
	p := Layout(1000, 800, logo, text, Options{Anchor: AnchorTopLeft, Relative: &Point{X: 1, Y: 1}})
	assert.Equal(t, image.Pt(1000, 800), p.Box.Max)
	p = Layout(1000, 800, logo, text, Options{Relative: &Point{X: 0.5, Y: 0}})
	assert.Equal(t, image.Pt(425, 0), p.Box.Min)
}

func TestLayout_NoGapWithoutLogo(t *testing.T) {
	p := Layout(500, 500, image.Point{}, image.Pt(80, 20), Options{Anchor: AnchorTopLeft})
	assert.Equal(t, image.Rect(20, 20, 100, 40), p.Box)
	assert.True(t, p.Logo.Empty())
}

func TestSizes(t *testing.T) {
	assert.Equal(t, image.Pt(90, 45), LogoSize(400, 300, image.Pt(40, 20), 1))
	assert.Equal(t, image.Pt(180, 90), LogoSize(400, 300, image.Pt(40, 20), 2))
	assert.Equal(t, image.Point{}, LogoSize(400, 300, image.Point{}, 1))
	assert.Equal(t, 14.0, FontSize(400, 1))
	assert.Equal(t, 50.0, FontSize(2000, 1))
	assert.Equal(t, 25.0, FontSize(2000, 0.5))
}

func TestRender_BottomRightMargin(t *testing.T) {
	c := newTestCompositor(t)
	src := solid(400, 300, gray)
	logo := solid(40, 20, color.NRGBA{R: 255, A: 255})

	res, err := c.Render(src, logo, opts(ModeLogoContact, AnchorBottomRight))
	require.NoError(t, err)
	assert.Equal(t, 400-Margin, res.Placement.Box.Max.X)
	assert.Equal(t, 300-Margin, res.Placement.Box.Max.Y)
	assert.True(t, res.LogoDrawn)
	assert.True(t, res.TextDrawn)
	assert.Equal(t, image.Pt(400, 300), res.Image.Bounds().Size())

	assert.False(t, regionUnchanged(src, res.Image, res.Placement.Box), "overlay expected inside the box")
	assert.True(t, regionUnchanged(src, res.Image, image.Rect(400-Margin, 0, 400, 300)), "right margin touched")
	assert.True(t, regionUnchanged(src, res.Image, image.Rect(0, 300-Margin, 400, 300)), "bottom margin touched")
	for y := 0; y < 300; y++ {
		for x := 0; x < 400; x++ {
			if !image.Pt(x, y).In(res.Placement.Box) && src.NRGBAAt(x, y) != res.Image.NRGBAAt(x, y) {
				t.Fatalf("pixel (%d,%d) outside %v changed", x, y, res.Placement.Box)
			}
		}
	}
}

func TestRender_ContactOnlyLeavesLogoRegion(t *testing.T) {
	c := newTestCompositor(t)
	src := solid(400, 300, gray)
	logo := solid(40, 20, color.NRGBA{R: 255, A: 255})

	res, err := c.Render(src, logo, opts(ModeContactOnly, AnchorBottomRight))
	require.NoError(t, err)
	assert.False(t, res.LogoDrawn)
	require.False(t, res.Placement.Logo.Empty())
	assert.True(t, regionUnchanged(src, res.Image, res.Placement.Logo))
	assert.False(t, regionUnchanged(src, res.Image, res.Placement.Text), "text glyphs expected")
}

func TestRender_LogoOnly(t *testing.T) {
	c := newTestCompositor(t)
	src := solid(400, 300, gray)
	logo := solid(40, 20, color.NRGBA{R: 255, A: 255})

	res, err := c.Render(src, logo, opts(ModeLogoOnly, AnchorTopLeft))
	require.NoError(t, err)
	assert.False(t, res.TextDrawn)
	assert.True(t, regionUnchanged(src, res.Image, res.Placement.Text))

	center := res.Placement.Logo.Min.Add(res.Placement.Logo.Size().Div(2))
	px := res.Image.NRGBAAt(center.X, center.Y)
	assert.Greater(t, int(px.R), 200)
	assert.Less(t, int(px.G), 60)
}

func TestRender_DoesNotMutateSource(t *testing.T) {
	c := newTestCompositor(t)
	src := solid(200, 200, gray)
	before := append([]uint8(nil), src.Pix...)
	_, err := c.Render(src, solid(10, 10, color.NRGBA{B: 255, A: 255}), opts(ModeLogoContact, AnchorCenter))
	require.NoError(t, err)
	assert.Equal(t, before, src.Pix)
}

func TestCompose_Deterministic(t *testing.T) {
	c := newTestCompositor(t)
	src := solid(320, 240, color.NRGBA{R: 20, G: 140, B: 90, A: 255})
	logo := solid(30, 30, color.NRGBA{R: 250, G: 250, A: 200})
	o := opts(ModeLogoContact, AnchorBottomLeft)

	a, _, err := c.Compose(src, logo, o)
	require.NoError(t, err)
	b, _, err := c.Compose(src, logo, o)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(a, b))

	img, err := Decode(bytes.NewReader(a))
	require.NoError(t, err)
	assert.Equal(t, image.Pt(320, 240), img.Bounds().Size())
}

func TestRender_MissingLogoDegradesToText(t *testing.T) {
	c := newTestCompositor(t)
	src := solid(400, 300, gray)

	res, err := c.Render(src, nil, opts(ModeLogoContact, AnchorBottomRight))
	require.NoError(t, err)
	assert.False(t, res.LogoDrawn)
	assert.True(t, res.TextDrawn)
	assert.Equal(t, res.Placement.Text, res.Placement.Box)

	res, err = c.Render(src, nil, opts(ModeLogoOnly, AnchorBottomRight))
	require.NoError(t, err)
	assert.True(t, res.TextDrawn)

	o := opts(ModeLogoOnly, AnchorBottomRight)
	o.ContactText = ""
	_, err = c.Render(src, nil, o)
	assert.ErrorIs(t, err, ErrNothingToDraw)
}

func TestRender_RejectsBadOptions(t *testing.T) {
	c := newTestCompositor(t)
	src := solid(50, 50, gray)
	cases := []Options{
		{Mode: "sideways", Scale: 1, Opacity: 0.5},
		{Anchor: "middle", Scale: 1, Opacity: 0.5},
		{Scale: 0, Opacity: 0.5},
		{Scale: 1, Opacity: 1.5},
		{Scale: 1, Opacity: 0.5, Relative: &Point{X: 2}},
	}
	for _, o := range cases {
		o.ContactText = "x"
		_, err := c.Render(src, nil, o)
		assert.Error(t, err, "%+v", o)
	}
	_, err := c.Render(nil, nil, DefaultOptions("x"))
	assert.Error(t, err)
}

func encodeJPEG(t *testing.T, img image.Image) []byte {
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, img, imaging.JPEG))
	return buf.Bytes()
}

func TestBatch_Policies(t *testing.T) {
	c := newTestCompositor(t)
	good := encodeJPEG(t, solid(120, 80, gray))
	items := []Item{
		{Name: "a.jpg", Data: good, Options: DefaultOptions("0917")},
		{Name: "broken.jpg", Data: []byte("not an image"), Options: DefaultOptions("0917")},
		{Name: "c.jpg", Data: good, Options: DefaultOptions("0917")},
	}

	res := c.Batch(items, nil, PolicyAbort)
	require.Len(t, res, 3)
	assert.Equal(t, StatusOK, res[0].Status)
	assert.Equal(t, StatusFailed, res[1].Status)
	assert.NotEmpty(t, res[1].Error)
	assert.Equal(t, StatusSkipped, res[2].Status)

	res = c.Batch(items, nil, PolicyContinue)
	assert.Equal(t, StatusOK, res[0].Status)
	assert.Equal(t, StatusFailed, res[1].Status)
	assert.Equal(t, StatusOK, res[2].Status)
	assert.NotEmpty(t, res[2].Output)
}

func TestWriteZip(t *testing.T) {
	results := []ItemResult{
		{Name: "a.jpg", Status: StatusOK, Output: []byte("one")},
		{Name: "b.jpg", Status: StatusFailed},
		{Name: "dir/a.jpg", Status: StatusOK, Output: []byte("two")},
	}
	var buf bytes.Buffer
	n, err := WriteZip(&buf, results)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	require.Len(t, zr.File, 2)
	assert.Equal(t, "watermarked-a.jpg", zr.File[0].Name)
	assert.Equal(t, "watermarked-a-2.jpg", zr.File[1].Name)
	rc, err := zr.File[1].Open()
	require.NoError(t, err)
	body, _ := io.ReadAll(rc)
	rc.Close()
	assert.Equal(t, "two", string(body))
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyAbort, p)
	p, err = ParsePolicy("Continue")
	require.NoError(t, err)
	assert.Equal(t, PolicyContinue, p)
	_, err = ParsePolicy("retry")
	assert.Error(t, err)
}

func TestOutputName(t *testing.T) {
	assert.Equal(t, "watermarked-house.png", OutputName("house.png"))
	assert.Equal(t, "watermarked-house.png", OutputName(`C:\photos\house.png`))
	assert.Equal(t, "watermarked-image.jpg", OutputName(""))
}
