package watermark

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"mime/multipart"
	"strconv"
	"strings"

	wm "mliang-listings/internal/application/watermark"
	"mliang-listings/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// MaxFileBytes caps one uploaded image.
const MaxFileBytes = 25 << 20

// Handlers serves the compositor over HTTP.
type Handlers struct {
	Compositor *wm.Compositor
	Logo       image.Image
	Contact    string
	Policy     wm.Policy
}

// OptionsInput is the JSON form of the placement controls. Missing fields
// take the defaults of a freshly selected file.
type OptionsInput struct {
	Mode        string   `json:"mode" form:"mode"`
	Anchor      string   `json:"anchor" form:"anchor"`
	Scale       *float64 `json:"scale" form:"scale"`
	Opacity     *float64 `json:"opacity" form:"opacity"`
	ContactText *string  `json:"contact_text" form:"contact_text"`
	X           *float64 `json:"x" form:"x"`
	Y           *float64 `json:"y" form:"y"`
}

// Options resolves the input against the defaults and validates it.
func (in OptionsInput) Options(contact string) (wm.Options, error) {
	o := wm.DefaultOptions(contact)
	o.Mode = wm.Mode(in.Mode)
	o.Anchor = wm.Anchor(in.Anchor)
	if in.Scale != nil {
		o.Scale = *in.Scale
	}
	if in.Opacity != nil {
		o.Opacity = *in.Opacity
	}
	if in.ContactText != nil {
		o.ContactText = *in.ContactText
	}
	if in.X != nil || in.Y != nil {
		p := wm.Point{X: 0.8, Y: 0.8}
		if in.X != nil {
			p.X = *in.X
		}
		if in.Y != nil {
			p.Y = *in.Y
		}
		o.Relative = &p
	}
	if err := o.Validate(); err != nil {
		return o, err
	}
	return o, nil
}

// FormOptions reads the placement controls from multipart form values.
func FormOptions(c *fiber.Ctx) (OptionsInput, error) {
	in := OptionsInput{Mode: c.FormValue("mode"), Anchor: c.FormValue("anchor")}
	var err error
	float := func(name string) *float64 {
		raw := strings.TrimSpace(c.FormValue(name))
		if raw == "" || err != nil {
			return nil
		}
		v, perr := strconv.ParseFloat(raw, 64)
		if perr != nil {
			err = fmt.Errorf("%s must be a number", name)
			return nil
		}
		return &v
	}
	in.Scale = float("scale")
	in.Opacity = float("opacity")
	in.X = float("x")
	in.Y = float("y")
	if v := c.FormValue("contact_text"); v != "" {
		in.ContactText = &v
	}
	return in, err
}

// ReadFile loads one multipart file into memory.
func ReadFile(fh *multipart.FileHeader) ([]byte, error) {
	if fh.Size > MaxFileBytes {
		return nil, fmt.Errorf("%s exceeds %d MB", fh.Filename, MaxFileBytes>>20)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// PerFileOptions decodes the optional "options" form value: a JSON array
// with one entry per file, in file order.
func PerFileOptions(c *fiber.Ctx, n int) ([]OptionsInput, error) {
	raw := c.FormValue("options")
	if raw == "" {
		return nil, nil
	}
	var list []OptionsInput
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return nil, errors.New("options must be a JSON array")
	}
	if len(list) != n {
		return nil, fmt.Errorf("options has %d entries for %d files", len(list), n)
	}
	return list, nil
}

// ComposeStatus is the HTTP status for a failed compose: 400 when the
// options leave nothing to draw, 422 when the image cannot be processed.
func ComposeStatus(err error) int {
	if errors.Is(err, wm.ErrNothingToDraw) {
		return fiber.StatusBadRequest
	}
	return fiber.StatusUnprocessableEntity
}

// Compose POST /api/v1/watermark/compose (multipart field "image")
func (h *Handlers) Compose(c *fiber.Ctx) error {
	fh, err := c.FormFile("image")
	if err != nil {
		return response.Error(c, "image is required", fiber.StatusBadRequest, nil)
	}
	data, err := ReadFile(fh)
	if err != nil {
		return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
	}
	in, err := FormOptions(c)
	if err != nil {
		return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
	}
	opts, err := in.Options(h.Contact)
	if err != nil {
		return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
	}

	out, res, err := h.Compositor.ComposeBytes(data, h.Logo, opts)
	if err != nil {
		log.Error().Err(err).Str("file", fh.Filename).Msg("watermark: compose failed")
		return response.Error(c, err.Error(), ComposeStatus(err), nil)
	}
	// Attachment takes the base name and quotes it.
	c.Attachment(wm.OutputName(fh.Filename))
	c.Set(fiber.HeaderContentType, "image/jpeg")
	c.Set("X-Logo-Drawn", strconv.FormatBool(res.LogoDrawn))
	c.Set("X-Text-Drawn", strconv.FormatBool(res.TextDrawn))
	return c.Send(out)
}

// Batch POST /api/v1/watermark/batch (multipart field "images", optional
// "options" and "policy"). Responds with a zip of the watermarked files.
func (h *Handlers) Batch(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil || len(form.File["images"]) == 0 {
		return response.Error(c, "images are required", fiber.StatusBadRequest, nil)
	}
	files := form.File["images"]

	policy := h.Policy
	if raw := c.FormValue("policy"); raw != "" {
		if policy, err = wm.ParsePolicy(raw); err != nil {
			return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
		}
	}
	shared, err := FormOptions(c)
	if err != nil {
		return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
	}
	perFile, err := PerFileOptions(c, len(files))
	if err != nil {
		return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
	}

	items := make([]wm.Item, len(files))
	for i, fh := range files {
		in := shared
		if perFile != nil {
			in = perFile[i]
		}
		opts, err := in.Options(h.Contact)
		if err != nil {
			return response.Error(c, fmt.Sprintf("%s: %s", fh.Filename, err.Error()), fiber.StatusBadRequest, nil)
		}
		data, err := ReadFile(fh)
		if err != nil {
			return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
		}
		items[i] = wm.Item{Name: fh.Filename, Data: data, Options: opts}
	}

	results := h.Compositor.Batch(items, h.Logo, policy)
	failed := 0
	for _, r := range results {
		if r.Status != wm.StatusOK {
			failed++
		}
	}
	if failed == len(results) || (policy == wm.PolicyAbort && failed > 0) {
		return response.Error(c, batchMessage(results), fiber.StatusUnprocessableEntity, fiber.Map{"items": results})
	}

	var buf bytes.Buffer
	n, err := wm.WriteZip(&buf, results)
	if err != nil {
		return response.Error(c, err.Error(), fiber.StatusInternalServerError, nil)
	}
	c.Set(fiber.HeaderContentType, "application/zip")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="watermarked.zip"`)
	c.Set("X-Batch-Succeeded", strconv.Itoa(n))
	c.Set("X-Batch-Failed", strconv.Itoa(failed))
	return c.Send(buf.Bytes())
}

func batchMessage(results []wm.ItemResult) string {
	done := 0
	for _, r := range results {
		switch r.Status {
		case wm.StatusOK:
			done++
		case wm.StatusFailed:
			return fmt.Sprintf("Watermarking failed after %d files: %s", done, r.Error)
		}
	}
	return "Watermarking failed"
}
