package watermark

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"image/color"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"strings"
	"testing"

	wm "mliang-listings/internal/application/watermark"

	"github.com/disintegration/imaging"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jpeg(t *testing.T) []byte {
	var buf bytes.Buffer
	img := imaging.New(240, 160, color.NRGBA{R: 60, G: 90, B: 120, A: 255})
	require.NoError(t, imaging.Encode(&buf, img, imaging.JPEG))
	return buf.Bytes()
}

type part struct {
	field, name string
	data        []byte
}

func multipartBody(t *testing.T, fields map[string]string, files ...part) (*bytes.Buffer, string) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, f := range files {
		w, err := mw.CreateFormFile(f.field, f.name)
		require.NoError(t, err)
		_, err = w.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &body, mw.FormDataContentType()
}

func setup(t *testing.T) *fiber.App {
	c, err := wm.NewCompositor(nil)
	require.NoError(t, err)
	h := &Handlers{
		Compositor: c,
		Logo:       imaging.New(40, 20, color.NRGBA{R: 255, A: 255}),
		Contact:    "09393440944",
		Policy:     wm.PolicyAbort,
	}
	app := fiber.New()
	app.Post("/compose", h.Compose)
	app.Post("/batch", h.Batch)
	return app
}

func post(t *testing.T, app *fiber.App, path string, body *bytes.Buffer, ct string) (*httptestResponse, error) {
	req := httptest.NewRequest("POST", path, body)
	req.Header.Set("Content-Type", ct)
	resp, err := app.Test(req, -1)
	if err != nil {
		return nil, err
	}
	b, _ := io.ReadAll(resp.Body)
	return &httptestResponse{Status: resp.StatusCode, Header: resp.Header.Get, Body: b}, nil
}

type httptestResponse struct {
	Status int
	Header func(string) string
	Body   []byte
}

func TestCompose_ReturnsJPEG(t *testing.T) {
	app := setup(t)
	body, ct := multipartBody(t, map[string]string{"mode": "logo-contact", "anchor": "top-left", "scale": "1.5"},
		part{"image", "house.jpg", jpeg(t)})

	resp, err := post(t, app, "/compose", body, ct)
	require.NoError(t, err)
	require.Equal(t, 200, resp.Status, string(resp.Body))
	assert.Equal(t, "image/jpeg", resp.Header("Content-Type"))
	assert.Contains(t, resp.Header("Content-Disposition"), "watermarked-house.jpg")
	assert.Equal(t, "true", resp.Header("X-Logo-Drawn"))

	img, err := wm.Decode(bytes.NewReader(resp.Body))
	require.NoError(t, err)
	assert.Equal(t, 240, img.Bounds().Dx())
}

func TestCompose_QuotesFileName(t *testing.T) {
	app := setup(t)
	body, ct := multipartBody(t, nil, part{"image", `a"b.jpg`, jpeg(t)})

	resp, err := post(t, app, "/compose", body, ct)
	require.NoError(t, err)
	require.Equal(t, 200, resp.Status, string(resp.Body))
	cd := resp.Header("Content-Disposition")
	assert.True(t, strings.HasPrefix(cd, `attachment; filename="`), cd)
	assert.Equal(t, 2, strings.Count(cd, `"`), cd)
	assert.Equal(t, "image/jpeg", resp.Header("Content-Type"))
}

func TestCompose_RejectsBadInput(t *testing.T) {
	app := setup(t)

	body, ct := multipartBody(t, map[string]string{"opacity": "2"}, part{"image", "a.jpg", jpeg(t)})
	resp, err := post(t, app, "/compose", body, ct)
	require.NoError(t, err)
	assert.Equal(t, 400, resp.Status)

	body, ct = multipartBody(t, map[string]string{"scale": "big"}, part{"image", "a.jpg", jpeg(t)})
	resp, err = post(t, app, "/compose", body, ct)
	require.NoError(t, err)
	assert.Equal(t, 400, resp.Status)

	body, ct = multipartBody(t, nil, part{"image", "a.jpg", []byte("garbage")})
	resp, err = post(t, app, "/compose", body, ct)
	require.NoError(t, err)
	assert.Equal(t, 422, resp.Status)

	body, ct = multipartBody(t, map[string]string{"mode": "logo-only"})
	resp, err = post(t, app, "/compose", body, ct)
	require.NoError(t, err)
	assert.Equal(t, 400, resp.Status)
}

func TestBatch_Zip(t *testing.T) {
	app := setup(t)
	opts, _ := json.Marshal([]map[string]interface{}{
		{"mode": "contact-only", "anchor": "center"},
		{"mode": "logo-only", "x": 0.1, "y": 0.9},
	})
	body, ct := multipartBody(t, map[string]string{"options": string(opts)},
		part{"images", "a.jpg", jpeg(t)}, part{"images", "a.jpg", jpeg(t)})

	resp, err := post(t, app, "/batch", body, ct)
	require.NoError(t, err)
	require.Equal(t, 200, resp.Status, string(resp.Body))
	assert.Equal(t, "application/zip", resp.Header("Content-Type"))
	assert.Equal(t, "2", resp.Header("X-Batch-Succeeded"))

	zr, err := zip.NewReader(bytes.NewReader(resp.Body), int64(len(resp.Body)))
	require.NoError(t, err)
	require.Len(t, zr.File, 2)
	assert.Equal(t, "watermarked-a.jpg", zr.File[0].Name)
	assert.Equal(t, "watermarked-a-2.jpg", zr.File[1].Name)
}

func TestBatch_Policies(t *testing.T) {
	app := setup(t)
	files := []part{{"images", "a.jpg", jpeg(t)}, {"images", "bad.jpg", []byte("x")}, {"images", "c.jpg", jpeg(t)}}

	body, ct := multipartBody(t, nil, files...)
	resp, err := post(t, app, "/batch", body, ct)
	require.NoError(t, err)
	assert.Equal(t, 422, resp.Status)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(resp.Body, &out))
	msg := out["error"].(map[string]interface{})["message"].(string)
	assert.Contains(t, msg, "Watermarking failed after 1 files")

	body, ct = multipartBody(t, map[string]string{"policy": "continue"}, files...)
	resp, err = post(t, app, "/batch", body, ct)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.Status)
	assert.Equal(t, "2", resp.Header("X-Batch-Succeeded"))
	assert.Equal(t, "1", resp.Header("X-Batch-Failed"))
}

func TestPerFileOptionsCountMismatch(t *testing.T) {
	app := setup(t)
	body, ct := multipartBody(t, map[string]string{"options": `[{"mode":"logo-only"}]`},
		part{"images", "a.jpg", jpeg(t)}, part{"images", "b.jpg", jpeg(t)})
	resp, err := post(t, app, "/batch", body, ct)
	require.NoError(t, err)
	assert.Equal(t, 400, resp.Status)
}

func TestOptionsInput_RelativeDefaults(t *testing.T) {
	x := 0.25
	o, err := OptionsInput{X: &x}.Options("0917")
	require.NoError(t, err)
	require.NotNil(t, o.Relative)
	assert.Equal(t, wm.Point{X: 0.25, Y: 0.8}, *o.Relative)
	assert.Equal(t, wm.ModeLogoContact, o.Mode)
	assert.Equal(t, "0917", o.ContactText)
}
