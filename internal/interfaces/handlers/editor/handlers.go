package editor

import (
	"encoding/base64"
	"errors"
	"image"
	"strconv"

	"mliang-listings/internal/application/editsession"
	wm "mliang-listings/internal/application/watermark"
	wmhandlers "mliang-listings/internal/interfaces/handlers/watermark"
	"mliang-listings/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// Handlers serves the single-image editor hand-off.
type Handlers struct {
	Sessions   *editsession.Store
	Compositor *wm.Compositor
	Logo       image.Image
	Contact    string
}

func fail(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, editsession.ErrNotConfigured):
		log.Warn().Str("path", c.Path()).Msg("editor: sessions not configured")
		return response.Unavailable(c, err.Error())
	case errors.Is(err, editsession.ErrNotFound):
		return response.Error(c, err.Error(), fiber.StatusNotFound, nil)
	case errors.Is(err, editsession.ErrBadIndex), errors.Is(err, editsession.ErrNoFiles):
		return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
	}
	return response.Error(c, err.Error(), fiber.StatusInternalServerError, nil)
}

type createRequest struct {
	Files []editsession.File `json:"files"`
}

// Create POST /api/v1/editor/sessions
func (h *Handlers) Create(c *fiber.Ctx) error {
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	token, err := h.Sessions.Put(c.UserContext(), req.Files)
	if err != nil {
		if errors.Is(err, editsession.ErrNotConfigured) || errors.Is(err, editsession.ErrNoFiles) {
			return fail(c, err)
		}
		return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
	}
	return response.SuccessCreated(c, "Edit session created", fiber.Map{"token": token, "count": len(req.Files)}, nil)
}

// Get GET /api/v1/editor/sessions/:token
func (h *Handlers) Get(c *fiber.Ctx) error {
	files, err := h.Sessions.Get(c.UserContext(), c.Params("token"))
	if err != nil {
		return fail(c, err)
	}
	return response.Success(c, "Edit session fetched", fiber.Map{"files": files}, nil)
}

type renderRequest struct {
	wmhandlers.OptionsInput
	Index int  `json:"index"`
	Save  bool `json:"save"`
}

// Render POST /api/v1/editor/sessions/:token/render draws the watermark on
// one stored file. With save it replaces the stored file and answers JSON,
// otherwise it answers the JPEG.
func (h *Handlers) Render(c *fiber.Ctx) error {
	var req renderRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	opts, err := req.Options(h.Contact)
	if err != nil {
		return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
	}

	ctx := c.UserContext()
	token := c.Params("token")
	files, err := h.Sessions.Get(ctx, token)
	if err != nil {
		return fail(c, err)
	}
	if req.Index < 0 || req.Index >= len(files) {
		return fail(c, editsession.ErrBadIndex)
	}
	src, err := files[req.Index].Bytes()
	if err != nil {
		return response.Error(c, err.Error(), fiber.StatusUnprocessableEntity, nil)
	}
	out, res, err := h.Compositor.ComposeBytes(src, h.Logo, opts)
	if err != nil {
		return response.Error(c, err.Error(), wmhandlers.ComposeStatus(err), nil)
	}

	if req.Save {
		if err := h.Sessions.Replace(ctx, token, req.Index, base64.StdEncoding.EncodeToString(out)); err != nil {
			return fail(c, err)
		}
		return response.Success(c, "Edited image saved", fiber.Map{
			"index":      req.Index,
			"file":       files[req.Index].Name,
			"placement":  res.Placement,
			"logo_drawn": res.LogoDrawn,
		}, nil)
	}
	c.Set(fiber.HeaderContentType, "image/jpeg")
	c.Set("X-Logo-Drawn", strconv.FormatBool(res.LogoDrawn))
	return c.Send(out)
}

// Delete DELETE /api/v1/editor/sessions/:token
func (h *Handlers) Delete(c *fiber.Ctx) error {
	if err := h.Sessions.Delete(c.UserContext(), c.Params("token")); err != nil {
		return fail(c, err)
	}
	return response.Success(c, "Edit session deleted", nil, nil)
}
