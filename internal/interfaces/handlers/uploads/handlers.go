package uploads

import (
	"errors"
	"strconv"
	"strings"

	"mliang-listings/internal/application/listings"
	uploadsvc "mliang-listings/internal/application/uploads"
	wmhandlers "mliang-listings/internal/interfaces/handlers/watermark"
	"mliang-listings/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// Handlers bundles upload handlers with the service.
type Handlers struct {
	Service *uploadsvc.Service
	Contact string
}

type signRequest struct {
	FileName string `json:"file_name"`
}

// Photos POST /api/v1/uploads/photos (multipart field "photos", optional
// property_id, contact_text, placement controls and per-file "options").
func (h *Handlers) Photos(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil || len(form.File["photos"]) == 0 {
		return response.Error(c, uploadsvc.ErrNoFiles.Error(), fiber.StatusBadRequest, nil)
	}
	headers := form.File["photos"]

	batch := uploadsvc.Batch{ContactText: h.Contact}
	if raw := strings.TrimSpace(c.FormValue("property_id")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return response.Error(c, listings.ErrInvalidPropertyID.Error(), fiber.StatusBadRequest, nil)
		}
		batch.PropertyID = &id
	}
	if v := strings.TrimSpace(c.FormValue("contact_text")); v != "" {
		batch.ContactText = v
	}

	shared, err := wmhandlers.FormOptions(c)
	if err != nil {
		return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
	}
	if batch.Options, err = shared.Options(batch.ContactText); err != nil {
		return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
	}
	perFile, err := wmhandlers.PerFileOptions(c, len(headers))
	if err != nil {
		return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
	}

	for i, fh := range headers {
		data, err := wmhandlers.ReadFile(fh)
		if err != nil {
			return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
		}
		f := uploadsvc.File{Name: fh.Filename, Data: data}
		if perFile != nil {
			opts, err := perFile[i].Options(batch.ContactText)
			if err != nil {
				return response.Error(c, fh.Filename+": "+err.Error(), fiber.StatusBadRequest, nil)
			}
			f.Options = &opts
		}
		batch.Files = append(batch.Files, f)
	}

	report, err := h.Service.UploadBatch(c.UserContext(), batch)
	if err != nil {
		var be *uploadsvc.BatchError
		var ie *uploadsvc.InsertError
		switch {
		case errors.Is(err, uploadsvc.ErrStorageNotConfigured), errors.Is(err, listings.ErrStoreNotConfigured):
			log.Warn().Err(err).Msg("upload: pipeline not configured")
			return response.Unavailable(c, err.Error())
		case errors.As(err, &be):
			return response.Error(c, err.Error(), fiber.StatusBadGateway, report)
		case errors.As(err, &ie):
			return response.Error(c, err.Error(), fiber.StatusInternalServerError, report)
		}
		return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
	}
	return response.SuccessCreated(c, "Photos uploaded successfully", report, nil)
}

// Sign POST /api/v1/uploads/sign
func (h *Handlers) Sign(c *fiber.Ctx) error {
	var req signRequest
	if err := c.BodyParser(&req); err != nil || req.FileName == "" {
		return response.Error(c, "file_name is required", fiber.StatusBadRequest, nil)
	}

	res, err := h.Service.GetSignedUploadURL(c.UserContext(), req.FileName)
	if err != nil {
		if errors.Is(err, uploadsvc.ErrStorageNotConfigured) {
			return response.Unavailable(c, err.Error())
		}
		if errors.Is(err, uploadsvc.ErrSigningUnsupported) {
			return response.Error(c, err.Error(), fiber.StatusNotImplemented, nil)
		}
		if errors.Is(err, uploadsvc.ErrInvalidFileName) {
			return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
		}
		log.Error().Err(err).Msg("upload: failed to generate signed URL")
		return response.Error(c, "Failed to generate upload URL", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Upload URL generated", res, nil)
}
