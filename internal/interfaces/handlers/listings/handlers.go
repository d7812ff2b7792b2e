package listings

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"mliang-listings/internal/application/dashboard"
	"mliang-listings/internal/application/editor"
	listsvc "mliang-listings/internal/application/listings"
	"mliang-listings/internal/application/share"
	"mliang-listings/internal/domain"
	"mliang-listings/internal/infrastructure/supabase"
	"mliang-listings/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

type Handlers struct {
	Service   *listsvc.Service
	Signature share.Signature
	Videos    share.LocationVideos
	// PageURL is the public dashboard address used as the share preview
	// when a listing has no Drive photo.
	PageURL string
}

// fail maps service errors onto the envelope. Remote and database
// messages are passed through verbatim.
func fail(c *fiber.Ctx, err error) error {
	code, details := classify(c, err)
	return response.Error(c, message(err), code, details)
}

func classify(c *fiber.Ctx, err error) (int, interface{}) {
	var verr *domain.ValidationError
	var rerr *supabase.Error
	switch {
	case errors.Is(err, listsvc.ErrStoreNotConfigured):
		log.Warn().Str("path", c.Path()).Msg("listings: store not configured")
		return fiber.StatusServiceUnavailable, nil
	case errors.Is(err, listsvc.ErrListingNotFound):
		return fiber.StatusNotFound, nil
	case errors.Is(err, listsvc.ErrInvalidPropertyID), errors.Is(err, editor.ErrEditNeedsID):
		return fiber.StatusBadRequest, nil
	case errors.Is(err, listsvc.ErrEventsUnavailable):
		return fiber.StatusNotImplemented, nil
	case errors.Is(err, listsvc.ErrPropertyIDExhausted):
		return fiber.StatusConflict, nil
	case errors.As(err, &verr):
		return fiber.StatusBadRequest, verr.Fields
	case errors.As(err, &rerr):
		return fiber.StatusBadGateway, fiber.Map{"code": rerr.Code, "remoteStatus": rerr.Status}
	}
	return fiber.StatusInternalServerError, nil
}

func message(err error) string {
	var rerr *supabase.Error
	if errors.As(err, &rerr) {
		return rerr.Message
	}
	return err.Error()
}

func paramID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return 0, listsvc.ErrInvalidPropertyID
	}
	return id, nil
}

func decodeRecord(c *fiber.Ctx) (domain.Record, error) {
	var rec domain.Record
	if err := json.Unmarshal(c.Body(), &rec); err != nil || rec == nil {
		return nil, errors.New("Invalid request body")
	}
	return rec, nil
}

// queryFromRequest reads search, filter[<column>], sort, order, mode, page
// and per_page.
func queryFromRequest(c *fiber.Ctx) dashboard.Query {
	q := dashboard.Query{
		Search:  c.Query("search"),
		SortBy:  c.Query("sort"),
		Desc:    strings.EqualFold(c.Query("order"), "desc"),
		Mode:    dashboard.Mode(c.Query("mode")),
		Page:    c.QueryInt("page", 1),
		PerPage: c.QueryInt("per_page", dashboard.DefaultPerPage),
		Filters: map[string]string{},
	}
	for k, v := range c.Queries() {
		if strings.HasPrefix(k, "filter[") && strings.HasSuffix(k, "]") {
			q.Filters[k[len("filter["):len(k)-1]] = v
		}
	}
	return q
}

// View GET /api/v1/listings. When the fetch fails the error details carry
// the loading view, since no fetch has completed.
func (h *Handlers) View(c *fiber.Ctx) error {
	rows, err := h.Service.ListAll(c.UserContext())
	if err != nil {
		code, details := classify(c, err)
		return response.Error(c, message(err), code, fiber.Map{"view": dashboard.Loading(), "cause": details})
	}
	view := dashboard.Apply(rows, queryFromRequest(c), h.Service.Columns(rows))
	return response.Success(c, "Listings fetched successfully", view, fiber.Map{"fields": h.Service.SchemaFields().Fields})
}

// Form GET /api/v1/listings/form?id= ; without id it is a create draft.
func (h *Handlers) Form(c *fiber.Ctx) error {
	ctx := c.UserContext()
	if raw := c.Query("id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fail(c, listsvc.ErrInvalidPropertyID)
		}
		rec, cols, err := h.Service.Get(ctx, id)
		if err != nil {
			return fail(c, err)
		}
		form, err := editor.BuildForm(h.Service.SchemaFields(), rec, cols, editor.ModeEdit)
		if err != nil {
			return fail(c, err)
		}
		return response.Success(c, "Edit form", form, nil)
	}

	rows, err := h.Service.ListAll(ctx)
	if err != nil {
		return fail(c, err)
	}
	draft, err := h.Service.NewDraft(ctx)
	if err != nil {
		return fail(c, err)
	}
	form, err := editor.BuildForm(h.Service.SchemaFields(), draft, h.Service.Columns(rows), editor.ModeCreate)
	if err != nil {
		return fail(c, err)
	}
	return response.Success(c, "Create form", form, nil)
}

// Create POST /api/v1/listings. Responds with the new record and the
// refreshed rows.
func (h *Handlers) Create(c *fiber.Ctx) error {
	draft, err := decodeRecord(c)
	if err != nil {
		return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
	}
	ctx := c.UserContext()
	created, err := h.Service.Create(ctx, draft)
	if err != nil {
		return fail(c, err)
	}
	rows, err := h.Service.ListAll(ctx)
	if err != nil {
		return fail(c, err)
	}
	return response.SuccessCreated(c, "Listing created successfully", fiber.Map{"record": created, "rows": rows}, nil)
}

// Update PUT /api/v1/listings/:id
func (h *Handlers) Update(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return fail(c, err)
	}
	patch, err := decodeRecord(c)
	if err != nil {
		return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
	}
	if err := h.Service.Update(c.UserContext(), id, patch); err != nil {
		return fail(c, err)
	}
	return response.Success(c, "Listing updated successfully", fiber.Map{"property_id": id}, nil)
}

// Delete DELETE /api/v1/listings/:id
func (h *Handlers) Delete(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return fail(c, err)
	}
	if err := h.Service.Delete(c.UserContext(), id); err != nil {
		return fail(c, err)
	}
	return response.Success(c, "Listing deleted successfully", fiber.Map{"property_id": id}, nil)
}

type bulkDeleteRequest struct {
	IDs []int64 `json:"ids"`
}

// DeleteMany POST /api/v1/listings/delete
func (h *Handlers) DeleteMany(c *fiber.Ctx) error {
	var req bulkDeleteRequest
	if err := c.BodyParser(&req); err != nil || len(req.IDs) == 0 {
		return response.Error(c, "ids is required", fiber.StatusBadRequest, nil)
	}
	n, err := h.Service.DeleteMany(c.UserContext(), req.IDs)
	if err != nil {
		if errors.Is(err, listsvc.ErrStoreNotConfigured) {
			return fail(c, err)
		}
		return response.Error(c, err.Error(), fiber.StatusInternalServerError, fiber.Map{"deleted": n})
	}
	return response.Success(c, "Listings deleted successfully", fiber.Map{"deleted": n}, nil)
}

type selectRequest struct {
	dashboard.Query
	Selected []int64 `json:"selected"`
	Toggle   *int64  `json:"toggle"`
}

// SelectAll POST /api/v1/listings/select-all applies one selection step over
// the rows the query matches. With toggle it flips that id in selected;
// otherwise it acts as the header checkbox: everything filtered when not all
// of it is selected yet, nothing when it already is.
func (h *Handlers) SelectAll(c *fiber.Ctx) error {
	var req selectRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
		}
	}
	rows, err := h.Service.ListAll(c.UserContext())
	if err != nil {
		return fail(c, err)
	}
	filtered := dashboard.Filter(rows, req.Query)
	sel := dashboard.NewSelection(req.Selected...)
	switch {
	case req.Toggle != nil:
		sel.Toggle(*req.Toggle)
	case sel.AllSelected(filtered):
		sel.Clear()
	default:
		sel.SelectAll(filtered)
	}
	return response.Success(c, "Selection updated", fiber.Map{
		"ids":          sel.IDs(),
		"count":        sel.Len(),
		"all_selected": sel.AllSelected(filtered),
	}, nil)
}

type parseRowRequest struct {
	Line string `json:"line"`
}

// ParseRow POST /api/v1/listings/parse-row fills a create draft from one
// pasted spreadsheet row.
func (h *Handlers) ParseRow(c *fiber.Ctx) error {
	var req parseRowRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	ctx := c.UserContext()
	rows, err := h.Service.ListAll(ctx)
	if err != nil {
		return fail(c, err)
	}
	draft, err := h.Service.NewDraft(ctx)
	if err != nil {
		return fail(c, err)
	}
	parsed := listsvc.ParsePastedRow(req.Line, h.Service.Columns(rows))
	for k, v := range parsed {
		draft[k] = v
	}
	return response.Success(c, "Row parsed", fiber.Map{"draft": draft, "filled": len(parsed)}, nil)
}

// Share GET /api/v1/listings/:id/share
func (h *Handlers) Share(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return fail(c, err)
	}
	rec, cols, err := h.Service.Get(c.UserContext(), id)
	if err != nil {
		return fail(c, err)
	}
	return response.Success(c, "Listing summary", fiber.Map{"text": share.Summary(rec, cols)}, nil)
}

// Post GET /api/v1/listings/:id/post
func (h *Handlers) Post(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return fail(c, err)
	}
	rec, cols, err := h.Service.Get(c.UserContext(), id)
	if err != nil {
		return fail(c, err)
	}
	text := share.Post(rec, h.Signature)
	return response.Success(c, "Listing post", fiber.Map{
		"text":       text,
		"sharer_url": share.SharerURL(rec, cols, h.PageURL, text),
		"photo":      share.PhotoURL(rec, cols),
		"video":      h.Videos.For(rec.String("Location")),
	}, nil)
}

// Events GET /api/v1/listings/:id/events
func (h *Handlers) Events(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return fail(c, err)
	}
	events, err := h.Service.Events(c.UserContext(), id)
	if err != nil {
		return fail(c, err)
	}
	return response.Success(c, "Listing events fetched successfully", events, nil)
}

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Export GET /api/v1/listings/export
func (h *Handlers) Export(c *fiber.Ctx) error {
	var buf bytes.Buffer
	n, err := h.Service.ExportXLSX(c.UserContext(), &buf)
	if err != nil {
		return fail(c, err)
	}
	c.Set(fiber.HeaderContentType, xlsxContentType)
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="listings.xlsx"`)
	c.Set("X-Listing-Count", strconv.Itoa(n))
	return c.Send(buf.Bytes())
}

// Import POST /api/v1/listings/import (multipart field "file")
func (h *Handlers) Import(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return response.Error(c, "file is required", fiber.StatusBadRequest, nil)
	}
	f, err := fh.Open()
	if err != nil {
		return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
	}
	defer f.Close()

	res, err := h.Service.ImportXLSX(c.UserContext(), f)
	if err != nil {
		if res != nil {
			return response.Error(c, err.Error(), fiber.StatusInternalServerError, res)
		}
		return fail(c, err)
	}
	return response.SuccessCreated(c, "Listings imported successfully", res, nil)
}
