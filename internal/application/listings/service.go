package listings

import (
	"context"
	"errors"
	"math"
	"strings"

	"mliang-listings/internal/domain"

	"github.com/rs/zerolog/log"
)

// ErrEventsUnavailable is returned when the active store keeps no audit trail.
var ErrEventsUnavailable = errors.New("Listing events require the postgres listing store")

// ErrListingNotFound is returned by Get for unknown ids.
var ErrListingNotFound = errors.New("Listing not found")

// ErrPropertyIDExhausted is returned when max+1 would overflow int64.
var ErrPropertyIDExhausted = errors.New("No Property ID left after the current maximum")

// ErrInvalidPropertyID is returned for ids that are not whole numbers.
var ErrInvalidPropertyID = errors.New("Property ID must be a whole number")

// Service is the listing CRUD surface used by handlers and the upload pipeline.
type Service struct {
	Store  Store
	Schema *domain.Schema
}

func (s *Service) schema() *domain.Schema {
	if s.Schema == nil {
		return domain.DefaultSchema()
	}
	return s.Schema
}

// SchemaFields exposes the field descriptors in order.
func (s *Service) SchemaFields() *domain.Schema {
	return s.schema()
}

// ListAll returns every listing in store order.
func (s *Service) ListAll(ctx context.Context) ([]domain.Record, error) {
	if s.Store == nil {
		return nil, ErrStoreNotConfigured
	}
	return s.Store.ListAll(ctx)
}

// Get finds one listing by id in a full fetch, returning the columns of
// that fetch alongside it.
func (s *Service) Get(ctx context.Context, id int64) (domain.Record, []string, error) {
	rows, err := s.ListAll(ctx)
	if err != nil {
		return nil, nil, err
	}
	for _, r := range rows {
		if rid, ok := r.PropertyID(); ok && rid == id {
			return r, s.Columns(rows), nil
		}
	}
	return nil, nil, ErrListingNotFound
}

// Columns returns the schema columns plus keys discovered in rows.
func (s *Service) Columns(rows []domain.Record) []string {
	return s.schema().Columns(rows)
}

// NextPropertyID is max(existing)+1, non-numeric ids counting as 0.
// Two concurrent creators can compute the same value; only the postgres
// store rejects the duplicate.
func NextPropertyID(rows []domain.Record) (int64, error) {
	var max int64
	for _, r := range rows {
		if id, ok := r.PropertyID(); ok && id > max {
			max = id
		}
	}
	if max == math.MaxInt64 {
		return 0, ErrPropertyIDExhausted
	}
	return max + 1, nil
}

// NewDraft returns the create form's starting record.
func (s *Service) NewDraft(ctx context.Context) (domain.Record, error) {
	rows, err := s.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	next, err := NextPropertyID(rows)
	if err != nil {
		return nil, err
	}
	draft := s.schema().Defaults()
	draft[domain.PropertyIDField] = next
	return draft, nil
}

// Create inserts draft under a freshly computed id. Required fields must be filled.
func (s *Service) Create(ctx context.Context, draft domain.Record) (domain.Record, error) {
	rows, err := s.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	next, err := NextPropertyID(rows)
	if err != nil {
		return nil, err
	}
	rec := s.schema().Normalize(draft)
	rec[domain.PropertyIDField] = next
	if err := s.schema().Validate(rec, true); err != nil {
		return nil, err
	}
	created, err := s.Store.Insert(ctx, rec)
	if err != nil {
		log.Error().Err(err).Interface("property_id", rec[domain.PropertyIDField]).Msg("listings: create failed")
		return nil, err
	}
	return created, nil
}

// Insert stores rec with the id it already carries.
func (s *Service) Insert(ctx context.Context, rec domain.Record) (domain.Record, error) {
	if s.Store == nil {
		return nil, ErrStoreNotConfigured
	}
	rec = s.schema().Normalize(rec)
	if _, ok := rec.PropertyID(); !ok {
		return nil, ErrInvalidPropertyID
	}
	if err := s.schema().Validate(rec, false); err != nil {
		return nil, err
	}
	return s.Store.Insert(ctx, rec)
}

// Update applies patch to the listing with id. The id itself is never
// part of the patch; it is only the match predicate.
func (s *Service) Update(ctx context.Context, id int64, patch domain.Record) error {
	if s.Store == nil {
		return ErrStoreNotConfigured
	}
	clean := s.schema().Normalize(patch)
	delete(clean, domain.PropertyIDField)
	if err := s.schema().Validate(clean, false); err != nil {
		return err
	}
	if err := s.Store.Update(ctx, id, clean); err != nil {
		log.Error().Err(err).Int64("property_id", id).Msg("listings: update failed")
		return err
	}
	return nil
}

// Delete removes the listing with id.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if s.Store == nil {
		return ErrStoreNotConfigured
	}
	return s.Store.Delete(ctx, id)
}

// DeleteMany deletes ids one at a time and stops at the first failure.
// It returns how many deletes completed.
func (s *Service) DeleteMany(ctx context.Context, ids []int64) (int, error) {
	if s.Store == nil {
		return 0, ErrStoreNotConfigured
	}
	for i, id := range ids {
		if err := s.Store.Delete(ctx, id); err != nil {
			log.Error().Err(err).Int64("property_id", id).Int("deleted", i).Msg("listings: bulk delete stopped")
			return i, err
		}
	}
	return len(ids), nil
}

// Events returns the audit trail of one listing.
func (s *Service) Events(ctx context.Context, id int64) ([]domain.ListingEvent, error) {
	if s.Store == nil {
		return nil, ErrStoreNotConfigured
	}
	el, ok := s.Store.(EventLister)
	if !ok {
		return nil, ErrEventsUnavailable
	}
	return el.Events(ctx, id)
}

// ParsePastedRow maps one tab-separated spreadsheet row onto columns by
// position. The id column keeps its position but is never filled, and
// blank cells are skipped.
func ParsePastedRow(line string, columns []string) domain.Record {
	out := domain.Record{}
	line = strings.TrimRight(line, "\r\n")
	if strings.TrimSpace(line) == "" {
		return out
	}
	values := strings.Split(line, "\t")
	for i, col := range columns {
		if i >= len(values) || col == domain.PropertyIDField {
			continue
		}
		v := strings.TrimSpace(values[i])
		if v == "" {
			continue
		}
		out[col] = v
	}
	return out
}
