package listings

import (
	"context"
	"errors"

	"mliang-listings/internal/domain"
)

// ErrStoreNotConfigured is returned by every operation when no store is wired.
var ErrStoreNotConfigured = errors.New("Listing store is not configured")

// Store is the remote listings table. Update and Delete match rows by
// equality on the id; matching zero rows is not an error.
type Store interface {
	ListAll(ctx context.Context) ([]domain.Record, error)
	Insert(ctx context.Context, rec domain.Record) (domain.Record, error)
	Update(ctx context.Context, id int64, patch domain.Record) error
	Delete(ctx context.Context, id int64) error
}

// EventLister is implemented by stores that keep an audit trail.
type EventLister interface {
	Events(ctx context.Context, id int64) ([]domain.ListingEvent, error)
}
