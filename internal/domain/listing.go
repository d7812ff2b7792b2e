package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Listing event types recorded by the SQL store.
const (
	EventCreated = "CREATED"
	EventUpdated = "UPDATED"
	EventDeleted = "DELETED"
)

// ListingRow stores a listing in Postgres when the SQL store is selected.
// The id is the primary key, so duplicate ids are rejected by the database.
type ListingRow struct {
	PropertyID int64          `gorm:"column:property_id;primaryKey;autoIncrement:false" json:"property_id"`
	Fields     datatypes.JSON `gorm:"column:fields;type:json;not null" json:"fields"`
	CreatedAt  time.Time      `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt  time.Time      `gorm:"column:updatedAt" json:"updatedAt"`
}

func (ListingRow) TableName() string {
	return "listings"
}

// NewListingRow packs rec into a row; the id lives in its own column.
func NewListingRow(id int64, rec Record) (ListingRow, error) {
	fields := rec.Clone()
	delete(fields, PropertyIDField)
	b, err := json.Marshal(fields)
	if err != nil {
		return ListingRow{}, fmt.Errorf("encode listing fields: %w", err)
	}
	return ListingRow{PropertyID: id, Fields: datatypes.JSON(b)}, nil
}

// Record unpacks the row into the flat record shape.
func (r ListingRow) Record() (Record, error) {
	rec := Record{}
	if len(r.Fields) > 0 {
		if err := json.Unmarshal(r.Fields, &rec); err != nil {
			return nil, fmt.Errorf("decode listing %d: %w", r.PropertyID, err)
		}
	}
	rec[PropertyIDField] = r.PropertyID
	return rec, nil
}

// ListingEvent is the audit trail of listing mutations.
type ListingEvent struct {
	EventID    uuid.UUID      `gorm:"column:event_id;type:uuid;primaryKey" json:"event_id"`
	PropertyID int64          `gorm:"column:property_id;index;not null" json:"property_id"`
	EventType  string         `gorm:"column:event_type;type:varchar(20);not null" json:"event_type"`
	EventData  datatypes.JSON `gorm:"column:event_data;type:json" json:"event_data"`
	CreatedAt  time.Time      `gorm:"column:createdAt" json:"createdAt"`
}

func (ListingEvent) TableName() string {
	return "listing_events"
}

func (e *ListingEvent) BeforeCreate(tx *gorm.DB) error {
	if e.EventID == uuid.Nil {
		e.EventID = uuid.New()
	}
	return nil
}
