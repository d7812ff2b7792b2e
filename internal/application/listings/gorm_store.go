package listings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"mliang-listings/internal/domain"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// GormStore keeps listings in Postgres through GORM. Every mutation writes a
// listing event in the same transaction.
type GormStore struct {
	DB *gorm.DB
}

func (s *GormStore) ListAll(ctx context.Context) ([]domain.Record, error) {
	var rows []domain.ListingRow
	if err := s.DB.WithContext(ctx).Order(`"createdAt" ASC`).Order("property_id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("Failed to fetch listings: %v", err)
	}
	out := make([]domain.Record, 0, len(rows))
	for _, r := range rows {
		rec, err := r.Record()
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *GormStore) Insert(ctx context.Context, rec domain.Record) (domain.Record, error) {
	id, ok := rec.PropertyID()
	if !ok {
		return nil, errors.New("Property ID is required")
	}
	row, err := domain.NewListingRow(id, rec)
	if err != nil {
		return nil, err
	}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("Failed to create listing: %v", err)
		}
		return writeEvent(tx, id, domain.EventCreated, row.Fields)
	})
	if err != nil {
		return nil, err
	}
	return row.Record()
}

func (s *GormStore) Update(ctx context.Context, id int64, patch domain.Record) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row domain.ListingRow
		if err := tx.Where("property_id = ?", id).First(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return fmt.Errorf("Failed to load listing: %v", err)
		}
		rec, err := row.Record()
		if err != nil {
			return err
		}
		for k, v := range patch {
			rec[k] = v
		}
		next, err := domain.NewListingRow(id, rec)
		if err != nil {
			return err
		}
		if err := tx.Model(&domain.ListingRow{}).Where("property_id = ?", id).Update("fields", next.Fields).Error; err != nil {
			return fmt.Errorf("Failed to update listing: %v", err)
		}
		data, _ := json.Marshal(patch)
		return writeEvent(tx, id, domain.EventUpdated, data)
	})
}

func (s *GormStore) Delete(ctx context.Context, id int64) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("property_id = ?", id).Delete(&domain.ListingRow{})
		if res.Error != nil {
			return fmt.Errorf("Failed to delete listing: %v", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil
		}
		return writeEvent(tx, id, domain.EventDeleted, []byte("{}"))
	})
}

// Events returns the audit trail of one listing, oldest first.
func (s *GormStore) Events(ctx context.Context, id int64) ([]domain.ListingEvent, error) {
	var events []domain.ListingEvent
	if err := s.DB.WithContext(ctx).Where("property_id = ?", id).Order(`"createdAt" ASC`).Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

func writeEvent(tx *gorm.DB, id int64, eventType string, data []byte) error {
	if err := tx.Create(&domain.ListingEvent{
		PropertyID: id,
		EventType:  eventType,
		EventData:  datatypes.JSON(data),
	}).Error; err != nil {
		return fmt.Errorf("Failed to create listing event: %v", err)
	}
	return nil
}
