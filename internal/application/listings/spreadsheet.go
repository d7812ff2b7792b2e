package listings

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"mliang-listings/internal/domain"

	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"
)

const exportSheet = "Listings"

// ExportXLSX writes every listing to a single-sheet workbook, one column per field.
func (s *Service) ExportXLSX(ctx context.Context, w io.Writer) (int, error) {
	rows, err := s.ListAll(ctx)
	if err != nil {
		return 0, err
	}
	columns := s.Columns(rows)

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	if err := f.SetSheetName(f.GetSheetName(0), exportSheet); err != nil {
		return 0, err
	}
	header := make([]interface{}, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	if err := f.SetSheetRow(exportSheet, "A1", &header); err != nil {
		return 0, err
	}
	for i, rec := range rows {
		cells := make([]interface{}, len(columns))
		for j, c := range columns {
			cells[j] = rec[c]
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return 0, err
		}
		if err := f.SetSheetRow(exportSheet, cell, &cells); err != nil {
			return 0, err
		}
	}
	if err := f.Write(w); err != nil {
		return 0, fmt.Errorf("write workbook: %w", err)
	}
	return len(rows), nil
}

// ImportResult reports a spreadsheet import.
type ImportResult struct {
	Inserted int     `json:"inserted"`
	IDs      []int64 `json:"ids"`
}

// ImportXLSX reads the first sheet; the header row names the fields. Each
// non-empty data row is inserted with the next id in sequence. The import
// stops at the first failed insert; rows already inserted stay.
func (s *Service) ImportXLSX(ctx context.Context, r io.Reader) (*ImportResult, error) {
	if s.Store == nil {
		return nil, ErrStoreNotConfigured
	}
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, errors.New("no worksheet found")
	}
	cells, err := f.GetRows(sheet)
	if err != nil {
		return nil, err
	}
	if len(cells) == 0 {
		return nil, errors.New("worksheet is empty")
	}
	header := make([]string, len(cells[0]))
	for i, h := range cells[0] {
		header[i] = strings.TrimSpace(h)
	}

	existing, err := s.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	next, err := NextPropertyID(existing)
	if err != nil {
		return nil, err
	}
	res := &ImportResult{IDs: []int64{}}
	for line, row := range cells[1:] {
		rec := domain.Record{}
		for i, col := range header {
			if col == "" || col == domain.PropertyIDField || i >= len(row) {
				continue
			}
			if v := strings.TrimSpace(row[i]); v != "" {
				rec[col] = v
			}
		}
		if len(rec) == 0 {
			continue
		}
		if next <= 0 {
			return res, ErrPropertyIDExhausted
		}
		rec[domain.PropertyIDField] = next
		if _, err := s.Insert(ctx, rec); err != nil {
			log.Error().Err(err).Int("row", line+2).Int("inserted", res.Inserted).Msg("listings: import stopped")
			return res, fmt.Errorf("Import failed at row %d after %d listings: %w", line+2, res.Inserted, err)
		}
		res.Inserted++
		res.IDs = append(res.IDs, next)
		next++
	}
	return res, nil
}
