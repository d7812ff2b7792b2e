package listings

import (
	"context"

	"mliang-listings/internal/domain"
	"mliang-listings/internal/infrastructure/supabase"
)

// PostgrestStore keeps listings in a Supabase table.
type PostgrestStore struct {
	Client *supabase.Client
	Table  string
}

func (s *PostgrestStore) ListAll(ctx context.Context) ([]domain.Record, error) {
	rows, err := s.Client.Select(ctx, s.Table, "*")
	if err != nil {
		return nil, err
	}
	out := make([]domain.Record, len(rows))
	for i, r := range rows {
		out[i] = domain.Record(r)
	}
	return out, nil
}

func (s *PostgrestStore) Insert(ctx context.Context, rec domain.Record) (domain.Record, error) {
	rows, err := s.Client.Insert(ctx, s.Table, []supabase.Row{rec})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return rec, nil
	}
	return domain.Record(rows[0]), nil
}

func (s *PostgrestStore) Update(ctx context.Context, id int64, patch domain.Record) error {
	_, err := s.Client.UpdateEq(ctx, s.Table, domain.PropertyIDField, id, supabase.Row(patch))
	return err
}

func (s *PostgrestStore) Delete(ctx context.Context, id int64) error {
	return s.Client.DeleteEq(ctx, s.Table, domain.PropertyIDField, id)
}
