package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// Row is one decoded table row.
type Row = map[string]interface{}

// Select returns every row of table. columns is a PostgREST select list ("*" for all).
func (c *Client) Select(ctx context.Context, table, columns string) ([]Row, error) {
	if columns == "" {
		columns = "*"
	}
	body, err := c.do(ctx, request{
		method: http.MethodGet,
		path:   restPath(table),
		query:  url.Values{"select": {columns}},
	})
	if err != nil {
		return nil, err
	}
	return decodeRows(body)
}

// Insert writes rows and returns them as stored.
func (c *Client) Insert(ctx context.Context, table string, rows []Row) ([]Row, error) {
	payload, err := json.Marshal(rows)
	if err != nil {
		return nil, fmt.Errorf("encode insert: %w", err)
	}
	body, err := c.do(ctx, request{
		method: http.MethodPost,
		path:   restPath(table),
		body:   bytes.NewReader(payload),
		headers: map[string]string{
			"Content-Type": "application/json",
			"Prefer":       "return=representation",
		},
	})
	if err != nil {
		return nil, err
	}
	return decodeRows(body)
}

// UpdateEq patches every row where column equals value.
func (c *Client) UpdateEq(ctx context.Context, table, column string, value interface{}, patch Row) ([]Row, error) {
	payload, err := json.Marshal(patch)
	if err != nil {
		return nil, fmt.Errorf("encode update: %w", err)
	}
	body, err := c.do(ctx, request{
		method: http.MethodPatch,
		path:   restPath(table),
		query:  eq(column, value),
		body:   bytes.NewReader(payload),
		headers: map[string]string{
			"Content-Type": "application/json",
			"Prefer":       "return=representation",
		},
	})
	if err != nil {
		return nil, err
	}
	return decodeRows(body)
}

// DeleteEq removes every row where column equals value.
func (c *Client) DeleteEq(ctx context.Context, table, column string, value interface{}) error {
	_, err := c.do(ctx, request{
		method: http.MethodDelete,
		path:   restPath(table),
		query:  eq(column, value),
	})
	return err
}

func restPath(table string) string {
	return "/rest/v1/" + url.PathEscape(table)
}

func eq(column string, value interface{}) url.Values {
	return url.Values{column: {fmt.Sprintf("eq.%v", value)}}
}

func decodeRows(body []byte) ([]Row, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return []Row{}, nil
	}
	var rows []Row
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("supabase response decode: %w", err)
	}
	return rows, nil
}
