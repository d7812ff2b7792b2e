// Package editsession hands selected photos from the upload page to the
// single-image editor and back.
package editsession

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// KeyPrefix namespaces session keys in Redis.
const KeyPrefix = "editsession:"

// DefaultTTL applies when Store.TTL is zero.
const DefaultTTL = 30 * time.Minute

var (
	ErrNotFound      = errors.New("Edit session not found or expired")
	ErrNotConfigured = errors.New("Edit sessions require Redis")
	ErrBadIndex      = errors.New("File index out of range")
	ErrNoFiles       = errors.New("No files to edit")
)

// File is one image in a session. Data is base64 without a data-URL prefix.
type File struct {
	Name string `json:"file"`
	Data string `json:"data"`
}

// Bytes decodes the payload.
func (f File) Bytes() ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(f.Data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", f.Name, err)
	}
	return b, nil
}

// StripDataURL removes a leading "data:<mime>;base64," if present.
func StripDataURL(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "data:") {
		if i := strings.Index(s, ","); i >= 0 {
			return s[i+1:]
		}
	}
	return s
}

// Store keeps sessions as JSON values that expire after TTL.
type Store struct {
	Rdb *redis.Client
	TTL time.Duration
}

func (s *Store) ttl() time.Duration {
	if s.TTL <= 0 {
		return DefaultTTL
	}
	return s.TTL
}

func key(token string) string { return KeyPrefix + token }

// Put stores files under a new token.
func (s *Store) Put(ctx context.Context, files []File) (string, error) {
	if s.Rdb == nil {
		return "", ErrNotConfigured
	}
	if len(files) == 0 {
		return "", ErrNoFiles
	}
	clean := make([]File, len(files))
	for i, f := range files {
		clean[i] = File{Name: f.Name, Data: StripDataURL(f.Data)}
		if _, err := clean[i].Bytes(); err != nil {
			return "", err
		}
	}
	token := uuid.NewString()
	if err := s.write(ctx, token, clean); err != nil {
		return "", err
	}
	return token, nil
}

// Get returns the files for token.
func (s *Store) Get(ctx context.Context, token string) ([]File, error) {
	if s.Rdb == nil {
		return nil, ErrNotConfigured
	}
	raw, err := s.Rdb.Get(ctx, key(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read edit session: %w", err)
	}
	var files []File
	if err := json.Unmarshal(raw, &files); err != nil {
		return nil, fmt.Errorf("decode edit session: %w", err)
	}
	return files, nil
}

// Replace swaps the payload of one file and refreshes the TTL.
func (s *Store) Replace(ctx context.Context, token string, index int, data string) error {
	files, err := s.Get(ctx, token)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(files) {
		return ErrBadIndex
	}
	files[index].Data = StripDataURL(data)
	if _, err := files[index].Bytes(); err != nil {
		return err
	}
	return s.write(ctx, token, files)
}

// Delete drops the session. Unknown tokens are not an error.
func (s *Store) Delete(ctx context.Context, token string) error {
	if s.Rdb == nil {
		return ErrNotConfigured
	}
	return s.Rdb.Del(ctx, key(token)).Err()
}

func (s *Store) write(ctx context.Context, token string, files []File) error {
	b, err := json.Marshal(files)
	if err != nil {
		return err
	}
	if err := s.Rdb.Set(ctx, key(token), b, s.ttl()).Err(); err != nil {
		return fmt.Errorf("write edit session: %w", err)
	}
	return nil
}
