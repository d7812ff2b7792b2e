package uploads

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"math/rand/v2"
	"path"
	"strings"
	"time"

	"mliang-listings/internal/application/listings"
	"mliang-listings/internal/application/watermark"
	"mliang-listings/internal/domain"

	"github.com/rs/zerolog/log"
)

var (
	// ErrStorageNotConfigured is returned when no object store is wired.
	ErrStorageNotConfigured = errors.New("Photo storage is not configured")
	// ErrNoFiles is returned for an empty batch.
	ErrNoFiles = errors.New("No files selected")
	// ErrSigningUnsupported is returned when the object store cannot sign uploads.
	ErrSigningUnsupported = errors.New("Photo storage does not support signed uploads")
	// ErrInvalidFileName is returned when a file name has no usable base name.
	ErrInvalidFileName = errors.New("file_name must name a file")
)

// ObjectStore is the photo bucket.
type ObjectStore interface {
	Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	PublicURL(key string) string
}

// Signer is implemented by stores that can issue direct-upload URLs.
type Signer interface {
	SignedUploadURL(ctx context.Context, key string) (string, error)
}

// BatchError reports a batch that stopped on a failed file.
type BatchError struct {
	Completed int
	Failed    string
	Err       error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("Upload failed after %d files: %s", e.Completed, e.Err.Error())
}

func (e *BatchError) Unwrap() error { return e.Err }

// InsertError is a database failure after every photo reached storage.
type InsertError struct {
	Err error
}

func (e *InsertError) Error() string {
	return "Photos uploaded successfully but database update failed: " + e.Err.Error()
}

func (e *InsertError) Unwrap() error { return e.Err }

// File is one selected photo. Options overrides the batch options when set.
type File struct {
	Name    string
	Data    []byte
	Options *watermark.Options
}

// Batch is one press of "Upload".
type Batch struct {
	Files       []File
	PropertyID  *int64
	ContactText string
	Options     watermark.Options
}

// ItemReport is the outcome of one file.
type ItemReport struct {
	Index  int              `json:"index"`
	Name   string           `json:"name"`
	Status watermark.Status `json:"status"`
	Key    string           `json:"key,omitempty"`
	URL    string           `json:"url,omitempty"`
	Error  string           `json:"error,omitempty"`
}

// Report describes what a batch left behind in storage and in the table.
type Report struct {
	PropertyID  int64         `json:"property_id"`
	Items       []ItemReport  `json:"items"`
	URLs        []string      `json:"urls"`
	Inserted    bool          `json:"inserted"`
	Record      domain.Record `json:"record,omitempty"`
	InsertError string        `json:"insert_error,omitempty"`
	Orphans     []string      `json:"orphans,omitempty"`
}

// Service runs the compose, upload, insert pipeline.
type Service struct {
	Store      ObjectStore
	Listings   *listings.Service
	Compositor *watermark.Compositor
	Logo       image.Image
	Policy     watermark.Policy
	Now        func() time.Time
	Rand       func(n int64) int64
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) rand(n int64) int64 {
	if s.Rand != nil {
		return s.Rand(n)
	}
	return rand.Int64N(n)
}

// ObjectKey is the storage key of one uploaded photo.
func ObjectKey(now time.Time, n int64) string {
	return fmt.Sprintf("uploads/%d-%d.jpg", now.UnixMilli(), n)
}

// UploadBatch watermarks and uploads every file in order, then records the
// public URLs in a single listing row. Objects uploaded before a failure stay
// in storage and are listed in Report.Orphans.
func (s *Service) UploadBatch(ctx context.Context, b Batch) (*Report, error) {
	if s.Store == nil {
		return nil, ErrStorageNotConfigured
	}
	if s.Listings == nil {
		return nil, listings.ErrStoreNotConfigured
	}
	if len(b.Files) == 0 {
		return nil, ErrNoFiles
	}

	report := &Report{Items: make([]ItemReport, len(b.Files)), URLs: []string{}}
	if b.PropertyID != nil {
		report.PropertyID = *b.PropertyID
	} else {
		report.PropertyID = s.now().UnixMilli() + s.rand(1000)
	}

	var stopped *BatchError
	for i, f := range b.Files {
		item := &report.Items[i]
		item.Index, item.Name = i, f.Name
		if stopped != nil {
			item.Status = watermark.StatusSkipped
			continue
		}

		key, url, err := s.uploadOne(ctx, f, b)
		if err != nil {
			log.Error().Err(err).Int("index", i).Str("file", f.Name).Msg("upload: file failed")
			item.Status = watermark.StatusFailed
			item.Error = err.Error()
			if s.Policy != watermark.PolicyContinue {
				stopped = &BatchError{Completed: len(report.URLs), Failed: f.Name, Err: err}
			}
			continue
		}
		log.Info().Int("index", i).Str("file", f.Name).Str("key", key).Msg("upload: file stored")
		item.Status = watermark.StatusOK
		item.Key, item.URL = key, url
		report.URLs = append(report.URLs, url)
	}

	if stopped != nil {
		for _, it := range report.Items {
			if it.Key != "" {
				report.Orphans = append(report.Orphans, it.Key)
			}
		}
		return report, stopped
	}
	if len(report.URLs) == 0 {
		last := report.Items[len(report.Items)-1]
		return report, &BatchError{Completed: 0, Failed: last.Name, Err: errors.New(last.Error)}
	}

	rec := domain.Record{
		domain.PropertyIDField: report.PropertyID,
		"Photos":               strings.Join(report.URLs, ", "),
		"Status":               "Active",
		"Notes":                "Uploaded " + s.now().Format("1/2/2006"),
	}
	created, err := s.Listings.Insert(ctx, rec)
	if err != nil {
		ierr := &InsertError{Err: err}
		report.InsertError = ierr.Error()
		for _, it := range report.Items {
			if it.Key != "" {
				report.Orphans = append(report.Orphans, it.Key)
			}
		}
		log.Error().Err(err).Int64("property_id", report.PropertyID).Msg("upload: listing insert failed")
		return report, ierr
	}
	report.Inserted = true
	report.Record = created
	return report, nil
}

func (s *Service) uploadOne(ctx context.Context, f File, b Batch) (string, string, error) {
	opts := b.Options
	if f.Options != nil {
		opts = *f.Options
	}
	if opts.ContactText == "" {
		opts.ContactText = b.ContactText
	}

	data := f.Data
	if s.Compositor != nil {
		out, _, err := s.Compositor.ComposeBytes(f.Data, s.Logo, opts)
		if err != nil {
			return "", "", err
		}
		data = out
	}

	key := ObjectKey(s.now(), s.rand(1000000))
	if err := s.Store.Upload(ctx, key, bytes.NewReader(data), int64(len(data)), "image/jpeg"); err != nil {
		return "", "", err
	}
	return key, s.Store.PublicURL(key), nil
}

// UploadResult is a direct-upload grant.
type UploadResult struct {
	UploadURL string `json:"uploadUrl"`
	PublicURL string `json:"publicUrl"`
	Path      string `json:"path"`
}

// safeName keeps the last path element of a client file name so the key
// stays directly under the bucket root.
func safeName(fileName string) (string, error) {
	name := path.Base(strings.ReplaceAll(strings.TrimSpace(fileName), `\`, "/"))
	switch name {
	case "", ".", "..", "/":
		return "", ErrInvalidFileName
	}
	return name, nil
}

// GetSignedUploadURL issues a signed URL the browser can PUT a file to.
func (s *Service) GetSignedUploadURL(ctx context.Context, fileName string) (*UploadResult, error) {
	if s.Store == nil {
		return nil, ErrStorageNotConfigured
	}
	signer, ok := s.Store.(Signer)
	if !ok {
		return nil, ErrSigningUnsupported
	}
	name, err := safeName(fileName)
	if err != nil {
		return nil, err
	}
	path := fmt.Sprintf("%d-%s", s.now().UnixMilli(), name)

	signedURL, err := signer.SignedUploadURL(ctx, path)
	if err != nil {
		return nil, err
	}
	return &UploadResult{
		UploadURL: signedURL,
		PublicURL: s.Store.PublicURL(path),
		Path:      path,
	}, nil
}
