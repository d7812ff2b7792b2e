package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
)

// UploadOptions mirror the storage API upload flags.
type UploadOptions struct {
	ContentType  string
	CacheControl string // seconds, e.g. "3600"
	Upsert       bool
}

// Upload stores r at bucket/path.
func (c *Client) Upload(ctx context.Context, bucket, path string, r io.Reader, opts UploadOptions) error {
	headers := map[string]string{
		"x-upsert": strconv.FormatBool(opts.Upsert),
	}
	if opts.ContentType != "" {
		headers["Content-Type"] = opts.ContentType
	}
	if opts.CacheControl != "" {
		headers["cache-control"] = "max-age=" + opts.CacheControl
	}
	_, err := c.do(ctx, request{
		method:  http.MethodPost,
		path:    objectPath(bucket, path),
		body:    r,
		headers: headers,
	})
	return err
}

// PublicURL is the public address of an object in a public bucket.
func (c *Client) PublicURL(bucket, path string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", c.BaseURL, bucket, path)
}

type signedUploadResponse struct {
	SignedURL      string `json:"signedUrl"`
	SignedURLSnake string `json:"signed_url"`
	URL            string `json:"url"`
}

// CreateSignedUploadURL returns a one-hour URL a browser can PUT the object to.
func (c *Client) CreateSignedUploadURL(ctx context.Context, bucket, path string) (string, error) {
	payload, _ := json.Marshal(map[string]interface{}{
		"expiresIn": 3600,
		"upsert":    false,
	})
	body, err := c.do(ctx, request{
		method:  http.MethodPost,
		path:    "/storage/v1/object/upload/sign/" + bucket + "/" + path,
		body:    bytes.NewReader(payload),
		headers: map[string]string{"Content-Type": "application/json"},
	})
	if err != nil {
		return "", err
	}
	var data signedUploadResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return "", fmt.Errorf("supabase response decode: %w", err)
	}
	switch {
	case data.SignedURL != "":
		return data.SignedURL, nil
	case data.SignedURLSnake != "":
		return data.SignedURLSnake, nil
	case data.URL != "":
		u := data.URL
		if !strings.HasPrefix(u, "/") {
			u = "/" + u
		}
		// Relative URLs may or may not carry the /storage/v1 prefix.
		if !strings.HasPrefix(u, "/storage/v1") {
			u = "/storage/v1" + u
		}
		return c.BaseURL + u, nil
	}
	return "", fmt.Errorf("supabase returned no signed URL, body: %s", string(body))
}

func objectPath(bucket, path string) string {
	return "/storage/v1/object/" + bucket + "/" + strings.TrimLeft(path, "/")
}

// Bucket binds the client to one storage bucket.
type Bucket struct {
	Client       *Client
	Name         string
	CacheControl string
}

// Upload never overwrites an existing object.
func (b *Bucket) Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	return b.Client.Upload(ctx, b.Name, key, r, UploadOptions{
		ContentType:  contentType,
		CacheControl: b.CacheControl,
		Upsert:       false,
	})
}

func (b *Bucket) PublicURL(key string) string {
	return b.Client.PublicURL(b.Name, key)
}

// SignedUploadURL issues a direct-upload URL for key.
func (b *Bucket) SignedUploadURL(ctx context.Context, key string) (string, error) {
	return b.Client.CreateSignedUploadURL(ctx, b.Name, key)
}
