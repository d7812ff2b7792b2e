package watermark

import (
	"archive/zip"
	"bytes"
	"fmt"
	"image"
	"io"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// Policy decides what a batch does after an item fails.
type Policy string

const (
	// PolicyAbort stops at the first failure; later items are skipped.
	PolicyAbort Policy = "abort"
	// PolicyContinue processes every item regardless of failures.
	PolicyContinue Policy = "continue"
)

// ParsePolicy accepts "abort" and "continue"; "" is abort.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PolicyAbort, nil
	case PolicyAbort, PolicyContinue:
		return p, nil
	}
	return "", fmt.Errorf("unknown batch policy %q", s)
}

// Status of one batch item.
type Status string

const (
	StatusOK      Status = "ok"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// Item is one file of a batch with its own placement options.
type Item struct {
	Name    string
	Data    []byte
	Options Options
}

// ItemResult is the outcome of one item.
type ItemResult struct {
	Index     int    `json:"index"`
	Name      string `json:"name"`
	Status    Status `json:"status"`
	Error     string `json:"error,omitempty"`
	LogoDrawn bool   `json:"logo_drawn"`
	Output    []byte `json:"-"`
}

// Batch watermarks items one after another.
func (c *Compositor) Batch(items []Item, logo image.Image, policy Policy) []ItemResult {
	results := make([]ItemResult, len(items))
	aborted := false
	for i, it := range items {
		results[i] = ItemResult{Index: i, Name: it.Name}
		if aborted {
			results[i].Status = StatusSkipped
			continue
		}
		out, res, err := c.ComposeBytes(it.Data, logo, it.Options)
		if err != nil {
			log.Error().Err(err).Int("index", i).Str("file", it.Name).Msg("watermark: batch item failed")
			results[i].Status = StatusFailed
			results[i].Error = err.Error()
			if policy != PolicyContinue {
				aborted = true
			}
			continue
		}
		results[i].Status = StatusOK
		results[i].Output = out
		results[i].LogoDrawn = res.LogoDrawn
	}
	return results
}

// ComposeBytes decodes data, composites and re-encodes it.
func (c *Compositor) ComposeBytes(data []byte, logo image.Image, opts Options) ([]byte, *Result, error) {
	src, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, nil, err
	}
	return c.Compose(src, logo, opts)
}

// OutputName is the download name of a watermarked file.
func OutputName(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if base == "." || base == "/" || base == "" {
		base = "image.jpg"
	}
	return "watermarked-" + base
}

// WriteZip packs the successful results. Repeated names get a numeric suffix.
func WriteZip(w io.Writer, results []ItemResult) (int, error) {
	zw := zip.NewWriter(w)
	seen := map[string]int{}
	n := 0
	for _, r := range results {
		if r.Status != StatusOK {
			continue
		}
		name := OutputName(r.Name)
		if k := seen[name]; k > 0 {
			ext := filepath.Ext(name)
			seen[name] = k + 1
			name = fmt.Sprintf("%s-%d%s", strings.TrimSuffix(name, ext), k+1, ext)
		} else {
			seen[name] = 1
		}
		f, err := zw.Create(name)
		if err != nil {
			return n, fmt.Errorf("zip entry %s: %w", name, err)
		}
		if _, err := f.Write(r.Output); err != nil {
			return n, fmt.Errorf("zip entry %s: %w", name, err)
		}
		n++
	}
	if err := zw.Close(); err != nil {
		return n, fmt.Errorf("close zip: %w", err)
	}
	return n, nil
}
