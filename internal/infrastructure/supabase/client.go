package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrNotConfigured is returned when the URL or key is missing.
var ErrNotConfigured = errors.New("supabase: SUPABASE_URL and SUPABASE_KEY must be set")

// Client talks to a Supabase project over its REST and storage APIs.
// It is constructed once at startup and shared by the stores that need it.
type Client struct {
	BaseURL string
	Key     string
	HTTP    *http.Client
}

// New returns a client for the project at baseURL.
func New(baseURL, key string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Key:     key,
		HTTP:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Configured reports whether the client can issue requests.
func (c *Client) Configured() bool {
	return c != nil && c.BaseURL != "" && c.Key != ""
}

// Error is a failed Supabase call. Error() is the remote message verbatim.
type Error struct {
	Status  int    `json:"-"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
	Hint    string `json:"hint,omitempty"`
}

func (e *Error) Error() string {
	return e.Message
}

type request struct {
	method  string
	path    string
	query   url.Values
	body    io.Reader
	headers map[string]string
}

func (c *Client) do(ctx context.Context, r request) ([]byte, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	if c.HTTP == nil {
		c.HTTP = &http.Client{Timeout: 30 * time.Second}
	}
	u := c.BaseURL + r.path
	if len(r.query) > 0 {
		u += "?" + r.query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, r.method, u, r.body)
	if err != nil {
		return nil, err
	}
	// Same auth pair supabase-js sends: apikey plus bearer of the same key.
	req.Header.Set("apikey", c.Key)
	req.Header.Set("Authorization", "Bearer "+c.Key)
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("supabase request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("supabase read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, parseError(resp.StatusCode, body)
	}
	return body, nil
}

// parseError understands both the PostgREST shape {message,code,details,hint}
// and the storage shape {statusCode,error,message}.
func parseError(status int, body []byte) *Error {
	var raw struct {
		Message string      `json:"message"`
		Msg     string      `json:"msg"`
		Error   string      `json:"error"`
		Code    interface{} `json:"code"`
		Details interface{} `json:"details"`
		Hint    interface{} `json:"hint"`
	}
	e := &Error{Status: status}
	if err := json.Unmarshal(body, &raw); err == nil {
		e.Message = firstNonEmpty(raw.Message, raw.Msg, raw.Error)
		e.Code = stringify(raw.Code)
		e.Details = stringify(raw.Details)
		e.Hint = stringify(raw.Hint)
	}
	if e.Message == "" {
		text := strings.TrimSpace(string(body))
		if text == "" {
			text = http.StatusText(status)
		}
		e.Message = fmt.Sprintf("supabase error: status %d: %s", status, text)
	}
	return e
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		b, _ := json.Marshal(t)
		return string(b)
	}
}
