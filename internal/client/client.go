// Package client talks to a lingocast audio service over HTTP.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dgnsrekt/lingocast/internal/history"
	"github.com/dgnsrekt/lingocast/internal/job"
	"github.com/dgnsrekt/lingocast/internal/service"
	"github.com/dgnsrekt/lingocast/internal/storage"
)

// DefaultBaseURL is used when no API base is configured.
const DefaultBaseURL = "http://localhost:8000"

const apiPrefix = "/api/v1/audio"

// APIError is a non-2xx answer or an unsuccessful job response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (HTTP %d)", e.Message, e.StatusCode)
}

// Client is an audio service client. It is safe for concurrent use.
type Client struct {
	base *url.URL
	http *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithTimeout bounds every request. Generation can take minutes for long
// phrase lists, so the default is no timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		h := *c.http
		h.Timeout = d
		c.http = &h
	}
}

// New returns a client for the service at base. An empty base means
// DefaultBaseURL.
func New(base string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(base) == "" {
		base = DefaultBaseURL
	}
	u, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid API base %q: %w", base, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid API base %q: scheme must be http or https", base)
	}

	c := &Client{base: u, http: &http.Client{}}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// BaseURL returns the service address.
func (c *Client) BaseURL() string { return c.base.String() }

// endpoint joins the API prefix and escaped path segments.
func (c *Client) endpoint(segments ...string) string {
	var b strings.Builder
	b.WriteString(c.base.String())
	b.WriteString(apiPrefix)
	for _, s := range segments {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(s))
	}
	return b.String()
}

// DownloadURL is the address of a generated file.
func (c *Client) DownloadURL(name string) string {
	return c.endpoint("download", name)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apiError(resp.StatusCode, body)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// apiError extracts the most useful message from an error body.
func apiError(status int, body []byte) *APIError {
	var parsed struct {
		Error   string `json:"error"`
		Detail  any    `json:"detail"`
		Message string `json:"message"`
	}
	msg := ""
	if json.Unmarshal(body, &parsed) == nil {
		switch d := parsed.Detail.(type) {
		case string:
			msg = d
		case nil:
		default:
			if b, err := json.Marshal(d); err == nil {
				msg = string(b)
			}
		}
		if parsed.Error != "" {
			msg = parsed.Error
		}
		if msg == "" {
			msg = parsed.Message
		}
	}
	if msg == "" {
		msg = strings.TrimSpace(string(body))
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &APIError{StatusCode: status, Message: msg}
}

func (c *Client) get(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	return c.do(req, out)
}

// ListFiles returns the generated files.
func (c *Client) ListFiles(ctx context.Context) ([]storage.FileInfo, error) {
	var out struct {
		Files []storage.FileInfo `json:"files"`
	}
	if err := c.get(ctx, c.endpoint("files"), &out); err != nil {
		return nil, err
	}
	return out.Files, nil
}

// Delete removes a generated file.
func (c *Client) Delete(ctx context.Context, name string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.endpoint("files", name), nil)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

// Download streams a generated file into w and returns the bytes written.
func (c *Client) Download(ctx context.Context, name string, w io.Writer) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.DownloadURL(name), nil)
	if err != nil {
		return 0, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return 0, apiError(resp.StatusCode, body)
	}
	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("download interrupted: %w", err)
	}
	return n, nil
}

// Health returns the audio health report.
func (c *Client) Health(ctx context.Context) (service.Health, error) {
	var h service.Health
	err := c.get(ctx, c.endpoint("health"), &h)
	return h, err
}

// Languages returns the code to name map served by the backend.
func (c *Client) Languages(ctx context.Context) (map[string]string, error) {
	var out struct {
		Languages map[string]string `json:"languages"`
	}
	if err := c.get(ctx, c.endpoint("supported-languages"), &out); err != nil {
		return nil, err
	}
	return out.Languages, nil
}

// Jobs returns recent job history.
func (c *Client) Jobs(ctx context.Context, limit int) ([]history.Job, error) {
	u := c.endpoint("jobs")
	if limit > 0 {
		u += "?limit=" + strconv.Itoa(limit)
	}
	var out struct {
		Jobs []history.Job `json:"jobs"`
	}
	if err := c.get(ctx, u, &out); err != nil {
		return nil, err
	}
	return out.Jobs, nil
}

// TextToAudio asks the service to speak a single text and returns the
// generated file name.
func (c *Client) TextToAudio(ctx context.Context, tr job.TextRequest) (string, error) {
	body, err := json.Marshal(tr)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("text-to-audio"), strings.NewReader(string(body)))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	var out job.TextResponse
	if err := c.do(req, &out); err != nil {
		return "", err
	}
	if !out.Success {
		return "", unsuccessful(out.Error, out.Message)
	}
	return out.AudioFile, nil
}

func unsuccessful(errMsg, msg string) error {
	if errMsg == "" {
		errMsg = msg
	}
	if errMsg == "" {
		errMsg = "request was not successful"
	}
	return &APIError{Message: errMsg}
}

// IsNotFound reports whether err is a 404 from the service.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}
