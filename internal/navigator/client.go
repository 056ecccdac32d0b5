// Package navigator provides the HTTP client for the downstream computer
// actuation and screen-reading (OCR) services that back the voice navigator
// agent tools.
//
// Two endpoints are consumed:
//
//   - POST /api/operate {"prompt": command} → {"operations": [{operation, summary}]}
//     executes a system command (open an application, scroll a page).
//   - POST /api/read {"prompt": kind} → {"descriptions": [text, ...]}
//     captures the current screen and describes or transcribes it.
//
// Non-2xx responses and malformed JSON are returned as plain errors; the
// tool handlers that wrap this client convert them into user-facing error
// strings so a backend failure never aborts the conversation.
package navigator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	defaultTimeout  = 30 * time.Second
	operateEndpoint = "/api/operate"
	readEndpoint    = "/api/read"
)

// Operation is one step reported by the actuation service.
type Operation struct {
	// Operation is the step's status label; "done" means success.
	Operation string `json:"operation"`

	// Summary is a human-readable description of what was executed.
	Summary string `json:"summary"`
}

// Client talks to the navigator backend. Safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option is a functional option for configuring a [Client].
type Option func(*Client)

// WithTimeout sets the per-request timeout. The default is 30 seconds.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithHTTPClient replaces the underlying HTTP client. Primarily used in
// tests to point at a local mock server with custom transports.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a Client for the backend at baseURL (e.g. "http://127.0.0.1:8000").
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Operate submits a system command for execution and returns the reported
// operations. An empty slice with a nil error means the service accepted the
// command but reported nothing.
func (c *Client) Operate(ctx context.Context, command string) ([]Operation, error) {
	var out struct {
		Operations []Operation `json:"operations"`
	}
	if err := c.post(ctx, operateEndpoint, command, &out); err != nil {
		return nil, err
	}
	return out.Operations, nil
}

// Describe captures and describes the current screen. prompt selects the
// reading mode the service should apply ("article", "video", "general", or a
// free-form instruction). The returned descriptions are joined in order.
func (c *Client) Describe(ctx context.Context, prompt string) (string, error) {
	var out struct {
		Descriptions []string `json:"descriptions"`
	}
	if err := c.post(ctx, readEndpoint, prompt, &out); err != nil {
		return "", err
	}
	return strings.Join(out.Descriptions, " "), nil
}

// post issues one JSON request/response round trip against path.
func (c *Client) post(ctx context.Context, path, prompt string, out any) error {
	body, err := json.Marshal(map[string]string{"prompt": prompt})
	if err != nil {
		return fmt.Errorf("navigator: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("navigator: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("navigator: %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("navigator: %s: unexpected status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("navigator: %s: decode response: %w", path, err)
	}
	return nil
}
