// Package backend is the HTTP client for the evaluation API the tuner
// fronts: chat, feedback, prompt management, workflow schemas and
// diagnostics.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client calls the evaluation backend. All methods honor their context and
// additionally bound each call with the configured timeout.
type Client struct {
	baseURL        string
	http           *http.Client
	bearerToken    string
	chatTimeout    time.Duration
	requestTimeout time.Duration
	log            *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client (tests, custom
// transports).
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// WithLogHandler directs the client's request logging at the given handler.
func WithLogHandler(h slog.Handler) ClientOption {
	return func(c *Client) {
		if h != nil {
			c.log = slog.New(h)
		}
	}
}

// NewClient constructs a backend client from the given config.
func NewClient(cfg Config, opts ...ClientOption) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("backend: base URL is required")
	}
	c := &Client{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		http:           &http.Client{},
		bearerToken:    cfg.BearerToken,
		chatTimeout:    cfg.ChatTimeout,
		requestTimeout: cfg.RequestTimeout,
		log:            slog.New(slog.DiscardHandler),
	}
	if c.chatTimeout <= 0 {
		c.chatTimeout = 30 * time.Second
	}
	if c.requestTimeout <= 0 {
		c.requestTimeout = 10 * time.Second
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// NewClientFromEnv constructs a backend client from environment variables.
func NewClientFromEnv(opts ...ClientOption) (*Client, error) {
	cfg, err := ConfigFromEnv()
	if err != nil {
		return nil, err
	}
	return NewClient(cfg, opts...)
}

// Chat posts a chat request and returns the backend's reply. The
// conversation flow, when set, is also passed as a query parameter to match
// the backend's routing.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	path := "/api/v1/chat"
	if req.ConversationFlow != "" {
		path += "?conversation_flow=" + url.QueryEscape(req.ConversationFlow)
	}
	var resp ChatResponse
	if err := c.call(ctx, http.MethodPost, path, c.chatTimeout, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Feedback records thumbs-style feedback against a message.
func (c *Client) Feedback(ctx context.Context, messageID string, positive bool) (json.RawMessage, error) {
	path := "/api/v1/messages/" + url.PathEscape(messageID) + "/feedback"
	body := map[string]any{"feedback": positive}
	var resp json.RawMessage
	if err := c.call(ctx, http.MethodPut, path, c.requestTimeout, body, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// ListPromptFiles returns the prompt filenames stored under a revision.
func (c *Client) ListPromptFiles(ctx context.Context, revisionID string) ([]string, error) {
	path := "/api/v1/prompts/list/" + url.PathEscape(revisionID)
	var resp PromptFileList
	if err := c.call(ctx, http.MethodGet, path, c.requestTimeout, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Files, nil
}

// ViewPrompt returns the raw content payload of one prompt file.
func (c *Client) ViewPrompt(ctx context.Context, revisionID, filename string) (json.RawMessage, error) {
	path := "/api/v1/prompts/view/" + url.PathEscape(revisionID) + "/" + url.PathEscape(filename)
	var resp json.RawMessage
	if err := c.call(ctx, http.MethodGet, path, c.requestTimeout, nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// UpdatePrompt replaces one prompt file's content, with optional metadata
// recorded alongside it.
func (c *Client) UpdatePrompt(ctx context.Context, revisionID, filename, content string, metadata map[string]any) (json.RawMessage, error) {
	path := "/api/v1/prompts/update/" + url.PathEscape(revisionID) + "/" + url.PathEscape(filename)
	body := map[string]any{"content": content}
	if metadata != nil {
		body["metadata"] = metadata
	}
	var resp json.RawMessage
	if err := c.call(ctx, http.MethodPost, path, c.requestTimeout, body, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// WorkflowSchema fetches the form schema of a workflow revision, feeding
// the structural transcoder. A 404 surfaces as a StatusError the caller can
// treat as "no schema published".
func (c *Client) WorkflowSchema(ctx context.Context, workflow, revisionID string) ([]byte, error) {
	path := "/api/v1/workflows/" + url.PathEscape(workflow) + "/schema"
	if revisionID != "" {
		path += "?revision_id=" + url.QueryEscape(revisionID)
	}
	var resp json.RawMessage
	if err := c.call(ctx, http.MethodGet, path, c.requestTimeout, nil, &resp); err != nil {
		return nil, err
	}
	return []byte(resp), nil
}

// Health returns the backend's health payload verbatim.
func (c *Client) Health(ctx context.Context) (json.RawMessage, error) {
	var resp json.RawMessage
	if err := c.call(ctx, http.MethodGet, "/api/v1/health", c.requestTimeout, nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// Diagnostic returns the backend's diagnostic payload verbatim.
func (c *Client) Diagnostic(ctx context.Context) (json.RawMessage, error) {
	var resp json.RawMessage
	if err := c.call(ctx, http.MethodGet, "/api/v1/diagnostic", c.requestTimeout, nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) call(ctx context.Context, method, path string, timeout time.Duration, body, out any) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("backend: encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("backend: build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.bearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearerToken)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("backend: %s %s: %w", method, path, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	c.log.Debug("backend call",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("elapsed", time.Since(start)))

	data, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("backend: %s %s: read response: %w", method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: data}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("backend: %s %s: decode response: %w", method, path, err)
	}
	return nil
}
