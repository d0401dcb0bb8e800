// Package api is the data client of the forum front-end. It talks JSON to the
// forum API server.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// Error is returned for non-2xx responses and for bodies carrying an
// "error" field.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: status %d", e.Status)
	}
	return fmt.Sprintf("api: %s (status %d)", e.Message, e.Status)
}

// TokenSource provides the access token sent with every request. An empty
// token sends no Authorization header.
type TokenSource interface {
	Token() string
}

type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Tokens     TokenSource
	Logger     *slog.Logger
}

func NewClient(baseURL string, options ...func(*Client) *Client) *Client {
	c := &Client{
		BaseURL:    strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
		Logger:     slog.Default(),
	}
	for _, option := range options {
		c = option(c)
	}
	return c
}

func WithTokens(t TokenSource) func(*Client) *Client {
	return func(c *Client) *Client {
		c.Tokens = t
		return c
	}
}

func WithHTTPClient(h *http.Client) func(*Client) *Client {
	return func(c *Client) *Client {
		c.HTTPClient = h
		return c
	}
}

func WithLogger(l *slog.Logger) func(*Client) *Client {
	return func(c *Client) *Client {
		c.Logger = l
		return c
	}
}

// Get fetches path and decodes the JSON response into out, unless out is
// nil.
func (c *Client) Get(ctx context.Context, path string, out interface{}) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

// Post sends body encoded as JSON and decodes the response into out.
func (c *Client) Post(ctx context.Context, path string, body, out interface{}) error {
	return c.do(ctx, http.MethodPost, path, body, out)
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Tokens != nil {
		if tok := c.Tokens.Token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s %s: reading body: %w", method, path, err)
	}
	c.Logger.Debug("api call", "method", method, "path", path, "status", resp.StatusCode)

	if msg := errorField(data); msg != "" {
		return &Error{Status: resp.StatusCode, Message: msg}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{Status: resp.StatusCode, Message: strings.TrimSpace(http.StatusText(resp.StatusCode))}
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s %s: decoding response: %w", method, path, err)
	}
	return nil
}

func errorField(data []byte) string {
	if !gjson.ValidBytes(data) {
		return ""
	}
	r := gjson.GetBytes(data, "error")
	if !r.Exists() || r.Type == gjson.Null {
		return ""
	}
	return r.String()
}
