// Package httpapi talks to the finance REST API over HTTP.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"pfm/internal/core"
	"pfm/internal/gateway"
)

const (
	DefaultBaseURL = "http://localhost:8084/api"
	userAgent      = "pfm/1.0"

	// maxBody bounds how much of a response is read.
	maxBody = 10 << 20
)

var _ gateway.API = (*Client)(nil)

type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithToken sends "Authorization: Bearer <token>" on every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = strings.TrimSpace(token) }
}

// WithTimeout sets the per-request timeout. Zero means no timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithHTTPClient replaces the underlying client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// New returns a client for baseURL, falling back to DefaultBaseURL when empty.
func New(baseURL string, opts ...Option) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{baseURL: baseURL, http: &http.Client{}}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root the client targets.
func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	var items []core.Transaction
	if err := c.getJSON(ctx, "/transactions", &items); err != nil {
		return nil, err
	}
	if items == nil {
		items = []core.Transaction{}
	}
	return items, nil
}

func (c *Client) ListCategories(ctx context.Context) ([]core.Category, error) {
	var items []core.Category
	if err := c.getJSON(ctx, "/categories", &items); err != nil {
		return nil, err
	}
	if items == nil {
		items = []core.Category{}
	}
	return items, nil
}

// ReadSummary returns nil, nil when the server answers with a JSON null.
func (c *Client) ReadSummary(ctx context.Context) (*core.Summary, error) {
	var s *core.Summary
	if err := c.getJSON(ctx, "/summary", &s); err != nil {
		return nil, err
	}
	return s, nil
}

func (c *Client) CreateTransaction(ctx context.Context, tx core.NewTransaction) error {
	body, err := json.Marshal(tx)
	if err != nil {
		return fmt.Errorf("encode transaction: %w", err)
	}
	resp, err := c.do(ctx, http.MethodPost, "/transactions", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer drain(resp)
	return checkStatus(resp)
}

// DeleteTransaction deletes by normalized id. The id is path-escaped, so
// ids such as "transactions:abc" or canonical JSON text stay one segment.
func (c *Client) DeleteTransaction(ctx context.Context, id string) error {
	resp, err := c.do(ctx, http.MethodDelete, "/transactions/"+url.PathEscape(id), nil)
	if err != nil {
		return err
	}
	defer drain(resp)
	return checkStatus(resp)
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer drain(resp)
	if err := checkStatus(resp); err != nil {
		return err
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return fmt.Errorf("%w: read %s: %v", gateway.ErrNetwork, path, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: decode %s: %v", gateway.ErrMalformed, path, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", gateway.ErrNetwork, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%w: %s %s: %w", gateway.ErrNetwork, method, path, ctxErr)
		}
		return nil, fmt.Errorf("%w: %s %s: %v", gateway.ErrNetwork, method, path, err)
	}
	return resp, nil
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return &gateway.StatusError{Code: resp.StatusCode}
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBody))
	_ = resp.Body.Close()
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *gateway.StatusError
	return errors.As(err, &se) && se.Code == code
}
