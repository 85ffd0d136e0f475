package docstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultTimeout = 10 * time.Second

// HTTPClient talks to a document store over HTTP:
//
//	POST {addr}/documents        {"id": ..., "data": ...}
//	GET  {addr}/documents/{id}   -> {"id": ..., "data": ...}
type HTTPClient struct {
	addr string
	hc   *http.Client
}

// HTTPOption configures an HTTPClient.
type HTTPOption func(*HTTPClient)

// WithHTTPClient overrides the underlying http.Client (timeouts, transport).
func WithHTTPClient(hc *http.Client) HTTPOption {
	return func(c *HTTPClient) {
		if hc != nil {
			c.hc = hc
		}
	}
}

// WithTimeout sets the per-call timeout on the default http.Client.
func WithTimeout(d time.Duration) HTTPOption {
	return func(c *HTTPClient) {
		if d > 0 {
			c.hc.Timeout = d
		}
	}
}

// NewHTTPClient constructs a document store client for the given base address.
func NewHTTPClient(addr string, opts ...HTTPOption) (*HTTPClient, error) {
	addr = strings.TrimRight(strings.TrimSpace(addr), "/")
	if addr == "" {
		return nil, errors.New("docstore: empty address")
	}
	if _, err := url.Parse(addr); err != nil {
		return nil, fmt.Errorf("docstore: invalid address: %w", err)
	}

	c := &HTTPClient{
		addr: addr,
		hc:   &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

type document struct {
	ID   string `json:"id"`
	Data string `json:"data"`
}

// Put uploads a payload under the given content ID.
func (c *HTTPClient) Put(ctx context.Context, id, data string) error {
	body, err := json.Marshal(document{ID: id, Data: data})
	if err != nil {
		return fmt.Errorf("docstore put: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.addr+"/documents", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("docstore put: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("docstore put: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Op: "put", StatusCode: resp.StatusCode}
	}
	return nil
}

// Get fetches the payload stored under the given content ID.
func (c *HTTPClient) Get(ctx context.Context, id string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.addr+"/documents/"+url.PathEscape(id), nil)
	if err != nil {
		return "", fmt.Errorf("docstore get: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return "", fmt.Errorf("docstore get: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &StatusError{Op: "get", StatusCode: resp.StatusCode}
	}

	var doc document
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return "", fmt.Errorf("docstore get: decode: %w", err)
	}
	return doc.Data, nil
}
