// Package client provides the pooled HTTP client the benchmark workers
// share. It is configured once per run and is safe for concurrent use.
package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Pool and timeout defaults sized for a single-host benchmark target.
const (
	defaultTimeout      = 5 * time.Second
	maxIdleConns        = 1000
	maxIdleConnsPerHost = 100
	idleConnTimeout     = 90 * time.Second
)

// Client wraps a pooled http.Client with the run's base URL and
// optional basic-auth credentials.
type Client struct {
	httpClient *http.Client
	transport  *http.Transport
	baseURL    string
	username   string
	password   string
}

// Option configures a Client.
type Option func(*Client)

// New creates a client for the given base address.
func New(baseURL string, opts ...Option) *Client {
	transport := &http.Transport{
		MaxIdleConns:        maxIdleConns,
		MaxIdleConnsPerHost: maxIdleConnsPerHost,
		IdleConnTimeout:     idleConnTimeout,
	}

	c := &Client{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   defaultTimeout,
		},
		transport: transport,
		baseURL:   strings.TrimRight(baseURL, "/"),
	}

	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithBasicAuth sets credentials applied to every request.
func WithBasicAuth(username, password string) Option {
	return func(c *Client) {
		c.username = username
		c.password = password
	}
}

// WithTimeout overrides the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithInsecureTLS accepts any certificate the target presents. Only
// for benchmarking disposable targets with self-signed certs.
func WithInsecureTLS() Option {
	return func(c *Client) {
		c.transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
}

// Result is the outcome of one request: status, body and the latency
// measured from issuing the request until the body was fully read.
type Result struct {
	StatusCode int
	Body       []byte
	Latency    time.Duration
}

// OK reports whether the response status counts as a successful
// outcome.
func (r *Result) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 400
}

// Get issues a GET against path (relative to the base URL).
func (c *Client) Get(ctx context.Context, path string) (*Result, error) {
	return c.do(ctx, http.MethodGet, path, nil)
}

// PostJSON issues a POST with a JSON-encoded body.
func (c *Client) PostJSON(ctx context.Context, path string, body any) (*Result, error) {
	return c.do(ctx, http.MethodPost, path, body)
}

// PatchJSON issues a PATCH with a JSON-encoded body.
func (c *Client) PatchJSON(ctx context.Context, path string, body any) (*Result, error) {
	return c.do(ctx, http.MethodPatch, path, body)
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*Result, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding %s %s body: %w", method, path, err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.username != "" || c.password != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	// The body read is part of the measured latency: a response is not
	// served until its payload has arrived.
	payload, err := io.ReadAll(resp.Body)
	latency := time.Since(start)
	if err != nil {
		return nil, err
	}

	return &Result{
		StatusCode: resp.StatusCode,
		Body:       payload,
		Latency:    latency,
	}, nil
}

// BaseURL returns the configured base address without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// BasicAuth returns the configured credentials.
func (c *Client) BasicAuth() (username, password string) {
	return c.username, c.password
}

// StreamClient returns an http.Client sharing this client's transport
// but without an overall request timeout, for long-lived streaming
// responses that would otherwise be cut off mid-stream.
func (c *Client) StreamClient() *http.Client {
	return &http.Client{Transport: c.transport}
}

// OpenStream issues a GET whose response body is left open for the
// caller to consume incrementally. There is no overall timeout; the
// caller bounds its own reads and closes the body.
func (c *Client) OpenStream(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	if c.username != "" || c.password != "" {
		req.SetBasicAuth(c.username, c.password)
	}
	return c.StreamClient().Do(req)
}

// TLSInsecure reports whether certificate verification is disabled.
func (c *Client) TLSInsecure() bool {
	return c.transport.TLSClientConfig != nil && c.transport.TLSClientConfig.InsecureSkipVerify
}

// CloseIdleConnections releases pooled connections after a run.
func (c *Client) CloseIdleConnections() {
	c.httpClient.CloseIdleConnections()
}
