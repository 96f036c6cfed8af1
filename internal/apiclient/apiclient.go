// Package apiclient is a thin HTTP client for driving the system under
// test. It turns each request into an action.Result: transport failures
// and unexpected status codes become data the explorer records, not
// errors that abort the run.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/roach88/wander/internal/action"
)

const defaultTimeout = 30 * time.Second

// maxCapturedBody bounds how much of a response body is stored on a
// Result. Larger bodies are truncated, not rejected.
const maxCapturedBody = 64 * 1024

// Client issues HTTP requests against a single base URL.
type Client struct {
	base    *url.URL
	hc      *http.Client
	headers http.Header
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.hc = hc }
}

// WithHeader adds a header sent on every request, e.g. an auth token.
func WithHeader(key, value string) Option {
	return func(c *Client) { c.headers.Set(key, value) }
}

// New builds a Client for baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q", base.Scheme)
	}

	c := &Client{
		base:    base,
		hc:      &http.Client{Timeout: defaultTimeout},
		headers: make(http.Header),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Do issues method path against the base URL. A non-nil body is encoded
// as JSON. Success on the returned Result means the status code matched
// expectStatus, or was below 400 when no expectation is given.
//
// The returned error is reserved for request construction problems.
// Transport failures come back as a failed Result so the explorer can
// treat a crashed SUT as an observation.
func (c *Client) Do(ctx context.Context, method, path string, body any, expectStatus ...int) (*action.Result, error) {
	u, err := c.base.Parse(strings.TrimPrefix(path, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse path %q: %w", path, err)
	}
	desc := method + " " + u.String()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, values := range c.headers {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		return action.Failed(desc, err, time.Since(start)), nil
	}
	defer resp.Body.Close()

	captured, err := io.ReadAll(io.LimitReader(resp.Body, maxCapturedBody))
	if err != nil {
		return action.Failed(desc, fmt.Errorf("read response: %w", err), time.Since(start)), nil
	}

	return &action.Result{
		Request:  desc,
		Response: string(captured),
		Status:   resp.StatusCode,
		Duration: time.Since(start),
		Success:  statusExpected(resp.StatusCode, expectStatus),
	}, nil
}

func statusExpected(status int, expect []int) bool {
	if len(expect) == 0 {
		return status < 400
	}
	for _, want := range expect {
		if status == want {
			return true
		}
	}
	return false
}
