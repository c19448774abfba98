// Package api is the authenticated HTTP client for the groundwater API. It
// attaches the stored bearer credential to each request, resolves paths
// against a configured base origin, and normalises JSON error bodies.
//
// The client never retries, never refreshes credentials, and enforces no
// timeout of its own: each call issues exactly one request and is bounded only
// by the caller's context.
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

	"github.com/couchcryptid/groundwater-client/internal/credential"
	"github.com/couchcryptid/groundwater-client/internal/observability"
)

// DefaultBaseURL is the local development origin of the groundwater API.
const DefaultBaseURL = "http://localhost:8000"

const (
	headerContentType   = "Content-Type"
	headerAuthorization = "Authorization"
	contentTypeJSON     = "application/json"

	// maxErrorBody bounds how much of a failed response is read for the detail.
	maxErrorBody = 1 << 20
)

// ResolveBaseURL returns the configured origin without a trailing slash, or
// DefaultBaseURL when configured is empty.
func ResolveBaseURL(configured string) string {
	base := strings.TrimRight(strings.TrimSpace(configured), "/")
	if base == "" {
		return DefaultBaseURL
	}
	return base
}

// Request carries the optional parts of an outbound call. A zero Request is a
// GET with no body.
type Request struct {
	Method string
	Body   io.Reader
	// Header entries replace the automatic Content-Type and Authorization
	// headers on key collision. A key mapped to an empty slice removes it.
	Header http.Header
}

// Client issues requests against the groundwater API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	store      credential.Store
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewClient creates a client for baseURL that reads its credential from store
// on every call. store may be nil for unauthenticated use; a nil logger
// discards and nil metrics are not recorded.
func NewClient(baseURL string, store credential.Store, logger *slog.Logger, metrics *observability.Metrics) *Client {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Client{
		baseURL: ResolveBaseURL(baseURL),
		// No Timeout: cancellation belongs to the caller's context.
		httpClient: &http.Client{},
		store:      store,
		logger:     logger,
		metrics:    metrics,
	}
}

// BaseURL returns the origin relative paths are resolved against.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// URL resolves path: absolute http(s) URLs are returned unchanged, anything
// else is joined to the base origin with exactly one slash.
func (c *Client) URL(path string) string {
	if isAbsoluteURL(path) {
		return path
	}
	if path == "" {
		return c.baseURL
	}
	return c.baseURL + "/" + strings.TrimLeft(path, "/")
}

func isAbsoluteURL(path string) bool {
	p := strings.ToLower(path)
	return strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://")
}

// Headers returns the default header set: JSON content type plus the bearer
// credential when one is stored. A store that cannot be read is treated as
// holding no credential.
func (c *Client) Headers(ctx context.Context) http.Header {
	h := make(http.Header)
	h.Set(headerContentType, contentTypeJSON)

	if c.store == nil {
		return h
	}
	tok, err := c.store.Load()
	if err != nil {
		observability.WithInvocationID(ctx, c.logger).Debug("credential store unavailable, sending request without token", "error", err)
		return h
	}
	if tok != nil && tok.AccessToken != "" {
		h.Set(headerAuthorization, tok.Type()+" "+tok.AccessToken)
	}
	return h
}

// Do sends one request and returns the raw response. Non-2xx statuses are not
// errors; the caller inspects StatusCode and must close the body. Failures to
// send or receive are returned as *TransportError.
func (c *Client) Do(ctx context.Context, path string, r Request) (*http.Response, error) {
	method := r.Method
	if method == "" {
		method = http.MethodGet
	}
	target := c.URL(path)
	logger := observability.WithInvocationID(ctx, c.logger)

	req, err := http.NewRequestWithContext(ctx, method, target, r.Body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header = c.Headers(ctx)
	mergeHeaders(req.Header, r.Header)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		c.observe(method, "transport_error", elapsed)
		logger.Debug("api request failed", "method", method, "url", target, "error", err)
		return nil, &TransportError{Method: method, URL: target, Err: err}
	}

	outcome := "success"
	if !IsSuccess(resp.StatusCode) {
		outcome = "http_error"
	}
	c.observe(method, outcome, elapsed)
	logger.Debug("api request", "method", method, "url", target, "status", resp.StatusCode, "duration", elapsed)
	return resp, nil
}

// GetJSON issues a GET and decodes a 2xx JSON body into out. A non-2xx
// response is returned as *APIError. out may be nil to discard the body.
func (c *Client) GetJSON(ctx context.Context, path string, out any) error {
	resp, err := c.Do(ctx, path, Request{Method: http.MethodGet})
	if err != nil {
		return err
	}
	return decodeJSON(resp, out)
}

// PostJSON marshals body as the JSON payload of a POST and decodes the result
// like GetJSON.
func (c *Client) PostJSON(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request body: %w", err)
	}
	resp, err := c.Do(ctx, path, Request{Method: http.MethodPost, Body: bytes.NewReader(payload)})
	if err != nil {
		return err
	}
	return decodeJSON(resp, out)
}

// IsSuccess reports whether code is a 2xx status.
func IsSuccess(code int) bool {
	return code >= 200 && code < 300
}

// ReadError drains a failed response body and returns the normalised error.
func ReadError(resp *http.Response) *APIError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return NewAPIError(resp.StatusCode, resp.Status, body)
}

func decodeJSON(resp *http.Response, out any) error {
	defer resp.Body.Close()

	if !IsSuccess(resp.StatusCode) {
		return ReadError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func mergeHeaders(dst, overrides http.Header) {
	for k, vs := range overrides {
		key := http.CanonicalHeaderKey(k)
		dst.Del(key)
		for _, v := range vs {
			dst.Add(key, v)
		}
	}
}

func (c *Client) observe(method, outcome string, elapsed time.Duration) {
	if c.metrics == nil {
		return
	}
	c.metrics.ClientRequests.WithLabelValues(method, outcome).Inc()
	c.metrics.ClientRequestDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}
