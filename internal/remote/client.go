package remote

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

	"github.com/roach88/postsync/internal/metrics"
)

// Client is the remote JSON capability consumed by the actions.
//
// Implementations return the raw response document on success and a
// *TransportError on any failure.
type Client interface {
	Get(ctx context.Context, path string) (json.RawMessage, error)
	Post(ctx context.Context, path string, body any) (json.RawMessage, error)
	Put(ctx context.Context, path string, body any) (json.RawMessage, error)
}

// TokenSource supplies the current session token for data requests.
type TokenSource interface {
	Token() (string, bool)
}

// HTTPClient implements Client over net/http.
//
// Resource-relative paths are resolved against the base URL and, when a
// TokenSource holds a token, carry it as the "auth" query parameter.
// Absolute http(s) URLs are requested verbatim without the token.
//
// Thread-safety: HTTPClient is safe for concurrent use.
type HTTPClient struct {
	base    *url.URL
	http    *http.Client
	tokens  TokenSource
	metrics *metrics.Metrics
}

// Option configures an HTTPClient.
type Option func(*HTTPClient)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) {
		c.http = hc
	}
}

// WithTokenSource attaches session tokens to data requests.
func WithTokenSource(ts TokenSource) Option {
	return func(c *HTTPClient) {
		c.tokens = ts
	}
}

// WithMetrics records request latency.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *HTTPClient) {
		c.metrics = m
	}
}

// New creates an HTTPClient for the given origin.
func New(baseURL string, opts ...Option) (*HTTPClient, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url %q: scheme must be http or https", baseURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("base url %q: missing host", baseURL)
	}

	c := &HTTPClient{
		base: u,
		http: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Get fetches the document at path.
func (c *HTTPClient) Get(ctx context.Context, path string) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, path, nil)
}

// Post sends body as JSON to path.
func (c *HTTPClient) Post(ctx context.Context, path string, body any) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPost, path, body)
}

// Put replaces the document at path with body.
func (c *HTTPClient) Put(ctx context.Context, path string, body any) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPut, path, body)
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body any) (json.RawMessage, error) {
	target, err := c.resolve(path)
	if err != nil {
		return nil, &TransportError{Code: ErrCodeTransportFailure, Method: method, URL: path, Err: err}
	}
	fail := func(status int, reason string, err error) *TransportError {
		return &TransportError{
			Code:   ErrCodeTransportFailure,
			Method: method,
			URL:    redact(target),
			Status: status,
			Reason: reason,
			Err:    err,
		}
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fail(0, "", fmt.Errorf("encode body: %w", err))
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), reader)
	if err != nil {
		return nil, fail(0, "", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	c.metrics.ObserveRemote(method, time.Since(start))
	if err != nil {
		return nil, fail(0, "", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fail(resp.StatusCode, "", fmt.Errorf("read body: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fail(resp.StatusCode, errorReason(data), nil)
	}

	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return json.RawMessage("null"), nil
	}
	if !json.Valid(data) {
		return nil, fail(resp.StatusCode, "", fmt.Errorf("response is not valid JSON"))
	}
	return json.RawMessage(data), nil
}

func (c *HTTPClient) resolve(path string) (*url.URL, error) {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return url.Parse(path)
	}

	rel, err := url.Parse(path)
	if err != nil {
		return nil, err
	}

	// Join escaped forms so ids escaped by the caller (a%2Fb) stay one segment.
	escaped := strings.TrimRight(c.base.EscapedPath(), "/") + "/" + strings.TrimLeft(rel.EscapedPath(), "/")
	decoded, err := url.PathUnescape(escaped)
	if err != nil {
		return nil, err
	}
	u := *c.base
	u.Path = decoded
	u.RawPath = escaped

	q := c.base.Query()
	for k, vs := range rel.Query() {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	if c.tokens != nil {
		if tok, ok := c.tokens.Token(); ok {
			q.Set("auth", tok)
		}
	}
	u.RawQuery = q.Encode()
	return &u, nil
}

// redact drops the query string, which may hold API keys or tokens.
func redact(u *url.URL) string {
	cp := *u
	cp.RawQuery = ""
	cp.User = nil
	return cp.String()
}

// errorReason extracts the message of a Firebase error body. Both the
// database shape {"error": "..."} and the identity shape
// {"error": {"code": 400, "message": "..."}} are understood.
func errorReason(data []byte) string {
	var body struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err != nil || len(body.Error) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(body.Error, &s); err == nil {
		return s
	}

	var obj struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body.Error, &obj); err == nil {
		return obj.Message
	}
	return ""
}
