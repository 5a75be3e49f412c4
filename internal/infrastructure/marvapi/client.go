// Package marvapi is the REST client for the Marv warranty backend.
package marvapi

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

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/marv/gateway/internal/domain/shared"
)

const tracerName = "github.com/marv/gateway/internal/infrastructure/marvapi"

const (
	defaultTimeout          = 15 * time.Second
	defaultMaxResponseBytes = 10 << 20
	defaultErrorMessage     = "upstream request failed"
)

// TokenSource supplies and stores the bearer token for upstream calls
type TokenSource interface {
	Token(ctx context.Context) (string, error)
	SetToken(ctx context.Context, token string) error
	ClearToken(ctx context.Context) error
}

// RequestObserver is notified after every upstream round trip. status is 0
// when the request never got a response.
type RequestObserver func(method, endpoint string, status int, elapsed time.Duration)

// Config holds client settings
type Config struct {
	BaseURL          string
	Timeout          time.Duration
	MaxResponseBytes int64
	UserAgent        string
}

// Client talks to the warranty backend
type Client struct {
	baseURL          string
	httpClient       *http.Client
	tokens           TokenSource
	observer         RequestObserver
	maxResponseBytes int64
	userAgent        string
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTokenSource sets where bearer tokens come from
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) {
		c.tokens = ts
	}
}

// WithObserver registers a RequestObserver
func WithObserver(o RequestObserver) Option {
	return func(c *Client) {
		c.observer = o
	}
}

// New creates a client for cfg.BaseURL
func New(cfg Config, opts ...Option) (*Client, error) {
	base := strings.TrimRight(cfg.BaseURL, "/")
	u, err := url.Parse(base)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("marvapi: invalid base URL %q", cfg.BaseURL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	maxBytes := cfg.MaxResponseBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxResponseBytes
	}

	c := &Client{
		baseURL:          base,
		httpClient:       &http.Client{Timeout: timeout},
		tokens:           NewStaticToken(""),
		maxResponseBytes: maxBytes,
		userAgent:        cfg.UserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the backend root every endpoint is appended to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// APIError is a non-2xx answer from the backend
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("marvapi: HTTP %d: %s", e.StatusCode, e.Message)
}

// Unwrap maps the status onto the shared domain errors so callers can use errors.Is
func (e *APIError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusUnauthorized:
		return shared.ErrUnauthorized
	case e.StatusCode == http.StatusForbidden:
		return shared.ErrForbidden
	case e.StatusCode == http.StatusNotFound:
		return shared.ErrNotFound
	case e.StatusCode == http.StatusConflict:
		return shared.ErrAlreadyExists
	case e.StatusCode == http.StatusBadRequest, e.StatusCode == http.StatusUnprocessableEntity:
		return shared.ErrInvalidInput
	case e.StatusCode >= http.StatusInternalServerError:
		return shared.ErrUpstream
	}
	return nil
}

// IsNotFound reports whether err is an upstream 404
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// errorBody is the subset of the backend's error payload we read
type errorBody struct {
	Detail  json.RawMessage `json:"detail"`
	Message string          `json:"message"`
}

// errorText extracts detail, then message, from an error payload
func errorText(data []byte, fallback string) string {
	var b errorBody
	if err := json.Unmarshal(data, &b); err != nil {
		return fallback
	}
	if len(b.Detail) > 0 {
		var s string
		if err := json.Unmarshal(b.Detail, &s); err == nil {
			if s != "" {
				return s
			}
		} else if string(b.Detail) != "null" {
			// validation errors arrive as a list of objects
			return string(b.Detail)
		}
	}
	if b.Message != "" {
		return b.Message
	}
	return fallback
}

// do performs one request. body is JSON-encoded when non-nil; out receives the
// decoded answer unless the status is 204 or out is nil.
func (c *Client) do(ctx context.Context, method, endpoint string, query url.Values, body, out any) error {
	target := c.baseURL + endpoint
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marvapi: failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	label := endpointLabel(endpoint)
	ctx, span := otel.Tracer(tracerName).Start(ctx, method+" "+label,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("marv.endpoint", label),
		),
	)
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("marvapi: failed to create request: %w", err)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))
	req.Header.Set("Accept", "application/json")
	// Content type only when there is a body, to spare browsers a preflight.
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("marvapi: failed to read session token: %w", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	status := 0
	defer func() {
		if c.observer != nil {
			c.observer(method, label, status, time.Since(start))
		}
	}()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport error")
		return fmt.Errorf("%w: %v", shared.ErrUpstream, err)
	}
	defer resp.Body.Close()
	status = resp.StatusCode
	span.SetAttributes(attribute.Int("http.response.status_code", status))
	if status >= http.StatusInternalServerError {
		span.SetStatus(codes.Error, http.StatusText(status))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%w: failed to read response: %v", shared.ErrUpstream, err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		_ = c.tokens.ClearToken(ctx)
		return &APIError{StatusCode: resp.StatusCode, Message: errorText(data, "session expired")}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Message: errorText(data, defaultErrorMessage)}
	}

	if resp.StatusCode == http.StatusNoContent || out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: failed to parse response: %v", shared.ErrUpstream, err)
	}
	return nil
}

// endpointLabel collapses IDs and serials so metrics keep a bounded label set
func endpointLabel(endpoint string) string {
	parts := strings.Split(strings.TrimPrefix(endpoint, "/"), "/")
	if len(parts) == 0 {
		return endpoint
	}
	switch {
	case len(parts) >= 3 && (parts[1] == "serial" || parts[1] == "check"):
		parts = append(parts[:2], ":serial")
	case len(parts) == 2 && parts[1] != "bulk" && parts[0] != "accounts":
		parts[1] = ":id"
	}
	return "/" + strings.Join(parts, "/")
}

func idPath(collection string, id int64) string {
	return fmt.Sprintf("/%s/%d", collection, id)
}
