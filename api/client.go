// ABOUTME: Single outgoing request path to the CRM REST API
// ABOUTME: Holds the default Authorization slot and runs response interceptors
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

// Prefix is prepended to every request path.
const Prefix = "/api"

const (
	headerAuthorization = "Authorization"
	headerRequestID     = "X-Request-ID"
	maxBodyBytes        = 10 << 20
)

// ResponseInterceptor sees every failed response before its error is
// returned to the caller. It cannot swallow the error.
type ResponseInterceptor func(ctx context.Context, failure *Error)

// Client issues JSON requests against one API base address.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	tracer  trace.Tracer
	metrics *metrics
	logger  *log.Logger

	mu            sync.RWMutex
	authorization string
	headers       map[string]string
	interceptors  []ResponseInterceptor
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying transport client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout bounds each request round trip.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithRateLimit caps outgoing requests per second. Zero disables it.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithRegisterer registers request metrics with reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(c *Client) { c.metrics = newMetrics(reg) }
}

// WithTracerProvider sets where request spans are sent.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Client) { c.tracer = tp.Tracer("github.com/harperreed/crmdesk/api") }
}

// NewClient creates a client for baseURL, e.g. http://localhost:5001.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
		tracer:  otel.GetTracerProvider().Tracer("github.com/harperreed/crmdesk/api"),
		metrics: newMetrics(nil),
		logger:  log.Default(),
		headers: make(map[string]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the configured base address.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// SetAuthorization fills the default Authorization header slot. Only the
// session store calls this.
func (c *Client) SetAuthorization(value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.authorization = value
}

// ClearAuthorization empties the default Authorization header slot.
func (c *Client) ClearAuthorization() {
	c.SetAuthorization("")
}

// Authorization returns the current default Authorization header value.
func (c *Client) Authorization() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.authorization
}

// SetDefaultHeader adds a static header sent with every request.
func (c *Client) SetDefaultHeader(key, value string) {
	if http.CanonicalHeaderKey(key) == headerAuthorization {
		c.SetAuthorization(value)
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.headers[key] = value
}

// UseResponse appends a response interceptor. Interceptors run in
// registration order for every request.
func (c *Client) UseResponse(fn ResponseInterceptor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.interceptors = append(c.interceptors, fn)
}

// Get decodes the response body into out.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

// Post sends body as JSON and decodes the response into out, if non-nil.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, body, out)
}

// Put sends body as JSON and decodes the response into out, if non-nil.
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPut, path, body, out)
}

// Delete removes the resource at path.
func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodDelete, path, nil, out)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit wait: %w", err)
		}
	}

	ctx, span := c.tracer.Start(ctx, "HTTP "+method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.path", Prefix+path),
		))
	defer span.End()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+Prefix+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	requestID := uuid.NewString()
	req.Header.Set(headerRequestID, requestID)

	c.mu.RLock()
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	authenticated := c.authorization != ""
	if authenticated {
		req.Header.Set(headerAuthorization, c.authorization)
	}
	c.mu.RUnlock()

	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.observe(method, "error", time.Since(start))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.Debug("request failed", "method", method, "path", path, "request_id", requestID, "err", err)
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	elapsed := time.Since(start)
	c.metrics.observe(method, strconv.Itoa(resp.StatusCode), elapsed)
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	c.logger.Debug("request", "method", method, "path", path, "status", resp.StatusCode,
		"elapsed", elapsed, "request_id", requestID)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		failure := &Error{
			Method:        method,
			Path:          path,
			StatusCode:    resp.StatusCode,
			Message:       serverMessage(data),
			Authenticated: authenticated,
		}
		span.SetStatus(codes.Error, failure.Error())
		c.intercept(ctx, failure)
		return failure
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
	}
	return nil
}

func (c *Client) intercept(ctx context.Context, failure *Error) {
	c.mu.RLock()
	interceptors := make([]ResponseInterceptor, len(c.interceptors))
	copy(interceptors, c.interceptors)
	c.mu.RUnlock()

	for _, fn := range interceptors {
		fn(ctx, failure)
	}
}

func serverMessage(data []byte) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return ""
	}
	if body.Message != "" {
		return body.Message
	}
	return body.Error
}
