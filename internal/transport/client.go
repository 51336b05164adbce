package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"talentloop/internal/breaker"
	"talentloop/internal/config"
	appErrors "talentloop/internal/errors"
	"talentloop/internal/observability"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"
)

const (
	defaultTimeout  = 10 * time.Second
	maxErrorSnippet = 256
)

// StatusError is the cause carried by HTTP_STATUS and UNAUTHORIZED errors
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.Status)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.Status, e.Body)
}

type response struct {
	status int
	body   []byte
}

// Client talks to the platform REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *breaker.Breaker[*response]
	limiter    *rate.Limiter
	retry      RetryPolicy
	logger     *appErrors.Logger
	metrics    *observability.Metrics
	userAgent  string

	mu    sync.RWMutex
	token string
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the per-request timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithToken sets the bearer token sent with every request
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// NewBreaker builds the platform circuit breaker. Only server faults count as
// failures; 4xx answers are the caller's problem. It returns nil when disabled.
func NewBreaker(name string, cfg config.CircuitBreakerConfig, logger *appErrors.Logger) *breaker.Breaker[*response] {
	return breaker.New[*response]("API-"+name, cfg, logger, breaker.WithSuccessCheck(func(err error) bool {
		return err == nil || !isServerFault(err)
	}))
}

// WithBreaker installs a circuit breaker
func WithBreaker(b *breaker.Breaker[*response]) Option {
	return func(c *Client) { c.breaker = b }
}

// WithLimiter paces outgoing requests
func WithLimiter(l *rate.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// WithRetry sets the retry policy for idempotent reads
func WithRetry(p RetryPolicy) Option {
	return func(c *Client) { c.retry = p }
}

// WithLogger sets the logger
func WithLogger(l *appErrors.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics records request metrics
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithUserAgent sets the User-Agent header
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// New creates a client for baseURL
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     appErrors.NewNopLogger(),
		userAgent:  "talentloop",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewFromConfig builds a client with breaker, limiter, retry and
// instrumentation taken from cfg. om may be nil.
func NewFromConfig(cfg config.APIConfig, logger *appErrors.Logger, om *observability.ObservabilityManager) *Client {
	opts := []Option{
		WithHTTPClient(&http.Client{
			Timeout:   cfg.Timeout,
			Transport: om.HTTPTransport(nil),
		}),
		WithToken(cfg.AuthToken),
		WithBreaker(NewBreaker("platform", cfg.CircuitBreaker, logger)),
		WithRetry(RetryPolicyFromConfig(cfg.Retry)),
		WithLogger(logger),
		WithMetrics(om.GetMetrics()),
	}
	if cfg.UserAgent != "" {
		opts = append(opts, WithUserAgent(cfg.UserAgent))
	}
	if cfg.RateLimit.Enabled && cfg.RateLimit.RequestsPerSecond > 0 {
		opts = append(opts, WithLimiter(rate.NewLimiter(rate.Limit(cfg.RateLimit.RequestsPerSecond), max(cfg.RateLimit.Burst, 1))))
	}
	return New(cfg.BaseURL, opts...)
}

// BaseURL returns the API base URL without a trailing slash
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Token returns the bearer token currently held
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// SetToken replaces the bearer token
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// ClearToken drops the bearer token
func (c *Client) ClearToken() {
	c.SetToken("")
}

// BreakerStats exposes the breaker state for diagnostics
func (c *Client) BreakerStats() map[string]any {
	return c.breaker.Stats()
}

// call describes one API request
type call struct {
	operation string
	method    string
	path      string
	body      any
	envelope  bool // response is wrapped in {"data": ...}
	retry     bool // safe to repeat
}

// do executes a call and decodes the response into out, which may be nil
func (c *Client) do(ctx context.Context, req call, out any) error {
	tracer := otel.Tracer("talentloop.transport")
	ctx, span := tracer.Start(ctx, "api."+req.operation)
	defer span.End()

	span.SetAttributes(
		attribute.String("http.method", req.method),
		attribute.String("api.path", req.path),
	)

	var payload []byte
	if req.body != nil {
		var err error
		payload, err = json.Marshal(req.body)
		if err != nil {
			return appErrors.NewValidationError(appErrors.ErrCodeEncodeRequest,
				"Failed to encode request for "+req.operation, err)
		}
	}

	attempts := 1
	if req.retry {
		attempts += max(c.retry.MaxRetries, 0)
	}

	start := time.Now()
	var resp *response
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			c.logger.Warn("Retrying API request",
				"operation", req.operation,
				"attempt", attempt,
				"max_retries", attempts-1,
				"error", lastErr.Error())

			if err := c.retry.wait(ctx, attempt); err != nil {
				lastErr = err
				break
			}
		}

		resp, lastErr = c.attempt(ctx, req, payload)
		if lastErr == nil || !isRetryableError(lastErr) {
			break
		}
	}

	status := 0
	if resp != nil {
		status = resp.status
	} else {
		var statusErr *StatusError
		if errors.As(lastErr, &statusErr) {
			status = statusErr.Status
		}
	}
	c.metrics.RecordRequest(ctx, req.operation, status, time.Since(start), lastErr)
	span.SetAttributes(attribute.Int("http.status_code", status))

	if lastErr != nil {
		span.RecordError(lastErr)
		span.SetAttributes(attribute.Bool("success", false))
		return c.wrapError(req, lastErr)
	}

	span.SetAttributes(attribute.Bool("success", true))
	if out == nil || len(bytes.TrimSpace(resp.body)) == 0 {
		return nil
	}
	return decode(req, resp.body, out)
}

// attempt sends the request once through the limiter and breaker
func (c *Client) attempt(ctx context.Context, req call, payload []byte) (*response, error) {
	if err := c.pace(ctx); err != nil {
		return nil, err
	}

	return c.breaker.Execute(func() (*response, error) {
		var body io.Reader
		if payload != nil {
			body = bytes.NewReader(payload)
		}

		httpReq, err := http.NewRequestWithContext(ctx, req.method, c.baseURL+req.path, body)
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("Accept", "application/json")
		if payload != nil {
			httpReq.Header.Set("Content-Type", "application/json")
		}
		if c.userAgent != "" {
			httpReq.Header.Set("User-Agent", c.userAgent)
		}
		if token := c.Token(); token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+token)
		}

		httpResp, err := c.httpClient.Do(httpReq)
		if err != nil {
			return nil, err
		}
		defer httpResp.Body.Close()

		data, err := io.ReadAll(httpResp.Body)
		if err != nil {
			return nil, err
		}

		if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
			return nil, &StatusError{Status: httpResp.StatusCode, Body: snippet(data)}
		}
		return &response{status: httpResp.StatusCode, body: data}, nil
	})
}

// pace waits for the limiter, recording a hit when the request is delayed
func (c *Client) pace(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}

	r := c.limiter.Reserve()
	if !r.OK() {
		return appErrors.NewNetworkError(appErrors.ErrCodeRateLimited, "Request exceeds rate limiter burst", nil)
	}

	delay := r.Delay()
	if delay <= 0 {
		return nil
	}
	c.metrics.RecordRateLimitHit(ctx, "client")

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		r.Cancel()
		return ctx.Err()
	}
}

// wrapError maps a low-level failure onto an AppError
func (c *Client) wrapError(req call, err error) error {
	var appErr *appErrors.AppError
	if errors.As(err, &appErr) {
		return err
	}

	if breaker.IsRejection(err) {
		return appErrors.NewNetworkError(appErrors.ErrCodeCircuitOpen,
			"Platform API is unavailable, circuit breaker open", err).
			WithContext("operation", req.operation)
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		if statusErr.Status == http.StatusUnauthorized {
			c.ClearToken()
			return appErrors.NewNetworkError(appErrors.ErrCodeUnauthorized,
				"Session expired or not signed in", err).
				WithContext("operation", req.operation).
				WithContext("status", statusErr.Status)
		}
		return appErrors.NewNetworkError(appErrors.ErrCodeHTTPStatus,
			fmt.Sprintf("%s returned status %d", req.operation, statusErr.Status), err).
			WithContext("operation", req.operation).
			WithContext("status", statusErr.Status).
			WithContext("body", statusErr.Body)
	}

	var netErr net.Error
	if (errors.As(err, &netErr) && netErr.Timeout()) || errors.Is(err, context.DeadlineExceeded) {
		return appErrors.NewNetworkError(appErrors.ErrCodeNetworkTimeout,
			req.operation+" timed out", err).
			WithContext("operation", req.operation)
	}

	return appErrors.NewNetworkError(appErrors.ErrCodeRequestFailed,
		req.operation+" request failed", err).
		WithContext("operation", req.operation)
}

func decode(req call, body []byte, out any) error {
	if req.envelope {
		var env struct {
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(body, &env); err != nil {
			return appErrors.NewNetworkError(appErrors.ErrCodeDecodeResponse,
				"Failed to decode response envelope for "+req.operation, err)
		}
		if len(env.Data) == 0 || string(env.Data) == "null" {
			return nil
		}
		body = env.Data
	}

	if err := json.Unmarshal(body, out); err != nil {
		return appErrors.NewNetworkError(appErrors.ErrCodeDecodeResponse,
			"Failed to decode response for "+req.operation, err)
	}
	return nil
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxErrorSnippet {
		return s[:maxErrorSnippet]
	}
	return s
}

// Ping measures one round trip to url. Any HTTP response counts as reachable.
func (c *Client) Ping(ctx context.Context, url string) (time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, appErrors.NewValidationError(appErrors.ErrCodeInvalidRequest, "Invalid probe URL", err)
	}
	req.Header.Set("Cache-Control", "no-store")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, appErrors.NewNetworkError(appErrors.ErrCodeRequestFailed, "Probe request failed", err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	return time.Since(start), nil
}
