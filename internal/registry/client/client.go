// Package client issues authenticated company lookups against the registry.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"

	"siren/internal/registry"
	"siren/internal/registry/metrics"
	"siren/internal/registry/models"
	"siren/internal/registry/payload"
)

const (
	companiesPath = "/api/companies/"
	op            = "lookup"

	maxBodyBytes = 10 << 20
)

var tracer = otel.Tracer("siren/internal/registry/client")

// Client performs GET /api/companies/{siren}.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	limiter      *rate.Limiter
	maxRetries   uint64
	initialDelay time.Duration
	logger       *slog.Logger
	metrics      *metrics.Metrics
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithTimeout sets the per-attempt timeout.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) {
		if d > 0 {
			cl.httpClient.Timeout = d
		}
	}
}

// WithRateLimit caps outbound lookups at limit per second with the given burst.
// A non-positive limit disables limiting.
func WithRateLimit(limit float64, burst int) Option {
	return func(cl *Client) {
		if limit <= 0 {
			cl.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		cl.limiter = rate.NewLimiter(rate.Limit(limit), burst)
	}
}

// WithRetry sets how many times a transient failure is retried and the first delay.
func WithRetry(maxRetries int, initialDelay time.Duration) Option {
	return func(cl *Client) {
		if maxRetries >= 0 {
			cl.maxRetries = uint64(maxRetries)
		}
		if initialDelay > 0 {
			cl.initialDelay = initialDelay
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(cl *Client) {
		cl.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(cl *Client) {
		cl.metrics = m
	}
}

// New constructs a Client for the registry at baseURL.
func New(baseURL string, opts ...Option) *Client {
	cl := &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		httpClient:   &http.Client{Timeout: 10 * time.Second},
		maxRetries:   2,
		initialDelay: 200 * time.Millisecond,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(cl)
	}
	return cl
}

// Lookup fetches the company document for siren. A document without a formality
// section yields registry.ErrNoData. Non-2xx answers come back as upstream_http
// errors with status and body untouched. Transport failures, 5xx and 429 are
// retried with exponential backoff; cancelling ctx stops both.
func (c *Client) Lookup(ctx context.Context, token models.BearerToken, siren string) (payload.Raw, error) {
	ctx, span := tracer.Start(ctx, "registry.lookup")
	defer span.End()
	span.SetAttributes(attribute.String("registry.siren", siren))

	attempt := 0
	operation := func() (payload.Raw, error) {
		attempt++
		raw, err := c.do(ctx, token, siren)
		if err == nil {
			return raw, nil
		}
		if ctx.Err() != nil || !registry.IsRetryable(err) {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}
	notify := func(err error, wait time.Duration) {
		c.logger.WarnContext(ctx, "retrying registry lookup",
			"siren", siren,
			"attempt", attempt,
			"wait_ms", wait.Milliseconds(),
			"error", err,
		)
	}

	raw, err := backoff.RetryNotifyWithData(operation, c.newBackOff(ctx), notify)
	span.SetAttributes(attribute.Int("registry.attempts", attempt))
	if err != nil {
		if !errors.Is(err, registry.ErrNoData) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "lookup failed")
		}
		return nil, err
	}
	return raw, nil
}

func (c *Client) newBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.initialDelay
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, c.maxRetries), ctx)
}

func (c *Client) do(ctx context.Context, token models.BearerToken, siren string) (payload.Raw, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, registry.NewError(registry.CategoryTransport, op, "rate limiter wait", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+companiesPath+url.PathEscape(siren), nil)
	if err != nil {
		return nil, registry.NewError(registry.CategoryInternal, op, "build lookup request", err)
	}
	req.Header.Set("Authorization", "Bearer "+token.Value)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.ObserveUpstreamLatency(op, time.Since(start))
	if err != nil {
		c.metrics.IncrementUpstreamRequest(0)
		return nil, registry.NewError(registry.CategoryTransport, op, "no response from registry", err)
	}
	defer resp.Body.Close()
	c.metrics.IncrementUpstreamRequest(resp.StatusCode)

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, registry.NewError(registry.CategoryTransport, op, "read lookup response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, registry.NewUpstreamError(op, resp.StatusCode, body).WithContentType(resp.Header.Get("Content-Type"))
	}

	raw := payload.Raw(bytes.TrimSpace(body))
	if !payload.HasFormality(raw) {
		return nil, registry.NewError(registry.CategoryNotFound, op, fmt.Sprintf("no formality for %s", siren), nil)
	}
	return raw, nil
}
