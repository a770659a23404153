// Package auth exchanges registry credentials for a bearer token.
package auth

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

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"siren/internal/registry"
	"siren/internal/registry/metrics"
	"siren/internal/registry/models"
)

// DefaultValidity is how long a session stays valid after the registry-reported
// last login.
const DefaultValidity = time.Hour

const (
	loginPath = "/api/sso/login"
	op        = "login"

	// maxBodyBytes caps how much of a login answer is read.
	maxBodyBytes = 1 << 20
)

var tracer = otel.Tracer("siren/internal/registry/auth")

// Authenticator logs into the registry.
type Authenticator struct {
	baseURL    string
	httpClient *http.Client
	validity   time.Duration
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

type Option func(*Authenticator)

func WithHTTPClient(c *http.Client) Option {
	return func(a *Authenticator) {
		a.httpClient = c
	}
}

func WithValidity(d time.Duration) Option {
	return func(a *Authenticator) {
		if d > 0 {
			a.validity = d
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(a *Authenticator) {
		a.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Authenticator) {
		a.metrics = m
	}
}

// New constructs an Authenticator for the registry at baseURL.
func New(baseURL string, opts ...Option) *Authenticator {
	a := &Authenticator{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		validity:   DefaultValidity,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
	User  *struct {
		LastLogin string `json:"lastLogin"`
	} `json:"user"`
}

// Authenticate posts creds to the login endpoint. The token expires Validity after
// the lastLogin instant reported by the registry, not after the local clock.
func (a *Authenticator) Authenticate(ctx context.Context, creds models.Credentials) (models.BearerToken, error) {
	ctx, span := tracer.Start(ctx, "registry.login")
	defer span.End()
	start := time.Now()

	token, err := a.authenticate(ctx, creds)
	a.metrics.ObserveUpstreamLatency(op, time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "login failed")
		a.metrics.IncrementTokenRefresh("failure")
		a.logger.WarnContext(ctx, "registry login failed",
			"error", err,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return models.BearerToken{}, err
	}

	span.SetAttributes(attribute.String("registry.token_expires_at", token.ExpiresAt.Format(time.RFC3339)))
	a.metrics.IncrementTokenRefresh("success")
	a.logger.InfoContext(ctx, "registry login succeeded",
		"expires_at", token.ExpiresAt,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return token, nil
}

func (a *Authenticator) authenticate(ctx context.Context, creds models.Credentials) (models.BearerToken, error) {
	body, err := json.Marshal(loginRequest{Username: creds.Username, Password: creds.Password})
	if err != nil {
		return models.BearerToken{}, authError("encode credentials", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+loginPath, bytes.NewReader(body))
	if err != nil {
		return models.BearerToken{}, authError("build login request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return models.BearerToken{}, authError("login request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return models.BearerToken{}, authError("read login response", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err := registry.NewError(registry.CategoryAuthentication, op, fmt.Sprintf("login rejected with status %d", resp.StatusCode), nil)
		err.Status = resp.StatusCode
		err.Body = respBody
		return models.BearerToken{}, err
	}

	return a.parseLoginResponse(respBody)
}

func (a *Authenticator) parseLoginResponse(body []byte) (models.BearerToken, error) {
	var parsed loginResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return models.BearerToken{}, authError("undecodable login response", err)
	}
	if parsed.Token == "" {
		return models.BearerToken{}, authError("login response has no token", nil)
	}
	if parsed.User == nil || parsed.User.LastLogin == "" {
		return models.BearerToken{}, authError("login response has no user.lastLogin", nil)
	}
	lastLogin, err := time.Parse(time.RFC3339, parsed.User.LastLogin)
	if err != nil {
		return models.BearerToken{}, authError("unparseable user.lastLogin", err)
	}

	return models.BearerToken{
		Value:     parsed.Token,
		ExpiresAt: lastLogin.Add(a.validity),
	}, nil
}

func authError(message string, err error) *registry.Error {
	return registry.NewError(registry.CategoryAuthentication, op, message, err)
}
