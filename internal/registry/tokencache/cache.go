// Package tokencache keeps the registry bearer token and refreshes it at most
// once at a time.
package tokencache

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"siren/internal/registry/metrics"
	"siren/internal/registry/models"
)

// Authenticator exchanges credentials for a token.
type Authenticator interface {
	Authenticate(ctx context.Context, creds models.Credentials) (models.BearerToken, error)
}

// Store holds the current token. Get returns ok=false when no token is stored.
type Store interface {
	Get(ctx context.Context) (models.BearerToken, bool, error)
	Set(ctx context.Context, token models.BearerToken) error
	Clear(ctx context.Context) error
}

const (
	refreshKey = "registry-token"

	defaultAuthTimeout = 30 * time.Second
)

// Cache hands out a valid bearer token, logging in only when the stored one is
// missing or expired. Concurrent refreshes collapse into a single login.
type Cache struct {
	auth        Authenticator
	creds       models.Credentials
	store       Store
	group       singleflight.Group
	now         func() time.Time
	authTimeout time.Duration
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

type Option func(*Cache)

// WithStore replaces the default in-process store.
func WithStore(store Store) Option {
	return func(c *Cache) {
		if store != nil {
			c.store = store
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithAuthTimeout bounds a shared login, which outlives the callers waiting on it.
func WithAuthTimeout(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.authTimeout = d
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Cache) {
		c.metrics = m
	}
}

// New constructs a Cache that logs in with creds through auth.
func New(auth Authenticator, creds models.Credentials, opts ...Option) *Cache {
	c := &Cache{
		auth:        auth,
		creds:       creds,
		store:       NewMemoryStore(),
		now:         time.Now,
		authTimeout: defaultAuthTimeout,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Token returns the stored token while it is valid, otherwise logs in. On a
// failed login the stored token is left untouched.
func (c *Cache) Token(ctx context.Context) (models.BearerToken, error) {
	if token, ok := c.cached(ctx); ok {
		c.metrics.IncrementTokenCacheHit()
		return token, nil
	}

	ch := c.group.DoChan(refreshKey, func() (any, error) {
		return c.refresh(context.WithoutCancel(ctx))
	})

	select {
	case <-ctx.Done():
		return models.BearerToken{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return models.BearerToken{}, res.Err
		}
		return res.Val.(models.BearerToken), nil
	}
}

// Invalidate drops the stored token so the next Token call logs in again.
func (c *Cache) Invalidate(ctx context.Context) {
	c.metrics.IncrementTokenInvalidation()
	if err := c.store.Clear(ctx); err != nil {
		c.metrics.IncrementStoreDegraded("clear")
		c.logger.WarnContext(ctx, "failed to clear registry token", "error", err)
	}
}

func (c *Cache) cached(ctx context.Context) (models.BearerToken, bool) {
	token, ok, err := c.store.Get(ctx)
	if err != nil {
		c.metrics.IncrementStoreDegraded("get")
		c.logger.WarnContext(ctx, "failed to read registry token, logging in", "error", err)
		return models.BearerToken{}, false
	}
	if !ok || !token.Valid(c.now()) {
		return models.BearerToken{}, false
	}
	return token, true
}

func (c *Cache) refresh(ctx context.Context) (models.BearerToken, error) {
	// Another flight may have stored a token between the caller's miss and now.
	if token, ok := c.cached(ctx); ok {
		return token, nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.authTimeout)
	defer cancel()

	token, err := c.auth.Authenticate(ctx, c.creds)
	if err != nil {
		return models.BearerToken{}, err
	}

	if !token.Valid(c.now()) {
		c.logger.WarnContext(ctx, "registry token already expired on arrival",
			"expires_at", token.ExpiresAt,
		)
	}
	if err := c.store.Set(ctx, token); err != nil {
		c.metrics.IncrementStoreDegraded("set")
		c.logger.WarnContext(ctx, "failed to store registry token", "error", err)
	}
	return token, nil
}
