// Package redis connects the shared go-redis client used by the registry
// token store.
package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"siren/internal/platform/config"
)

// Client is a pinged go-redis client.
type Client struct {
	*redis.Client
}

// New dials REDIS_URL and pings it. An empty URL means the deployment keeps
// tokens in memory, so New returns a nil client and no error.
func New(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	if cfg.URL == "" {
		return nil, nil
	}
	opts, err := options(cfg)
	if err != nil {
		return nil, err
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed (%s): %w", opts.Addr, err)
	}
	return &Client{Client: rdb}, nil
}

// options parses the URL, then lets explicit pool settings win over URL query values.
func options(cfg config.RedisConfig) (*redis.Options, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	setPositive(&opts.PoolSize, cfg.PoolSize)
	setPositive(&opts.MinIdleConns, cfg.MinIdleConns)
	setPositive(&opts.DialTimeout, cfg.DialTimeout)
	setPositive(&opts.ReadTimeout, cfg.ReadTimeout)
	setPositive(&opts.WriteTimeout, cfg.WriteTimeout)
	return opts, nil
}

func setPositive[T ~int | ~int64](dst *T, v T) {
	if v > 0 {
		*dst = v
	}
}

// Health is the readiness probe used by /healthz.
func (c *Client) Health(ctx context.Context) error {
	if err := c.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis %s: %w", c.Options().Addr, err)
	}
	return nil
}

func (c *Client) Close() error {
	return c.Client.Close()
}
