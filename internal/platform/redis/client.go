// Package redis builds the shared go-redis client used by the challenge
// ledger, the profile caches and the rate limiter.
package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"dcaf/internal/platform/config"
)

// Client embeds *redis.Client so callers issue commands directly.
type Client struct {
	*redis.Client
}

// New dials Redis and pings it once. An empty URL means Redis is not
// configured and yields a nil client with no error; callers fall back to
// in-memory stores.
func New(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	if cfg.URL == "" {
		return nil, nil
	}
	opts, err := optionsFrom(cfg)
	if err != nil {
		return nil, err
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", opts.Addr, err)
	}
	return &Client{Client: rdb}, nil
}

// optionsFrom parses the URL and overlays the non-zero pool and timeout
// settings. Zero values keep go-redis defaults.
func optionsFrom(cfg config.RedisConfig) (*redis.Options, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	overlayInt(&opts.PoolSize, cfg.PoolSize)
	overlayInt(&opts.MinIdleConns, cfg.MinIdleConns)
	if cfg.DialTimeout > 0 {
		opts.DialTimeout = cfg.DialTimeout
	}
	if cfg.ReadTimeout > 0 {
		opts.ReadTimeout = cfg.ReadTimeout
	}
	if cfg.WriteTimeout > 0 {
		opts.WriteTimeout = cfg.WriteTimeout
	}
	return opts, nil
}

func overlayInt(dst *int, v int) {
	if v > 0 {
		*dst = v
	}
}

// Health satisfies the router's health check signature.
func (c *Client) Health(ctx context.Context) error {
	return c.Ping(ctx).Err()
}
