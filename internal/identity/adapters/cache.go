package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"dcaf/internal/identity/models"
	"dcaf/internal/identity/ports"
	"dcaf/pkg/fingerprint"
)

const (
	profileKeyPrefix = "dcaf:profile:"
	insightKeyPrefix = "dcaf:insight:"
)

// cached reads key from redis and falls back to fetch on a miss. Redis
// failures are logged and never fail the lookup.
func cached[T any](ctx context.Context, client *redis.Client, logger *slog.Logger, key string, ttl time.Duration, fetch func(context.Context) (*T, error)) (*T, error) {
	raw, err := client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var rec T
		if jsonErr := json.Unmarshal(raw, &rec); jsonErr == nil {
			return &rec, nil
		}
		// corrupt entry: refetch and overwrite
	case !errors.Is(err, redis.Nil) && logger != nil:
		logger.WarnContext(ctx, "profile cache read failed", "key", key, "error", err)
	}

	rec, err := fetch(ctx)
	if err != nil {
		return nil, err
	}

	if encoded, jsonErr := json.Marshal(rec); jsonErr == nil {
		if setErr := client.Set(ctx, key, encoded, ttl).Err(); setErr != nil && logger != nil {
			logger.WarnContext(ctx, "profile cache write failed", "key", key, "error", setErr)
		}
	}
	return rec, nil
}

// CachedProfileSource caches profile records in redis.
type CachedProfileSource struct {
	next   ports.ProfileSource
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewCachedProfileSource(next ports.ProfileSource, client *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedProfileSource {
	return &CachedProfileSource{next: next, client: client, ttl: ttl, logger: logger}
}

func (c *CachedProfileSource) Fetch(ctx context.Context, ref string) (*models.ProfileRecord, error) {
	return cached(ctx, c.client, c.logger, profileKeyPrefix+ref, c.ttl, func(ctx context.Context) (*models.ProfileRecord, error) {
		return c.next.Fetch(ctx, ref)
	})
}

// CachedInsightSource caches match insight records in redis. Names are
// hashed into the key.
type CachedInsightSource struct {
	next   ports.MatchInsightSource
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewCachedInsightSource(next ports.MatchInsightSource, client *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedInsightSource {
	return &CachedInsightSource{next: next, client: client, ttl: ttl, logger: logger}
}

func (c *CachedInsightSource) Fetch(ctx context.Context, name string) (*models.MatchInsightRecord, error) {
	key := insightKeyPrefix + fingerprint.Hash(insightKey(name))
	return cached(ctx, c.client, c.logger, key, c.ttl, func(ctx context.Context) (*models.MatchInsightRecord, error) {
		return c.next.Fetch(ctx, name)
	})
}
