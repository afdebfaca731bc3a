package challenge

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"dcaf/pkg/platform/sentinel"
)

const keyPrefix = "dcaf:challenge:"

// RedisLedger shares the consumed-challenge set across instances. SETNX makes
// the first consumer win.
type RedisLedger struct {
	client redis.UniversalClient
}

func NewRedisLedger(client redis.UniversalClient) *RedisLedger {
	return &RedisLedger{client: client}
}

func (l *RedisLedger) Consume(ctx context.Context, id string, ttl time.Duration) error {
	ok, err := l.client.SetNX(ctx, keyPrefix+id, time.Now().UnixMilli(), ttl).Result()
	if err != nil {
		return fmt.Errorf("consume challenge %s: %w", id, err)
	}
	if !ok {
		return sentinel.ErrAlreadyUsed
	}
	return nil
}
