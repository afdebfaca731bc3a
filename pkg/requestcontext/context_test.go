package requestcontext

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAccessors(t *testing.T) {
	ctx := context.Background()

	t.Run("empty context yields zero values", func(t *testing.T) {
		assert.Empty(t, RequestID(ctx))
		assert.Empty(t, ClientIP(ctx))
		assert.Empty(t, UserAgent(ctx))
		assert.WithinDuration(t, time.Now(), Now(ctx), time.Second)
	})

	t.Run("injected values round trip", func(t *testing.T) {
		fixed := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
		c := WithRequestID(ctx, "req-1")
		c = WithClientMetadata(c, "203.0.113.7", "curl/8.0")
		c = WithTime(c, fixed)

		assert.Equal(t, "req-1", RequestID(c))
		assert.Equal(t, "203.0.113.7", ClientIP(c))
		assert.Equal(t, "curl/8.0", UserAgent(c))
		assert.Equal(t, fixed, Now(c))
	})
}
