package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRedisCache(t *testing.T) {
	t.Run("rejects malformed url", func(t *testing.T) {
		_, err := NewRedisCache(context.Background(), "not-a-redis-url", "budwatch:")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse redis url")
	})

	t.Run("fails when server is unreachable", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
		defer cancel()

		_, err := NewRedisCache(ctx, "redis://127.0.0.1:1/0", "budwatch:")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connect to redis")
	})
}

func TestRedisCache_KeyPrefix(t *testing.T) {
	c := &RedisCache{prefix: "budwatch:"}
	assert.Equal(t, "budwatch:deals:active", c.key("deals:active"))
}
