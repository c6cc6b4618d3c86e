package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	opts, err := redis.ParseURL("redis://localhost:6379/15")
	require.NoError(t, err)

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		t.Skip("Redis not available for testing")
	}

	client.FlushDB(context.Background())
	t.Cleanup(func() { client.Close() })
	return client
}

func TestRedisStore(t *testing.T) {
	client := newTestRedis(t)
	store := NewRedisStore(client)
	ctx := context.Background()

	t.Run("counts within a window", func(t *testing.T) {
		limiter := NewLimiter(store)

		for i := 0; i < 3; i++ {
			assert.True(t, limiter.Allow(ctx, "test:user1", 3, 10*time.Second).Allowed)
		}
		res := limiter.Allow(ctx, "test:user1", 3, 10*time.Second)
		assert.False(t, res.Allowed)
		assert.True(t, res.ResetAt.After(time.Now()))
	})

	t.Run("window resets", func(t *testing.T) {
		b, err := store.Hit(ctx, "test:user2", 500*time.Millisecond)
		require.NoError(t, err)
		assert.Equal(t, int64(1), b.Count)

		time.Sleep(600 * time.Millisecond)

		b, err = store.Hit(ctx, "test:user2", 500*time.Millisecond)
		require.NoError(t, err)
		assert.Equal(t, int64(1), b.Count)
	})

	t.Run("key carries expiry", func(t *testing.T) {
		_, err := store.Hit(ctx, "test:user3", time.Minute)
		require.NoError(t, err)

		ttl, err := client.PTTL(ctx, redisKeyPrefix+"test:user3").Result()
		require.NoError(t, err)
		assert.Greater(t, ttl, time.Duration(0))
	})
}

func TestRedisStore_Unreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:9999"})
	defer client.Close()

	limiter := NewLimiter(NewRedisStore(client))

	res := limiter.Allow(context.Background(), "test:key", 1, time.Minute)
	assert.False(t, res.Allowed)
}
