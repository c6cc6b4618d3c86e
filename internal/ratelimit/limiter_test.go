package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingStore struct{}

func (failingStore) Hit(context.Context, string, time.Duration) (Bucket, error) {
	return Bucket{}, errors.New("store unavailable")
}

func TestLimiter(t *testing.T) {
	ctx := context.Background()

	t.Run("allows up to limit then rejects", func(t *testing.T) {
		limiter := NewLimiter(NewMemoryStore())

		for i := 0; i < 5; i++ {
			res := limiter.Allow(ctx, "login:1.2.3.4", 5, time.Minute)
			assert.True(t, res.Allowed, "hit %d", i+1)
			assert.Equal(t, 5-i-1, res.Remaining)
		}

		res := limiter.Allow(ctx, "login:1.2.3.4", 5, time.Minute)
		assert.False(t, res.Allowed)
		assert.Equal(t, 0, res.Remaining)
		assert.True(t, res.ResetAt.After(time.Now()))
	})

	t.Run("keys are independent", func(t *testing.T) {
		limiter := NewLimiter(NewMemoryStore())

		assert.True(t, limiter.Allow(ctx, "a", 1, time.Minute).Allowed)
		assert.False(t, limiter.Allow(ctx, "a", 1, time.Minute).Allowed)
		assert.True(t, limiter.Allow(ctx, "b", 1, time.Minute).Allowed)
	})

	t.Run("denies when store fails", func(t *testing.T) {
		limiter := NewLimiter(failingStore{})

		res := limiter.Allow(ctx, "k", 100, time.Minute)
		assert.False(t, res.Allowed)
		assert.True(t, res.ResetAt.After(time.Now()))
	})

	t.Run("concurrent hits never over admit", func(t *testing.T) {
		limiter := NewLimiter(NewMemoryStore())

		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			allowed int
		)
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if limiter.Allow(ctx, "shared", 10, time.Minute).Allowed {
					mu.Lock()
					allowed++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 10, allowed)
	})
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	newStore := func() *MemoryStore {
		s := NewMemoryStore()
		s.now = func() time.Time { return now }
		s.lastCleanup = now
		return s
	}

	t.Run("window resets after expiry", func(t *testing.T) {
		s := newStore()

		b, err := s.Hit(ctx, "k", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, int64(1), b.Count)
		assert.Equal(t, now.Add(time.Minute), b.ResetAt)

		b, _ = s.Hit(ctx, "k", time.Minute)
		assert.Equal(t, int64(2), b.Count)

		s.now = func() time.Time { return now.Add(time.Minute) }
		b, _ = s.Hit(ctx, "k", time.Minute)
		assert.Equal(t, int64(1), b.Count)
		assert.Equal(t, now.Add(2*time.Minute), b.ResetAt)
	})

	t.Run("reset time is fixed within a window", func(t *testing.T) {
		s := newStore()

		first, _ := s.Hit(ctx, "k", time.Minute)
		s.now = func() time.Time { return now.Add(30 * time.Second) }
		second, _ := s.Hit(ctx, "k", time.Minute)

		assert.Equal(t, first.ResetAt, second.ResetAt)
	})

	t.Run("cleanup drops expired buckets", func(t *testing.T) {
		s := newStore()
		for i := 0; i < 10; i++ {
			_, _ = s.Hit(ctx, fmt.Sprintf("k%d", i), time.Second)
		}
		assert.Equal(t, 10, s.size())

		s.now = func() time.Time { return now.Add(2 * memoryCleanupInterval) }
		_, _ = s.Hit(ctx, "fresh", time.Minute)

		assert.Equal(t, 1, s.size())
	})
}
