// Package ratelimit implements fixed-window request counting over a
// pluggable store.
package ratelimit

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Bucket is the state of one key after a hit.
type Bucket struct {
	Count   int64
	ResetAt time.Time
}

// Store increments the counter for key, starting a fresh window when the
// previous one has elapsed. Implementations must be safe for concurrent use
// and increment atomically per key.
type Store interface {
	Hit(ctx context.Context, key string, window time.Duration) (Bucket, error)
}

type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

type Limiter struct {
	store Store
}

func NewLimiter(store Store) *Limiter {
	return &Limiter{store: store}
}

// Allow records one hit on key and reports whether the hit fits within limit
// for the current window. A store failure denies the request.
func (l *Limiter) Allow(ctx context.Context, key string, limit int, window time.Duration) Result {
	bucket, err := l.store.Hit(ctx, key, window)
	if err != nil {
		log.Warn().
			Err(err).
			Str("key", key).
			Msg("rate limit check failed, denying request")
		return Result{Allowed: false, ResetAt: time.Now().Add(window)}
	}

	remaining := int64(limit) - bucket.Count
	if remaining < 0 {
		remaining = 0
	}

	return Result{
		Allowed:   bucket.Count <= int64(limit),
		Remaining: int(remaining),
		ResetAt:   bucket.ResetAt,
	}
}
