package ratelimit

import (
	"context"
	"sync"
	"time"
)

const memoryCleanupInterval = time.Minute

type memoryBucket struct {
	count   int64
	resetAt time.Time
}

// MemoryStore keeps buckets in process memory. Counts are not shared between
// replicas.
type MemoryStore struct {
	mu          sync.Mutex
	buckets     map[string]*memoryBucket
	lastCleanup time.Time
	now         func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		buckets:     make(map[string]*memoryBucket),
		lastCleanup: time.Now(),
		now:         time.Now,
	}
}

func (s *MemoryStore) cleanup(now time.Time) {
	if now.Sub(s.lastCleanup) < memoryCleanupInterval {
		return
	}
	s.lastCleanup = now

	for key, b := range s.buckets {
		if !now.Before(b.resetAt) {
			delete(s.buckets, key)
		}
	}
}

func (s *MemoryStore) Hit(_ context.Context, key string, window time.Duration) (Bucket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.cleanup(now)

	b, ok := s.buckets[key]
	if !ok || !now.Before(b.resetAt) {
		b = &memoryBucket{resetAt: now.Add(window)}
		s.buckets[key] = b
	}
	b.count++

	return Bucket{Count: b.count, ResetAt: b.resetAt}, nil
}

func (s *MemoryStore) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buckets)
}
