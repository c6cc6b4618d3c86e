package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "ratelimit:"

// hitScript increments the counter and arms its expiry on the first hit of a
// window. It returns {count, pttl}.
var hitScript = redis.NewScript(`
local key = KEYS[1]
local window = tonumber(ARGV[1])

local count = redis.call('INCR', key)
if count == 1 then
    redis.call('PEXPIRE', key, window)
end

local ttl = redis.call('PTTL', key)
if ttl < 0 then
    redis.call('PEXPIRE', key, window)
    ttl = window
end

return {count, ttl}
`)

// RedisStore shares buckets across replicas through Redis.
type RedisStore struct {
	client redis.Scripter
}

func NewRedisStore(client redis.Scripter) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Hit(ctx context.Context, key string, window time.Duration) (Bucket, error) {
	result, err := hitScript.Run(ctx, s.client, []string{redisKeyPrefix + key}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return Bucket{}, fmt.Errorf("run rate limit script: %w", err)
	}
	if len(result) != 2 {
		return Bucket{}, fmt.Errorf("unexpected rate limit result length %d", len(result))
	}

	return Bucket{
		Count:   result[0],
		ResetAt: time.Now().Add(time.Duration(result[1]) * time.Millisecond),
	}, nil
}
