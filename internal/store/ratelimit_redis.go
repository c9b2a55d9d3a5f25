package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// recordScript keeps one sorted set per key scored by request time in milliseconds.
var recordScript = redis.NewScript(`
redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', ARGV[1])
redis.call('ZADD', KEYS[1], ARGV[2], ARGV[3])
redis.call('PEXPIRE', KEYS[1], ARGV[4])
return redis.call('ZCARD', KEYS[1])
`)

// RateLimitRedisStore is a Redis implementation of ratelimit.Store shared by all server instances.
type RateLimitRedisStore struct {
	client *redis.Client
	prefix string
}

// NewRateLimitRedisStore creates a new Redis-backed rate limit store.
func NewRateLimitRedisStore(client *redis.Client) *RateLimitRedisStore {
	return &RateLimitRedisStore{
		client: client,
		prefix: "ratelimit:",
	}
}

func (s *RateLimitRedisStore) Record(ctx context.Context, key string, window time.Duration) (int64, error) {
	now := time.Now().UnixMilli()
	cutoff := now - window.Milliseconds()

	count, err := recordScript.Run(ctx, s.client,
		[]string{s.prefix + key},
		cutoff,
		now,
		uuid.NewString(),
		window.Milliseconds(),
	).Int64()
	if err != nil {
		return 0, fmt.Errorf("redis rate limit record: %w", err)
	}

	return count, nil
}
