package redis

// Package redis provides Redis-backed adapters shared across instances.

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateStore is a fixed-window counter backed by Redis, so multiple instances
// share one view of each client's window.
type RateStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRateStore creates a Redis rate store with the default key prefix.
func NewRateStore(client redis.UniversalClient) *RateStore {
	return &RateStore{
		client: client,
		prefix: "ratelimit:",
	}
}

// NewRateStoreWithPrefix creates a Redis rate store with a custom key prefix.
func NewRateStoreWithPrefix(client redis.UniversalClient, prefix string) *RateStore {
	return &RateStore{
		client: client,
		prefix: prefix,
	}
}

// Incr increments the window counter for key. The first increment of a
// window sets its expiry; the reset time is derived from the remaining TTL so
// all instances report the same reset.
func (s *RateStore) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Time, error) {
	redisKey := s.prefix + key

	count, err := s.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("redis incr: %w", err)
	}

	if count == 1 {
		if err := s.client.PExpire(ctx, redisKey, window).Err(); err != nil {
			return 0, time.Time{}, fmt.Errorf("redis pexpire: %w", err)
		}
		return count, time.Now().Add(window), nil
	}

	ttl, err := s.client.PTTL(ctx, redisKey).Result()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("redis pttl: %w", err)
	}
	if ttl < 0 {
		// The expiry got lost (eviction or a crash between INCR and PEXPIRE);
		// re-arm it rather than leaving the counter immortal.
		if err := s.client.PExpire(ctx, redisKey, window).Err(); err != nil {
			return 0, time.Time{}, fmt.Errorf("redis pexpire: %w", err)
		}
		ttl = window
	}

	return count, time.Now().Add(ttl), nil
}
