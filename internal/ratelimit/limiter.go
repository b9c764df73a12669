package ratelimit

// Package ratelimit implements fixed-window request limiting. The window
// bookkeeping lives behind Store so single-node deployments use the in-memory
// store and multi-node deployments share counters through Redis.

import (
	"context"
	"fmt"
	"time"
)

// Store increments the counter for key in the current fixed window and
// returns the new count together with the window's reset time. The first
// increment of a window starts it.
type Store interface {
	Incr(ctx context.Context, key string, window time.Duration) (count int64, resetAt time.Time, err error)
}

// Result is the outcome of one Consume call, exposed to clients through
// X-RateLimit headers.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Limiter applies a fixed per-window limit to keys.
type Limiter struct {
	store  Store
	limit  int
	window time.Duration
}

// NewLimiter panics on a non-positive limit or a window under one second;
// those are configuration bugs, not runtime conditions.
func NewLimiter(store Store, limit int, window time.Duration) *Limiter {
	if limit < 1 {
		panic(fmt.Sprintf("ratelimit: limit must be >= 1, got %d", limit))
	}
	if window < time.Second {
		panic(fmt.Sprintf("ratelimit: window must be >= 1s, got %s", window))
	}
	return &Limiter{store: store, limit: limit, window: window}
}

// Consume records one request for key and reports whether it is within the
// limit. Counting is increment-first, so a denied request still consumed a
// slot in the window.
func (l *Limiter) Consume(ctx context.Context, key string) (Result, error) {
	count, resetAt, err := l.store.Incr(ctx, key, l.window)
	if err != nil {
		return Result{}, fmt.Errorf("ratelimit incr: %w", err)
	}

	remaining := int64(l.limit) - count
	if remaining < 0 {
		remaining = 0
	}
	return Result{
		Allowed:   count <= int64(l.limit),
		Limit:     l.limit,
		Remaining: int(remaining),
		ResetAt:   resetAt,
	}, nil
}

// Limit returns the configured per-window limit.
func (l *Limiter) Limit() int { return l.limit }

// Window returns the configured window length.
func (l *Limiter) Window() time.Duration { return l.window }
