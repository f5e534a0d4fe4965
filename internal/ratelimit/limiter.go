package ratelimit

import (
	"context"
	"time"
)

// Limiter decides whether a request identified by a key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (allowed bool, err error)
}

// SlidingWindowLimiter allows at most limit requests per key within a
// sliding window. Counting happens in the store, so the limiter itself
// holds no state.
type SlidingWindowLimiter struct {
	store  Store
	limit  int64
	window time.Duration
}

// NewSlidingWindowLimiter creates a limiter over the given store.
func NewSlidingWindowLimiter(store Store, limit int64, window time.Duration) *SlidingWindowLimiter {
	return &SlidingWindowLimiter{
		store:  store,
		limit:  limit,
		window: window,
	}
}

// Allow records the request and reports whether the key is still under the
// limit. The request is counted even when denied.
func (l *SlidingWindowLimiter) Allow(ctx context.Context, key string) (bool, error) {
	count, err := l.store.Record(ctx, key, l.window)
	if err != nil {
		return false, err
	}

	return count <= l.limit, nil
}
