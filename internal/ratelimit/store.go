package ratelimit

import (
	"context"
	"time"
)

// Store counts requests per key over a sliding window.
type Store interface {
	// Record registers one request under the key and returns how many
	// requests the key has seen inside the window, this one included.
	// Entries older than the window are dropped.
	Record(ctx context.Context, key string, window time.Duration) (count int64, err error)
}
