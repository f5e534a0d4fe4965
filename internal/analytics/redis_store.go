package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore persists analytics counters and recent events in Redis.
type RedisStore struct {
	client    *redis.Client
	retention time.Duration
}

// NewRedisStore creates a Redis-backed analytics store. Raw events are kept
// for the given retention; counters live forever.
func NewRedisStore(client *redis.Client, retention time.Duration) *RedisStore {
	return &RedisStore{
		client:    client,
		retention: retention,
	}
}

// SaveLinkCreated bumps the creation counter and archives the event.
func (r *RedisStore) SaveLinkCreated(ctx context.Context, event *LinkCreatedEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	pipe := r.client.Pipeline()
	pipe.Incr(ctx, "stats:links:created")
	pipe.Set(ctx, "events:created:"+event.EventID, payload, r.retention)
	_, err = pipe.Exec(ctx)

	return err
}

// SaveLinkVisited bumps global and per-link visit counters and archives the event.
func (r *RedisStore) SaveLinkVisited(ctx context.Context, event *LinkVisitedEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	pipe := r.client.Pipeline()
	pipe.Incr(ctx, "stats:links:visited")
	pipe.HIncrBy(ctx, "stats:visits", event.ID, 1)
	pipe.Set(ctx, "events:visited:"+event.EventID, payload, r.retention)
	_, err = pipe.Exec(ctx)

	return err
}

// VisitCount returns the number of recorded visits for a link identifier.
func (r *RedisStore) VisitCount(ctx context.Context, id string) (int64, error) {
	count, err := r.client.HGet(ctx, "stats:visits", id).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}

		return 0, err
	}

	return count, nil
}
