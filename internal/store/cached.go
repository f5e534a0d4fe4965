package store

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/serroba/templink/internal/link"
)

// CachedStore wraps a link.Store with a Redis read-through cache for the
// hot redirect path. Cache entries carry the record's own TTL, so the cache
// can never outlive the record it shadows; the registry still evaluates
// liveness on every read.
type CachedStore struct {
	primary link.Store
	client  *redis.Client
	prefix  string
}

// NewCachedStore creates a Redis-cached decorator over a primary store.
func NewCachedStore(primary link.Store, client *redis.Client) *CachedStore {
	return &CachedStore{
		primary: primary,
		client:  client,
		prefix:  "linkcache:",
	}
}

// InsertIfAbsent writes through to the primary store; the cache is only
// populated on reads so the insert-if-absent atomicity stays with the
// primary backend.
func (c *CachedStore) InsertIfAbsent(ctx context.Context, id string, rec link.Record) (bool, error) {
	return c.primary.InsertIfAbsent(ctx, id, rec)
}

func (c *CachedStore) Get(ctx context.Context, id string) (link.Record, bool, error) {
	if rec, ok := c.getFromCache(ctx, id); ok {
		return rec, true, nil
	}

	rec, ok, err := c.primary.Get(ctx, id)
	if err != nil || !ok {
		return link.Record{}, ok, err
	}

	c.cacheRecord(ctx, id, rec)

	return rec, true, nil
}

// Delete removes the entry from the primary store and invalidates the
// cache. Cache invalidation is best-effort: a stale cache entry expires
// with the record TTL anyway.
func (c *CachedStore) Delete(ctx context.Context, id string) (bool, error) {
	removed, err := c.primary.Delete(ctx, id)
	if err != nil {
		return false, err
	}

	c.client.Del(ctx, c.prefix+id)

	return removed, nil
}

func (c *CachedStore) Close() error {
	err := c.primary.Close()
	if cerr := c.client.Close(); cerr != nil && err == nil {
		err = cerr
	}

	return err
}

func (c *CachedStore) getFromCache(ctx context.Context, id string) (link.Record, bool) {
	// Misses and cache unavailability both fall back to the primary store.
	payload, err := c.client.Get(ctx, c.prefix+id).Bytes()
	if err != nil {
		return link.Record{}, false
	}

	rec, err := decodeRecord(payload)
	if err != nil {
		return link.Record{}, false
	}

	return rec, true
}

func (c *CachedStore) cacheRecord(ctx context.Context, id string, rec link.Record) {
	// Cache entries expire with the record, not a full TTL from now.
	ttl := time.Until(rec.ExpiresAt())
	if ttl <= 0 {
		return
	}

	payload, err := encodeRecord(rec)
	if err != nil {
		return
	}

	c.client.Set(ctx, c.prefix+id, payload, ttl)
}
