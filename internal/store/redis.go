package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/serroba/templink/internal/link"
)

// RedisStore is a Redis implementation of link.Store.
//
// SETNX provides the atomic insert-if-absent primitive. The record's TTL is
// also set as the redis key TTL, so redis reclaims expired entries on its
// own; the registry's lazy purge still covers backends without that luxury.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a new Redis-backed link store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: "link:",
	}
}

// redisRecord is the persisted wire form of a link.Record.
type redisRecord struct {
	Destination string `json:"destination"`
	CreatedAt   int64  `json:"created_at"` // epoch milliseconds
	TTLMillis   int64  `json:"ttl_ms"`
}

func encodeRecord(rec link.Record) ([]byte, error) {
	return json.Marshal(redisRecord{
		Destination: rec.Destination,
		CreatedAt:   rec.CreatedAt.UnixMilli(),
		TTLMillis:   rec.TTL.Milliseconds(),
	})
}

func decodeRecord(payload []byte) (link.Record, error) {
	var wire redisRecord
	if err := json.Unmarshal(payload, &wire); err != nil {
		return link.Record{}, err
	}

	return link.Record{
		Destination: wire.Destination,
		CreatedAt:   time.UnixMilli(wire.CreatedAt),
		TTL:         time.Duration(wire.TTLMillis) * time.Millisecond,
	}, nil
}

func (r *RedisStore) InsertIfAbsent(ctx context.Context, id string, rec link.Record) (bool, error) {
	payload, err := encodeRecord(rec)
	if err != nil {
		return false, err
	}

	return r.client.SetNX(ctx, r.prefix+id, payload, rec.TTL).Result()
}

func (r *RedisStore) Get(ctx context.Context, id string) (link.Record, bool, error) {
	payload, err := r.client.Get(ctx, r.prefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return link.Record{}, false, nil
		}

		return link.Record{}, false, err
	}

	rec, err := decodeRecord(payload)
	if err != nil {
		return link.Record{}, false, err
	}

	return rec, true, nil
}

func (r *RedisStore) Delete(ctx context.Context, id string) (bool, error) {
	removed, err := r.client.Del(ctx, r.prefix+id).Result()
	if err != nil {
		return false, err
	}

	return removed > 0, nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
