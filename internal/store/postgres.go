package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/serroba/templink/internal/link"
)

// PostgresStore is a PostgreSQL implementation of link.Store.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed link store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// InsertIfAbsent relies on the primary key plus ON CONFLICT DO NOTHING for
// atomicity: exactly one of two concurrent inserts for the same identifier
// reports a row affected.
func (p *PostgresStore) InsertIfAbsent(ctx context.Context, id string, rec link.Record) (bool, error) {
	query := `
		INSERT INTO temp_links (id, destination, created_at, ttl_ms)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO NOTHING
	`

	tag, err := p.pool.Exec(ctx, query,
		id,
		rec.Destination,
		rec.CreatedAt,
		rec.TTL.Milliseconds(),
	)
	if err != nil {
		return false, err
	}

	return tag.RowsAffected() > 0, nil
}

func (p *PostgresStore) Get(ctx context.Context, id string) (link.Record, bool, error) {
	query := `
		SELECT destination, created_at, ttl_ms
		FROM temp_links
		WHERE id = $1
	`

	var (
		rec       link.Record
		ttlMillis int64
	)

	err := p.pool.QueryRow(ctx, query, id).Scan(
		&rec.Destination,
		&rec.CreatedAt,
		&ttlMillis,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return link.Record{}, false, nil
		}

		return link.Record{}, false, err
	}

	rec.TTL = time.Duration(ttlMillis) * time.Millisecond

	return rec, true, nil
}

func (p *PostgresStore) Delete(ctx context.Context, id string) (bool, error) {
	tag, err := p.pool.Exec(ctx, `DELETE FROM temp_links WHERE id = $1`, id)
	if err != nil {
		return false, err
	}

	return tag.RowsAffected() > 0, nil
}

func (p *PostgresStore) Close() error {
	p.pool.Close()

	return nil
}
