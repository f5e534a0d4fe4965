package link

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Store is the persistence contract the Registry depends on.
// InsertIfAbsent must be atomic per key under the backend's concurrency
// model: two concurrent inserts for the same identifier must never both
// report true. An expired-but-unpurged entry still counts as present;
// the Registry handles that relaxation itself.
type Store interface {
	InsertIfAbsent(ctx context.Context, id string, rec Record) (bool, error)
	Get(ctx context.Context, id string) (Record, bool, error)
	Delete(ctx context.Context, id string) (bool, error)
	Close() error
}

const defaultMaxAttempts = 5

// Registry owns the identifier-to-record mapping. It is the only component
// that mutates link entries in the store, and it holds the store for the
// process lifetime until Close.
type Registry struct {
	store       Store
	generate    Generator
	logger      *zap.Logger
	now         func() time.Time
	maxAttempts int

	closeOnce sync.Once
	closeErr  error
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock overrides the registry's time source.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// WithMaxAttempts overrides the collision-retry budget for Create.
func WithMaxAttempts(n int) Option {
	return func(r *Registry) { r.maxAttempts = n }
}

// NewRegistry creates a registry over the given store and generator.
func NewRegistry(store Store, generate Generator, logger *zap.Logger, opts ...Option) *Registry {
	r := &Registry{
		store:       store,
		generate:    generate,
		logger:      logger,
		now:         time.Now,
		maxAttempts: defaultMaxAttempts,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Create validates the destination and expiration time, generates a unique
// identifier, and persists the record. Identifier collisions are retried up
// to the configured budget; exhaustion returns ErrGenerationExhausted.
func (r *Registry) Create(ctx context.Context, destination string, ttl time.Duration) (string, Record, error) {
	dest, err := ParseDestination(destination)
	if err != nil {
		return "", Record{}, err
	}

	if err := ValidateTTL(ttl); err != nil {
		return "", Record{}, err
	}

	rec := Record{
		Destination: dest,
		CreatedAt:   r.now(),
		TTL:         ttl,
	}

	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		id := r.generate()

		inserted, err := r.store.InsertIfAbsent(ctx, id, rec)
		if err != nil {
			return "", Record{}, err
		}

		if inserted {
			return id, rec, nil
		}

		// The occupant may already be expired, but a get/delete/reinsert
		// sequence here is not atomic per key: a concurrent Create could
		// claim the slot between the steps and then lose its live record
		// to our delete. Collisions therefore always draw a fresh
		// identifier; the read path purges the stale entry.
		r.logger.Debug("identifier collision, regenerating",
			zap.String("id", id),
			zap.Int("attempt", attempt),
		)
	}

	return "", Record{}, ErrGenerationExhausted
}

// GetByID returns the live record for an identifier, or ErrNotFound.
// An expired record is purged opportunistically; purge failure never fails
// the read (a later read retries it), but the record is reported absent
// either way.
func (r *Registry) GetByID(ctx context.Context, id string) (Record, error) {
	rec, ok, err := r.store.Get(ctx, id)
	if err != nil {
		return Record{}, err
	}

	if !ok {
		return Record{}, ErrNotFound
	}

	if !rec.IsLive(r.now()) {
		if _, err := r.store.Delete(ctx, id); err != nil {
			r.logger.Warn("failed to purge expired link",
				zap.String("id", id),
				zap.Error(err),
			)
		}

		return Record{}, ErrNotFound
	}

	return rec, nil
}

// DeleteByID removes the record for an identifier. It returns true only if
// a live entry was removed; a missing or already-expired entry yields
// false with no error. Backend failures are returned as errors.
func (r *Registry) DeleteByID(ctx context.Context, id string) (bool, error) {
	rec, ok, err := r.store.Get(ctx, id)
	if err != nil {
		return false, err
	}

	if !ok {
		return false, nil
	}

	if !rec.IsLive(r.now()) {
		// Expired entries are reported absent, but take the purge.
		if _, err := r.store.Delete(ctx, id); err != nil {
			r.logger.Warn("failed to purge expired link",
				zap.String("id", id),
				zap.Error(err),
			)
		}

		return false, nil
	}

	return r.store.Delete(ctx, id)
}

// Close releases the underlying store. Safe to call more than once; every
// call returns the result of the first.
func (r *Registry) Close() error {
	r.closeOnce.Do(func() {
		r.closeErr = r.store.Close()
	})

	return r.closeErr
}

// Shutdown implements the container's shutdown contract.
func (r *Registry) Shutdown() error {
	return r.Close()
}
