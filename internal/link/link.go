package link

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound is returned when no live record exists for an identifier.
	ErrNotFound = errors.New("link not found")

	// ErrValidation is the base error for all creation-time validation failures.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidDestination rejects destinations that are not absolute http(s) URLs.
	ErrInvalidDestination = fmt.Errorf("%w: destination must be an absolute http or https url", ErrValidation)

	// ErrInvalidTTL rejects zero or negative expiration times.
	ErrInvalidTTL = fmt.Errorf("%w: expiration time must be positive", ErrValidation)

	// ErrGenerationExhausted is returned when the collision-retry budget runs out,
	// indicating a saturated identifier space or a degenerate generator.
	ErrGenerationExhausted = errors.New("identifier generation exhausted")
)

// Record describes one destination URL and its validity window.
// Records are immutable values: once created they are only read or deleted,
// never updated. A record does not know its own identifier; identifiers
// live in the Registry's mapping.
type Record struct {
	Destination string
	CreatedAt   time.Time
	TTL         time.Duration
}

// ExpiresAt returns the instant at which the record stops being served.
func (r Record) ExpiresAt() time.Time {
	return r.CreatedAt.Add(r.TTL)
}

// IsLive reports whether the record is still valid at the given instant.
// A record in storage with IsLive == false is semantically dead and must
// never be returned to a caller.
func (r Record) IsLive(now time.Time) bool {
	return now.Before(r.ExpiresAt())
}
