package link

import (
	"fmt"
	"net/url"
	"time"
)

// ParseDestination validates that raw is an absolute http or https URL and
// returns it in parsed-and-reserialized form. The HTTP layer validates
// request bodies before calling the registry, but the registry re-checks
// so the invariant holds for direct callers too.
func ParseDestination(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidDestination, raw)
	}

	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidDestination, raw)
	}

	return u.String(), nil
}

// ValidateTTL checks the caller-requested expiration time.
func ValidateTTL(ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("%w: got %s", ErrInvalidTTL, ttl)
	}

	return nil
}
