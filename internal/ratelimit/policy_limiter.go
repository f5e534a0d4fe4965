package ratelimit

import (
	"context"
	"fmt"
)

// LimitExceeded names the limit that denied a request.
type LimitExceeded struct {
	Scope  Scope
	Config LimitConfig
	Count  int64
}

// PolicyLimiter checks a request against every limit its scopes carry in
// the policy. A request passes only when all applicable limits pass.
type PolicyLimiter struct {
	store  Store
	policy *Policy
}

// NewPolicyLimiter creates a limiter enforcing the given policy.
func NewPolicyLimiter(store Store, policy *Policy) *PolicyLimiter {
	return &PolicyLimiter{
		store:  store,
		policy: policy,
	}
}

// Allow records the request under every applicable scope/window pair and
// reports whether all limits held. On denial the returned LimitExceeded
// identifies the limit that was hit; it is nil when allowed. Scopes the
// policy does not mention are unconstrained.
func (l *PolicyLimiter) Allow(ctx context.Context, clientKey string, scopes []Scope) (bool, *LimitExceeded, error) {
	for _, scope := range scopes {
		limits, ok := l.policy.Limits[scope]
		if !ok {
			continue
		}

		for _, limit := range limits {
			key := l.buildKey(clientKey, scope, limit)

			count, err := l.store.Record(ctx, key, limit.Window)
			if err != nil {
				return false, nil, err
			}

			if count > limit.Max {
				return false, &LimitExceeded{
					Scope:  scope,
					Config: limit,
					Count:  count,
				}, nil
			}
		}
	}

	return true, nil, nil
}

// buildKey scopes the counter to the client, the scope, and the window
// length, so every configured limit is tracked independently.
func (l *PolicyLimiter) buildKey(clientKey string, scope Scope, limit LimitConfig) string {
	return fmt.Sprintf("%s:%s:%d", clientKey, scope, limit.Window.Milliseconds())
}

// Store exposes the underlying counter store for custom per-endpoint limits.
func (l *PolicyLimiter) Store() Store {
	return l.store
}
