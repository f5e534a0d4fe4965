package ratelimit

import "time"

// LimitConfig is a single rate limit: at most Max requests per Window.
type LimitConfig struct {
	Window time.Duration
	Max    int64
}

// Policy maps scopes to the limits enforced for them.
type Policy struct {
	Limits map[Scope][]LimitConfig
}

// DefaultPolicy returns the service defaults: link creation is write-heavy
// and strict, redirects are read-heavy and relaxed.
func DefaultPolicy() *Policy {
	return &Policy{
		Limits: map[Scope][]LimitConfig{
			ScopeGlobal: {
				{Window: time.Minute, Max: 2000},
			},
			ScopeRead: {
				{Window: time.Minute, Max: 1000},
			},
			ScopeWrite: {
				{Window: time.Minute, Max: 30},
				{Window: time.Hour, Max: 300},
			},
		},
	}
}
