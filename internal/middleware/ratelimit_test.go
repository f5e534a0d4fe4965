package middleware_test

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"mime/multipart"
	"net/url"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/serroba/templink/internal/middleware"
	"github.com/serroba/templink/internal/ratelimit"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

const (
	testHostAddr  = "192.168.1.1:12345"
	testUserAgent = "TestAgent/1.0"
)

var errMultipartNotSupported = errors.New("multipart not supported in mock")

func newTestAPI() huma.API {
	return humachi.New(chi.NewMux(), huma.DefaultConfig("Test", "1.0.0"))
}

type mockLimiter struct {
	allowed bool
	err     error
}

func (m *mockLimiter) Allow(_ context.Context, _ string) (bool, error) {
	return m.allowed, m.err
}

type capturingLimiter struct {
	allowed     bool
	capturedKey *string
}

func (c *capturingLimiter) Allow(_ context.Context, key string) (bool, error) {
	*c.capturedKey = key

	return c.allowed, nil
}

// mockHumaContext implements huma.Context for testing.
type mockHumaContext struct {
	headers    map[string]string
	host       string
	remoteAddr string
	written    []byte
	statusCode int
	method     string
	operation  *huma.Operation
}

func newMockHumaContext() *mockHumaContext {
	return &mockHumaContext{
		headers: make(map[string]string),
		method:  "GET",
	}
}

func (m *mockHumaContext) Operation() *huma.Operation {
	return m.operation
}
func (m *mockHumaContext) Context() context.Context              { return context.Background() }
func (m *mockHumaContext) TLS() *tls.ConnectionState             { return nil }
func (m *mockHumaContext) Method() string                        { return m.method }
func (m *mockHumaContext) Host() string                          { return m.host }
func (m *mockHumaContext) RemoteAddr() string                    { return m.remoteAddr }
func (m *mockHumaContext) URL() url.URL                          { return url.URL{} }
func (m *mockHumaContext) Param(_ string) string                 { return "" }
func (m *mockHumaContext) Query(_ string) string                 { return "" }
func (m *mockHumaContext) Header(name string) string             { return m.headers[name] }
func (m *mockHumaContext) EachHeader(_ func(name, value string)) {}
func (m *mockHumaContext) BodyReader() io.Reader                 { return nil }
func (m *mockHumaContext) GetMultipartForm() (*multipart.Form, error) {
	return nil, errMultipartNotSupported
}
func (m *mockHumaContext) SetReadDeadline(_ time.Time) error { return nil }
func (m *mockHumaContext) SetStatus(code int)                { m.statusCode = code }
func (m *mockHumaContext) Status() int                       { return m.statusCode }
func (m *mockHumaContext) AppendHeader(_, _ string)          {}
func (m *mockHumaContext) SetHeader(_, _ string)             {}
func (m *mockHumaContext) BodyWriter() io.Writer             { return &mockBodyWriter{ctx: m} }

type mockBodyWriter struct {
	ctx *mockHumaContext
}

func (w *mockBodyWriter) Write(p []byte) (n int, err error) {
	w.ctx.written = append(w.ctx.written, p...)

	return len(p), nil
}

func TestRateLimiter(t *testing.T) {
	t.Run("allows request when limiter allows", func(t *testing.T) {
		api := newTestAPI()
		limiter := &mockLimiter{allowed: true}
		mw := middleware.RateLimiter(api, limiter)

		ctx := newMockHumaContext()
		ctx.host = testHostAddr
		ctx.headers["User-Agent"] = testUserAgent

		nextCalled := false

		mw(ctx, func(_ huma.Context) {
			nextCalled = true
		})

		assert.True(t, nextCalled, "next should be called when allowed")
	})

	t.Run("returns 429 when rate limited", func(t *testing.T) {
		api := newTestAPI()
		limiter := &mockLimiter{allowed: false}
		mw := middleware.RateLimiter(api, limiter)

		ctx := newMockHumaContext()
		ctx.host = testHostAddr
		ctx.headers["User-Agent"] = testUserAgent

		nextCalled := false

		mw(ctx, func(_ huma.Context) {
			nextCalled = true
		})

		assert.False(t, nextCalled, "next should not be called when rate limited")
		assert.Equal(t, 429, ctx.statusCode)
		assert.Contains(t, string(ctx.written), "rate limit")
	})

	t.Run("returns 500 when limiter errors", func(t *testing.T) {
		api := newTestAPI()
		limiter := &mockLimiter{allowed: false, err: errors.New("limiter error")}
		mw := middleware.RateLimiter(api, limiter)

		ctx := newMockHumaContext()
		ctx.host = testHostAddr
		ctx.headers["User-Agent"] = testUserAgent

		nextCalled := false

		mw(ctx, func(_ huma.Context) {
			nextCalled = true
		})

		assert.False(t, nextCalled, "next should not be called when limiter errors")
		assert.Equal(t, 500, ctx.statusCode)
	})

	t.Run("uses IP and User-Agent for client key", func(t *testing.T) {
		api := newTestAPI()

		var capturedKey string

		limiter := &capturingLimiter{allowed: true, capturedKey: &capturedKey}
		mw := middleware.RateLimiter(api, limiter)

		ctx1 := newMockHumaContext()
		ctx1.host = testHostAddr
		ctx1.headers["User-Agent"] = testUserAgent

		mw(ctx1, func(_ huma.Context) {})

		key1 := capturedKey

		ctx2 := newMockHumaContext()
		ctx2.host = testHostAddr
		ctx2.headers["User-Agent"] = testUserAgent

		mw(ctx2, func(_ huma.Context) {})

		assert.Equal(t, key1, capturedKey, "same IP and User-Agent should produce same key")

		ctx3 := newMockHumaContext()
		ctx3.host = testHostAddr
		ctx3.headers["User-Agent"] = "DifferentAgent/2.0"

		mw(ctx3, func(_ huma.Context) {})

		assert.NotEqual(t, key1, capturedKey, "different User-Agent should produce different key")
	})

	t.Run("extracts IP from X-Forwarded-For header", func(t *testing.T) {
		api := newTestAPI()

		var capturedKey string

		limiter := &capturingLimiter{allowed: true, capturedKey: &capturedKey}
		mw := middleware.RateLimiter(api, limiter)

		ctx := newMockHumaContext()
		ctx.host = "10.0.0.1:12345"
		ctx.headers["X-Forwarded-For"] = "203.0.113.195, 70.41.3.18, 150.172.238.178"
		ctx.headers["User-Agent"] = testUserAgent

		mw(ctx, func(_ huma.Context) {})

		keyWithXFF := capturedKey

		ctx2 := newMockHumaContext()
		ctx2.host = "10.0.0.2:54321"
		ctx2.headers["X-Forwarded-For"] = "203.0.113.195"
		ctx2.headers["User-Agent"] = testUserAgent

		mw(ctx2, func(_ huma.Context) {})

		assert.Equal(t, keyWithXFF, capturedKey, "should use first IP from X-Forwarded-For")
	})
}

// mockPolicyStore is a mock store for testing PolicyRateLimiter.
type mockPolicyStore struct {
	counts map[string]int64
	err    error
}

func newMockPolicyStore() *mockPolicyStore {
	return &mockPolicyStore{counts: make(map[string]int64)}
}

func (m *mockPolicyStore) Record(_ context.Context, key string, _ time.Duration) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}

	m.counts[key]++

	return m.counts[key], nil
}

// mockScopeResolver is a mock resolver for testing.
type mockScopeResolver struct {
	scopes []ratelimit.Scope
}

func (m *mockScopeResolver) Resolve(_ huma.Context) []ratelimit.Scope {
	return m.scopes
}

func policyWith(scope ratelimit.Scope, maxReqs int64, window time.Duration) *ratelimit.Policy {
	return &ratelimit.Policy{
		Limits: map[ratelimit.Scope][]ratelimit.LimitConfig{
			scope: {{Window: window, Max: maxReqs}},
		},
	}
}

func TestPolicyRateLimiter(t *testing.T) {
	t.Run("allows request when under limit", func(t *testing.T) {
		api := newTestAPI()
		store := newMockPolicyStore()
		limiter := ratelimit.NewPolicyLimiter(store, policyWith(ratelimit.ScopeGlobal, 10, time.Minute))
		resolver := &mockScopeResolver{scopes: []ratelimit.Scope{ratelimit.ScopeGlobal}}

		mw := middleware.PolicyRateLimiter(api, limiter, resolver, zap.NewNop())

		ctx := newMockHumaContext()
		ctx.host = testHostAddr
		ctx.headers["User-Agent"] = testUserAgent

		nextCalled := false

		mw(ctx, func(_ huma.Context) {
			nextCalled = true
		})

		assert.True(t, nextCalled, "next should be called when allowed")
	})

	t.Run("returns 429 when rate limited", func(t *testing.T) {
		api := newTestAPI()
		store := newMockPolicyStore()
		limiter := ratelimit.NewPolicyLimiter(store, policyWith(ratelimit.ScopeGlobal, 1, time.Minute))
		resolver := &mockScopeResolver{scopes: []ratelimit.Scope{ratelimit.ScopeGlobal}}

		mw := middleware.PolicyRateLimiter(api, limiter, resolver, zap.NewNop())

		ctx := newMockHumaContext()
		ctx.host = testHostAddr
		ctx.headers["User-Agent"] = testUserAgent

		mw(ctx, func(_ huma.Context) {})

		ctx2 := newMockHumaContext()
		ctx2.host = testHostAddr
		ctx2.headers["User-Agent"] = testUserAgent

		nextCalled := false

		mw(ctx2, func(_ huma.Context) {
			nextCalled = true
		})

		assert.False(t, nextCalled, "next should not be called when rate limited")
		assert.Equal(t, 429, ctx2.statusCode)
		assert.Contains(t, string(ctx2.written), "rate limit exceeded")
	})

	t.Run("includes limit details in error message", func(t *testing.T) {
		api := newTestAPI()
		store := newMockPolicyStore()
		limiter := ratelimit.NewPolicyLimiter(store, policyWith(ratelimit.ScopeWrite, 1, time.Minute))
		resolver := &mockScopeResolver{scopes: []ratelimit.Scope{ratelimit.ScopeWrite}}

		mw := middleware.PolicyRateLimiter(api, limiter, resolver, zap.NewNop())

		ctx := newMockHumaContext()
		ctx.host = testHostAddr
		ctx.headers["User-Agent"] = testUserAgent

		mw(ctx, func(_ huma.Context) {})

		ctx2 := newMockHumaContext()
		ctx2.host = testHostAddr
		ctx2.headers["User-Agent"] = testUserAgent

		mw(ctx2, func(_ huma.Context) {})

		assert.Contains(t, string(ctx2.written), "write")
		assert.Contains(t, string(ctx2.written), "2/1")
	})

	t.Run("returns 500 on store error", func(t *testing.T) {
		api := newTestAPI()
		store := newMockPolicyStore()
		store.err = errors.New("store error")
		limiter := ratelimit.NewPolicyLimiter(store, policyWith(ratelimit.ScopeGlobal, 10, time.Minute))
		resolver := &mockScopeResolver{scopes: []ratelimit.Scope{ratelimit.ScopeGlobal}}

		mw := middleware.PolicyRateLimiter(api, limiter, resolver, zap.NewNop())

		ctx := newMockHumaContext()
		ctx.host = testHostAddr
		ctx.headers["User-Agent"] = testUserAgent

		nextCalled := false

		mw(ctx, func(_ huma.Context) {
			nextCalled = true
		})

		assert.False(t, nextCalled)
		assert.Equal(t, 500, ctx.statusCode)
	})

	t.Run("skips rate limiting when disabled via metadata", func(t *testing.T) {
		api := newTestAPI()
		store := newMockPolicyStore()
		limiter := ratelimit.NewPolicyLimiter(store, policyWith(ratelimit.ScopeGlobal, 1, time.Minute))
		resolver := &mockScopeResolver{scopes: []ratelimit.Scope{ratelimit.ScopeGlobal}}

		mw := middleware.PolicyRateLimiter(api, limiter, resolver, zap.NewNop())

		operation := &huma.Operation{
			Path: "/test",
			Metadata: map[string]any{
				ratelimit.MetadataKey: ratelimit.EndpointConfig{
					Disabled: true,
				},
			},
		}

		for i := 0; i < 3; i++ {
			ctx := newMockHumaContext()
			ctx.host = testHostAddr
			ctx.headers["User-Agent"] = testUserAgent
			ctx.operation = operation

			nextCalled := false

			mw(ctx, func(_ huma.Context) {
				nextCalled = true
			})

			assert.True(t, nextCalled, "request %d should bypass rate limiting", i+1)
		}
	})

	t.Run("applies custom limits from metadata", func(t *testing.T) {
		api := newTestAPI()
		store := newMockPolicyStore()
		limiter := ratelimit.NewPolicyLimiter(store, policyWith(ratelimit.ScopeGlobal, 100, time.Minute))
		resolver := &mockScopeResolver{scopes: []ratelimit.Scope{ratelimit.ScopeGlobal}}

		mw := middleware.PolicyRateLimiter(api, limiter, resolver, zap.NewNop())

		operation := &huma.Operation{
			Path: "/custom",
			Metadata: map[string]any{
				ratelimit.MetadataKey: ratelimit.EndpointConfig{
					Limits: []ratelimit.LimitConfig{
						{Window: time.Minute, Max: 2},
					},
				},
			},
		}

		for i := 0; i < 2; i++ {
			ctx := newMockHumaContext()
			ctx.host = testHostAddr
			ctx.headers["User-Agent"] = testUserAgent
			ctx.operation = operation

			nextCalled := false

			mw(ctx, func(_ huma.Context) {
				nextCalled = true
			})

			assert.True(t, nextCalled, "request %d should be allowed", i+1)
		}

		ctx := newMockHumaContext()
		ctx.host = testHostAddr
		ctx.headers["User-Agent"] = testUserAgent
		ctx.operation = operation

		nextCalled := false

		mw(ctx, func(_ huma.Context) {
			nextCalled = true
		})

		assert.False(t, nextCalled, "third request should be denied by custom limit")
		assert.Equal(t, 429, ctx.statusCode)
	})

	t.Run("custom limits store error returns 500", func(t *testing.T) {
		api := newTestAPI()
		store := newMockPolicyStore()
		store.err = errors.New("store error")
		limiter := ratelimit.NewPolicyLimiter(store, &ratelimit.Policy{Limits: map[ratelimit.Scope][]ratelimit.LimitConfig{}})
		resolver := &mockScopeResolver{scopes: []ratelimit.Scope{}}

		mw := middleware.PolicyRateLimiter(api, limiter, resolver, zap.NewNop())

		ctx := newMockHumaContext()
		ctx.host = testHostAddr
		ctx.headers["User-Agent"] = testUserAgent
		ctx.operation = &huma.Operation{
			Path: "/custom-error",
			Metadata: map[string]any{
				ratelimit.MetadataKey: ratelimit.EndpointConfig{
					Limits: []ratelimit.LimitConfig{
						{Window: time.Minute, Max: 10},
					},
				},
			},
		}

		nextCalled := false

		mw(ctx, func(_ huma.Context) {
			nextCalled = true
		})

		assert.False(t, nextCalled)
		assert.Equal(t, 500, ctx.statusCode)
	})
}
