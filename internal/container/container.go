package container

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	_ "github.com/danielgtaylor/huma/v2/formats/cbor" // CBOR format support for huma
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"github.com/serroba/templink/internal/analytics"
	"github.com/serroba/templink/internal/handlers"
	"github.com/serroba/templink/internal/health"
	"github.com/serroba/templink/internal/link"
	"github.com/serroba/templink/internal/messaging"
	"github.com/serroba/templink/internal/middleware"
	"github.com/serroba/templink/internal/ratelimit"
	"github.com/serroba/templink/internal/store"
	"go.uber.org/zap"
)

// Options holds the service configuration, populated from flags and environment.
type Options struct {
	Port         int    `default:"8888"                  help:"Port to listen on"                               short:"p"`
	PublicDomain string `default:"localhost:8888"        help:"Domain used to build public short links"         short:"d"`
	IDLength     int    `default:"8"                     help:"Length of generated link ids"                    short:"l"`
	Backend      string `default:"memory"                help:"Link storage backend (memory, redis, postgres)"  short:"b"`
	RedisAddr    string `default:"localhost:6379"        help:"Redis server address"                            short:"r"`
	PostgresDSN  string `default:""                      help:"Postgres connection string (postgres backend)"`
	LogFormat    string `default:"console"               help:"Log output format (console, json)"`
}

// analyticsRetention bounds how long raw visit events are archived.
const analyticsRetention = 30 * 24 * time.Hour

// LoggerPackage provides the application logger.
func LoggerPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*zap.Logger, error) {
		options := do.MustInvoke[*Options](i)

		if options.LogFormat == "json" {
			return zap.NewProduction()
		}

		return zap.NewDevelopment()
	})
}

// RedisPackage provides the shared Redis client.
func RedisPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*redis.Client, error) {
		options := do.MustInvoke[*Options](i)

		return redis.NewClient(&redis.Options{
			Addr: options.RedisAddr,
		}), nil
	})
}

// PostgresPackage provides the Postgres connection pool. The pool is only
// created when a consumer invokes it, so non-postgres backends never dial.
func PostgresPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*pgxpool.Pool, error) {
		options := do.MustInvoke[*Options](i)

		if options.PostgresDSN == "" {
			return nil, fmt.Errorf("postgres backend selected but no connection string configured")
		}

		return pgxpool.New(context.Background(), options.PostgresDSN)
	})
}

// RegistryPackage provides the link store for the configured backend and the
// registry on top of it.
func RegistryPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (link.Store, error) {
		options := do.MustInvoke[*Options](i)

		switch options.Backend {
		case "memory":
			return store.NewMemoryStore(), nil
		case "redis":
			return store.NewRedisStore(do.MustInvoke[*redis.Client](i)), nil
		case "postgres":
			pool, err := do.Invoke[*pgxpool.Pool](i)
			if err != nil {
				return nil, err
			}

			pg := store.NewPostgresStore(pool)

			// Redis fronts Postgres as a read-through cache
			return store.NewCachedStore(pg, do.MustInvoke[*redis.Client](i)), nil
		default:
			return nil, fmt.Errorf("unknown storage backend %q", options.Backend)
		}
	})

	do.Provide(injector, func(i *do.Injector) (*link.Registry, error) {
		options := do.MustInvoke[*Options](i)

		generate, err := link.NewGenerator(options.IDLength)
		if err != nil {
			return nil, err
		}

		linkStore := do.MustInvoke[link.Store](i)
		logger := do.MustInvoke[*zap.Logger](i)

		return link.NewRegistry(linkStore, generate, logger), nil
	})
}

// RateLimitPackage provides the policy limiter and scope resolver.
func RateLimitPackage(injector *do.Injector) {
	do.Provide(injector, func(_ *do.Injector) (ratelimit.Store, error) {
		return store.NewRateLimitMemoryStore(), nil
	})

	do.Provide(injector, func(i *do.Injector) (*ratelimit.PolicyLimiter, error) {
		rlStore := do.MustInvoke[ratelimit.Store](i)

		return ratelimit.NewPolicyLimiter(rlStore, ratelimit.DefaultPolicy()), nil
	})

	do.Provide(injector, func(_ *do.Injector) (ratelimit.ScopeResolver, error) {
		return ratelimit.NewOperationScopeResolver(), nil
	})
}

// PublisherGroupPackage provides the event publisher and the typed publish
// functions used by the HTTP handlers.
func PublisherGroupPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*messaging.PublisherGroup, error) {
		client := do.MustInvoke[*redis.Client](i)

		publisher, err := redisstream.NewPublisher(redisstream.PublisherConfig{
			Client: client,
		}, watermill.NewStdLogger(false, false))
		if err != nil {
			return nil, err
		}

		return messaging.NewPublisherGroup(publisher), nil
	})

	do.Provide(injector, func(i *do.Injector) (messaging.Publish[analytics.LinkCreatedEvent], error) {
		return providePublish[analytics.LinkCreatedEvent](i, analytics.TopicLinkCreated)
	})

	do.Provide(injector, func(i *do.Injector) (messaging.Publish[analytics.LinkVisitedEvent], error) {
		return providePublish[analytics.LinkVisitedEvent](i, analytics.TopicLinkVisited)
	})
}

// providePublish builds a typed publish function for the topic. The memory
// backend runs without Redis, so its events are dropped instead of failing
// every request with a publish error.
func providePublish[T any](i *do.Injector, topic string) (messaging.Publish[T], error) {
	options := do.MustInvoke[*Options](i)

	if options.Backend == "memory" {
		return func(_ *T) error { return nil }, nil
	}

	group := do.MustInvoke[*messaging.PublisherGroup](i)

	return messaging.NewPublishFunc[T](group.Publisher(), topic), nil
}

// ConsumerGroupPackage provides the analytics consumer group for the worker binary.
func ConsumerGroupPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*messaging.ConsumerGroup, error) {
		client := do.MustInvoke[*redis.Client](i)
		logger := do.MustInvoke[*zap.Logger](i)

		subscriber, err := redisstream.NewSubscriber(redisstream.SubscriberConfig{
			Client:        client,
			ConsumerGroup: "analytics",
		}, watermill.NewStdLogger(false, false))
		if err != nil {
			return nil, err
		}

		analyticsStore := analytics.NewRedisStore(client, analyticsRetention)

		return analytics.NewConsumerGroup(subscriber, analyticsStore, logger), nil
	})
}

// HTTPPackage provides the router and the API with all middleware and routes registered.
func HTTPPackage(injector *do.Injector) {
	do.Provide(injector, func(_ *do.Injector) (*chi.Mux, error) {
		return chi.NewMux(), nil
	})

	do.Provide(injector, func(i *do.Injector) (huma.API, error) {
		options := do.MustInvoke[*Options](i)
		router := do.MustInvoke[*chi.Mux](i)
		logger := do.MustInvoke[*zap.Logger](i)
		registry := do.MustInvoke[*link.Registry](i)
		limiter := do.MustInvoke[*ratelimit.PolicyLimiter](i)
		resolver := do.MustInvoke[ratelimit.ScopeResolver](i)
		publishCreated := do.MustInvoke[messaging.Publish[analytics.LinkCreatedEvent]](i)
		publishVisited := do.MustInvoke[messaging.Publish[analytics.LinkVisitedEvent]](i)

		api := humachi.New(router, huma.DefaultConfig("Temp Link Service", "1.0.0"))
		api.UseMiddleware(middleware.RequestMeta(api))
		api.UseMiddleware(middleware.PolicyRateLimiter(api, limiter, resolver, logger))

		linkHandler := handlers.NewLinkHandler(registry, options.PublicDomain, publishCreated, publishVisited, logger)
		handlers.RegisterRoutes(api, linkHandler)

		checks := map[string]health.Checker{}
		if options.Backend != "memory" {
			checks["redis"] = health.NewRedisChecker(do.MustInvoke[*redis.Client](i))
		}

		health.RegisterRoutes(api, health.NewHandler(checks))

		return api, nil
	})
}
