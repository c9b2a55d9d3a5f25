package container

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	_ "github.com/danielgtaylor/huma/v2/formats/cbor" // CBOR format support for huma
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"github.com/serroba/shorturl-service/internal/analytics"
	analyticsstore "github.com/serroba/shorturl-service/internal/analytics/store"
	"github.com/serroba/shorturl-service/internal/handlers"
	"github.com/serroba/shorturl-service/internal/health"
	"github.com/serroba/shorturl-service/internal/logship"
	"github.com/serroba/shorturl-service/internal/messaging"
	"github.com/serroba/shorturl-service/internal/middleware"
	"github.com/serroba/shorturl-service/internal/ratelimit"
	"github.com/serroba/shorturl-service/internal/shortener"
	"github.com/serroba/shorturl-service/internal/store"
	"go.uber.org/zap"
)

const (
	connectTimeout   = 5 * time.Second
	collectorTimeout = 5 * time.Second

	// forwardAttempts bounds redelivery of a streamed log entry the collector keeps refusing.
	forwardAttempts = 5
)

// RedisClient owns the shared Redis connection pool.
type RedisClient struct {
	*redis.Client
}

// Shutdown closes the pool.
func (c *RedisClient) Shutdown() error {
	return c.Close()
}

// PostgresPool owns the shared PostgreSQL connection pool.
type PostgresPool struct {
	*pgxpool.Pool
}

// Shutdown closes the pool.
func (p *PostgresPool) Shutdown() error {
	p.Close()

	return nil
}

// LoggerPackage provides the local zap logger.
func LoggerPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*zap.Logger, error) {
		opts := do.MustInvoke[*Options](i)

		if opts.LogFormat == LogFormatConsole {
			return zap.NewDevelopment()
		}

		return zap.NewProduction()
	})
}

// RedisPackage provides the Redis client. Provisioning pings the server and
// fails when it is unreachable within connectTimeout.
func RedisPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*RedisClient, error) {
		opts := do.MustInvoke[*Options](i)

		client := redis.NewClient(&redis.Options{Addr: opts.RedisAddr})

		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()

		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()

			return nil, fmt.Errorf("connect to redis at %s: %w", opts.RedisAddr, err)
		}

		return &RedisClient{Client: client}, nil
	})
}

// PostgresPackage provides the PostgreSQL pool.
func PostgresPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*PostgresPool, error) {
		opts := do.MustInvoke[*Options](i)

		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()

		pool, err := pgxpool.New(ctx, opts.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}

		if err := pool.Ping(ctx); err != nil {
			pool.Close()

			return nil, fmt.Errorf("connect to postgres: %w", err)
		}

		return &PostgresPool{Pool: pool}, nil
	})
}

// RepositoryPackage provides the record store selected by Options.Store
// together with the health checks of the dependencies it uses. The outcome
// of connecting is reported to the remote logger.
func RepositoryPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (shortener.Repository, error) {
		opts := do.MustInvoke[*Options](i)
		remote := do.MustInvoke[logship.Logger](i)

		repo, err := newRepository(i, opts)
		if err != nil {
			remote.Log(logship.StackBackend, logship.LevelFatal, logship.PackageDB,
				fmt.Sprintf("%s store connection failed", opts.Store))

			return nil, err
		}

		remote.Log(logship.StackBackend, logship.LevelInfo, logship.PackageDB,
			fmt.Sprintf("%s store connected successfully", opts.Store))

		return repo, nil
	})

	do.Provide(injector, func(i *do.Injector) (*health.Handler, error) {
		opts := do.MustInvoke[*Options](i)
		repo := do.MustInvoke[shortener.Repository](i)

		checks := map[string]health.Checker{}
		if checker, ok := repo.(health.Checker); ok {
			checks["store"] = checker
		}

		if opts.Store == StorePostgres {
			checks["postgres"] = health.NewPostgresChecker(do.MustInvoke[*PostgresPool](i).Pool)
		}

		if opts.Store != StoreMemory || opts.UsesRedisStreams() {
			checks["redis"] = redisChecker(i)
		}

		return health.NewHandler(checks), nil
	})
}

// redisChecker reports the connection error itself when Redis never came up.
func redisChecker(i *do.Injector) health.Checker {
	client, err := do.Invoke[*RedisClient](i)
	if err != nil {
		return health.CheckerFunc(func(context.Context) error { return err })
	}

	return health.NewRedisChecker(client.Client)
}

func newRepository(i *do.Injector, opts *Options) (shortener.Repository, error) {
	switch opts.Store {
	case StoreRedis:
		client, err := do.Invoke[*RedisClient](i)
		if err != nil {
			return nil, err
		}

		return store.NewRedisStore(client.Client), nil
	case StorePostgres:
		pool, err := do.Invoke[*PostgresPool](i)
		if err != nil {
			return nil, err
		}

		pgStore := store.NewPostgresStore(pool.Pool)

		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()

		if err := pgStore.Migrate(ctx); err != nil {
			return nil, err
		}

		ttl := opts.CacheTTL()
		if ttl <= 0 {
			return pgStore, nil
		}

		client, err := do.Invoke[*RedisClient](i)
		if err != nil {
			return nil, err
		}

		return store.NewRedisCacheRepository(pgStore, client.Client, ttl, do.MustInvoke[*zap.Logger](i)), nil
	default:
		return store.NewMemoryStore(), nil
	}
}

// ServicePackage provides the short URL lifecycle service.
func ServicePackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*shortener.Service, error) {
		opts := do.MustInvoke[*Options](i)
		repo := do.MustInvoke[shortener.Repository](i)

		generator, err := shortener.NewCodeGenerator(opts.CodeLength)
		if err != nil {
			return nil, err
		}

		return shortener.NewService(
			repo,
			shortener.NewResolver(repo, generator, opts.MaxGenerateAttempts),
			shortener.WithObserver(logship.NewServiceObserver(do.MustInvoke[logship.Logger](i))),
			shortener.WithDefaultValidity(opts.DefaultValidity),
		), nil
	})
}

// RateLimitPackage provides the policy limiter. Counters live in Redis unless
// records are kept in memory.
func RateLimitPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*ratelimit.PolicyLimiter, error) {
		opts := do.MustInvoke[*Options](i)

		var limitStore ratelimit.Store = store.NewRateLimitMemoryStore()
		if opts.Store != StoreMemory {
			limitStore = store.NewRateLimitRedisStore(do.MustInvoke[*RedisClient](i).Client)
		}

		return ratelimit.NewPolicyLimiter(limitStore, ratelimit.DefaultPolicy()), nil
	})
}

// PublisherGroupPackage provides the event publisher and the typed analytics
// publish functions. Without Redis Streams messages go to an in-process
// channel that nothing subscribes to.
func PublisherGroupPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*messaging.PublisherGroup, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		if !opts.UsesRedisStreams() {
			return messaging.NewPublisherGroup(
				gochannel.NewGoChannel(gochannel.Config{}, messaging.NewZapLoggerAdapter(logger)),
			), nil
		}

		publisher, err := messaging.NewRedisStreamPublisher(do.MustInvoke[*RedisClient](i).Client, logger)
		if err != nil {
			return nil, err
		}

		return messaging.NewPublisherGroup(publisher), nil
	})

	do.Provide(injector, func(i *do.Injector) (messaging.Publish[analytics.URLCreatedEvent], error) {
		if !do.MustInvoke[*Options](i).Events {
			return messaging.Discard[analytics.URLCreatedEvent](), nil
		}

		publisher := do.MustInvoke[*messaging.PublisherGroup](i).Publisher()

		return messaging.NewPublishFunc[analytics.URLCreatedEvent](publisher, analytics.TopicURLCreated), nil
	})

	do.Provide(injector, func(i *do.Injector) (messaging.Publish[analytics.URLAccessedEvent], error) {
		if !do.MustInvoke[*Options](i).Events {
			return messaging.Discard[analytics.URLAccessedEvent](), nil
		}

		publisher := do.MustInvoke[*messaging.PublisherGroup](i).Publisher()

		return messaging.NewPublishFunc[analytics.URLAccessedEvent](publisher, analytics.TopicURLAccessed), nil
	})
}

// LogShipPackage provides the remote logger. The shipper is started on
// provision and drained on injector shutdown.
func LogShipPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*logship.Shipper, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		var sink logship.Sink

		switch opts.LogTransport {
		case LogTransportDirect:
			if opts.LogURL != "" {
				sink = logship.NewCollectorSink(opts.LogURL, opts.LogToken, &http.Client{Timeout: collectorTimeout})
			}
		case LogTransportStream:
			publisher := do.MustInvoke[*messaging.PublisherGroup](i).Publisher()
			sink = logship.NewStreamSink(messaging.NewPublishFunc[logship.Entry](publisher, logship.TopicLogEntries))
		}

		shipper := logship.NewShipper(sink, opts.LogBuffer, logger)
		if err := shipper.Start(context.Background()); err != nil {
			return nil, err
		}

		return shipper, nil
	})

	do.Provide(injector, func(i *do.Injector) (logship.Logger, error) {
		return do.MustInvoke[*logship.Shipper](i), nil
	})
}

// HTTPPackage provides the router and the huma API with every route registered.
func HTTPPackage(injector *do.Injector) {
	do.Provide(injector, func(_ *do.Injector) (*chi.Mux, error) {
		return chi.NewMux(), nil
	})

	do.Provide(injector, func(i *do.Injector) (huma.API, error) {
		opts := do.MustInvoke[*Options](i)
		router := do.MustInvoke[*chi.Mux](i)
		logger := do.MustInvoke[*zap.Logger](i)
		remote := do.MustInvoke[logship.Logger](i)

		router.NotFound(notFoundHandler(remote))

		api := humachi.New(router, huma.DefaultConfig("URL Shortener", "1.0.0"))
		api.UseMiddleware(middleware.RequestMeta(api))
		api.UseMiddleware(middleware.RequestLogger(remote))

		if opts.RateLimit {
			api.UseMiddleware(middleware.PolicyRateLimiter(
				api,
				do.MustInvoke[*ratelimit.PolicyLimiter](i),
				ratelimit.NewOperationScopeResolver(),
				logger,
			))
		}

		urlHandler := handlers.NewURLHandler(
			do.MustInvoke[*shortener.Service](i),
			opts.ShortLinkBase(),
			do.MustInvoke[messaging.Publish[analytics.URLCreatedEvent]](i),
			do.MustInvoke[messaging.Publish[analytics.URLAccessedEvent]](i),
			logger,
		)

		handlers.RegisterRoutes(api, urlHandler)
		health.RegisterRoutes(api, do.MustInvoke[*health.Handler](i))

		return api, nil
	})
}

// ConsumerGroupPackage provides the consumers of the consumer process:
// analytics events go to the analytics store and streamed log entries to
// the remote collector.
func ConsumerGroupPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (message.Subscriber, error) {
		opts := do.MustInvoke[*Options](i)

		return messaging.NewRedisStreamSubscriber(
			do.MustInvoke[*RedisClient](i).Client, opts.ConsumerGroup, do.MustInvoke[*zap.Logger](i),
		)
	})

	do.Provide(injector, func(i *do.Injector) (analytics.Store, error) {
		return analyticsstore.NewNoop(do.MustInvoke[*zap.Logger](i)), nil
	})

	do.Provide(injector, func(i *do.Injector) (*messaging.ConsumerGroup, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)
		subscriber := do.MustInvoke[message.Subscriber](i)
		analyticsStore := do.MustInvoke[analytics.Store](i)

		group := messaging.NewConsumerGroup(subscriber, logger)
		group.Add(messaging.NewConsumer(subscriber, analytics.TopicURLCreated,
			messaging.Handler[analytics.URLCreatedEvent](analyticsStore.SaveURLCreated), logger))
		group.Add(messaging.NewConsumer(subscriber, analytics.TopicURLAccessed,
			messaging.Handler[analytics.URLAccessedEvent](analyticsStore.SaveURLAccessed), logger))

		if opts.LogURL != "" {
			collector := logship.NewCollectorSink(opts.LogURL, opts.LogToken, &http.Client{Timeout: collectorTimeout})
			group.Add(messaging.NewConsumer(subscriber, logship.TopicLogEntries,
				logship.Forward(collector, logger), logger, messaging.WithMaxAttempts(forwardAttempts)))
		}

		return group, nil
	})
}

func notFoundHandler(remote logship.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		remote.Log(logship.StackBackend, logship.LevelWarn, logship.PackageRoute, "Route not found")

		w.Header().Set("Content-Type", "application/problem+json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"title":"Not Found","status":404,"detail":"route not found"}`))
	}
}
