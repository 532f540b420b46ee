package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/utafrali/wholesale-storefront/internal/auth"
	"github.com/utafrali/wholesale-storefront/internal/catalog"
	"github.com/utafrali/wholesale-storefront/internal/config"
	"github.com/utafrali/wholesale-storefront/internal/event"
	handler "github.com/utafrali/wholesale-storefront/internal/handler/http"
	"github.com/utafrali/wholesale-storefront/internal/repository"
	"github.com/utafrali/wholesale-storefront/internal/repository/postgres"
	redisrepo "github.com/utafrali/wholesale-storefront/internal/repository/redis"
	"github.com/utafrali/wholesale-storefront/internal/service"
	"github.com/utafrali/wholesale-storefront/internal/session"
	"github.com/utafrali/wholesale-storefront/pkg/database"
	"github.com/utafrali/wholesale-storefront/pkg/health"
	"github.com/utafrali/wholesale-storefront/pkg/httpclient"
	pkgkafka "github.com/utafrali/wholesale-storefront/pkg/kafka"
	"github.com/utafrali/wholesale-storefront/pkg/tracing"
)

const (
	serviceName    = "storefront"
	serviceVersion = "0.1.0"
)

// App wires together all dependencies and runs the storefront server.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	rdb            *redis.Client
	pool           *pgxpool.Pool
	producer       *pkgkafka.Producer
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    serviceName,
		ServiceVersion: serviceVersion,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}
	a.tracerShutdown = tracerShutdown

	// Cart storage.
	rdb, err := database.NewRedisClient(ctx, cfg.RedisConfig())
	if err != nil {
		a.closeResources()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	a.rdb = rdb
	logger.Info("connected to Redis",
		slog.String("addr", cfg.RedisAddr),
		slog.Int("db", cfg.RedisDB),
	)

	// Event publishing. Without brokers events are discarded.
	var publisher pkgkafka.Publisher = pkgkafka.NopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		publisher = a.producer
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	} else {
		logger.Info("no kafka brokers configured, storefront events disabled")
	}
	events := event.NewProducer(publisher, cfg.CartNamespace, logger)

	// Receipt journal.
	var receipts repository.ReceiptRepository
	if cfg.ReceiptsEnabled {
		pgCfg := cfg.PostgresConfig()
		pool, err := database.NewPostgresPoolWithLogger(ctx, &pgCfg, logger)
		if err != nil {
			a.closeResources()
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		a.pool = pool
		logger.Info("connected to PostgreSQL",
			slog.String("host", cfg.PostgresHost),
			slog.Int("port", cfg.PostgresPort),
			slog.String("database", cfg.PostgresDB),
		)
		if err := database.RegisterPoolMetrics(pool, serviceName); err != nil {
			logger.Warn("failed to register pool metrics", slog.String("error", err.Error()))
		}
		database.SetSlowQueryLogging(cfg.SlowQueryThreshold, logger)

		if err := database.RunMigrations(ctx, pool, postgres.Migrations(), logger); err != nil {
			a.closeResources()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		logger.Info("database migrations completed")
		receipts = postgres.NewReceiptRepository(pool)
	}

	// Wholesale API clients. Reads retry; order creation never does.
	readCfg := httpclient.DefaultConfig()
	readCfg.Timeout = cfg.APITimeout
	readCfg.MaxRetries = cfg.APIMaxRetries
	reads := httpclient.NewCircuitBreakerClient(
		httpclient.New(readCfg),
		httpclient.DefaultCircuitBreakerConfig("wholesale-api"),
		logger,
	)

	orderCfg := httpclient.DefaultConfig()
	orderCfg.Timeout = cfg.OrderSubmitTimeout
	orderCfg.MaxRetries = 0
	orders := httpclient.NewCircuitBreakerClient(
		httpclient.New(orderCfg),
		httpclient.DefaultCircuitBreakerConfig("wholesale-orders"),
		logger,
	)

	tokens := auth.Chain(auth.ContextProvider{}, auth.Static(cfg.StaticToken))
	client := catalog.NewClient(cfg.APIBase(), reads, orders, tokens, logger)

	// Build the dependency graph.
	store := redisrepo.NewCartStore(rdb, cfg.CartNamespace, cfg.CartTTL, logger)
	cart := session.NewCartState(store, events, logger)
	loaded := cart.Sync(ctx)
	logger.Info("cart loaded", slog.Int("lines", loaded.Len()))

	opts := []service.SubmitterOption{service.WithOrderEvents(events)}
	if receipts != nil {
		opts = append(opts, service.WithReceipts(receipts))
	}
	submitter := service.NewOrderSubmitter(
		service.SubmitterConfig{
			WholesellerID: cfg.WholesellerID,
			ResellerID:    cfg.ResellerID,
			Timeout:       cfg.OrderSubmitTimeout,
		},
		store, cart, client, tokens, logger, opts...,
	)
	storefront := service.NewStorefrontService(client, cart, submitter, receipts, logger)

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical("redis", func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	})
	if a.pool != nil {
		pool := a.pool
		healthHandler.RegisterNonCritical("postgres", func(ctx context.Context) error {
			return pool.Ping(ctx)
		})
	}
	if a.producer != nil {
		producer := a.producer
		healthHandler.RegisterNonCritical("kafka", func(ctx context.Context) error {
			return producer.Ping(ctx)
		})
	}

	// HTTP router.
	router := handler.NewRouter(storefront, healthHandler, logger, handler.RouterConfig{
		Environment:    cfg.Environment,
		AllowedOrigins: cfg.AllowedOrigins,
		RequestTimeout: cfg.RequestTimeout,
	})

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		a.closeResources()
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components in order: the HTTP server drains
// in-flight requests, pending spans are flushed, then the Kafka producer,
// the PostgreSQL pool and the Redis client are closed.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if err := a.closeResources(); err != nil {
		errs = append(errs, err)
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

// closeResources releases everything NewApp opened. It is safe to call on a
// partially built App.
func (a *App) closeResources() error {
	var errs []error

	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
		a.tracerShutdown = nil
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
		a.producer = nil
	}

	if a.pool != nil {
		a.pool.Close()
		a.pool = nil
	}

	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
		a.rdb = nil
	}

	return errors.Join(errs...)
}
