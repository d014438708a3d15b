package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pressly/goose/v3"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver for goose

	platformhealth "github.com/riseup/payments/platform/health/http"
	platformkafka "github.com/riseup/payments/platform/kafka"
	platformlogging "github.com/riseup/payments/platform/logging"
	platformobservability "github.com/riseup/payments/platform/observability"
	platformshutdown "github.com/riseup/payments/platform/shutdown"
	httpapi "github.com/riseup/payments/services/checkout/internal/api/http"
	gatewayclient "github.com/riseup/payments/services/checkout/internal/client/gateway"
	"github.com/riseup/payments/services/checkout/internal/config"
	kafkaevent "github.com/riseup/payments/services/checkout/internal/event/kafka"
	"github.com/riseup/payments/services/checkout/internal/repository"
	"github.com/riseup/payments/services/checkout/internal/repository/memory"
	"github.com/riseup/payments/services/checkout/internal/repository/postgres"
	redisrepo "github.com/riseup/payments/services/checkout/internal/repository/redis"
	"github.com/riseup/payments/services/checkout/internal/service"
	"github.com/riseup/payments/services/checkout/migrations"
)

// App holds everything needed to run and gracefully stop the checkout service
type App struct {
	logger      *zap.Logger
	httpServer  *http.Server
	shutdownMgr *platformshutdown.Manager
	consumer    *kafkaevent.ConfirmationConsumer
	consumerCtx context.Context
	wg          sync.WaitGroup
}

// Build wires the checkout service dependencies.
// Resources created before a failure are released through the shutdown manager.
func Build(cfg config.Config) (*App, error) {
	const op = "app.Build"

	logger, err := platformlogging.New(platformlogging.FromEnv("checkout", string(cfg.AppEnv)))
	if err != nil {
		return nil, err
	}
	cfg.Log(logger)

	logger = logger.With(zap.String("op", op))
	logger.Info("Building checkout service", zap.String("http_addr", cfg.HTTPAddr))

	shutdownMgr := platformshutdown.New(cfg.ShutdownTimeout, logger)
	fail := func(err error) (*App, error) {
		shutdownMgr.Shutdown()
		return nil, err
	}

	otelShutdown, err := platformobservability.Init(context.Background(), platformobservability.Config{
		Enabled:               cfg.OTelEnabled,
		OTLPEndpoint:          cfg.OTelEndpoint,
		SamplingRatio:         cfg.OTelSamplingRatio,
		ServiceName:           "checkout",
		DeploymentEnvironment: string(cfg.AppEnv),
	})
	if err != nil {
		return fail(err)
	}
	shutdownMgr.Add("otel", otelShutdown)

	st, err := buildStore(cfg, logger, shutdownMgr)
	if err != nil {
		return fail(err)
	}

	app := &App{
		logger:      logger,
		shutdownMgr: shutdownMgr,
	}

	var publisher service.PaymentEventPublisher = kafkaevent.NewNoopPublisher(logger)
	if cfg.Kafka.Enabled {
		logger.Info("Kafka enabled", zap.Strings("brokers", cfg.Kafka.Brokers))

		eventsWriter := platformkafka.NewWriter(cfg.Kafka, cfg.EventsTopic)
		shutdownMgr.Add("kafka_events_writer", platformshutdown.Close(eventsWriter))
		publisher = kafkaevent.NewPaymentEventPublisher(logger, eventsWriter, cfg.EventsTopic)
	}

	svc := service.NewService(logger, st.repo,
		gatewayclient.NewClient(logger, cfg.GatewayURL, cfg.GatewayTimeout),
		publisher,
		service.WithUpstreamTimeout(cfg.GatewayTimeout),
		service.WithMetrics(newMetricsRecorder()),
	)

	if cfg.Kafka.Enabled {
		dlqWriter := platformkafka.NewWriter(cfg.Kafka, cfg.DLQTopic)
		shutdownMgr.Add("kafka_dlq_writer", platformshutdown.Close(dlqWriter))

		reader := platformkafka.NewReader(cfg.Kafka, cfg.ConsumerGroupID, cfg.GatewayEventsTopic)
		app.consumer = kafkaevent.NewConfirmationConsumer(logger, reader, svc,
			kafkaevent.NewDLQPublisher(logger, dlqWriter),
			cfg.ConsumerMaxAttempts, cfg.ConsumerBackoffBase).
			WithProcessedEvents(st.processed, cfg.ConsumerDedupTTL)
		shutdownMgr.Add("kafka_consumer_reader", platformshutdown.Close(app.consumer))

		ctx, cancel := context.WithCancel(context.Background())
		app.consumerCtx = ctx
		shutdownMgr.Add("kafka_consumer", platformshutdown.Cancel(cancel, &app.wg))
	}

	handler := httpapi.NewHandler(svc, logger)
	router := httpapi.NewRouter(handler, st.readiness, cfg.CORSAllowedOrigins, logger)

	app.httpServer = &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	shutdownMgr.Add("http_server", platformshutdown.ShutdownHTTPServer(app.httpServer))

	return app, nil
}

// store is the selected Payment Store backend
type store struct {
	repo      repository.PaymentRepository
	readiness platformhealth.ReadinessFunc
	// processed dedupes gateway events in the confirmation consumer
	processed kafkaevent.ProcessedEvents
}

// buildStore opens the configured Payment Store backend
func buildStore(cfg config.Config, logger *zap.Logger, shutdownMgr *platformshutdown.Manager) (store, error) {
	switch cfg.StoreBackend {
	case config.StorePostgres:
		logger.Info("Connecting to PostgreSQL")
		pool, err := pgxpool.New(context.Background(), cfg.PostgresDSN)
		if err != nil {
			return store{}, fmt.Errorf("postgres pool: %w", err)
		}
		shutdownMgr.Add("postgres_pool", platformshutdown.ClosePool(pool))

		if err := pool.Ping(context.Background()); err != nil {
			return store{}, fmt.Errorf("postgres ping: %w", err)
		}
		logger.Info("PostgreSQL connection established")

		logger.Info("Applying database migrations")
		db, err := goose.OpenDBWithDriver("pgx", cfg.PostgresDSN)
		if err != nil {
			return store{}, err
		}
		defer db.Close()
		if err := migrations.Up(context.Background(), db); err != nil {
			return store{}, err
		}
		logger.Info("Database migrations applied successfully")

		repo := postgres.NewRepository(pool)
		return store{repo: repo, readiness: repo.Ping, processed: kafkaevent.NewMemoryProcessedEvents()}, nil

	case config.StoreRedis:
		logger.Info("Connecting to Redis", zap.String("addr", cfg.RedisAddr))
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       0,
		})
		shutdownMgr.Add("redis_client", platformshutdown.Close(client))

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			return store{}, fmt.Errorf("redis ping: %w", err)
		}
		logger.Info("Redis connection established")

		repo := redisrepo.NewRepository(client, logger)
		return store{repo: repo, readiness: repo.Ping, processed: redisrepo.NewProcessedEvents(client)}, nil

	default:
		logger.Info("Using in-memory payment store")
		return store{repo: memory.NewMemoryRepository(), processed: kafkaevent.NewMemoryProcessedEvents()}, nil
	}
}

// Run serves HTTP (and the Kafka consumer when enabled) until SIGINT/SIGTERM
func (a *App) Run() error {
	defer platformlogging.Sync(a.logger)

	a.logger.Info("Starting checkout service", zap.String("addr", a.httpServer.Addr))
	a.logger.Info("Health check available", zap.String("url", "http://"+a.httpServer.Addr+"/health"))

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	if a.consumer != nil {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			if err := a.consumer.Start(a.consumerCtx); err != nil {
				a.logger.Error("Kafka consumer stopped with error", zap.Error(err))
			}
		}()
	}

	a.shutdownMgr.Wait()

	a.wg.Wait()
	a.logger.Info("Checkout service stopped")
	return nil
}
