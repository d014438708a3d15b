package app

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	platformkafka "github.com/riseup/payments/platform/kafka"
	platformlogging "github.com/riseup/payments/platform/logging"
	platformobservability "github.com/riseup/payments/platform/observability"
	platformshutdown "github.com/riseup/payments/platform/shutdown"
	httpapi "github.com/riseup/payments/services/gateway/internal/api/http"
	"github.com/riseup/payments/services/gateway/internal/config"
	kafkaevent "github.com/riseup/payments/services/gateway/internal/event/kafka"
	"github.com/riseup/payments/services/gateway/internal/notifier"
	"github.com/riseup/payments/services/gateway/internal/qrcode"
	"github.com/riseup/payments/services/gateway/internal/repository/memory"
	"github.com/riseup/payments/services/gateway/internal/service"
)

// App holds the gateway simulator and its shutdown steps
type App struct {
	logger      *zap.Logger
	httpServer  *http.Server
	shutdownMgr *platformshutdown.Manager
	wg          sync.WaitGroup
}

// Build wires the gateway dependencies
func Build(cfg config.Config) (*App, error) {
	logger, err := platformlogging.New(platformlogging.FromEnv("gateway", string(cfg.AppEnv)))
	if err != nil {
		return nil, err
	}
	cfg.Log(logger)

	logger.Info("Building gateway service", zap.String("http_addr", cfg.HTTPAddr))

	shutdownMgr := platformshutdown.New(cfg.ShutdownTimeout, logger)

	otelShutdown, err := platformobservability.Init(context.Background(), platformobservability.Config{
		Enabled:               cfg.OTelEnabled,
		OTLPEndpoint:          cfg.OTelEndpoint,
		SamplingRatio:         cfg.OTelSamplingRatio,
		ServiceName:           "gateway",
		DeploymentEnvironment: string(cfg.AppEnv),
	})
	if err != nil {
		return nil, err
	}
	shutdownMgr.Add("otel", otelShutdown)

	codes, err := qrcode.NewGenerator(qrcode.Mode(cfg.QRMode))
	if err != nil {
		shutdownMgr.Shutdown()
		return nil, err
	}

	var notifiers []service.Notifier
	if cfg.Kafka.Enabled {
		logger.Info("Kafka enabled", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.EventsTopic))
		publisher := kafkaevent.NewConfirmationPublisher(logger, platformkafka.NewWriter(cfg.Kafka, cfg.EventsTopic), cfg.EventsTopic)
		shutdownMgr.Add("kafka_writer", platformshutdown.Close(publisher))
		notifiers = append(notifiers, publisher)
	}
	if cfg.WebhookEnabled {
		webhook := notifier.NewWebhook(logger, cfg.MerchantCallbackURL, cfg.WebhookTimeout, cfg.WebhookMaxAttempts, cfg.WebhookBackoff)
		async := notifier.NewAsync(logger, webhook)
		shutdownMgr.Add("webhook_deliveries", async.Shutdown)
		notifiers = append(notifiers, async)
	}

	svc := service.NewService(logger, memory.NewMemoryRepository(), codes, cfg.PublicURL, notifiers)
	router := httpapi.NewRouter(httpapi.NewHandler(svc, logger), logger)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	// registered last so the server drains before deliveries and writers stop
	shutdownMgr.Add("http_server", platformshutdown.ShutdownHTTPServer(httpServer))

	return &App{
		logger:      logger,
		httpServer:  httpServer,
		shutdownMgr: shutdownMgr,
	}, nil
}

// Run serves HTTP until SIGINT/SIGTERM
func (a *App) Run() error {
	defer platformlogging.Sync(a.logger)

	a.logger.Info("Starting gateway service", zap.String("addr", a.httpServer.Addr))

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	a.shutdownMgr.Wait()

	a.wg.Wait()
	a.logger.Info("Gateway service stopped")
	return nil
}
