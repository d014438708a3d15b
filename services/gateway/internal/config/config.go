package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/riseup/payments/platform/envconfig"
	platformkafka "github.com/riseup/payments/platform/kafka"
)

// Env is the application environment
type Env string

const (
	EnvLocal  Env = "local"
	EnvDocker Env = "docker"
)

// Config holds the gateway simulator configuration
type Config struct {
	AppEnv Env

	HTTPAddr string `env:"HTTP_ADDR"`
	// PublicURL is the base of the wallet links encoded into scannable codes
	PublicURL string `env:"PUBLIC_URL"`
	// QRMode is url (external QR image service) or png (data URI rendered locally)
	QRMode string `env:"QR_MODE" envDefault:"url"`

	// MerchantCallbackURL receives the confirmation webhook when WebhookEnabled
	WebhookEnabled      bool          `env:"WEBHOOK_ENABLED" envDefault:"true"`
	MerchantCallbackURL string        `env:"MERCHANT_CALLBACK_URL"`
	WebhookTimeout      time.Duration `env:"WEBHOOK_TIMEOUT" envDefault:"5s"`
	WebhookMaxAttempts  int           `env:"WEBHOOK_MAX_ATTEMPTS" envDefault:"5"`
	WebhookBackoff      time.Duration `env:"WEBHOOK_BACKOFF" envDefault:"1s"`

	Kafka       platformkafka.Config
	EventsTopic string `env:"GATEWAY_EVENTS_TOPIC" envDefault:"gateway.payments"`

	OTelEnabled       bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTelEndpoint      string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTelSamplingRatio float64 `env:"OTEL_SAMPLING_RATIO" envDefault:"1.0"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"5s"`
}

// Load reads the configuration from the environment; APP_ENV picks the address defaults
func Load() (Config, error) {
	appEnvStr := os.Getenv("APP_ENV")
	if appEnvStr == "" {
		appEnvStr = string(EnvLocal)
	}
	appEnv := Env(appEnvStr)
	if appEnv != EnvLocal && appEnv != EnvDocker {
		return Config{}, fmt.Errorf("invalid APP_ENV: %s (must be 'local' or 'docker')", appEnvStr)
	}

	cfg := defaults(appEnv)
	if err := envconfig.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func defaults(appEnv Env) Config {
	cfg := Config{
		AppEnv: appEnv,
		Kafka:  platformkafka.DefaultConfig(),
	}

	if appEnv == EnvLocal {
		cfg.HTTPAddr = "127.0.0.1:3002"
		cfg.PublicURL = "http://127.0.0.1:3002"
		cfg.MerchantCallbackURL = "http://127.0.0.1:8080/confirm"
		cfg.OTelEndpoint = "127.0.0.1:4317"
	} else {
		cfg.HTTPAddr = "0.0.0.0:3002"
		cfg.PublicURL = "http://localhost:3002"
		cfg.MerchantCallbackURL = "http://checkout:8080/confirm"
		cfg.OTelEndpoint = "otel-collector:4317"
		cfg.Kafka.Brokers = []string{"kafka:9092"}
	}
	return cfg
}

// Validate checks the configuration
func (c Config) Validate() error {
	if c.HTTPAddr == "" {
		return fmt.Errorf("HTTP_ADDR is required")
	}
	if !absoluteURL(c.PublicURL) {
		return fmt.Errorf("PUBLIC_URL must be an absolute URL, got %q", c.PublicURL)
	}
	if c.QRMode != "url" && c.QRMode != "png" {
		return fmt.Errorf("invalid QR_MODE: %s (must be url or png)", c.QRMode)
	}
	if c.WebhookEnabled && !absoluteURL(c.MerchantCallbackURL) {
		return fmt.Errorf("MERCHANT_CALLBACK_URL must be an absolute URL, got %q", c.MerchantCallbackURL)
	}
	if c.WebhookMaxAttempts < 1 {
		return fmt.Errorf("WEBHOOK_MAX_ATTEMPTS must be at least 1")
	}
	if c.WebhookTimeout <= 0 {
		return fmt.Errorf("WEBHOOK_TIMEOUT must be positive")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required when KAFKA_ENABLED=true")
	}
	if c.OTelSamplingRatio < 0 || c.OTelSamplingRatio > 1 {
		return fmt.Errorf("OTEL_SAMPLING_RATIO must be within [0, 1]")
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("SHUTDOWN_TIMEOUT must be positive")
	}
	return nil
}

func absoluteURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && u.Scheme != "" && u.Host != ""
}

// Log writes the configuration
func (c Config) Log(logger *zap.Logger) {
	logger.Info("config loaded",
		zap.String("app_env", string(c.AppEnv)),
		zap.String("http_addr", c.HTTPAddr),
		zap.String("public_url", c.PublicURL),
		zap.String("qr_mode", c.QRMode),
		zap.Bool("webhook_enabled", c.WebhookEnabled),
		zap.String("merchant_callback_url", c.MerchantCallbackURL),
		zap.Int("webhook_max_attempts", c.WebhookMaxAttempts),
		zap.Bool("kafka_enabled", c.Kafka.Enabled),
		zap.Strings("kafka_brokers", c.Kafka.Brokers),
		zap.String("events_topic", c.EventsTopic),
		zap.Bool("otel_enabled", c.OTelEnabled),
		zap.Duration("shutdown_timeout", c.ShutdownTimeout),
	)
}
