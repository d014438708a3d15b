package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "local")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:3002", cfg.HTTPAddr)
	require.Equal(t, "http://127.0.0.1:3002", cfg.PublicURL)
	require.Equal(t, "url", cfg.QRMode)
	require.Equal(t, "http://127.0.0.1:8080/confirm", cfg.MerchantCallbackURL)
	require.True(t, cfg.WebhookEnabled)
	require.Equal(t, 5, cfg.WebhookMaxAttempts)
	require.Equal(t, time.Second, cfg.WebhookBackoff)
	require.Equal(t, "gateway.payments", cfg.EventsTopic)

	t.Setenv("APP_ENV", "docker")
	cfg, err = Load()
	require.NoError(t, err)
	require.Equal(t, "0.0.0.0:3002", cfg.HTTPAddr)
	require.Equal(t, "http://checkout:8080/confirm", cfg.MerchantCallbackURL)
	require.Equal(t, []string{"kafka:9092"}, cfg.Kafka.Brokers)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("APP_ENV", "local")
	t.Setenv("QR_MODE", "png")
	t.Setenv("WEBHOOK_ENABLED", "false")
	t.Setenv("WEBHOOK_BACKOFF", "250ms")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "png", cfg.QRMode)
	require.False(t, cfg.WebhookEnabled)
	require.Equal(t, 250*time.Millisecond, cfg.WebhookBackoff)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name          string
		key, value    string
		errorContains string
	}{
		{"bad APP_ENV", "APP_ENV", "staging", "invalid APP_ENV"},
		{"bad QR mode", "QR_MODE", "svg", "invalid QR_MODE"},
		{"relative public url", "PUBLIC_URL", "/wallet", "PUBLIC_URL"},
		{"relative callback", "MERCHANT_CALLBACK_URL", "checkout/confirm", "MERCHANT_CALLBACK_URL"},
		{"no attempts", "WEBHOOK_MAX_ATTEMPTS", "0", "WEBHOOK_MAX_ATTEMPTS"},
		{"bad duration", "WEBHOOK_BACKOFF", "soon", "WEBHOOK_BACKOFF"},
		{"bad bool", "WEBHOOK_ENABLED", "maybe", "WEBHOOK_ENABLED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.ErrorContains(t, err, tt.errorContains)
		})
	}
}
