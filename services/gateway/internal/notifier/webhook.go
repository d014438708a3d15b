// Package notifier delivers settlement notifications to the merchant.
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/riseup/payments/platform/httpjson"
	"github.com/riseup/payments/platform/observability"
	"github.com/riseup/payments/services/gateway/internal/service"
)

// ErrRejected is returned when the merchant answers with a non-retryable status
var ErrRejected = errors.New("webhook rejected")

// WebhookRequest is the body POSTed to the merchant callback URL
type WebhookRequest struct {
	ExternalReference string    `json:"externalReference"`
	SettledAt         time.Time `json:"settledAt"`
}

// Webhook POSTs confirmations to the merchant.
// Failed deliveries are retried with a linear backoff: attempt N waits N*backoff.
type Webhook struct {
	logger      *zap.Logger
	url         string
	client      *http.Client
	maxAttempts int
	backoff     time.Duration
}

// NewWebhook creates a webhook notifier for url
func NewWebhook(logger *zap.Logger, url string, timeout time.Duration, maxAttempts int, backoff time.Duration) *Webhook {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Webhook{
		logger: logger,
		url:    url,
		client: &http.Client{
			Timeout:   timeout,
			Transport: observability.Transport("gateway", nil),
		},
		maxAttempts: maxAttempts,
		backoff:     backoff,
	}
}

// Notify delivers c, retrying transport errors, 5xx, 408 and 429
func (w *Webhook) Notify(ctx context.Context, c service.Confirmation) error {
	body, err := json.Marshal(WebhookRequest{ExternalReference: c.ExternalReference, SettledAt: c.SettledAt})
	if err != nil {
		return fmt.Errorf("marshal webhook body: %w", err)
	}

	logger := observability.L(ctx, w.logger).With(
		zap.String("external_reference", c.ExternalReference),
		zap.String("url", w.url),
	)

	var lastErr error
	for attempt := 1; attempt <= w.maxAttempts; attempt++ {
		if attempt > 1 {
			delay := time.Duration(attempt-1) * w.backoff
			logger.Warn("retrying webhook",
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
				zap.Error(lastErr),
			)
			select {
			case <-ctx.Done():
				return fmt.Errorf("webhook cancelled after %d attempts: %w", attempt-1, ctx.Err())
			case <-time.After(delay):
			}
		}

		retry, err := w.post(ctx, body)
		if err == nil {
			logger.Info("webhook delivered", zap.Int("attempt", attempt))
			return nil
		}
		if !retry {
			return err
		}
		lastErr = err
	}

	return fmt.Errorf("webhook failed after %d attempts: %w", w.maxAttempts, lastErr)
}

func (w *Webhook) post(ctx context.Context, body []byte) (retry bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return ctx.Err() == nil, fmt.Errorf("send webhook: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return false, nil
	case resp.StatusCode >= 500, resp.StatusCode == http.StatusRequestTimeout, resp.StatusCode == http.StatusTooManyRequests:
		return true, fmt.Errorf("webhook status %d: %s", resp.StatusCode, httpjson.ReadError(resp))
	default:
		return false, fmt.Errorf("%w: status %d: %s", ErrRejected, resp.StatusCode, httpjson.ReadError(resp))
	}
}
