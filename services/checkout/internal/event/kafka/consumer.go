package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/riseup/payments/services/checkout/internal/repository"
	"github.com/riseup/payments/services/checkout/internal/service"
)

// EventGatewayPaymentConfirmed is the only gateway event the consumer acts on
const EventGatewayPaymentConfirmed = "gateway.payment.confirmed"

// Confirmer applies a settlement notification; implemented by *service.Service
type Confirmer interface {
	ConfirmByReference(ctx context.Context, in service.ConfirmInput) (service.ConfirmOutput, error)
}

// GatewayEventMessage is the JSON value published by the gateway
type GatewayEventMessage struct {
	EventID           string     `json:"event_id"`
	EventType         string     `json:"event_type"`
	OccurredAt        time.Time  `json:"occurred_at"`
	ExternalReference string     `json:"external_reference"`
	SettledAt         *time.Time `json:"settled_at,omitempty"`
}

// ConfirmationConsumer reads gateway events and confirms the matching payments.
// It is the Kafka entry point of the same confirmation path as the POST /confirm webhook.
type ConfirmationConsumer struct {
	logger       *zap.Logger
	reader       MessageReader
	confirmer    Confirmer
	dlqPublisher *DLQPublisher
	maxAttempts  int
	backoffBase  time.Duration

	processed    ProcessedEvents
	processedTTL time.Duration
}

// NewConfirmationConsumer creates the consumer
func NewConfirmationConsumer(
	logger *zap.Logger,
	reader MessageReader,
	confirmer Confirmer,
	dlqPublisher *DLQPublisher,
	maxAttempts int,
	backoffBase time.Duration,
) *ConfirmationConsumer {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &ConfirmationConsumer{
		logger:       logger,
		reader:       reader,
		confirmer:    confirmer,
		dlqPublisher: dlqPublisher,
		maxAttempts:  maxAttempts,
		backoffBase:  backoffBase,
	}
}

// WithProcessedEvents skips events whose id was handled within ttl
func (c *ConfirmationConsumer) WithProcessedEvents(store ProcessedEvents, ttl time.Duration) *ConfirmationConsumer {
	c.processed = store
	c.processedTTL = ttl
	return c
}

// Start consumes until ctx is cancelled.
// At-least-once: FetchMessage, handle, then CommitMessages.
func (c *ConfirmationConsumer) Start(ctx context.Context) error {
	c.logger.Info("starting gateway confirmation consumer",
		zap.Int("max_retry_attempts", c.maxAttempts),
		zap.Duration("retry_backoff_base", c.backoffBase),
	)

	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("consumer context cancelled, stopping")
				return nil
			}
			c.logger.Error("failed to fetch message from kafka", zap.Error(err))
			continue
		}

		if !c.processMessage(ctx, m) {
			continue
		}

		if err := c.reader.CommitMessages(ctx, m); err != nil {
			c.logger.Error("failed to commit message offset",
				zap.Error(err),
				zap.String("topic", m.Topic),
				zap.Int("partition", m.Partition),
				zap.Int64("offset", m.Offset),
			)
			continue
		}

		c.logger.Debug("message offset committed",
			zap.String("topic", m.Topic),
			zap.Int("partition", m.Partition),
			zap.Int64("offset", m.Offset),
		)
	}
}

// processMessage handles one message and reports whether its offset may be committed
func (c *ConfirmationConsumer) processMessage(ctx context.Context, m kafka.Message) bool {
	event, err := ParseGatewayEvent(m.Value)
	if err != nil {
		c.logger.Error("failed to parse gateway event",
			zap.Error(err),
			zap.String("topic", m.Topic),
			zap.Int("partition", m.Partition),
			zap.Int64("offset", m.Offset),
		)
		return c.toDLQ(m, err, event)
	}

	if event.EventType != EventGatewayPaymentConfirmed {
		c.logger.Debug("skipping gateway event",
			zap.String("event_type", event.EventType),
			zap.String("event_id", event.EventID),
		)
		return true
	}

	if c.alreadyProcessed(ctx, event.EventID) {
		c.logger.Info("skipping already processed gateway event", zap.String("event_id", event.EventID))
		return true
	}

	c.logger.Info("received gateway confirmation",
		zap.String("event_id", event.EventID),
		zap.String("external_reference", event.ExternalReference),
		zap.Int("partition", m.Partition),
		zap.Int64("offset", m.Offset),
	)

	if err := c.handleWithRetry(ctx, event); err != nil {
		if ctx.Err() != nil {
			// shutting down: leave the offset for the next consumer
			return false
		}
		return c.toDLQ(m, err, event)
	}

	c.markProcessed(ctx, event.EventID)
	return true
}

func (c *ConfirmationConsumer) alreadyProcessed(ctx context.Context, eventID string) bool {
	if c.processed == nil || eventID == "" {
		return false
	}
	done, err := c.processed.IsProcessed(ctx, eventID)
	if err != nil {
		// handle it; a duplicate confirmation ends as AlreadySettled
		c.logger.Warn("failed to check processed events", zap.Error(err), zap.String("event_id", eventID))
		return false
	}
	return done
}

func (c *ConfirmationConsumer) markProcessed(ctx context.Context, eventID string) {
	if c.processed == nil || eventID == "" {
		return
	}
	if err := c.processed.MarkProcessed(ctx, eventID, c.processedTTL); err != nil {
		c.logger.Warn("failed to mark event processed", zap.Error(err), zap.String("event_id", eventID))
	}
}

// handleWithRetry retries transient failures with exponential backoff.
// A duplicate confirmation is success; an unknown reference is not retried.
func (c *ConfirmationConsumer) handleWithRetry(ctx context.Context, event GatewayEventMessage) error {
	var lastErr error

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			backoff := c.backoffBase * time.Duration(1<<uint(attempt-2))
			c.logger.Info("retrying gateway confirmation",
				zap.String("external_reference", event.ExternalReference),
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", c.maxAttempts),
				zap.Duration("backoff", backoff),
			)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		_, err := c.confirmer.ConfirmByReference(ctx, service.ConfirmInput{
			ExternalReference: event.ExternalReference,
			SettledAt:         event.SettledAt,
		})
		switch {
		case err == nil, errors.Is(err, repository.ErrAlreadySettled):
			return nil
		case errors.Is(err, repository.ErrNotFound), errors.Is(err, service.ErrReferenceRequired):
			return err
		}

		lastErr = err
		c.logger.Warn("failed to handle gateway confirmation",
			zap.Error(err),
			zap.String("external_reference", event.ExternalReference),
			zap.Int("attempt", attempt),
		)
	}

	return fmt.Errorf("exhausted %d attempts: %w", c.maxAttempts, lastErr)
}

func (c *ConfirmationConsumer) toDLQ(m kafka.Message, reason error, event GatewayEventMessage) bool {
	if c.dlqPublisher == nil {
		c.logger.Error("no DLQ configured, dropping message", zap.Error(reason))
		return true
	}
	// the DLQ write must not be cut short by shutdown
	if err := c.dlqPublisher.Publish(context.Background(), m, reason, event.EventType, event.EventID, event.ExternalReference); err != nil {
		c.logger.Error("failed to publish to DLQ, not committing", zap.Error(err))
		return false
	}
	return true
}

// ParseGatewayEvent decodes and validates a gateway event.
// The returned event carries whatever fields could be read, even on error.
func ParseGatewayEvent(value []byte) (GatewayEventMessage, error) {
	var event GatewayEventMessage
	if err := json.Unmarshal(value, &event); err != nil {
		return GatewayEventMessage{}, &ParseError{Field: "", Message: fmt.Sprintf("invalid JSON: %v", err)}
	}
	if event.EventType == "" {
		return event, &ParseError{Field: "event_type", Message: "event_type is required"}
	}
	if event.EventType == EventGatewayPaymentConfirmed && event.ExternalReference == "" {
		return event, &ParseError{Field: "external_reference", Message: "external_reference is required"}
	}
	return event, nil
}

// Close closes the reader
func (c *ConfirmationConsumer) Close() error {
	c.logger.Info("closing kafka consumer")
	return c.reader.Close()
}
