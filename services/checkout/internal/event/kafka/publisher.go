package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/riseup/payments/services/checkout/internal/service"
)

// PaymentEventMessage is the JSON value of a checkout lifecycle event
type PaymentEventMessage struct {
	EventID           string      `json:"event_id"`
	EventType         string      `json:"event_type"`
	EventVersion      int         `json:"event_version"`
	OccurredAt        string      `json:"occurred_at"`
	PaymentID         string      `json:"payment_id"`
	ExternalReference string      `json:"external_reference,omitempty"`
	Amount            json.Number `json:"amount"`
	Status            string      `json:"status"`
}

// PaymentEventPublisher implements service.PaymentEventPublisher on Kafka.
// Messages are keyed by payment id so the events of one payment stay ordered.
type PaymentEventPublisher struct {
	logger *zap.Logger
	writer MessageWriter
	topic  string
}

// NewPaymentEventPublisher creates a publisher over writer
func NewPaymentEventPublisher(logger *zap.Logger, writer MessageWriter, topic string) *PaymentEventPublisher {
	return &PaymentEventPublisher{
		logger: logger,
		writer: writer,
		topic:  topic,
	}
}

// PublishPaymentEvent writes one event
func (p *PaymentEventPublisher) PublishPaymentEvent(ctx context.Context, event service.PaymentEvent) error {
	eventID := event.EventID
	if eventID == "" {
		eventID = uuid.NewString()
	}
	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}
	version := event.EventVersion
	if version == 0 {
		version = 1
	}

	value, err := json.Marshal(PaymentEventMessage{
		EventID:           eventID,
		EventType:         event.EventType,
		EventVersion:      version,
		OccurredAt:        occurredAt.UTC().Format(time.RFC3339),
		PaymentID:         event.PaymentID,
		ExternalReference: event.ExternalReference,
		Amount:            json.Number(event.Amount.String()),
		Status:            event.Status,
	})
	if err != nil {
		p.logger.Error("failed to marshal payment event",
			zap.Error(err),
			zap.String("payment_id", event.PaymentID),
		)
		return err
	}

	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.PaymentID),
		Value: value,
	}); err != nil {
		p.logger.Error("failed to publish payment event",
			zap.Error(err),
			zap.String("topic", p.topic),
			zap.String("event_type", event.EventType),
			zap.String("payment_id", event.PaymentID),
		)
		return err
	}

	p.logger.Info("payment event published",
		zap.String("topic", p.topic),
		zap.String("event_id", eventID),
		zap.String("event_type", event.EventType),
		zap.String("payment_id", event.PaymentID),
	)
	return nil
}

// Close closes the underlying writer
func (p *PaymentEventPublisher) Close() error {
	return p.writer.Close()
}

// NoopPublisher is used when Kafka is disabled
type NoopPublisher struct {
	logger *zap.Logger
}

// NewNoopPublisher creates a publisher that only logs
func NewNoopPublisher(logger *zap.Logger) *NoopPublisher {
	return &NoopPublisher{logger: logger}
}

// PublishPaymentEvent does nothing
func (p *NoopPublisher) PublishPaymentEvent(ctx context.Context, event service.PaymentEvent) error {
	p.logger.Debug("no-op publisher: event not sent",
		zap.String("event_type", event.EventType),
		zap.String("payment_id", event.PaymentID),
	)
	return nil
}
