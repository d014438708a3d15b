package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/riseup/payments/services/gateway/internal/service"
)

// EventPaymentConfirmed is the event type read by the checkout confirmation consumer
const EventPaymentConfirmed = "gateway.payment.confirmed"

// MessageWriter is the part of *kafka.Writer the publisher uses
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ConfirmationMessage is the JSON value of a gateway.payment.confirmed event
type ConfirmationMessage struct {
	EventID           string    `json:"event_id"`
	EventType         string    `json:"event_type"`
	OccurredAt        time.Time `json:"occurred_at"`
	ExternalReference string    `json:"external_reference"`
	SettledAt         time.Time `json:"settled_at"`
}

// ConfirmationPublisher implements service.Notifier on Kafka.
// Messages are keyed by external reference.
type ConfirmationPublisher struct {
	logger *zap.Logger
	writer MessageWriter
	topic  string
	now    func() time.Time
}

// NewConfirmationPublisher creates a publisher over writer
func NewConfirmationPublisher(logger *zap.Logger, writer MessageWriter, topic string) *ConfirmationPublisher {
	return &ConfirmationPublisher{
		logger: logger,
		writer: writer,
		topic:  topic,
		now:    time.Now,
	}
}

// Notify publishes c as a gateway.payment.confirmed event
func (p *ConfirmationPublisher) Notify(ctx context.Context, c service.Confirmation) error {
	msg := ConfirmationMessage{
		EventID:           uuid.NewString(),
		EventType:         EventPaymentConfirmed,
		OccurredAt:        p.now().UTC(),
		ExternalReference: c.ExternalReference,
		SettledAt:         c.SettledAt.UTC(),
	}

	value, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal confirmation event: %w", err)
	}

	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(c.ExternalReference),
		Value: value,
	}); err != nil {
		p.logger.Error("failed to publish confirmation event",
			zap.Error(err),
			zap.String("topic", p.topic),
			zap.String("external_reference", c.ExternalReference),
		)
		return fmt.Errorf("publish confirmation event: %w", err)
	}

	p.logger.Info("confirmation event published",
		zap.String("topic", p.topic),
		zap.String("event_id", msg.EventID),
		zap.String("external_reference", c.ExternalReference),
	)
	return nil
}

// Close closes the underlying writer
func (p *ConfirmationPublisher) Close() error {
	return p.writer.Close()
}
