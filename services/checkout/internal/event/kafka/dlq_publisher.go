package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// DLQPublisher publishes unprocessable messages to the dead letter topic
type DLQPublisher struct {
	logger *zap.Logger
	writer MessageWriter
}

// NewDLQPublisher creates a DLQ publisher over writer
func NewDLQPublisher(logger *zap.Logger, writer MessageWriter) *DLQPublisher {
	return &DLQPublisher{
		logger: logger,
		writer: writer,
	}
}

// DLQMessage wraps the original message with the failure reason
type DLQMessage struct {
	OriginalTopic     string    `json:"original_topic"`
	OriginalPartition int       `json:"original_partition"`
	OriginalOffset    int64     `json:"original_offset"`
	OriginalKey       string    `json:"original_key"`
	OriginalValue     string    `json:"original_value"`
	ErrorMessage      string    `json:"error_message"`
	FailedAt          time.Time `json:"failed_at"`
	EventType         string    `json:"event_type,omitempty"`
	EventID           string    `json:"event_id,omitempty"`
	ExternalReference string    `json:"external_reference,omitempty"`
}

// Publish sends the original message and the error to the DLQ.
// The key is the external reference when known, else the original key.
func (p *DLQPublisher) Publish(ctx context.Context, original kafka.Message, originalErr error, eventType, eventID, externalReference string) error {
	errorMsg := ""
	if originalErr != nil {
		errorMsg = originalErr.Error()
	}

	payload, err := json.Marshal(DLQMessage{
		OriginalTopic:     original.Topic,
		OriginalPartition: original.Partition,
		OriginalOffset:    original.Offset,
		OriginalKey:       string(original.Key),
		OriginalValue:     string(original.Value),
		ErrorMessage:      errorMsg,
		FailedAt:          time.Now().UTC(),
		EventType:         eventType,
		EventID:           eventID,
		ExternalReference: externalReference,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal DLQ message: %w", err)
	}

	key := original.Key
	if externalReference != "" {
		key = []byte(externalReference)
	}

	if err := p.writer.WriteMessages(ctx, kafka.Message{Key: key, Value: payload}); err != nil {
		p.logger.Error("failed to publish message to DLQ",
			zap.Error(err),
			zap.String("original_topic", original.Topic),
			zap.Int("original_partition", original.Partition),
			zap.Int64("original_offset", original.Offset),
		)
		return err
	}

	p.logger.Info("message published to DLQ",
		zap.String("original_topic", original.Topic),
		zap.Int("original_partition", original.Partition),
		zap.Int64("original_offset", original.Offset),
		zap.String("error_message", errorMsg),
	)
	return nil
}

// Close closes the underlying writer
func (p *DLQPublisher) Close() error {
	p.logger.Info("closing DLQ publisher")
	return p.writer.Close()
}
