package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ProcessedEvents stores handled Kafka event ids as expiring keys
type ProcessedEvents struct {
	client *redis.Client
}

// NewProcessedEvents creates the store
func NewProcessedEvents(client *redis.Client) *ProcessedEvents {
	return &ProcessedEvents{client: client}
}

func processedEventKey(eventID string) string {
	return fmt.Sprintf("processed_event:%s", eventID)
}

// MarkProcessed sets the event key with ttl
func (s *ProcessedEvents) MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) error {
	if err := s.client.Set(ctx, processedEventKey(eventID), 1, ttl).Err(); err != nil {
		return fmt.Errorf("failed to mark event %s processed: %w", eventID, err)
	}
	return nil
}

// IsProcessed reports whether the event key still exists
func (s *ProcessedEvents) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	err := s.client.Get(ctx, processedEventKey(eventID)).Err()
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, redis.Nil):
		return false, nil
	default:
		return false, fmt.Errorf("failed to check event %s: %w", eventID, err)
	}
}
