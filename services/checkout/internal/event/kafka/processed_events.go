package kafka

import (
	"context"
	"sync"
	"time"
)

// ProcessedEvents remembers handled event ids so a redelivered message is skipped.
// Entries expire after ttl; an expired event may be handled again.
type ProcessedEvents interface {
	MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) error
	IsProcessed(ctx context.Context, eventID string) (bool, error)
}

// MemoryProcessedEvents keeps processed event ids in process memory
type MemoryProcessedEvents struct {
	mu     sync.Mutex
	events map[string]time.Time // event id -> expiry
	now    func() time.Time
}

// NewMemoryProcessedEvents creates an empty store
func NewMemoryProcessedEvents() *MemoryProcessedEvents {
	return &MemoryProcessedEvents{
		events: make(map[string]time.Time),
		now:    time.Now,
	}
}

func (s *MemoryProcessedEvents) MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.evictExpiredLocked()
	s.events[eventID] = s.now().Add(ttl)
	return nil
}

func (s *MemoryProcessedEvents) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiresAt, exists := s.events[eventID]
	if !exists {
		return false, nil
	}
	if !s.now().Before(expiresAt) {
		delete(s.events, eventID)
		return false, nil
	}
	return true, nil
}

func (s *MemoryProcessedEvents) evictExpiredLocked() {
	now := s.now()
	for id, expiresAt := range s.events {
		if !now.Before(expiresAt) {
			delete(s.events, id)
		}
	}
}
