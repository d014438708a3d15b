package memory

import (
	"context"
	"sync"
	"time"

	"github.com/riseup/payments/services/gateway/internal/repository"
)

// MemoryRepository keeps gateway payments in process memory
type MemoryRepository struct {
	mu       sync.RWMutex
	payments map[string]repository.Payment
}

// NewMemoryRepository creates an empty store
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		payments: make(map[string]repository.Payment),
	}
}

func (r *MemoryRepository) Create(ctx context.Context, p repository.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.payments[p.ID]; exists {
		return repository.ErrDuplicateID
	}
	r.payments[p.ID] = p
	return nil
}

func (r *MemoryRepository) Get(ctx context.Context, id string) (repository.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, exists := r.payments[id]
	if !exists {
		return repository.Payment{}, repository.ErrNotFound
	}
	return p, nil
}

func (r *MemoryRepository) Confirm(ctx context.Context, id string, confirmedAt time.Time) (repository.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, exists := r.payments[id]
	if !exists {
		return repository.Payment{}, repository.ErrNotFound
	}
	if p.Status == repository.StatusConfirmed {
		return p, repository.ErrAlreadyConfirmed
	}

	at := confirmedAt.UTC()
	p.Status = repository.StatusConfirmed
	p.ConfirmedAt = &at
	r.payments[id] = p
	return p, nil
}
