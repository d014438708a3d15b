package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/riseup/payments/services/checkout/internal/repository"
)

// MemoryRepository implements PaymentRepository on top of process memory.
// Records live for the process lifetime; nothing survives a restart.
type MemoryRepository struct {
	mu       sync.RWMutex
	payments map[string]repository.Payment // key = local id
	byRef    map[string]string             // external reference -> local id
}

// NewMemoryRepository creates an empty store
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		payments: make(map[string]repository.Payment),
		byRef:    make(map[string]string),
	}
}

// Create stores a new pending payment under a fresh UUID
func (r *MemoryRepository) Create(ctx context.Context, p repository.NewPayment) (repository.Payment, error) {
	if err := repository.ValidateAmount(p.Amount); err != nil {
		return repository.Payment{}, err
	}

	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// first write wins; an empty reference is never indexed
	if p.ExternalReference != "" {
		if _, taken := r.byRef[p.ExternalReference]; taken {
			return repository.Payment{}, repository.ErrDuplicateReference
		}
	}

	id := uuid.NewString()
	for _, exists := r.payments[id]; exists; _, exists = r.payments[id] {
		id = uuid.NewString()
	}

	payment := repository.Payment{
		ID:                id,
		Amount:            p.Amount,
		Status:            repository.StatusPending,
		ExternalReference: p.ExternalReference,
		ScannableCode:     p.ScannableCode,
		CreatedAt:         createdAt.UTC(),
	}

	r.payments[id] = payment
	if p.ExternalReference != "" {
		r.byRef[p.ExternalReference] = id
	}

	return payment, nil
}

// Get returns the payment by local id
func (r *MemoryRepository) Get(ctx context.Context, id string) (repository.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	payment, exists := r.payments[id]
	if !exists {
		return repository.Payment{}, repository.ErrNotFound
	}
	return payment, nil
}

// FindByExternalReference resolves the payment through the secondary index
func (r *MemoryRepository) FindByExternalReference(ctx context.Context, ref string) (repository.Payment, error) {
	if ref == "" {
		return repository.Payment{}, repository.ErrNotFound
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	id, exists := r.byRef[ref]
	if !exists {
		return repository.Payment{}, repository.ErrNotFound
	}

	payment, exists := r.payments[id]
	if !exists || payment.ExternalReference != ref {
		return repository.Payment{}, repository.ErrCorrupted
	}
	return payment, nil
}

// Confirm moves a pending payment to confirmed
func (r *MemoryRepository) Confirm(ctx context.Context, id string, settledAt time.Time) (repository.Payment, error) {
	return r.transition(id, repository.StatusConfirmed, settledAt)
}

// Cancel moves a pending payment to cancelled
func (r *MemoryRepository) Cancel(ctx context.Context, id string, cancelledAt time.Time) (repository.Payment, error) {
	return r.transition(id, repository.StatusCancelled, cancelledAt)
}

// transition is the single read-modify-write path; the write lock serializes
// a confirmation racing a cancellation on the same record
func (r *MemoryRepository) transition(id string, target repository.Status, at time.Time) (repository.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	payment, exists := r.payments[id]
	if !exists {
		return repository.Payment{}, repository.ErrNotFound
	}

	if err := payment.Transition(target, at); err != nil {
		return payment, err
	}

	r.payments[id] = payment
	return payment, nil
}

// Count returns the number of stored payments
func (r *MemoryRepository) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.payments), nil
}
