package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/riseup/payments/services/checkout/internal/repository"
)

const (
	hashFieldAmount            = "amount"
	hashFieldStatus            = "status"
	hashFieldExternalReference = "external_reference"
	hashFieldScannableCode     = "scannable_code"
	hashFieldCreatedAt         = "created_at"
	hashFieldSettledAt         = "settled_at"
	hashFieldCancelledAt       = "cancelled_at"

	idsKey = "payments:ids"

	// optimistic transactions give up after this many WATCH conflicts
	maxTxRetries = 10
)

// Repository implements PaymentRepository with one Redis hash per payment,
// a string key per external reference and a set of ids for Count
type Repository struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRepository creates a Redis repository
func NewRepository(client *redis.Client, logger *zap.Logger) *Repository {
	return &Repository{
		client: client,
		logger: logger,
	}
}

func paymentKey(id string) string {
	return fmt.Sprintf("payment:%s", id)
}

func referenceKey(ref string) string {
	return fmt.Sprintf("payment:ref:%s", ref)
}

// Create writes the hash, the id set entry and the reference key in one MULTI.
// The reference key is WATCHed so a concurrent Create of the same reference
// aborts and the retry reports ErrDuplicateReference.
func (r *Repository) Create(ctx context.Context, p repository.NewPayment) (repository.Payment, error) {
	if err := repository.ValidateAmount(p.Amount); err != nil {
		return repository.Payment{}, err
	}

	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	payment := repository.Payment{
		ID:                uuid.NewString(),
		Amount:            p.Amount,
		Status:            repository.StatusPending,
		ExternalReference: p.ExternalReference,
		ScannableCode:     p.ScannableCode,
		CreatedAt:         createdAt.UTC(),
	}

	write := func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, paymentKey(payment.ID), toHash(payment))
		pipe.SAdd(ctx, idsKey, payment.ID)
		if payment.ExternalReference != "" {
			pipe.Set(ctx, referenceKey(payment.ExternalReference), payment.ID, 0)
		}
		return nil
	}

	if payment.ExternalReference == "" {
		if _, err := r.client.TxPipelined(ctx, write); err != nil {
			return repository.Payment{}, fmt.Errorf("failed to store payment: %w", err)
		}
		return payment, nil
	}

	refKey := referenceKey(payment.ExternalReference)
	txf := func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, refKey).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return repository.ErrDuplicateReference
		}
		_, err = tx.TxPipelined(ctx, write)
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := r.client.Watch(ctx, txf, refKey)
		if err == nil {
			r.logger.Debug("payment hash created",
				zap.String("payment_id", payment.ID),
				zap.String("external_reference", payment.ExternalReference),
			)
			return payment, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if errors.Is(err, repository.ErrDuplicateReference) {
			return repository.Payment{}, err
		}
		return repository.Payment{}, fmt.Errorf("failed to store payment: %w", err)
	}
	return repository.Payment{}, fmt.Errorf("failed to store payment: too many concurrent writers for reference %s", payment.ExternalReference)
}

// Get loads the payment hash
func (r *Repository) Get(ctx context.Context, id string) (repository.Payment, error) {
	return r.get(ctx, r.client, id)
}

// hashReader is satisfied by both *redis.Client and *redis.Tx
type hashReader interface {
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
}

func (r *Repository) get(ctx context.Context, c hashReader, id string) (repository.Payment, error) {
	fields, err := c.HGetAll(ctx, paymentKey(id)).Result()
	if err != nil {
		return repository.Payment{}, fmt.Errorf("failed to get payment: %w", err)
	}
	if len(fields) == 0 {
		return repository.Payment{}, repository.ErrNotFound
	}
	return fromHash(id, fields)
}

// FindByExternalReference resolves the reference key and loads the hash
func (r *Repository) FindByExternalReference(ctx context.Context, ref string) (repository.Payment, error) {
	if ref == "" {
		return repository.Payment{}, repository.ErrNotFound
	}

	id, err := r.client.Get(ctx, referenceKey(ref)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return repository.Payment{}, repository.ErrNotFound
		}
		return repository.Payment{}, fmt.Errorf("failed to resolve external reference: %w", err)
	}

	payment, err := r.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return repository.Payment{}, repository.ErrCorrupted
		}
		return repository.Payment{}, err
	}
	if payment.ExternalReference != ref {
		return repository.Payment{}, repository.ErrCorrupted
	}
	return payment, nil
}

// Confirm moves a pending payment to confirmed
func (r *Repository) Confirm(ctx context.Context, id string, settledAt time.Time) (repository.Payment, error) {
	return r.transition(ctx, id, repository.StatusConfirmed, settledAt)
}

// Cancel moves a pending payment to cancelled
func (r *Repository) Cancel(ctx context.Context, id string, cancelledAt time.Time) (repository.Payment, error) {
	return r.transition(ctx, id, repository.StatusCancelled, cancelledAt)
}

// transition is a WATCH/MULTI read-modify-write; a concurrent writer aborts
// the transaction and the loop re-reads the now terminal record
func (r *Repository) transition(ctx context.Context, id string, target repository.Status, at time.Time) (repository.Payment, error) {
	key := paymentKey(id)

	var (
		result   repository.Payment
		applyErr error
	)
	txf := func(tx *redis.Tx) error {
		payment, err := r.get(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := payment.Transition(target, at); err != nil {
			result, applyErr = payment, err
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, toHash(payment))
			return nil
		})
		if err != nil {
			return err
		}
		result, applyErr = payment, nil
		return nil
	}

	for i := 0; i < maxTxRetries; i++ {
		err := r.client.Watch(ctx, txf, key)
		if err == nil {
			// on a rejected transition result is the unchanged record
			return result, applyErr
		}
		if errors.Is(err, redis.TxFailedErr) {
			r.logger.Debug("payment transition conflict, retrying",
				zap.String("payment_id", id),
				zap.Int("attempt", i+1),
			)
			continue
		}
		if errors.Is(err, repository.ErrNotFound) {
			return repository.Payment{}, err
		}
		return repository.Payment{}, fmt.Errorf("failed to update payment: %w", err)
	}
	return repository.Payment{}, fmt.Errorf("failed to update payment %s: too many concurrent writers", id)
}

// Count returns the size of the id set
func (r *Repository) Count(ctx context.Context) (int, error) {
	n, err := r.client.SCard(ctx, idsKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count payments: %w", err)
	}
	return int(n), nil
}

// Ping checks the connection; used by the readiness probe
func (r *Repository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func toHash(p repository.Payment) map[string]any {
	return map[string]any{
		hashFieldAmount:            p.Amount.String(),
		hashFieldStatus:            string(p.Status),
		hashFieldExternalReference: p.ExternalReference,
		hashFieldScannableCode:     p.ScannableCode,
		hashFieldCreatedAt:         formatTime(&p.CreatedAt),
		hashFieldSettledAt:         formatTime(p.SettledAt),
		hashFieldCancelledAt:       formatTime(p.CancelledAt),
	}
}

func fromHash(id string, fields map[string]string) (repository.Payment, error) {
	amount, err := decimal.NewFromString(fields[hashFieldAmount])
	if err != nil {
		return repository.Payment{}, fmt.Errorf("payment %s: parse amount: %w", id, err)
	}
	status, err := repository.ParseStatus(fields[hashFieldStatus])
	if err != nil {
		return repository.Payment{}, fmt.Errorf("payment %s: %w", id, err)
	}
	createdAt, err := parseTime(fields[hashFieldCreatedAt])
	if err != nil {
		return repository.Payment{}, fmt.Errorf("payment %s: parse created_at: %w", id, err)
	}
	if createdAt == nil {
		return repository.Payment{}, fmt.Errorf("payment %s: missing created_at", id)
	}
	settledAt, err := parseTime(fields[hashFieldSettledAt])
	if err != nil {
		return repository.Payment{}, fmt.Errorf("payment %s: parse settled_at: %w", id, err)
	}
	cancelledAt, err := parseTime(fields[hashFieldCancelledAt])
	if err != nil {
		return repository.Payment{}, fmt.Errorf("payment %s: parse cancelled_at: %w", id, err)
	}

	return repository.Payment{
		ID:                id,
		Amount:            amount,
		Status:            status,
		ExternalReference: fields[hashFieldExternalReference],
		ScannableCode:     fields[hashFieldScannableCode],
		CreatedAt:         *createdAt,
		SettledAt:         settledAt,
		CancelledAt:       cancelledAt,
	}, nil
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
