package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/riseup/payments/services/checkout/internal/repository"
)

const uniqueViolation = "23505"

// amount travels as text so no precision is lost between decimal.Decimal and NUMERIC
const selectColumns = `id::text, amount::text, status, external_reference, scannable_code, created_at, settled_at, cancelled_at`

// Repository implements PaymentRepository on PostgreSQL
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a PostgreSQL repository over an open pool
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{
		pool: pool,
	}
}

// Create inserts a pending payment.
// The partial unique index on external_reference enforces first-write-wins.
func (r *Repository) Create(ctx context.Context, p repository.NewPayment) (repository.Payment, error) {
	if err := repository.ValidateAmount(p.Amount); err != nil {
		return repository.Payment{}, err
	}

	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	row := r.pool.QueryRow(ctx,
		`INSERT INTO payments (id, amount, status, external_reference, scannable_code, created_at)
		 VALUES ($1, $2::numeric, $3, $4, $5, $6)
		 RETURNING `+selectColumns,
		uuid.NewString(), p.Amount.String(), repository.StatusPending, p.ExternalReference, p.ScannableCode, createdAt.UTC())

	payment, err := scanPayment(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return repository.Payment{}, repository.ErrDuplicateReference
		}
		return repository.Payment{}, fmt.Errorf("insert payment: %w", err)
	}
	return payment, nil
}

// Get loads a payment by local id
func (r *Repository) Get(ctx context.Context, id string) (repository.Payment, error) {
	// a malformed id can never match a UUID column
	if _, err := uuid.Parse(id); err != nil {
		return repository.Payment{}, repository.ErrNotFound
	}

	row := r.pool.QueryRow(ctx,
		`SELECT `+selectColumns+` FROM payments WHERE id = $1`, id)

	payment, err := scanPayment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return repository.Payment{}, repository.ErrNotFound
		}
		return repository.Payment{}, fmt.Errorf("select payment: %w", err)
	}
	return payment, nil
}

// FindByExternalReference loads the payment holding ref
func (r *Repository) FindByExternalReference(ctx context.Context, ref string) (repository.Payment, error) {
	if ref == "" {
		return repository.Payment{}, repository.ErrNotFound
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+selectColumns+` FROM payments WHERE external_reference = $1 LIMIT 2`, ref)
	if err != nil {
		return repository.Payment{}, fmt.Errorf("select payment by reference: %w", err)
	}
	defer rows.Close()

	matches := make([]repository.Payment, 0, 1)
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return repository.Payment{}, fmt.Errorf("scan payment: %w", err)
		}
		matches = append(matches, payment)
	}
	if err := rows.Err(); err != nil {
		return repository.Payment{}, fmt.Errorf("select payment by reference: %w", err)
	}

	switch len(matches) {
	case 0:
		return repository.Payment{}, repository.ErrNotFound
	case 1:
		return matches[0], nil
	default:
		return repository.Payment{}, repository.ErrCorrupted
	}
}

// Confirm moves a pending payment to confirmed
func (r *Repository) Confirm(ctx context.Context, id string, settledAt time.Time) (repository.Payment, error) {
	return r.transition(ctx, id,
		`UPDATE payments SET status = 'confirmed', settled_at = $2, scannable_code = ''
		 WHERE id = $1 AND status = 'pending'
		 RETURNING `+selectColumns,
		settledAt)
}

// Cancel moves a pending payment to cancelled
func (r *Repository) Cancel(ctx context.Context, id string, cancelledAt time.Time) (repository.Payment, error) {
	return r.transition(ctx, id,
		`UPDATE payments SET status = 'cancelled', cancelled_at = $2, scannable_code = ''
		 WHERE id = $1 AND status = 'pending'
		 RETURNING `+selectColumns,
		cancelledAt)
}

// transition runs a conditional update. Row-level locking makes the
// `status = 'pending'` guard decide a confirm/cancel race: the loser updates no rows.
func (r *Repository) transition(ctx context.Context, id, query string, at time.Time) (repository.Payment, error) {
	if _, err := uuid.Parse(id); err != nil {
		return repository.Payment{}, repository.ErrNotFound
	}

	payment, err := scanPayment(r.pool.QueryRow(ctx, query, id, at.UTC()))
	if err == nil {
		return payment, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return repository.Payment{}, fmt.Errorf("update payment: %w", err)
	}

	// nothing updated: either the id is unknown or the record is terminal
	current, err := r.Get(ctx, id)
	if err != nil {
		return repository.Payment{}, err
	}
	return current, repository.ErrAlreadySettled
}

// Count returns the number of stored payments
func (r *Repository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM payments`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count payments: %w", err)
	}
	return n, nil
}

// Ping checks the connection; used by the readiness probe
func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func scanPayment(row pgx.Row) (repository.Payment, error) {
	var (
		p           repository.Payment
		amount      string
		status      string
		createdAt   time.Time
		settledAt   *time.Time
		cancelledAt *time.Time
	)
	if err := row.Scan(&p.ID, &amount, &status, &p.ExternalReference, &p.ScannableCode,
		&createdAt, &settledAt, &cancelledAt); err != nil {
		return repository.Payment{}, err
	}

	var err error
	if p.Amount, err = decimal.NewFromString(amount); err != nil {
		return repository.Payment{}, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	if p.Status, err = repository.ParseStatus(status); err != nil {
		return repository.Payment{}, err
	}

	p.CreatedAt = createdAt.UTC()
	if settledAt != nil {
		t := settledAt.UTC()
		p.SettledAt = &t
	}
	if cancelledAt != nil {
		t := cancelledAt.UTC()
		p.CancelledAt = &t
	}
	return p, nil
}
