package repository

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name=PaymentRepository --dir=. --output=./mocks --outpkg=mocks

// PaymentRepository is the Payment Store.
// The service layer depends on this interface; memory, postgres and redis implement it.
type PaymentRepository interface {
	// Create allocates a fresh id and stores a pending record.
	// Returns ErrInvalidAmount for a non-positive amount and
	// ErrDuplicateReference when another record already holds the external reference.
	Create(ctx context.Context, p NewPayment) (Payment, error)

	// Get returns the record by local id or ErrNotFound
	Get(ctx context.Context, id string) (Payment, error)

	// FindByExternalReference returns the single record holding ref or ErrNotFound.
	// ErrCorrupted means the uniqueness invariant no longer holds.
	FindByExternalReference(ctx context.Context, ref string) (Payment, error)

	// Confirm moves a pending record to confirmed and records settledAt.
	// Returns ErrAlreadySettled (record untouched) when it is no longer pending.
	Confirm(ctx context.Context, id string, settledAt time.Time) (Payment, error)

	// Cancel moves a pending record to cancelled; same errors as Confirm
	Cancel(ctx context.Context, id string, cancelledAt time.Time) (Payment, error)

	// Count returns the number of stored records
	Count(ctx context.Context) (int, error)
}

var (
	// ErrNotFound is returned for an unknown id or external reference
	ErrNotFound = errors.New("payment not found")
	// ErrInvalidAmount is returned when the amount is not a positive number
	ErrInvalidAmount = errors.New("amount must be a positive number")
	// ErrAlreadySettled is returned for a transition on a record that is no longer pending
	ErrAlreadySettled = errors.New("payment already settled")
	// ErrDuplicateReference is returned when an external reference is already taken
	ErrDuplicateReference = errors.New("external reference already registered")
	// ErrCorrupted is returned when more than one record matches an external reference
	ErrCorrupted = errors.New("payment store corrupted: external reference is not unique")
)

// NewPayment is the input of PaymentRepository.Create
type NewPayment struct {
	Amount            decimal.Decimal
	ExternalReference string
	ScannableCode     string
	// CreatedAt defaults to the current time
	CreatedAt time.Time
}

// ValidateAmount accepts strictly positive amounts only
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}
