package repository

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentRepository stores the payments opened at the gateway
type PaymentRepository interface {
	// Create stores a pending payment; the id is chosen by the caller
	Create(ctx context.Context, p Payment) error
	// Get returns the payment or ErrNotFound
	Get(ctx context.Context, id string) (Payment, error)
	// Confirm marks a pending payment confirmed.
	// A second confirmation returns the stored payment and ErrAlreadyConfirmed.
	Confirm(ctx context.Context, id string, confirmedAt time.Time) (Payment, error)
}

var (
	ErrNotFound         = errors.New("payment not found")
	ErrAlreadyConfirmed = errors.New("payment already confirmed")
	ErrDuplicateID      = errors.New("payment id already exists")
)

// Status of a gateway payment
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
)

// Payment is a payment as the gateway sees it.
// ID is the external reference handed back to the merchant.
type Payment struct {
	ID          string
	Amount      decimal.Decimal
	Status      Status
	QR          string
	CreatedAt   time.Time
	ConfirmedAt *time.Time
}
