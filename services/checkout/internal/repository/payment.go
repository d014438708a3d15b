package repository

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of a payment
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

// ParseStatus converts a stored value back into a Status
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusConfirmed, StatusCancelled:
		return Status(s), nil
	default:
		return "", fmt.Errorf("unknown payment status %q", s)
	}
}

// IsTerminal reports whether no further transition is allowed
func (s Status) IsTerminal() bool {
	return s == StatusConfirmed || s == StatusCancelled
}

// CanTransitionTo validates a transition from s to target.
//
// Allowed transitions:
//   - pending → confirmed
//   - pending → cancelled
//
// Any transition out of a terminal state returns ErrAlreadySettled.
func (s Status) CanTransitionTo(target Status) error {
	if s.IsTerminal() {
		return ErrAlreadySettled
	}
	if s == StatusPending && target.IsTerminal() {
		return nil
	}
	return fmt.Errorf("invalid payment transition %s -> %s", s, target)
}

// Payment is the payment record: the domain model, independent of HTTP and storage
type Payment struct {
	ID                string
	Amount            decimal.Decimal
	Status            Status
	ExternalReference string
	// ScannableCode is only meaningful while the payment is pending
	ScannableCode string
	CreatedAt     time.Time
	// SettledAt is set iff Status == StatusConfirmed
	SettledAt *time.Time
	// CancelledAt is set iff Status == StatusCancelled
	CancelledAt *time.Time
}

// Transition applies a pending → terminal transition in place
func (p *Payment) Transition(target Status, at time.Time) error {
	if err := p.Status.CanTransitionTo(target); err != nil {
		return err
	}

	at = at.UTC()
	p.Status = target
	p.ScannableCode = ""
	switch target {
	case StatusConfirmed:
		p.SettledAt = &at
	case StatusCancelled:
		p.CancelledAt = &at
	}
	return nil
}
