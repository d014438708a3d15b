package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/riseup/payments/platform/observability"
	"github.com/riseup/payments/services/gateway/internal/repository"
)

// ErrInvalidAmount is returned for a missing or non-positive amount
var ErrInvalidAmount = errors.New("amount must be a positive number")

// Service simulates the payment gateway: it opens payments, lets the payer
// confirm them and tells the merchant about every confirmation
type Service struct {
	logger    *zap.Logger
	repo      repository.PaymentRepository
	codes     CodeGenerator
	notifiers []Notifier
	publicURL string
	now       func() time.Time
}

// Option customizes a Service
type Option func(*Service)

// WithClock replaces time.Now (tests)
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates the gateway service.
// publicURL is the externally visible base URL the wallet links are built from.
func NewService(logger *zap.Logger, repo repository.PaymentRepository, codes CodeGenerator, publicURL string, notifiers []Notifier, opts ...Option) *Service {
	s := &Service{
		logger:    logger,
		repo:      repo,
		codes:     codes,
		notifiers: notifiers,
		publicURL: strings.TrimRight(publicURL, "/"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// WalletURL is where the payer confirms payment id
func (s *Service) WalletURL(id string) string {
	return s.publicURL + "/wallet/" + id
}

// CreatePayment opens a pending payment and renders its scannable code
func (s *Service) CreatePayment(ctx context.Context, amount decimal.Decimal) (repository.Payment, error) {
	logger := observability.L(ctx, s.logger)

	if !amount.IsPositive() {
		return repository.Payment{}, ErrInvalidAmount
	}

	id := uuid.NewString()
	qr, err := s.codes.Generate(s.WalletURL(id))
	if err != nil {
		return repository.Payment{}, fmt.Errorf("failed to render code: %w", err)
	}

	payment := repository.Payment{
		ID:        id,
		Amount:    amount,
		Status:    repository.StatusPending,
		QR:        qr,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.Create(ctx, payment); err != nil {
		return repository.Payment{}, fmt.Errorf("failed to store payment: %w", err)
	}

	logger.Info("gateway payment created",
		zap.String("payment_id", id),
		zap.String("amount", amount.String()),
	)
	return payment, nil
}

// GetPayment returns a payment by id
func (s *Service) GetPayment(ctx context.Context, id string) (repository.Payment, error) {
	payment, err := s.repo.Get(ctx, id)
	if err != nil {
		return repository.Payment{}, fmt.Errorf("failed to get payment %s: %w", id, err)
	}
	return payment, nil
}

// ConfirmPayment is the payer's wallet action.
// The first confirmation notifies every notifier; repeats return ErrAlreadyConfirmed and notify nothing.
func (s *Service) ConfirmPayment(ctx context.Context, id string) (repository.Payment, error) {
	logger := observability.L(ctx, s.logger).With(zap.String("payment_id", id))

	payment, err := s.repo.Confirm(ctx, id, s.now())
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyConfirmed) {
			logger.Info("payment already confirmed")
			return payment, err
		}
		return repository.Payment{}, fmt.Errorf("failed to confirm payment %s: %w", id, err)
	}
	logger.Info("gateway payment confirmed", zap.Time("confirmed_at", *payment.ConfirmedAt))

	c := Confirmation{ExternalReference: payment.ID, SettledAt: *payment.ConfirmedAt}
	for _, n := range s.notifiers {
		// delivery failures never undo the confirmation
		if err := n.Notify(ctx, c); err != nil {
			logger.Error("failed to notify merchant", zap.Error(err))
		}
	}

	return payment, nil
}
