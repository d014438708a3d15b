package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/riseup/payments/platform/observability"
	"github.com/riseup/payments/services/checkout/internal/repository"
)

const defaultUpstreamTimeout = 10 * time.Second

// Service holds the payment lifecycle logic: charge initiation,
// confirmation by external reference and cancellation
type Service struct {
	logger          *zap.Logger
	repo            repository.PaymentRepository
	gateway         GatewayClient
	publisher       PaymentEventPublisher
	metrics         MetricsRecorder
	now             func() time.Time
	upstreamTimeout time.Duration
}

// Option customizes a Service
type Option func(*Service)

// WithClock replaces time.Now (used by tests)
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithUpstreamTimeout bounds every gateway call
func WithUpstreamTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.upstreamTimeout = d
		}
	}
}

// WithMetrics sets the metrics recorder
func WithMetrics(m MetricsRecorder) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// NewService creates a Service
func NewService(
	logger *zap.Logger,
	repo repository.PaymentRepository,
	gateway GatewayClient,
	publisher PaymentEventPublisher,
	opts ...Option,
) *Service {
	s := &Service{
		logger:          logger,
		repo:            repo,
		gateway:         gateway,
		publisher:       publisher,
		metrics:         noopMetrics{},
		now:             time.Now,
		upstreamTimeout: defaultUpstreamTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateCharge validates the amount, opens a payment at the gateway and
// stores a pending record for it. The gateway is never called for an invalid
// amount, and no record is created when the gateway call fails.
func (s *Service) CreateCharge(ctx context.Context, amount decimal.Decimal) (repository.Payment, error) {
	logger := observability.L(ctx, s.logger)

	if err := repository.ValidateAmount(amount); err != nil {
		s.metrics.RecordChargeCreated("invalid_amount")
		return repository.Payment{}, err
	}

	logger.Info("creating charge", zap.String("amount", amount.String()))

	upstreamCtx, cancel := context.WithTimeout(ctx, s.upstreamTimeout)
	defer cancel()

	start := time.Now()
	gp, err := s.gateway.CreatePayment(upstreamCtx, amount)
	if err != nil {
		s.metrics.RecordUpstreamDuration(time.Since(start), "error")
		s.metrics.RecordChargeCreated("upstream_error")

		var upErr *UpstreamError
		if !errors.As(err, &upErr) {
			err = &UpstreamError{Op: "create payment", Err: err}
		}
		logger.Error("gateway create payment failed", zap.Error(err))
		return repository.Payment{}, err
	}
	s.metrics.RecordUpstreamDuration(time.Since(start), "ok")

	payment, err := s.repo.Create(ctx, repository.NewPayment{
		Amount:            amount,
		ExternalReference: gp.ExternalReference,
		ScannableCode:     gp.ScannableCode,
		CreatedAt:         s.now(),
	})
	if err != nil {
		s.metrics.RecordChargeCreated("store_error")
		logger.Error("failed to store payment",
			zap.Error(err),
			zap.String("external_reference", gp.ExternalReference),
		)
		return repository.Payment{}, fmt.Errorf("failed to store payment: %w", err)
	}
	s.metrics.RecordChargeCreated("ok")

	logger.Info("charge created",
		zap.String("payment_id", payment.ID),
		zap.String("external_reference", payment.ExternalReference),
	)

	s.publish(ctx, EventPaymentCreated, payment)
	return payment, nil
}

// GetCharge returns the current record
func (s *Service) GetCharge(ctx context.Context, id string) (repository.Payment, error) {
	payment, err := s.repo.Get(ctx, id)
	if err != nil {
		return repository.Payment{}, fmt.Errorf("failed to get payment %s: %w", id, err)
	}
	return payment, nil
}

// ConfirmInput is a gateway notification
type ConfirmInput struct {
	ExternalReference string
	// SettledAt defaults to the current time
	SettledAt *time.Time
}

// ConfirmOutput is the result of ConfirmByReference
type ConfirmOutput struct {
	Payment        repository.Payment
	AlreadySettled bool
}

// ConfirmByReference applies a settlement notification to the record holding
// the external reference.
//
// A repeated notification is never applied twice: the output then carries the
// unchanged record with AlreadySettled set, and the error is
// repository.ErrAlreadySettled so callers can decide how benign it is.
func (s *Service) ConfirmByReference(ctx context.Context, in ConfirmInput) (ConfirmOutput, error) {
	logger := observability.L(ctx, s.logger)

	if in.ExternalReference == "" {
		s.metrics.RecordConfirmation("invalid")
		return ConfirmOutput{}, ErrReferenceRequired
	}

	settledAt := s.now()
	if in.SettledAt != nil {
		settledAt = *in.SettledAt
	}

	payment, err := s.repo.FindByExternalReference(ctx, in.ExternalReference)
	if err != nil {
		s.metrics.RecordConfirmation("not_found")
		logger.Warn("confirmation for unknown reference",
			zap.String("external_reference", in.ExternalReference),
			zap.Error(err),
		)
		return ConfirmOutput{}, fmt.Errorf("failed to find payment by reference %s: %w", in.ExternalReference, err)
	}

	confirmed, err := s.repo.Confirm(ctx, payment.ID, settledAt)
	if err != nil {
		if errors.Is(err, repository.ErrAlreadySettled) {
			s.metrics.RecordConfirmation("already_settled")
			logger.Info("duplicate confirmation ignored",
				zap.String("payment_id", payment.ID),
				zap.String("status", string(confirmed.Status)),
			)
			return ConfirmOutput{Payment: confirmed, AlreadySettled: true}, err
		}
		s.metrics.RecordConfirmation("error")
		return ConfirmOutput{}, fmt.Errorf("failed to confirm payment %s: %w", payment.ID, err)
	}
	s.metrics.RecordConfirmation("ok")

	logger.Info("payment confirmed",
		zap.String("payment_id", confirmed.ID),
		zap.String("external_reference", confirmed.ExternalReference),
		zap.Time("settled_at", *confirmed.SettledAt),
	)

	s.publish(ctx, EventPaymentConfirmed, confirmed)
	return ConfirmOutput{Payment: confirmed}, nil
}

// CancelCharge abandons a pending payment.
// Unlike a duplicate confirmation, cancelling a settled payment is an error.
func (s *Service) CancelCharge(ctx context.Context, id string) (repository.Payment, error) {
	logger := observability.L(ctx, s.logger)

	cancelled, err := s.repo.Cancel(ctx, id, s.now())
	if err != nil {
		return cancelled, fmt.Errorf("failed to cancel payment %s: %w", id, err)
	}

	logger.Info("payment cancelled", zap.String("payment_id", cancelled.ID))

	s.publish(ctx, EventPaymentCancelled, cancelled)
	return cancelled, nil
}

// publish is best effort: the record is already committed, so a broker
// failure is logged and does not fail the operation
func (s *Service) publish(ctx context.Context, eventType string, p repository.Payment) {
	event := PaymentEvent{
		EventType:         eventType,
		EventVersion:      1,
		OccurredAt:        s.now().UTC(),
		PaymentID:         p.ID,
		ExternalReference: p.ExternalReference,
		Amount:            p.Amount,
		Status:            string(p.Status),
	}
	if err := s.publisher.PublishPaymentEvent(ctx, event); err != nil {
		observability.L(ctx, s.logger).Error("failed to publish payment event",
			zap.Error(err),
			zap.String("event_type", eventType),
			zap.String("payment_id", p.ID),
		)
	}
}
