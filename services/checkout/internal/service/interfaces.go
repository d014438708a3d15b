package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name=GatewayClient --dir=. --output=./mocks --outpkg=mocks

// GatewayClient opens payments at the external gateway.
// Uses domain types only, so the service does not depend on the transport.
type GatewayClient interface {
	// CreatePayment asks the gateway for a new payment of amount
	CreatePayment(ctx context.Context, amount decimal.Decimal) (GatewayPayment, error)
}

// GatewayPayment is what the gateway returns for a new payment
type GatewayPayment struct {
	ExternalReference string
	ScannableCode     string
}

//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name=PaymentEventPublisher --dir=. --output=./mocks --outpkg=mocks

// PaymentEventPublisher publishes payment lifecycle events
type PaymentEventPublisher interface {
	PublishPaymentEvent(ctx context.Context, event PaymentEvent) error
}

// Event types published by the checkout service
const (
	EventPaymentCreated   = "payment.created"
	EventPaymentConfirmed = "payment.confirmed"
	EventPaymentCancelled = "payment.cancelled"
)

// PaymentEvent is an outgoing lifecycle event
type PaymentEvent struct {
	EventID           string // generated by the publisher when empty
	EventType         string
	EventVersion      int
	OccurredAt        time.Time
	PaymentID         string
	ExternalReference string
	Amount            decimal.Decimal
	Status            string
}

// MetricsRecorder receives service-level measurements
type MetricsRecorder interface {
	RecordChargeCreated(result string)
	RecordConfirmation(result string)
	RecordUpstreamDuration(d time.Duration, result string)
}

type noopMetrics struct{}

func (noopMetrics) RecordChargeCreated(string)                   {}
func (noopMetrics) RecordConfirmation(string)                    {}
func (noopMetrics) RecordUpstreamDuration(time.Duration, string) {}
