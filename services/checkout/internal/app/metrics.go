package app

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// metricsRecorder implements service.MetricsRecorder with OTLP instruments
type metricsRecorder struct {
	charges       metric.Int64Counter
	confirmations metric.Int64Counter
	upstream      metric.Float64Histogram
}

func newMetricsRecorder() *metricsRecorder {
	meter := otel.Meter("checkout")
	charges, _ := meter.Int64Counter("checkout_charges_total", metric.WithDescription("Charge creation attempts by result"))
	confirmations, _ := meter.Int64Counter("checkout_confirmations_total", metric.WithDescription("Confirmation notifications by result"))
	upstream, _ := meter.Float64Histogram("checkout_gateway_duration_ms", metric.WithDescription("Gateway create payment duration in milliseconds"))
	return &metricsRecorder{
		charges:       charges,
		confirmations: confirmations,
		upstream:      upstream,
	}
}

func (r *metricsRecorder) RecordChargeCreated(result string) {
	if r.charges == nil {
		return
	}
	r.charges.Add(context.Background(), 1, metric.WithAttributes(attribute.String("result", result)))
}

func (r *metricsRecorder) RecordConfirmation(result string) {
	if r.confirmations == nil {
		return
	}
	r.confirmations.Add(context.Background(), 1, metric.WithAttributes(attribute.String("result", result)))
}

func (r *metricsRecorder) RecordUpstreamDuration(d time.Duration, result string) {
	if r.upstream == nil {
		return
	}
	r.upstream.Record(context.Background(), float64(d.Milliseconds()), metric.WithAttributes(attribute.String("result", result)))
}
