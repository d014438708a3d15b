package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/riseup/payments/services/gateway/internal/service"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestConfirmationPublisher_Notify(t *testing.T) {
	writer := &fakeWriter{}
	p := NewConfirmationPublisher(zap.NewNop(), writer, "gateway.payments")
	now := time.Date(2026, 3, 1, 10, 5, 1, 0, time.UTC)
	p.now = func() time.Time { return now }

	settledAt := time.Date(2026, 3, 1, 10, 5, 0, 0, time.UTC)
	err := p.Notify(context.Background(), service.Confirmation{ExternalReference: "gw-1", SettledAt: settledAt})
	require.NoError(t, err)

	require.Len(t, writer.messages, 1)
	require.Equal(t, "gw-1", string(writer.messages[0].Key))

	var raw map[string]any
	require.NoError(t, json.Unmarshal(writer.messages[0].Value, &raw))
	require.Equal(t, "gateway.payment.confirmed", raw["event_type"])
	require.Equal(t, "gw-1", raw["external_reference"])
	require.Equal(t, "2026-03-01T10:05:00Z", raw["settled_at"])
	require.Equal(t, "2026-03-01T10:05:01Z", raw["occurred_at"])
	require.NotEmpty(t, raw["event_id"])
}

func TestConfirmationPublisher_WriteError(t *testing.T) {
	writer := &fakeWriter{err: errors.New("broker down")}
	p := NewConfirmationPublisher(zap.NewNop(), writer, "gateway.payments")

	err := p.Notify(context.Background(), service.Confirmation{ExternalReference: "gw-1", SettledAt: time.Now()})
	require.ErrorContains(t, err, "broker down")
}
