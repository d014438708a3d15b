package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/riseup/payments/services/checkout/internal/repository"
	"github.com/riseup/payments/services/checkout/internal/service"
)

type fakeWriter struct {
	mu       sync.Mutex
	messages []kafka.Message
	err      error
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func (w *fakeWriter) written() []kafka.Message {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]kafka.Message(nil), w.messages...)
}

// fakeReader hands out queued messages, then blocks until ctx is cancelled
type fakeReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	committed []kafka.Message
	drained   chan struct{}
}

func newFakeReader(msgs ...kafka.Message) *fakeReader {
	return &fakeReader{queue: msgs, drained: make(chan struct{})}
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.queue) > 0 {
		m := r.queue[0]
		r.queue = r.queue[1:]
		r.mu.Unlock()
		return m, nil
	}
	r.mu.Unlock()

	select {
	case <-r.drained:
	default:
		close(r.drained)
	}
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *fakeReader) Close() error { return nil }

type fakeConfirmer struct {
	mu    sync.Mutex
	calls []service.ConfirmInput
	errs  []error // one per call; the last one repeats
}

func (f *fakeConfirmer) ConfirmByReference(ctx context.Context, in service.ConfirmInput) (service.ConfirmOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, in)
	if len(f.errs) == 0 {
		return service.ConfirmOutput{}, nil
	}
	err := f.errs[0]
	if len(f.errs) > 1 {
		f.errs = f.errs[1:]
	}
	return service.ConfirmOutput{}, err
}

func gatewayMessage(t *testing.T, offset int64, ref string) kafka.Message {
	t.Helper()
	value, err := json.Marshal(map[string]any{
		"event_id":           "evt-1",
		"event_type":         EventGatewayPaymentConfirmed,
		"occurred_at":        "2026-03-01T12:00:00Z",
		"external_reference": ref,
		"settled_at":         "2026-03-01T12:00:00Z",
	})
	require.NoError(t, err)
	return kafka.Message{Topic: "gateway.payments", Offset: offset, Key: []byte(ref), Value: value}
}

func runConsumer(t *testing.T, reader *fakeReader, confirmer Confirmer, dlq *fakeWriter) {
	t.Helper()
	consumer := NewConfirmationConsumer(zap.NewNop(), reader, confirmer,
		NewDLQPublisher(zap.NewNop(), dlq), 3, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- consumer.Start(ctx) }()

	select {
	case <-reader.drained:
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not drain the queue")
	}
	cancel()
	require.NoError(t, <-done)
}

func TestPaymentEventPublisher(t *testing.T) {
	writer := &fakeWriter{}
	p := NewPaymentEventPublisher(zap.NewNop(), writer, "checkout.payments")

	err := p.PublishPaymentEvent(context.Background(), service.PaymentEvent{
		EventType:         service.EventPaymentConfirmed,
		PaymentID:         "pay-1",
		ExternalReference: "gw-1",
		Amount:            decimal.RequireFromString("50.00"),
		Status:            "confirmed",
	})
	require.NoError(t, err)

	msgs := writer.written()
	require.Len(t, msgs, 1)
	require.Equal(t, "pay-1", string(msgs[0].Key))

	var body map[string]any
	require.NoError(t, json.Unmarshal(msgs[0].Value, &body))
	require.Equal(t, "payment.confirmed", body["event_type"])
	require.Equal(t, float64(1), body["event_version"])
	require.Equal(t, float64(50), body["amount"])
	require.NotEmpty(t, body["event_id"])
	require.NotEmpty(t, body["occurred_at"])
}

func TestPaymentEventPublisher_WriteError(t *testing.T) {
	writer := &fakeWriter{err: errors.New("broker down")}
	p := NewPaymentEventPublisher(zap.NewNop(), writer, "checkout.payments")

	err := p.PublishPaymentEvent(context.Background(), service.PaymentEvent{PaymentID: "pay-1"})
	require.Error(t, err)
}

func TestConfirmationConsumer(t *testing.T) {
	tests := []struct {
		name              string
		message           func(t *testing.T) kafka.Message
		confirmErrs       []error
		expectedCalls     int
		expectedDLQ       int
		expectedCommitted int
	}{
		{
			name:              "confirmation applied",
			message:           func(t *testing.T) kafka.Message { return gatewayMessage(t, 1, "gw-1") },
			expectedCalls:     1,
			expectedCommitted: 1,
		},
		{
			name:              "duplicate confirmation is success",
			message:           func(t *testing.T) kafka.Message { return gatewayMessage(t, 1, "gw-1") },
			confirmErrs:       []error{repository.ErrAlreadySettled},
			expectedCalls:     1,
			expectedCommitted: 1,
		},
		{
			name:              "unknown reference goes to DLQ without retries",
			message:           func(t *testing.T) kafka.Message { return gatewayMessage(t, 1, "gw-x") },
			confirmErrs:       []error{repository.ErrNotFound},
			expectedCalls:     1,
			expectedDLQ:       1,
			expectedCommitted: 1,
		},
		{
			name:              "transient errors are retried",
			message:           func(t *testing.T) kafka.Message { return gatewayMessage(t, 1, "gw-1") },
			confirmErrs:       []error{errors.New("db timeout"), errors.New("db timeout"), nil},
			expectedCalls:     3,
			expectedCommitted: 1,
		},
		{
			name:              "exhausted retries go to DLQ",
			message:           func(t *testing.T) kafka.Message { return gatewayMessage(t, 1, "gw-1") },
			confirmErrs:       []error{errors.New("db timeout")},
			expectedCalls:     3,
			expectedDLQ:       1,
			expectedCommitted: 1,
		},
		{
			name: "invalid JSON goes to DLQ",
			message: func(t *testing.T) kafka.Message {
				return kafka.Message{Topic: "gateway.payments", Value: []byte("{broken")}
			},
			expectedDLQ:       1,
			expectedCommitted: 1,
		},
		{
			name: "other event types are skipped",
			message: func(t *testing.T) kafka.Message {
				return kafka.Message{Value: []byte(`{"event_type":"gateway.payment.created","event_id":"e"}`)}
			},
			expectedCommitted: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := newFakeReader(tt.message(t))
			confirmer := &fakeConfirmer{errs: tt.confirmErrs}
			dlq := &fakeWriter{}

			runConsumer(t, reader, confirmer, dlq)

			require.Len(t, confirmer.calls, tt.expectedCalls)
			require.Len(t, dlq.written(), tt.expectedDLQ)
			require.Len(t, reader.committed, tt.expectedCommitted)
		})
	}
}

func TestConfirmationConsumer_PassesSettledAt(t *testing.T) {
	reader := newFakeReader(gatewayMessage(t, 1, "gw-1"))
	confirmer := &fakeConfirmer{}

	runConsumer(t, reader, confirmer, &fakeWriter{})

	require.Len(t, confirmer.calls, 1)
	require.Equal(t, "gw-1", confirmer.calls[0].ExternalReference)
	require.NotNil(t, confirmer.calls[0].SettledAt)
	require.True(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC).Equal(*confirmer.calls[0].SettledAt))
}

func TestParseGatewayEvent(t *testing.T) {
	_, err := ParseGatewayEvent([]byte(`{"event_type":"gateway.payment.confirmed"}`))
	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	require.Equal(t, "external_reference", parseErr.Field)

	_, err = ParseGatewayEvent([]byte(`{}`))
	require.ErrorAs(t, err, &parseErr)
	require.Equal(t, "event_type", parseErr.Field)
}

func TestConfirmationConsumer_SkipsProcessedEvents(t *testing.T) {
	// the gateway redelivers the same event id
	reader := newFakeReader(gatewayMessage(t, 1, "gw-1"), gatewayMessage(t, 2, "gw-1"))
	confirmer := &fakeConfirmer{}
	processed := NewMemoryProcessedEvents()

	consumer := NewConfirmationConsumer(zap.NewNop(), reader, confirmer,
		NewDLQPublisher(zap.NewNop(), &fakeWriter{}), 3, time.Millisecond).
		WithProcessedEvents(processed, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- consumer.Start(ctx) }()
	<-reader.drained
	cancel()
	require.NoError(t, <-done)

	require.Len(t, confirmer.calls, 1)
	require.Len(t, reader.committed, 2)

	seen, err := processed.IsProcessed(context.Background(), "evt-1")
	require.NoError(t, err)
	require.True(t, seen)
}

func TestMemoryProcessedEvents_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryProcessedEvents()
	store.now = func() time.Time { return now }

	seen, err := store.IsProcessed(ctx, "evt-1")
	require.NoError(t, err)
	require.False(t, seen)

	require.NoError(t, store.MarkProcessed(ctx, "evt-1", time.Minute))
	seen, err = store.IsProcessed(ctx, "evt-1")
	require.NoError(t, err)
	require.True(t, seen)

	now = now.Add(time.Minute)
	seen, err = store.IsProcessed(ctx, "evt-1")
	require.NoError(t, err)
	require.False(t, seen)
}
