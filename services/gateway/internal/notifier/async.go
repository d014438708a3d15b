package notifier

import (
	"context"
	"errors"
	"sync"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/riseup/payments/services/gateway/internal/service"
)

// ErrStopped is returned by Async.Notify after Shutdown
var ErrStopped = errors.New("notifier stopped")

// Async runs the wrapped notifier on a background goroutine so the payer's
// request does not wait for webhook retries. Deliveries live as long as the
// Async, not as long as the request that triggered them.
type Async struct {
	logger *zap.Logger
	next   service.Notifier

	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewAsync wraps next
func NewAsync(logger *zap.Logger, next service.Notifier) *Async {
	ctx, cancel := context.WithCancel(context.Background())
	return &Async{
		logger: logger,
		next:   next,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Notify schedules the delivery and returns immediately
func (a *Async) Notify(ctx context.Context, c service.Confirmation) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return ErrStopped
	}

	// keep the trace of the triggering request, drop its deadline
	deliveryCtx := trace.ContextWithSpanContext(a.ctx, trace.SpanContextFromContext(ctx))

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.next.Notify(deliveryCtx, c); err != nil {
			a.logger.Error("async notification failed",
				zap.String("external_reference", c.ExternalReference),
				zap.Error(err),
			)
		}
	}()
	return nil
}

// Shutdown stops accepting work and waits for in-flight deliveries.
// When ctx ends first the deliveries are cancelled.
func (a *Async) Shutdown(ctx context.Context) error {
	a.mu.Lock()
	a.closed = true
	a.mu.Unlock()

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		a.cancel()
		return nil
	case <-ctx.Done():
		a.cancel()
		<-done
		return ctx.Err()
	}
}
