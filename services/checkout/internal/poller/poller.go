// Package poller watches a payment until it leaves the pending state.
//
// A Poller fetches the record once immediately. A NotFound or any other error
// on that first fetch ends the watch without scheduling anything. While the
// record is pending it is re-fetched on every tick; the first non-pending
// snapshot ends the watch. Errors after the first fetch are reported as
// transient and retried on the next tick.
package poller

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/riseup/payments/services/checkout/internal/repository"
)

// DefaultInterval is the pause between two fetches
const DefaultInterval = 5 * time.Second

//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name=Fetcher --dir=. --output=./mocks --outpkg=mocks

// Fetcher loads the current state of a payment.
// A missing payment must be reported as repository.ErrNotFound.
type Fetcher interface {
	FetchPayment(ctx context.Context, id string) (repository.Payment, error)
}

// State is what an Update reports
type State string

const (
	StatePending   State = "pending"
	StateConfirmed State = "confirmed"
	StateCancelled State = "cancelled"
	// StateTransient is a failed re-fetch; polling continues
	StateTransient State = "transient_error"
	// StateNotFound and StateError end the watch on the first fetch
	StateNotFound State = "not_found"
	StateError    State = "error"
	// StateStopped means Stop was called or the context ended
	StateStopped State = "stopped"
)

// IsFinal reports whether no further update follows
func (s State) IsFinal() bool {
	switch s {
	case StateConfirmed, StateCancelled, StateNotFound, StateError, StateStopped:
		return true
	default:
		return false
	}
}

// Update is one observation of the watched payment
type Update struct {
	State   State
	Payment repository.Payment // last successfully fetched snapshot
	Err     error
	Fetches int // fetches issued so far, including the first one
}

// Ticker abstracts time.Ticker
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type realTicker struct {
	t *time.Ticker
}

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

// Poller starts watches over a Fetcher
type Poller struct {
	fetcher   Fetcher
	logger    *zap.Logger
	interval  time.Duration
	onUpdate  func(Update)
	newTicker func(time.Duration) Ticker
}

// Option customizes a Poller
type Option func(*Poller)

// WithInterval sets the pause between fetches; non-positive values keep the default
func WithInterval(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithOnUpdate registers a callback invoked for every update, on the watch goroutine
func WithOnUpdate(fn func(Update)) Option {
	return func(p *Poller) { p.onUpdate = fn }
}

// WithTicker replaces the ticker factory (used by tests)
func WithTicker(newTicker func(time.Duration) Ticker) Option {
	return func(p *Poller) { p.newTicker = newTicker }
}

// New creates a Poller
func New(fetcher Fetcher, logger *zap.Logger, opts ...Option) *Poller {
	p := &Poller{
		fetcher:  fetcher,
		logger:   logger,
		interval: DefaultInterval,
		onUpdate: func(Update) {},
		newTicker: func(d time.Duration) Ticker {
			return realTicker{t: time.NewTicker(d)}
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Handle controls one running watch
type Handle struct {
	cancel context.CancelFunc
	done   chan struct{}

	mu     sync.Mutex
	result Update
}

// Stop cancels the watch. Safe to call more than once and from the OnUpdate callback.
func (h *Handle) Stop() {
	h.cancel()
}

// Done is closed once the watch has ended, on every path
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Result returns the final update; valid after Done is closed
func (h *Handle) Result() Update {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.result
}

// Start begins watching payment id on a new goroutine
func (p *Poller) Start(ctx context.Context, id string) *Handle {
	ctx, cancel := context.WithCancel(ctx)
	h := &Handle{
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go func() {
		defer close(h.done)
		defer cancel()

		final := p.run(ctx, id)

		h.mu.Lock()
		h.result = final
		h.mu.Unlock()
	}()

	return h
}

func (p *Poller) run(ctx context.Context, id string) Update {
	logger := p.logger.With(zap.String("payment_id", id))

	payment, err := p.fetcher.FetchPayment(ctx, id)
	last := Update{Fetches: 1}
	if err != nil {
		last.Err = err
		switch {
		case ctx.Err() != nil:
			last.State = StateStopped
		case errors.Is(err, repository.ErrNotFound):
			last.State = StateNotFound
		default:
			last.State = StateError
		}
		logger.Info("payment watch ended on first fetch", zap.String("state", string(last.State)), zap.Error(err))
		p.onUpdate(last)
		return last
	}

	last.Payment = payment
	last.State = stateOf(payment.Status)
	p.onUpdate(last)
	if last.State.IsFinal() {
		return last
	}

	ticker := p.newTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			last.State = StateStopped
			last.Err = ctx.Err()
			logger.Debug("payment watch stopped", zap.Int("fetches", last.Fetches))
			p.onUpdate(last)
			return last
		case <-ticker.C():
		}

		payment, err := p.fetcher.FetchPayment(ctx, id)
		last.Fetches++
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			logger.Warn("payment fetch failed, retrying on next tick", zap.Error(err))
			p.onUpdate(Update{State: StateTransient, Payment: last.Payment, Err: err, Fetches: last.Fetches})
			continue
		}

		last.Payment = payment
		last.State = stateOf(payment.Status)
		last.Err = nil
		p.onUpdate(last)
		if last.State.IsFinal() {
			logger.Info("payment left pending",
				zap.String("status", string(payment.Status)),
				zap.Int("fetches", last.Fetches),
			)
			return last
		}
	}
}

func stateOf(s repository.Status) State {
	switch s {
	case repository.StatusConfirmed:
		return StateConfirmed
	case repository.StatusCancelled:
		return StateCancelled
	default:
		return StatePending
	}
}
