package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"
)

// State represents the circuit breaker state.
type State int

const (
	Closed   State = iota // Normal operation, calls pass through.
	Open                  // Failing, calls are rejected immediately.
	HalfOpen              // Probing recovery with the next call.
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half_open"
	}
	return "unknown"
}

// ErrCircuitOpen is returned when the circuit breaker is open.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// Option configures a Breaker.
type Option func(*Breaker)

// WithIgnore marks errors that do not count as failures. Contract exit codes
// come from a healthy lite-server and should not trip the breaker.
func WithIgnore(ignore func(error) bool) Option {
	return func(b *Breaker) { b.ignore = ignore }
}

// WithStateHook is called with the new state on every transition, outside the lock.
func WithStateHook(hook func(State)) Option {
	return func(b *Breaker) { b.onState = hook }
}

// Breaker implements the circuit breaker pattern.
type Breaker struct {
	mu              sync.Mutex
	state           State
	failures        int
	maxFailures     int
	resetTimeout    time.Duration
	lastFailureTime time.Time

	ignore  func(error) bool
	onState func(State)
}

// New creates a Breaker that opens after maxFailures consecutive errors
// and attempts recovery after resetTimeout.
func New(maxFailures int, resetTimeout time.Duration, opts ...Option) *Breaker {
	b := &Breaker{
		state:        Closed,
		maxFailures:  maxFailures,
		resetTimeout: resetTimeout,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Execute runs fn through the circuit breaker. If the circuit is open,
// ErrCircuitOpen is returned without calling fn.
func (b *Breaker) Execute(fn func() error) error {
	return b.Call(context.Background(), func(context.Context) error { return fn() })
}

// Call is Execute with a context. A canceled context is returned as is and
// never counts as a failure.
func (b *Breaker) Call(ctx context.Context, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	var probing bool
	if b.state == Open {
		if time.Since(b.lastFailureTime) <= b.resetTimeout {
			b.mu.Unlock()
			return ErrCircuitOpen
		}
		b.state = HalfOpen
		probing = true
	}
	b.mu.Unlock()
	if probing {
		b.notify(HalfOpen)
	}

	err := fn(ctx)

	b.mu.Lock()
	var changed bool
	defer func() {
		state := b.state
		b.mu.Unlock()
		if changed {
			b.notify(state)
		}
	}()

	if err != nil && !b.countable(ctx, err) {
		return err
	}

	before := b.state
	if err != nil {
		b.failures++
		b.lastFailureTime = time.Now()
		if b.failures >= b.maxFailures {
			b.state = Open
		}
	} else {
		b.failures = 0
		b.state = Closed
	}
	changed = before != b.state
	return err
}

func (b *Breaker) countable(ctx context.Context, err error) bool {
	if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		return false
	}
	if b.ignore != nil && b.ignore(err) {
		return false
	}
	return true
}

func (b *Breaker) notify(s State) {
	if b.onState != nil {
		b.onState(s)
	}
}

// GetState returns the current state of the breaker.
func (b *Breaker) GetState() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
