// Package resilience guards calls to flaky dependencies: a circuit breaker
// for the maps host, jittered exponential retry for startup and message
// handling, and a hard deadline for calls that may ignore their context.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	}
	return "unknown"
}

type CircuitBreakerConfig struct {
	// FailureThreshold consecutive failures open the circuit. Default 5.
	FailureThreshold int
	// ResetTimeout is how long the circuit stays open before probing.
	// Default 30s.
	ResetTimeout time.Duration
	// HalfOpenMaxRequests probes may be in flight while half-open. Default 1.
	HalfOpenMaxRequests int
	// OnStateChange runs with the breaker locked; it must not call back in.
	OnStateChange func(name string, from, to State)
	// IsFailure filters which errors count. Nil counts every error.
	IsFailure func(err error) bool
}

// CircuitBreaker fails calls fast after repeated failures. Results are
// tagged with the generation they started in, so a slow call that finishes
// after the state has moved on cannot flip it again.
type CircuitBreaker struct {
	name   string
	cfg    CircuitBreakerConfig
	now    func() time.Time
	logger *slog.Logger

	mu         sync.Mutex
	state      State
	generation uint64
	failures   int
	inFlight   int
	openedAt   time.Time
}

func NewCircuitBreaker(name string, cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}
	if cfg.HalfOpenMaxRequests <= 0 {
		cfg.HalfOpenMaxRequests = 1
	}
	return &CircuitBreaker{
		name:   name,
		cfg:    cfg,
		now:    time.Now,
		logger: slog.Default().With("component", "circuit-breaker", "name", name),
	}
}

// Execute runs fn unless the circuit is open. A call whose ctx is already
// done is rejected without running fn, and failures caused by the caller
// cancelling are not counted.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	gen, err := cb.admit()
	if err != nil {
		return err
	}
	err = fn(ctx)
	cb.settle(gen, err, err != nil && ctx.Err() != nil)
	return err
}

func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) admit() (uint64, error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen {
		wait := cb.cfg.ResetTimeout - cb.now().Sub(cb.openedAt)
		if wait > 0 {
			return 0, fmt.Errorf("%w: %s (retry in %v)", ErrCircuitOpen, cb.name, wait.Round(time.Millisecond))
		}
		cb.moveTo(StateHalfOpen)
	}
	if cb.state == StateHalfOpen {
		if cb.inFlight >= cb.cfg.HalfOpenMaxRequests {
			return 0, fmt.Errorf("%w: %s (probe in flight)", ErrCircuitOpen, cb.name)
		}
		cb.inFlight++
	}
	return cb.generation, nil
}

// settle records the outcome of a call admitted in generation gen.
func (cb *CircuitBreaker) settle(gen uint64, err error, cancelled bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if gen != cb.generation {
		return
	}
	if cb.state == StateHalfOpen {
		cb.inFlight--
	}
	switch {
	case cancelled:
	case err == nil || (cb.cfg.IsFailure != nil && !cb.cfg.IsFailure(err)):
		cb.failures = 0
		if cb.state == StateHalfOpen {
			cb.moveTo(StateClosed)
		}
	default:
		cb.failures++
		if cb.state == StateHalfOpen || cb.failures >= cb.cfg.FailureThreshold {
			cb.logger.Warn("circuit opened", "consecutive_failures", cb.failures, "error", err)
			cb.moveTo(StateOpen)
		}
	}
}

// Reset closes the circuit and forgets past failures.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.moveTo(StateClosed)
}

func (cb *CircuitBreaker) moveTo(to State) {
	from := cb.state
	cb.state = to
	cb.generation++
	cb.inFlight = 0
	switch to {
	case StateOpen:
		cb.openedAt = cb.now()
	case StateClosed:
		cb.failures = 0
	}
	if from == to {
		return
	}
	cb.logger.Info("circuit state changed", "from", from, "to", to)
	if cb.cfg.OnStateChange != nil {
		cb.cfg.OnStateChange(cb.name, from, to)
	}
}
