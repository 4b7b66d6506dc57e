// Package circuitbreaker stops calling a failing remote for a while once it
// has failed a number of times in a row.
package circuitbreaker

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrOpen is returned by Execute while the circuit is open.
var ErrOpen = errors.New("circuit breaker is open")

// State represents the current state of the circuit breaker
type State int

const (
	StateClosed   State = iota // Normal operation, requests allowed
	StateOpen                  // Circuit is tripped, requests blocked
	StateHalfOpen              // Testing if service has recovered
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// CircuitBreaker implements the circuit breaker pattern to prevent cascading failures
// by temporarily stopping operations when a threshold of failures is reached.
type CircuitBreaker struct {
	state     State         // Current state of the circuit breaker
	failures  int           // Count of consecutive failures
	threshold int           // Number of failures before opening circuit
	timeout   time.Duration // How long to wait before attempting recovery
	lastError error         // Most recent error that occurred
	mu        sync.Mutex    // Protects concurrent access to state
	openTime  time.Time     // When the circuit was opened

	isFailure func(error) bool // which errors count against the threshold
	now       func() time.Time

	logger *logrus.Entry
}

// Option configures a CircuitBreaker.
type Option func(*CircuitBreaker)

// WithFailurePredicate limits the errors counted as failures. Errors for
// which fn returns false are returned to the caller but leave the breaker
// untouched, which suits client errors such as a rejected order.
func WithFailurePredicate(fn func(error) bool) Option {
	return func(cb *CircuitBreaker) {
		cb.isFailure = fn
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(cb *CircuitBreaker) {
		cb.now = now
	}
}

// NewCircuitBreaker creates a new circuit breaker with the specified failure threshold
// and recovery timeout duration.
//
// Parameters:
//   - threshold: Number of consecutive failures before opening the circuit
//   - timeout: Duration to wait before attempting recovery in half-open state
//
// Returns:
//   - *CircuitBreaker: A new circuit breaker instance in the closed state
func NewCircuitBreaker(threshold int, timeout time.Duration, opts ...Option) *CircuitBreaker {
	if threshold < 1 {
		threshold = 1
	}
	cb := &CircuitBreaker{
		state:     StateClosed,
		threshold: threshold,
		timeout:   timeout,
		isFailure: func(err error) bool { return err != nil },
		now:       time.Now,
		logger:    logrus.WithField("component", "circuitbreaker"),
	}
	for _, opt := range opts {
		opt(cb)
	}
	return cb
}

// Execute runs the provided function if the circuit breaker allows it.
// Records the result and updates the circuit breaker state accordingly.
//
// Parameters:
//   - fn: The function to execute if circuit is closed
//
// Returns:
//   - error: Error from function execution, or ErrOpen (wrapping the last
//     failure) when the call was not attempted
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if !cb.AllowRequest() {
		return fmt.Errorf("%w: %v", ErrOpen, cb.LastError())
	}

	err := fn()
	cb.RecordResult(err)
	return err
}

// AllowRequest checks if a request should be allowed through based on the
// current state of the circuit breaker. Once the recovery timeout has passed
// an open breaker moves to half-open and lets requests through again.
func (cb *CircuitBreaker) AllowRequest() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state != StateOpen {
		return true
	}
	if cb.now().Sub(cb.openTime) > cb.timeout {
		cb.state = StateHalfOpen
		cb.logger.Warn("Circuit breaker transitioned to half-open")
		return true
	}
	return false
}

// RecordResult records the result of a request and updates the circuit breaker state.
// Failed requests increment the failure counter and may open the circuit; a
// failure while half-open reopens it at once.
// Successful requests reset the failure counter and close the circuit.
//
// Parameters:
//   - err: The error result to record (nil for success)
func (cb *CircuitBreaker) RecordResult(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err != nil && cb.isFailure(err) {
		cb.failures++
		cb.lastError = err
		if cb.state == StateHalfOpen || cb.failures >= cb.threshold {
			if cb.state != StateOpen {
				cb.logger.WithError(err).Warnf("Circuit breaker opened after %d failures", cb.failures)
			}
			cb.state = StateOpen
			cb.openTime = cb.now()
		}
		return
	}

	if cb.state != StateClosed {
		cb.logger.Info("Circuit breaker closed")
	}
	cb.failures = 0
	cb.state = StateClosed
}

// State returns the current state without triggering the half-open transition.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) LastError() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return cb.lastError
}
