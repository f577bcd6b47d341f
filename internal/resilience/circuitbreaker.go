// Package resilience provides failure containment for the trading loop.
package resilience

import (
	"sync"
	"time"
)

// CircuitState represents the state of a circuit breaker.
type CircuitState string

const (
	CircuitClosed   CircuitState = "closed"    // normal operation
	CircuitOpen     CircuitState = "open"      // failing, calls suppressed
	CircuitHalfOpen CircuitState = "half_open" // probing for recovery
)

// CircuitBreakerConfig holds circuit breaker configuration.
type CircuitBreakerConfig struct {
	// FailureThreshold is the number of consecutive failures before the
	// circuit opens.
	FailureThreshold int
	// SuccessThreshold is the number of consecutive successes in
	// half-open state needed to close the circuit again.
	SuccessThreshold int
	// Cooldown is how long an open circuit suppresses calls before
	// allowing a probe.
	Cooldown time.Duration
}

// DefaultCircuitBreakerConfig suits a once-per-minute trading cycle:
// three failed cycles open the circuit, one clean cycle closes it and
// the cooldown skips five ticks.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		FailureThreshold: 3,
		SuccessThreshold: 1,
		Cooldown:         5 * time.Minute,
	}
}

// CircuitBreaker tracks consecutive cycle outcomes and suppresses
// trading while the exchange or the network is persistently failing.
// Suppressed cycles skip all exchange calls, so a flapping connection
// cannot fire a burst of half-confirmed orders.
type CircuitBreaker struct {
	config CircuitBreakerConfig

	mu        sync.Mutex
	state     CircuitState
	failures  int
	successes int
	openedAt  time.Time
	now       func() time.Time
}

// NewCircuitBreaker creates a circuit breaker in the closed state.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = DefaultCircuitBreakerConfig().FailureThreshold
	}
	if config.SuccessThreshold <= 0 {
		config.SuccessThreshold = DefaultCircuitBreakerConfig().SuccessThreshold
	}
	if config.Cooldown <= 0 {
		config.Cooldown = DefaultCircuitBreakerConfig().Cooldown
	}
	return &CircuitBreaker{
		config: config,
		state:  CircuitClosed,
		now:    time.Now,
	}
}

// Allow reports whether the next cycle may run. An open circuit whose
// cooldown has elapsed transitions to half-open and allows one probe.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed, CircuitHalfOpen:
		return true
	case CircuitOpen:
		if cb.now().Sub(cb.openedAt) >= cb.config.Cooldown {
			cb.state = CircuitHalfOpen
			cb.successes = 0
			return true
		}
		return false
	}
	return true
}

// RecordSuccess registers a clean cycle.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures = 0
	if cb.state == CircuitHalfOpen {
		cb.successes++
		if cb.successes >= cb.config.SuccessThreshold {
			cb.state = CircuitClosed
			cb.successes = 0
		}
	}
}

// RecordFailure registers a failed cycle. A failure during the
// half-open probe reopens the circuit immediately.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitHalfOpen:
		cb.open()
	case CircuitClosed:
		cb.failures++
		if cb.failures >= cb.config.FailureThreshold {
			cb.open()
		}
	}
}

func (cb *CircuitBreaker) open() {
	cb.state = CircuitOpen
	cb.failures = 0
	cb.successes = 0
	cb.openedAt = cb.now()
}

// State returns the current circuit state.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}
