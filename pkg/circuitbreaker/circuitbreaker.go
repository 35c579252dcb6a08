package circuitbreaker

import (
	"errors"
	"sync"
	"time"
)

// State of the breaker.
type State int

const (
	StateClosed   State = iota // requests pass through
	StateOpen                  // requests rejected outright
	StateHalfOpen              // limited probe requests allowed
)

var ErrCircuitBreakerOpen = errors.New("circuit breaker is open")

type Config struct {
	// FailureThreshold opens the breaker after this many consecutive failures.
	FailureThreshold int
	// SuccessThreshold closes a half-open breaker after this many successes.
	SuccessThreshold int
	// Timeout is how long the breaker stays open before probing.
	Timeout time.Duration
	// HalfOpenMaxRequests caps concurrent probes while half-open.
	HalfOpenMaxRequests int
}

func DefaultConfig() Config {
	return Config{
		FailureThreshold:    5,
		SuccessThreshold:    2,
		Timeout:             30 * time.Second,
		HalfOpenMaxRequests: 3,
	}
}

type CircuitBreaker struct {
	config Config

	state         State
	failureCount  int
	successCount  int
	halfOpenCount int
	lastFailTime  time.Time
	lastStateTime time.Time

	mu sync.RWMutex
}

func NewCircuitBreaker(config Config) *CircuitBreaker {
	return &CircuitBreaker{
		config:        config,
		state:         StateClosed,
		lastStateTime: time.Now(),
	}
}

// Execute runs fn under breaker protection.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	cb.mu.Lock()

	cb.checkStateTransition()

	switch cb.state {
	case StateOpen:
		cb.mu.Unlock()
		return ErrCircuitBreakerOpen
	case StateHalfOpen:
		if cb.halfOpenCount >= cb.config.HalfOpenMaxRequests {
			cb.mu.Unlock()
			return ErrCircuitBreakerOpen
		}
		cb.halfOpenCount++
	}
	cb.mu.Unlock()

	err := fn()

	cb.mu.Lock()
	defer cb.mu.Unlock()
	if err != nil {
		cb.onFailure()
	} else {
		cb.onSuccess()
	}
	cb.checkStateTransition()

	return err
}

func (cb *CircuitBreaker) checkStateTransition() {
	now := time.Now()

	switch cb.state {
	case StateOpen:
		if now.Sub(cb.lastStateTime) >= cb.config.Timeout {
			cb.state = StateHalfOpen
			cb.halfOpenCount = 0
			cb.successCount = 0
			cb.lastStateTime = now
		}
	case StateHalfOpen:
		if cb.successCount >= cb.config.SuccessThreshold {
			cb.state = StateClosed
			cb.failureCount = 0
			cb.lastStateTime = now
		}
	case StateClosed:
		if cb.failureCount >= cb.config.FailureThreshold {
			cb.state = StateOpen
			cb.lastFailTime = now
			cb.lastStateTime = now
		}
	}
}

func (cb *CircuitBreaker) onFailure() {
	cb.failureCount++
	cb.lastFailTime = time.Now()

	if cb.state == StateHalfOpen {
		// A failed probe reopens immediately.
		cb.state = StateOpen
		cb.halfOpenCount = 0
		cb.lastStateTime = time.Now()
	}
}

func (cb *CircuitBreaker) onSuccess() {
	cb.failureCount = 0

	if cb.state == StateHalfOpen {
		cb.successCount++
		cb.halfOpenCount--
	}
}

// GetState returns the current state (thread safe).
func (cb *CircuitBreaker) GetState() State {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state
}

// Reset returns the breaker to closed with counters cleared.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.state = StateClosed
	cb.failureCount = 0
	cb.successCount = 0
	cb.halfOpenCount = 0
	cb.lastStateTime = time.Now()
}
