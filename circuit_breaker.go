package auraclient

import (
	"sync"
	"time"
)

// Circuit breaker defaults.
const (
	DefaultFailureThreshold = 10
	DefaultSuccessThreshold = 2
	DefaultOpenDuration     = 60 * time.Second
)

// CircuitBreaker gates attempts for one scope key. Every check-then-mutate
// method holds the mutex for its whole body, so each call runs to completion
// before another call on the same scope is processed and no transition is
// ever observed half-applied.
type CircuitBreaker struct {
	mu            sync.Mutex
	scope         string
	config        CircuitBreakerConfig
	clock         Clock
	store         *CircuitStateStore
	state         CircuitState
	failures      int
	successes     int
	nextAttemptAt time.Time
}

// NewCircuitBreaker creates a breaker for scope, hydrating from store when a
// fresh persisted record exists. store may be nil for a purely in-memory
// breaker.
func NewCircuitBreaker(scope string, config CircuitBreakerConfig, clock Clock, store *CircuitStateStore) *CircuitBreaker {
	if config.FailureThreshold == 0 {
		config.FailureThreshold = DefaultFailureThreshold
	}
	if config.SuccessThreshold == 0 {
		config.SuccessThreshold = DefaultSuccessThreshold
	}
	if config.OpenDuration == 0 {
		config.OpenDuration = DefaultOpenDuration
	}
	if clock == nil {
		clock = systemClock{}
	}

	cb := &CircuitBreaker{
		scope:  scope,
		config: config,
		clock:  clock,
		store:  store,
		state:  StateClosed,
	}

	if store != nil {
		if rec := store.Load(scope); rec != nil {
			cb.state = rec.State
			cb.failures = rec.FailureCount
			cb.successes = rec.SuccessCount
			cb.nextAttemptAt = time.UnixMilli(rec.NextAttemptAt)
		}
	}

	return cb
}

// CanAttempt reports whether an attempt may proceed. While OPEN, the first
// call at or past nextAttemptAt transitions to HALF_OPEN and is admitted as
// the probe; further HALF_OPEN calls are also admitted, bounded by how fast
// the caller issues them.
func (cb *CircuitBreaker) CanAttempt() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return true
	case StateOpen:
		if !cb.clock.Now().Before(cb.nextAttemptAt) {
			cb.state = StateHalfOpen
			cb.successes = 0
			cb.persistLocked()
			return true
		}
		return false
	case StateHalfOpen:
		return true
	default:
		return false
	}
}

// RecordSuccess records a successful attempt. Any success resets the failure
// count. A CLOSED success opportunistically clears stale persisted state; a
// HALF_OPEN success persists the counters and only clears on reaching the
// success threshold.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures = 0

	switch cb.state {
	case StateClosed:
		if cb.store != nil {
			cb.store.Clear(cb.scope)
		}
	case StateHalfOpen:
		cb.successes++
		if cb.successes >= cb.config.SuccessThreshold {
			cb.state = StateClosed
			cb.successes = 0
			if cb.store != nil {
				cb.store.Clear(cb.scope)
			}
		} else {
			cb.persistLocked()
		}
	case StateOpen:
		// Bypassed probes can succeed while open; state only changes
		// through CanAttempt admission.
	}
}

// RecordFailure records a failed attempt. A HALF_OPEN failure reopens the
// circuit immediately regardless of prior successes.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++

	switch cb.state {
	case StateHalfOpen:
		cb.state = StateOpen
		cb.successes = 0
		cb.nextAttemptAt = cb.clock.Now().Add(cb.config.OpenDuration)
		cb.persistLocked()
	case StateClosed:
		if cb.failures >= cb.config.FailureThreshold {
			cb.state = StateOpen
			cb.nextAttemptAt = cb.clock.Now().Add(cb.config.OpenDuration)
			cb.persistLocked()
		}
	case StateOpen:
		// Already open, just count.
	}
}

// Reset forces the breaker CLOSED, zeroing all counters and clearing the
// persisted record. Manual override and test hook.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.state = StateClosed
	cb.failures = 0
	cb.successes = 0
	cb.nextAttemptAt = time.Time{}
	if cb.store != nil {
		cb.store.Clear(cb.scope)
	}
}

// State returns the current circuit state.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) persistLocked() {
	if cb.store == nil {
		return
	}
	cb.store.Save(cb.scope, CircuitRecord{
		ScopeKey:      cb.scope,
		State:         cb.state,
		FailureCount:  cb.failures,
		SuccessCount:  cb.successes,
		NextAttemptAt: cb.nextAttemptAt.UnixMilli(),
		LastUpdated:   cb.clock.Now().UnixMilli(),
	})
}
