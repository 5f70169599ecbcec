package auraclient

import "sync"

// CircuitBreakerRegistry maps scope keys to breaker instances. The composing
// client owns one registry; there is no package-level shared breaker.
type CircuitBreakerRegistry struct {
	mu       sync.Mutex
	breakers map[string]*CircuitBreaker
	config   CircuitBreakerConfig
	clock    Clock
	store    *CircuitStateStore
}

// NewCircuitBreakerRegistry creates a registry constructing breakers with the
// given config, clock and optional persistence.
func NewCircuitBreakerRegistry(config CircuitBreakerConfig, clock Clock, store *CircuitStateStore) *CircuitBreakerRegistry {
	return &CircuitBreakerRegistry{
		breakers: make(map[string]*CircuitBreaker),
		config:   config,
		clock:    clock,
		store:    store,
	}
}

// Get returns the breaker for scope, creating and hydrating it on first use.
func (r *CircuitBreakerRegistry) Get(scope string) *CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cb, ok := r.breakers[scope]; ok {
		return cb
	}
	cb := NewCircuitBreaker(scope, r.config, r.clock, r.store)
	r.breakers[scope] = cb
	return cb
}

// Scopes returns the scope keys with instantiated breakers.
func (r *CircuitBreakerRegistry) Scopes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	scopes := make([]string, 0, len(r.breakers))
	for s := range r.breakers {
		scopes = append(scopes, s)
	}
	return scopes
}
