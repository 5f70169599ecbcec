package auraclient

import (
	"encoding/json"
	"sync"
	"time"
)

// StateStore is string-keyed durable storage backing circuit persistence.
// Implementations must be safe for concurrent use.
type StateStore interface {
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte) error
	Delete(key string) error
	Keys(prefix string) ([]string, error)
}

// MemoryStateStore is an in-memory StateStore for tests and for callers that
// do not need circuit state to survive restarts.
type MemoryStateStore struct {
	mu    sync.RWMutex
	store map[string][]byte
}

// NewMemoryStateStore creates an empty in-memory store.
func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{store: make(map[string][]byte)}
}

func (s *MemoryStateStore) Get(key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.store[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

func (s *MemoryStateStore) Set(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := make([]byte, len(value))
	copy(v, value)
	s.store[key] = v
	return nil
}

func (s *MemoryStateStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.store, key)
	return nil
}

func (s *MemoryStateStore) Keys(prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.store))
	for k := range s.store {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

const (
	circuitKeyPrefix = "circuit:"

	// DefaultRecordMaxAge is how old a persisted circuit record may be
	// before load treats it as absent and purges it.
	DefaultRecordMaxAge = 5 * time.Minute
)

// CircuitStateStore persists CircuitRecords through a StateStore. Storage
// failures are logged and swallowed: persistence is best-effort and must not
// affect the in-memory state machine.
type CircuitStateStore struct {
	store  StateStore
	clock  Clock
	logger Logger
	maxAge time.Duration
}

// NewCircuitStateStore wraps store with the record codec and staleness
// eviction. logger may be nil.
func NewCircuitStateStore(store StateStore, clock Clock, logger Logger) *CircuitStateStore {
	if clock == nil {
		clock = systemClock{}
	}
	return &CircuitStateStore{
		store:  store,
		clock:  clock,
		logger: logger,
		maxAge: DefaultRecordMaxAge,
	}
}

// Save writes the record for a scope, overwriting any previous copy.
func (s *CircuitStateStore) Save(scope string, rec CircuitRecord) {
	data, err := json.Marshal(rec)
	if err != nil {
		s.warn("failed to encode circuit record", "scope", scope, "error", err)
		return
	}
	if err := s.store.Set(circuitKeyPrefix+scope, data); err != nil {
		s.warn("failed to persist circuit record", "scope", scope, "error", err)
	}
}

// Load returns the persisted record for a scope, or nil when absent,
// unreadable, or older than the staleness window. Stale records are deleted
// as a side effect.
func (s *CircuitStateStore) Load(scope string) *CircuitRecord {
	data, found, err := s.store.Get(circuitKeyPrefix + scope)
	if err != nil {
		s.warn("failed to load circuit record", "scope", scope, "error", err)
		return nil
	}
	if !found {
		return nil
	}
	var rec CircuitRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		s.warn("failed to decode circuit record", "scope", scope, "error", err)
		s.Clear(scope)
		return nil
	}
	age := s.clock.Now().UnixMilli() - rec.LastUpdated
	if age > s.maxAge.Milliseconds() {
		s.Clear(scope)
		return nil
	}
	return &rec
}

// Clear removes the persisted record for one scope.
func (s *CircuitStateStore) Clear(scope string) {
	if err := s.store.Delete(circuitKeyPrefix + scope); err != nil {
		s.warn("failed to clear circuit record", "scope", scope, "error", err)
	}
}

// ClearAll removes every persisted circuit record.
func (s *CircuitStateStore) ClearAll() {
	keys, err := s.store.Keys(circuitKeyPrefix)
	if err != nil {
		s.warn("failed to list circuit records", "error", err)
		return
	}
	for _, k := range keys {
		if err := s.store.Delete(k); err != nil {
			s.warn("failed to clear circuit record", "key", k, "error", err)
		}
	}
}

func (s *CircuitStateStore) warn(msg string, keysAndValues ...interface{}) {
	if s.logger != nil {
		s.logger.Warn(msg, keysAndValues...)
	}
}
