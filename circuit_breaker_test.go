package auraclient

import (
	"testing"
	"time"
)

func TestNewCircuitBreakerDefaults(t *testing.T) {
	cb := NewCircuitBreaker("global", CircuitBreakerConfig{}, nil, nil)

	if cb.config.FailureThreshold != 10 {
		t.Errorf("Expected default FailureThreshold=10, got %d", cb.config.FailureThreshold)
	}
	if cb.config.SuccessThreshold != 2 {
		t.Errorf("Expected default SuccessThreshold=2, got %d", cb.config.SuccessThreshold)
	}
	if cb.config.OpenDuration != 60*time.Second {
		t.Errorf("Expected default OpenDuration=60s, got %v", cb.config.OpenDuration)
	}
	if cb.State() != StateClosed {
		t.Errorf("Expected initial state=closed, got %v", cb.State())
	}
}

func TestCircuitBreakerNeverDeniesWhileClosed(t *testing.T) {
	clock := newFakeClock()
	cb := NewCircuitBreaker("global", CircuitBreakerConfig{FailureThreshold: 3}, clock, nil)

	for i := 0; i < 10; i++ {
		if !cb.CanAttempt() {
			t.Fatalf("CanAttempt() = false while closed (call %d)", i)
		}
	}
}

func TestCircuitBreakerOpensAtFailureThreshold(t *testing.T) {
	clock := newFakeClock()
	cb := NewCircuitBreaker("global", CircuitBreakerConfig{FailureThreshold: 3, OpenDuration: time.Minute}, clock, nil)

	cb.RecordFailure()
	cb.RecordFailure()
	if cb.State() != StateClosed {
		t.Errorf("Expected closed below threshold, got %v", cb.State())
	}

	cb.RecordFailure()
	if cb.State() != StateOpen {
		t.Errorf("Expected open at threshold, got %v", cb.State())
	}
	if cb.CanAttempt() {
		t.Error("Expected CanAttempt()=false while open")
	}
}

func TestCircuitBreakerHalfOpenAfterOpenDuration(t *testing.T) {
	clock := newFakeClock()
	cb := NewCircuitBreaker("global", CircuitBreakerConfig{FailureThreshold: 1, OpenDuration: time.Minute}, clock, nil)

	cb.RecordFailure()
	if cb.CanAttempt() {
		t.Fatal("Expected denial immediately after opening")
	}

	clock.Advance(59 * time.Second)
	if cb.CanAttempt() {
		t.Fatal("Expected denial before open duration elapsed")
	}

	clock.Advance(2 * time.Second)
	if !cb.CanAttempt() {
		t.Fatal("Expected probe admission after open duration elapsed")
	}
	if cb.State() != StateHalfOpen {
		t.Errorf("Expected half_open after probe admission, got %v", cb.State())
	}
}

func TestCircuitBreakerClosesAfterSuccessThreshold(t *testing.T) {
	clock := newFakeClock()
	cb := NewCircuitBreaker("global", CircuitBreakerConfig{FailureThreshold: 1, SuccessThreshold: 2, OpenDuration: time.Minute}, clock, nil)

	cb.RecordFailure()
	clock.Advance(61 * time.Second)
	if !cb.CanAttempt() {
		t.Fatal("Expected probe admission")
	}

	cb.RecordSuccess()
	if cb.State() != StateHalfOpen {
		t.Errorf("Expected half_open after one success, got %v", cb.State())
	}

	cb.RecordSuccess()
	if cb.State() != StateClosed {
		t.Errorf("Expected closed after success threshold, got %v", cb.State())
	}
}

func TestCircuitBreakerHalfOpenFailureReopensImmediately(t *testing.T) {
	clock := newFakeClock()
	cb := NewCircuitBreaker("global", CircuitBreakerConfig{FailureThreshold: 5, SuccessThreshold: 3, OpenDuration: time.Minute}, clock, nil)

	for i := 0; i < 5; i++ {
		cb.RecordFailure()
	}
	clock.Advance(61 * time.Second)
	cb.CanAttempt()
	cb.RecordSuccess()
	cb.RecordSuccess()

	// One failure reopens regardless of prior successes.
	cb.RecordFailure()
	if cb.State() != StateOpen {
		t.Errorf("Expected open after half-open failure, got %v", cb.State())
	}
	if cb.CanAttempt() {
		t.Error("Expected denial right after reopening")
	}
}

func TestCircuitBreakerSuccessResetsFailureCount(t *testing.T) {
	clock := newFakeClock()
	cb := NewCircuitBreaker("global", CircuitBreakerConfig{FailureThreshold: 3}, clock, nil)

	cb.RecordFailure()
	cb.RecordFailure()
	cb.RecordSuccess()
	cb.RecordFailure()
	cb.RecordFailure()

	if cb.State() != StateClosed {
		t.Errorf("Expected closed, failure count should have reset on success, got %v", cb.State())
	}
}

func TestCircuitBreakerReset(t *testing.T) {
	clock := newFakeClock()
	store := NewCircuitStateStore(NewMemoryStateStore(), clock, nil)
	cb := NewCircuitBreaker("global", CircuitBreakerConfig{FailureThreshold: 1, OpenDuration: time.Minute}, clock, store)

	cb.RecordFailure()
	if cb.State() != StateOpen {
		t.Fatalf("Expected open, got %v", cb.State())
	}

	cb.Reset()
	if cb.State() != StateClosed {
		t.Errorf("Expected closed after reset, got %v", cb.State())
	}
	if !cb.CanAttempt() {
		t.Error("Expected attempts admitted after reset")
	}
	if store.Load("global") != nil {
		t.Error("Expected persisted record cleared by reset")
	}
}

func TestCircuitBreakerPersistsOnOpen(t *testing.T) {
	clock := newFakeClock()
	store := NewCircuitStateStore(NewMemoryStateStore(), clock, nil)
	cb := NewCircuitBreaker("backend", CircuitBreakerConfig{FailureThreshold: 2, OpenDuration: time.Minute}, clock, store)

	cb.RecordFailure()
	cb.RecordFailure()

	rec := store.Load("backend")
	if rec == nil {
		t.Fatal("Expected persisted record after opening")
	}
	if rec.State != StateOpen {
		t.Errorf("Expected persisted state=open, got %v", rec.State)
	}
	if rec.ScopeKey != "backend" {
		t.Errorf("Expected scopeKey=backend, got %q", rec.ScopeKey)
	}
	wantNext := clock.Now().Add(time.Minute).UnixMilli()
	if rec.NextAttemptAt != wantNext {
		t.Errorf("Expected nextAttemptAt=%d, got %d", wantNext, rec.NextAttemptAt)
	}
}

func TestCircuitBreakerHydratesFromStore(t *testing.T) {
	clock := newFakeClock()
	backing := NewMemoryStateStore()
	store := NewCircuitStateStore(backing, clock, nil)

	first := NewCircuitBreaker("backend", CircuitBreakerConfig{FailureThreshold: 2, OpenDuration: time.Minute}, clock, store)
	first.RecordFailure()
	first.RecordFailure()

	// Simulated restart: a new breaker over the same backing store.
	second := NewCircuitBreaker("backend", CircuitBreakerConfig{FailureThreshold: 2, OpenDuration: time.Minute}, clock, NewCircuitStateStore(backing, clock, nil))
	if second.State() != StateOpen {
		t.Errorf("Expected hydrated state=open, got %v", second.State())
	}
	if second.CanAttempt() {
		t.Error("Expected hydrated breaker to deny attempts")
	}

	clock.Advance(61 * time.Second)
	if !second.CanAttempt() {
		t.Error("Expected hydrated breaker to admit probe after open duration")
	}
}

func TestCircuitBreakerClosedSuccessClearsStaleRecord(t *testing.T) {
	clock := newFakeClock()
	store := NewCircuitStateStore(NewMemoryStateStore(), clock, nil)

	store.Save("global", CircuitRecord{ScopeKey: "global", State: StateClosed, FailureCount: 4, LastUpdated: clock.Now().UnixMilli()})
	cb := NewCircuitBreaker("global", CircuitBreakerConfig{}, clock, store)

	cb.RecordSuccess()
	if store.Load("global") != nil {
		t.Error("Expected closed-state success to clear persisted record")
	}
}

func TestCircuitBreakerHalfOpenSuccessPersistsCounters(t *testing.T) {
	clock := newFakeClock()
	store := NewCircuitStateStore(NewMemoryStateStore(), clock, nil)
	cb := NewCircuitBreaker("global", CircuitBreakerConfig{FailureThreshold: 1, SuccessThreshold: 3, OpenDuration: time.Minute}, clock, store)

	cb.RecordFailure()
	clock.Advance(61 * time.Second)
	cb.CanAttempt()
	cb.RecordSuccess()

	rec := store.Load("global")
	if rec == nil {
		t.Fatal("Expected persisted half-open record below success threshold")
	}
	if rec.State != StateHalfOpen {
		t.Errorf("Expected persisted state=half_open, got %v", rec.State)
	}
	if rec.SuccessCount != 1 {
		t.Errorf("Expected persisted successCount=1, got %d", rec.SuccessCount)
	}

	cb.RecordSuccess()
	cb.RecordSuccess()
	if store.Load("global") != nil {
		t.Error("Expected record cleared once success threshold reached")
	}
}
