package auraclient

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sync"
)

// DeduplicationEntry represents an in-flight request shared between callers.
type DeduplicationEntry struct {
	mu       sync.Mutex
	response *Response
	err      error
	done     chan struct{}
	waiters  int
}

// DeduplicationTracker collapses concurrent identical calls into a single
// underlying dispatch. An entry exists only between dispatch and settlement.
type DeduplicationTracker struct {
	mu      sync.Mutex
	entries map[string]*DeduplicationEntry
}

// NewDeduplicationTracker returns an in-memory deduplication tracker.
func NewDeduplicationTracker() *DeduplicationTracker {
	return &DeduplicationTracker{
		entries: make(map[string]*DeduplicationEntry),
	}
}

// GetOrCreateEntry returns an existing entry (owner=false) or registers a new
// one (owner=true). The owner dispatches the call and must settle it with
// Complete.
func (dt *DeduplicationTracker) GetOrCreateEntry(key string) (*DeduplicationEntry, bool) {
	dt.mu.Lock()
	defer dt.mu.Unlock()

	if entry, exists := dt.entries[key]; exists {
		entry.mu.Lock()
		entry.waiters++
		entry.mu.Unlock()
		return entry, false
	}

	entry := &DeduplicationEntry{
		done:    make(chan struct{}),
		waiters: 1,
	}
	dt.entries[key] = entry
	return entry, true
}

// Complete settles an entry and releases waiters. The key is removed from
// the pending map before waiters observe the outcome, so a call issued after
// settlement always starts fresh work.
func (dt *DeduplicationTracker) Complete(key string, resp *Response, err error) {
	dt.mu.Lock()
	entry, exists := dt.entries[key]
	if exists {
		delete(dt.entries, key)
	}
	dt.mu.Unlock()

	if !exists {
		return
	}

	entry.mu.Lock()
	entry.response = resp
	entry.err = err
	entry.mu.Unlock()
	close(entry.done)
}

// IsPending reports whether a call is currently in flight for key.
func (dt *DeduplicationTracker) IsPending(key string) bool {
	dt.mu.Lock()
	defer dt.mu.Unlock()
	_, exists := dt.entries[key]
	return exists
}

// Clear drops the pending entry for key without settling it. Diagnostics and
// test isolation only; waiters on a cleared entry are never released.
func (dt *DeduplicationTracker) Clear(key string) {
	dt.mu.Lock()
	defer dt.mu.Unlock()
	delete(dt.entries, key)
}

// ClearAll drops every pending entry.
func (dt *DeduplicationTracker) ClearAll() {
	dt.mu.Lock()
	defer dt.mu.Unlock()
	dt.entries = make(map[string]*DeduplicationEntry)
}

// Wait blocks until the owning call settles or ctx cancels. Every waiter
// observes the identical outcome.
func (entry *DeduplicationEntry) Wait(ctx context.Context) (*Response, error) {
	select {
	case <-entry.done:
		entry.mu.Lock()
		resp := entry.response
		err := entry.err
		entry.mu.Unlock()
		return resp, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// DeduplicationKeyFunc builds the canonical request signature identifying
// semantically identical calls.
type DeduplicationKeyFunc func(method, url string, body []byte) string

// DefaultDeduplicationKeyFunc digests method, URL and an order-independent
// serialization of the body: JSON bodies are re-marshaled so map key order
// does not affect the signature.
func DefaultDeduplicationKeyFunc(method, url string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(method))
	h.Write([]byte{0})
	h.Write([]byte(url))
	h.Write([]byte{0})
	h.Write(canonicalBody(body))
	return fmt.Sprintf("%x", h.Sum(nil))
}

// canonicalBody normalizes JSON bodies by decoding and re-encoding them;
// encoding/json writes map keys in sorted order at every depth. Non-JSON
// bodies are digested as-is.
func canonicalBody(body []byte) []byte {
	if len(body) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return body
	}
	canonical, err := json.Marshal(v)
	if err != nil {
		return body
	}
	return canonical
}

// DeduplicationCondition decides whether a method is eligible for
// deduplication by default.
type DeduplicationCondition func(method string) bool

// DefaultDeduplicationCondition enables deduplication for mutating verbs
// only. Duplicate reads are harmless; duplicate writes are not.
func DefaultDeduplicationCondition(method string) bool {
	switch method {
	case "POST", "PUT", "PATCH":
		return true
	default:
		return false
	}
}
