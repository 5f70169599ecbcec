package auraclient

import (
	"sync"
	"time"
)

// RateLimiter is a token bucket gating the client as a whole. Denial maps to
// ErrRateLimited and is never read as a backend-health signal.
type RateLimiter struct {
	mu         sync.Mutex
	tokens     int
	maxTokens  int
	refillRate time.Duration
	lastRefill time.Time
	clock      Clock
}

// NewRateLimiter creates a bucket holding maxTokens, refilling one token per
// refillRate.
func NewRateLimiter(maxTokens int, refillRate time.Duration, clock Clock) *RateLimiter {
	if clock == nil {
		clock = systemClock{}
	}
	return &RateLimiter{
		maxTokens:  maxTokens,
		tokens:     maxTokens,
		refillRate: refillRate,
		lastRefill: clock.Now(),
		clock:      clock,
	}
}

// Allow consumes a token if one is available.
func (rl *RateLimiter) Allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.clock.Now()
	elapsed := now.Sub(rl.lastRefill)
	if rl.refillRate > 0 {
		tokensToAdd := int(elapsed / rl.refillRate)
		if tokensToAdd > 0 {
			rl.tokens += tokensToAdd
			if rl.tokens > rl.maxTokens {
				rl.tokens = rl.maxTokens
			}
			rl.lastRefill = rl.lastRefill.Add(time.Duration(tokensToAdd) * rl.refillRate)
		}
	}

	if rl.tokens > 0 {
		rl.tokens--
		return true
	}
	return false
}

// Tokens returns the currently available token count.
func (rl *RateLimiter) Tokens() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return rl.tokens
}

// RetryBudget caps the total number of retries issued per window, protecting
// the backend from retry storms across many concurrent calls.
type RetryBudget struct {
	mu          sync.Mutex
	maxRetries  int
	perWindow   time.Duration
	current     int
	windowStart time.Time
	clock       Clock
}

// NewRetryBudget creates a budget of maxRetries per window.
func NewRetryBudget(maxRetries int, perWindow time.Duration, clock Clock) *RetryBudget {
	if clock == nil {
		clock = systemClock{}
	}
	return &RetryBudget{
		maxRetries:  maxRetries,
		perWindow:   perWindow,
		windowStart: clock.Now(),
		clock:       clock,
	}
}

// Allow reports whether another retry fits in the current window and counts
// it when it does.
func (rb *RetryBudget) Allow() bool {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	now := rb.clock.Now()
	if now.Sub(rb.windowStart) >= rb.perWindow {
		rb.windowStart = now
		rb.current = 0
	}

	if rb.current >= rb.maxRetries {
		return false
	}
	rb.current++
	return true
}

// Stats returns the consumed count, the cap and the window start.
func (rb *RetryBudget) Stats() (current, max int, windowStart time.Time) {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.current, rb.maxRetries, rb.windowStart
}
