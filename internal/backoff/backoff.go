// Package backoff centralizes retry delay calculation.
package backoff

import (
	"math/rand"
	"time"
)

// Pow calculates base^exponent for float64 without pulling in math.Pow's
// special-case handling.
func Pow(base float64, exponent int) float64 {
	result := 1.0
	for i := 0; i < exponent; i++ {
		result *= base
	}
	return result
}

// Exponential returns min(initial*multiplier^attempt, max), with an optional
// proportional jitter fraction in [0,1]. attempt is zero-based: attempt 0 is
// the delay before the first retry. With jitter 0 the sequence is fully
// deterministic.
func Exponential(attempt int, initial, max time.Duration, multiplier, jitter float64) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	// Prevent overflow for pathological attempt counts.
	if attempt > 30 {
		attempt = 30
	}

	delay := time.Duration(float64(initial) * Pow(multiplier, attempt))
	if delay < 0 || delay > max {
		delay = max
	}

	if jitter < 0 {
		jitter = 0
	}
	if jitter > 1 {
		jitter = 1
	}
	if jitter > 0 {
		amount := time.Duration(float64(delay) * jitter * rand.Float64())
		if delay+amount > max {
			delay = max
		} else {
			delay += amount
		}
	}
	return delay
}
