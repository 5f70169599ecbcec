package backoff

import (
	"testing"
	"time"
)

func TestPow(t *testing.T) {
	cases := []struct {
		base     float64
		exponent int
		want     float64
	}{
		{2, 0, 1},
		{2, 1, 2},
		{2, 3, 8},
		{1.5, 2, 2.25},
	}
	for _, tc := range cases {
		if got := Pow(tc.base, tc.exponent); got != tc.want {
			t.Errorf("Pow(%v, %d) = %v, want %v", tc.base, tc.exponent, got, tc.want)
		}
	}
}

func TestExponentialDeterministicSequence(t *testing.T) {
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}
	for attempt, expected := range want {
		got := Exponential(attempt, time.Second, 8*time.Second, 2, 0)
		if got != expected {
			t.Errorf("attempt %d: got %v, want %v", attempt, got, expected)
		}
	}
}

func TestExponentialCap(t *testing.T) {
	if got := Exponential(10, time.Second, 8*time.Second, 2, 0); got != 8*time.Second {
		t.Errorf("Expected cap at 8s, got %v", got)
	}
}

func TestExponentialNegativeAttempt(t *testing.T) {
	if got := Exponential(-5, time.Second, 8*time.Second, 2, 0); got != time.Second {
		t.Errorf("Expected negative attempt treated as 0, got %v", got)
	}
}

func TestExponentialOverflowClamped(t *testing.T) {
	if got := Exponential(1000, time.Second, 8*time.Second, 2, 0); got != 8*time.Second {
		t.Errorf("Expected pathological attempt capped, got %v", got)
	}
}

func TestExponentialJitterBounds(t *testing.T) {
	base := 2 * time.Second
	max := time.Minute
	for i := 0; i < 100; i++ {
		got := Exponential(1, time.Second, max, 2, 0.5)
		if got < base {
			t.Fatalf("Jittered delay %v below base %v", got, base)
		}
		if got > base+base/2 {
			t.Fatalf("Jittered delay %v above base*1.5", got)
		}
	}
}

func TestExponentialJitterNeverExceedsMax(t *testing.T) {
	for i := 0; i < 100; i++ {
		if got := Exponential(3, time.Second, 8*time.Second, 2, 1); got > 8*time.Second {
			t.Fatalf("Jittered delay %v above max", got)
		}
	}
}
