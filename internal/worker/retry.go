package worker

import (
	"math"
	"time"
)

// RetryPolicy is an exponential backoff for sheet writes.
type RetryPolicy struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// NextDelay returns the wait before the given 1-based attempt, capped at MaxDelay.
func (r RetryPolicy) NextDelay(attempt int) time.Duration {
	initial, factor := r.InitialDelay, r.BackoffFactor
	if initial <= 0 {
		initial = time.Second
	}
	if factor <= 0 {
		factor = 2
	}
	attempt = max(attempt, 1)

	d := time.Duration(float64(initial) * math.Pow(factor, float64(attempt-1)))
	if r.MaxDelay > 0 && (d > r.MaxDelay || d <= 0) {
		return r.MaxDelay
	}
	if d <= 0 {
		return initial
	}
	return d
}
