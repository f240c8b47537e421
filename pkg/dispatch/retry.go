package dispatch

import (
	"math"
	"time"
)

// DefaultRetryDelay is used when a policy is built without a positive delay.
const DefaultRetryDelay = time.Second

// RetryPolicy decides how many attempts a dispatch gets and how long to wait between them.
// The zero value behaves like None().
type RetryPolicy struct {
	maxAttempts int
	baseDelay   time.Duration
	multiplier  float64
	set         bool
}

// None allows a single attempt.
func None() RetryPolicy {
	return WithBackoff(1, DefaultRetryDelay, 1.0)
}

// Of allows maxAttempts attempts with a constant delay.
func Of(maxAttempts int, delay time.Duration) RetryPolicy {
	return WithBackoff(maxAttempts, delay, 1.0)
}

// WithBackoff allows maxAttempts attempts with an exponentially growing delay.
// maxAttempts below 1 is raised to 1 and a negative multiplier is treated as 0.
func WithBackoff(maxAttempts int, delay time.Duration, multiplier float64) RetryPolicy {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if delay < 0 {
		delay = 0
	}
	if multiplier < 0 || math.IsNaN(multiplier) {
		multiplier = 0
	}
	return RetryPolicy{
		maxAttempts: maxAttempts,
		baseDelay:   delay,
		multiplier:  multiplier,
		set:         true,
	}
}

func (p RetryPolicy) MaxAttempts() int {
	if !p.set {
		return 1
	}
	return p.maxAttempts
}

func (p RetryPolicy) BaseDelay() time.Duration {
	if !p.set {
		return DefaultRetryDelay
	}
	return p.baseDelay
}

func (p RetryPolicy) Multiplier() float64 {
	if !p.set {
		return 1.0
	}
	return p.multiplier
}

// DelayForAttempt returns the wait after the given (1-based) attempt fails:
// base for attempt <= 1, base * multiplier^(attempt-1) otherwise.
// The result never overflows; it saturates at the largest time.Duration.
func (p RetryPolicy) DelayForAttempt(attempt int) time.Duration {
	base := p.BaseDelay()
	if attempt <= 1 {
		return base
	}

	d := float64(base) * math.Pow(p.Multiplier(), float64(attempt-1))
	switch {
	case math.IsNaN(d) || d <= 0:
		return 0
	case d >= math.MaxInt64:
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(d)
}
