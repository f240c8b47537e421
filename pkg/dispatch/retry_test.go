package dispatch_test

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/tinywideclouds/go-notification-dispatch/pkg/dispatch"
)

func TestRetryPolicy_DelayForAttempt(t *testing.T) {
	testCases := []struct {
		name     string
		policy   dispatch.RetryPolicy
		attempt  int
		expected time.Duration
	}{
		{"Constant - first attempt", dispatch.Of(3, 200*time.Millisecond), 1, 200 * time.Millisecond},
		{"Constant - later attempt", dispatch.Of(3, 200*time.Millisecond), 3, 200 * time.Millisecond},
		{"Backoff - attempt 1 is base", dispatch.WithBackoff(5, 100*time.Millisecond, 2.0), 1, 100 * time.Millisecond},
		{"Backoff - attempt 2", dispatch.WithBackoff(5, 100*time.Millisecond, 2.0), 2, 200 * time.Millisecond},
		{"Backoff - attempt 4", dispatch.WithBackoff(5, 100*time.Millisecond, 2.0), 4, 800 * time.Millisecond},
		{"Zero and negative attempts use base", dispatch.WithBackoff(5, 100*time.Millisecond, 2.0), -7, 100 * time.Millisecond},
		{"Zero multiplier collapses to zero", dispatch.WithBackoff(3, time.Second, 0), 2, 0},
		{"Huge exponent saturates", dispatch.WithBackoff(3, time.Second, 10.0), 1000, time.Duration(math.MaxInt64)},
		{"Zero value behaves like None", dispatch.RetryPolicy{}, 1, dispatch.DefaultRetryDelay},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.policy.DelayForAttempt(tc.attempt))
		})
	}
}

func TestRetryPolicy_Normalisation(t *testing.T) {
	t.Run("None allows a single attempt", func(t *testing.T) {
		p := dispatch.None()
		assert.Equal(t, 1, p.MaxAttempts())
		assert.Equal(t, time.Second, p.BaseDelay())
		assert.Equal(t, 1.0, p.Multiplier())
	})

	t.Run("Max attempts below one is raised", func(t *testing.T) {
		assert.Equal(t, 1, dispatch.Of(0, time.Second).MaxAttempts())
		assert.Equal(t, 1, dispatch.Of(-4, time.Second).MaxAttempts())
	})

	t.Run("Negative inputs are clamped", func(t *testing.T) {
		p := dispatch.WithBackoff(2, -time.Second, -3)
		assert.Equal(t, time.Duration(0), p.BaseDelay())
		assert.Equal(t, 0.0, p.Multiplier())
		assert.Equal(t, time.Duration(0), p.DelayForAttempt(2))
	})

	t.Run("Zero value", func(t *testing.T) {
		var p dispatch.RetryPolicy
		assert.Equal(t, 1, p.MaxAttempts())
	})
}
