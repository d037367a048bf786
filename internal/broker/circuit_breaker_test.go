package broker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var errBoom = errors.New("boom")

func testBreaker(cooldown time.Duration) *CircuitBreaker {
	return NewCircuitBreaker("test", BreakerConfig{
		FailureThreshold: 3,
		SuccessThreshold: 2,
		Cooldown:         cooldown,
	})
}

// TestBreaker_OpensAfterThreshold tests that consecutive failures trip the breaker
func TestBreaker_OpensAfterThreshold(t *testing.T) {
	cb := testBreaker(time.Minute)

	for i := 0; i < 3; i++ {
		assert.Equal(t, errBoom, cb.Call(func() error { return errBoom }))
	}
	assert.Equal(t, BreakerOpen, cb.State())

	// Calls while open fail fast without invoking fn.
	invoked := false
	err := cb.Call(func() error { invoked = true; return nil })
	assert.Error(t, err)
	assert.False(t, invoked)
}

// TestBreaker_SuccessResetsFailureCount tests that a success between
// failures keeps the breaker closed
func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	cb := testBreaker(time.Minute)

	cb.Call(func() error { return errBoom })
	cb.Call(func() error { return errBoom })
	cb.Call(func() error { return nil })
	cb.Call(func() error { return errBoom })
	cb.Call(func() error { return errBoom })

	assert.Equal(t, BreakerClosed, cb.State())
}

// TestBreaker_HalfOpenProbeCloses tests the recovery path: cooldown,
// half-open probe, then closed after enough successes
func TestBreaker_HalfOpenProbeCloses(t *testing.T) {
	cb := testBreaker(10 * time.Millisecond)

	for i := 0; i < 3; i++ {
		cb.Call(func() error { return errBoom })
	}
	assert.Equal(t, BreakerOpen, cb.State())

	time.Sleep(20 * time.Millisecond)

	assert.NoError(t, cb.Call(func() error { return nil }))
	assert.Equal(t, BreakerHalfOpen, cb.State())
	assert.NoError(t, cb.Call(func() error { return nil }))
	assert.Equal(t, BreakerClosed, cb.State())
}

// TestBreaker_HalfOpenFailureReopens tests that a failed probe reopens
// the breaker immediately
func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb := testBreaker(10 * time.Millisecond)

	for i := 0; i < 3; i++ {
		cb.Call(func() error { return errBoom })
	}
	time.Sleep(20 * time.Millisecond)

	cb.Call(func() error { return errBoom })
	assert.Equal(t, BreakerOpen, cb.State())
}
