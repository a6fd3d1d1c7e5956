package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCircuitOpensAfterThreshold(t *testing.T) {
	r := testRegistry()

	assert.True(t, r.IsEndpointAvailable("primary"), "unknown endpoint starts available")

	r.MarkEndpointFailure("primary")
	r.MarkEndpointFailure("primary")
	assert.True(t, r.IsEndpointAvailable("primary"), "below threshold")

	r.MarkEndpointFailure("primary")
	assert.False(t, r.IsEndpointAvailable("primary"), "threshold reached")

	h := r.Health("primary")
	require.NotNil(t, h)
	assert.True(t, h.CircuitOpen)
	assert.Equal(t, 3, h.FailureCount)
}

func TestSuccessClosesCircuit(t *testing.T) {
	r := testRegistry()
	for i := 0; i < 3; i++ {
		r.MarkEndpointFailure("primary")
	}
	require.False(t, r.IsEndpointAvailable("primary"))

	r.MarkEndpointSuccess("primary")
	assert.True(t, r.IsEndpointAvailable("primary"))

	h := r.Health("primary")
	require.NotNil(t, h)
	assert.False(t, h.CircuitOpen)
	assert.Zero(t, h.FailureCount)
}

func TestHalfOpenAfterRecoveryTimeout(t *testing.T) {
	r := testRegistry()
	r.SetHealthConfig(HealthConfig{FailureThreshold: 1, RecoveryTimeout: 10 * time.Millisecond})

	r.MarkEndpointFailure("primary")
	require.False(t, r.IsEndpointAvailable("primary"))

	time.Sleep(20 * time.Millisecond)
	assert.True(t, r.IsEndpointAvailable("primary"), "recovery timeout admits a probe")
}

func TestAvailableFallbackChain(t *testing.T) {
	r := testRegistry()
	for i := 0; i < 3; i++ {
		r.MarkEndpointFailure("primary")
	}

	assert.Equal(t, []string{"backup", "local"}, r.AvailableFallbackChain(CapabilityReconcile))

	// With every endpoint blocked, return the full chain anyway.
	for _, name := range []string{"backup", "local"} {
		for i := 0; i < 3; i++ {
			r.MarkEndpointFailure(name)
		}
	}
	assert.Equal(t, []string{"primary", "backup", "local"}, r.AvailableFallbackChain(CapabilityReconcile))
}

func TestHealthSnapshotIsCopy(t *testing.T) {
	r := testRegistry()
	r.MarkEndpointFailure("primary")

	h := r.Health("primary")
	require.NotNil(t, h)
	h.FailureCount = 99

	assert.Equal(t, 1, r.Health("primary").FailureCount)
}
