package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCircuitBreaker_OpensAfterThresholdFailures(t *testing.T) {
	cb := newCircuitBreaker(3, time.Minute, 30*time.Second)
	assert.False(t, cb.isOpen())

	cb.recordFailure()
	cb.recordFailure()
	assert.False(t, cb.isOpen(), "should stay closed below threshold")

	cb.recordFailure()
	assert.True(t, cb.isOpen(), "should open once the threshold is reached")
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	cb := newCircuitBreaker(3, time.Minute, 30*time.Second)
	cb.recordFailure()
	cb.recordFailure()
	cb.recordSuccess()
	cb.recordFailure()
	cb.recordFailure()
	assert.False(t, cb.isOpen(), "success should have reset the failure window")
}

func TestCircuitBreaker_NilReceiverIsAlwaysClosed(t *testing.T) {
	var cb *circuitBreaker
	assert.False(t, cb.isOpen())
	cb.recordFailure()
	cb.recordSuccess()
}

func TestInitBreakers_IsolatesPerIdentity(t *testing.T) {
	breakers := newInitBreakers(1, time.Minute, 30*time.Second)

	breakers.forIdentity("env-a").recordFailure()
	assert.True(t, breakers.forIdentity("env-a").isOpen())
	assert.False(t, breakers.forIdentity("env-b").isOpen())
}

func TestInitBreakers_ForIdentityReturnsSameBreakerOnRepeatedLookup(t *testing.T) {
	breakers := newInitBreakers(2, time.Minute, 30*time.Second)
	breakers.forIdentity("env-a").recordFailure()
	assert.False(t, breakers.forIdentity("env-a").isOpen())
	breakers.forIdentity("env-a").recordFailure()
	assert.True(t, breakers.forIdentity("env-a").isOpen())
}
