package engine

import (
	"sync"
	"time"
)

// circuitBreaker is a lightweight in-memory circuit breaker: it opens once
// failures within a sliding window reach threshold, and stays open for
// openDuration.
type circuitBreaker struct {
	mu           sync.Mutex
	failures     []time.Time
	threshold    int
	window       time.Duration
	openUntil    time.Time
	openDuration time.Duration
}

func newCircuitBreaker(threshold int, window, openDuration time.Duration) *circuitBreaker {
	return &circuitBreaker{
		threshold:    threshold,
		window:       window,
		openDuration: openDuration,
		failures:     make([]time.Time, 0, threshold),
	}
}

func (cb *circuitBreaker) recordFailure() {
	if cb == nil {
		return
	}
	cb.mu.Lock()
	defer cb.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-cb.window)
	i := 0
	for ; i < len(cb.failures); i++ {
		if cb.failures[i].After(cutoff) {
			break
		}
	}
	if i > 0 {
		cb.failures = append([]time.Time{}, cb.failures[i:]...)
	}
	cb.failures = append(cb.failures, now)

	if len(cb.failures) >= cb.threshold {
		cb.openUntil = now.Add(cb.openDuration)
	}
}

func (cb *circuitBreaker) recordSuccess() {
	if cb == nil {
		return
	}
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failures = cb.failures[:0]
	cb.openUntil = time.Time{}
}

func (cb *circuitBreaker) isOpen() bool {
	if cb == nil {
		return false
	}
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return time.Now().Before(cb.openUntil)
}

// initBreakers keys a circuitBreaker per environment identity (db_name),
// so a repeatedly-failing environment script stops hammering Postgres with
// CREATE DATABASE / init attempts without affecting unrelated environments.
// A breaker only counts failures of the initialization that follows
// CREATE DATABASE: Provisioner.EnsureReady does not re-run the script for a
// database that already exists.
type initBreakers struct {
	mu       sync.Mutex
	breakers map[string]*circuitBreaker

	threshold    int
	window       time.Duration
	openDuration time.Duration
}

func newInitBreakers(threshold int, window, openDuration time.Duration) *initBreakers {
	return &initBreakers{
		breakers:     make(map[string]*circuitBreaker),
		threshold:    threshold,
		window:       window,
		openDuration: openDuration,
	}
}

func (b *initBreakers) forIdentity(dbName string) *circuitBreaker {
	b.mu.Lock()
	defer b.mu.Unlock()
	cb, ok := b.breakers[dbName]
	if !ok {
		cb = newCircuitBreaker(b.threshold, b.window, b.openDuration)
		b.breakers[dbName] = cb
	}
	return cb
}
