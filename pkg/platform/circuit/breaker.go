// Package circuit provides a simple two-state circuit breaker.
package circuit

import "sync"

// Breaker tracks consecutive failures for fail-fast dispatching. While
// closed, calls flow normally. After FailureThreshold consecutive
// failures the breaker opens and callers should take their fallback
// path; a single success while open closes it again (the provider
// answered, so the outage is over).
type Breaker struct {
	mu               sync.Mutex
	open             bool
	failureCount     int
	failureThreshold int
}

// Option configures a Breaker instance.
type Option func(*Breaker)

// WithFailureThreshold sets the number of consecutive failures to open
// the circuit. Default is 5.
func WithFailureThreshold(n int) Option {
	return func(b *Breaker) {
		if n > 0 {
			b.failureThreshold = n
		}
	}
}

// New creates a closed circuit breaker.
func New(opts ...Option) *Breaker {
	b := &Breaker{failureThreshold: 5}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

// IsOpen returns true if the circuit is open (tripped).
func (b *Breaker) IsOpen() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.open
}

// RecordFailure counts a failed call. Returns true if the circuit just
// transitioned to open.
func (b *Breaker) RecordFailure() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failureCount++
	if !b.open && b.failureCount >= b.failureThreshold {
		b.open = true
		return true
	}
	return false
}

// RecordSuccess counts a successful call and closes the circuit.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.open = false
	b.failureCount = 0
}
