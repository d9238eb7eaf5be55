package realtime

import (
	"time"

	"github.com/cenkalti/backoff/v5"
)

// LinearBackOff waits Base × n before the n-th attempt and stops after Max attempts.
// It counts attempts itself; Reset restores the full budget.
type LinearBackOff struct {
	Base    time.Duration
	Max     int
	attempt int
}

var _ backoff.BackOff = (*LinearBackOff)(nil)

// NewLinearBackOff returns a policy with the given base delay and attempt budget.
func NewLinearBackOff(base time.Duration, max int) *LinearBackOff {
	return &LinearBackOff{Base: base, Max: max}
}

// NextBackOff increments the attempt counter and returns its delay,
// or backoff.Stop once Max attempts have been handed out.
func (b *LinearBackOff) NextBackOff() time.Duration {
	if b.attempt >= b.Max {
		return backoff.Stop
	}
	b.attempt++
	return b.Base * time.Duration(b.attempt)
}

// Reset clears the attempt counter.
func (b *LinearBackOff) Reset() {
	b.attempt = 0
}

// Attempt returns the number of attempts handed out since the last Reset.
func (b *LinearBackOff) Attempt() int {
	return b.attempt
}

// Exhausted reports whether the budget is spent.
func (b *LinearBackOff) Exhausted() bool {
	return b.attempt >= b.Max
}
