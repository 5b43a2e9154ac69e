// Package backoff computes the reconnection delay sequence for the
// transport's connect loop: double the previous delay on every failure, cap
// it, and reset to the initial value after a successful connect.
//
// It is a thin adapter over github.com/cenkalti/backoff/v4 configured with
// RandomizationFactor = 0 so the sequence is exactly deterministic: a clean
// doubling-with-cap sequence such as 100ms, 200ms, 400ms, ... capped at
// MaxReconnectBackoff.
package backoff

import (
	"time"

	cenkalti "github.com/cenkalti/backoff/v4"
)

// Policy computes successive reconnection delays.  It is not safe for
// concurrent use; the transport loop owns a single Policy for the
// transport's lifetime.
type Policy struct {
	b *cenkalti.ExponentialBackOff
}

// New builds a Policy from the initial delay, growth multiplier, and cap.
func New(initial time.Duration, multiplier float64, max time.Duration) *Policy {
	b := cenkalti.NewExponentialBackOff()
	b.InitialInterval = initial
	b.Multiplier = multiplier
	b.MaxInterval = max
	b.MaxElapsedTime = 0 // retry indefinitely; the caller decides when to stop
	b.RandomizationFactor = 0
	b.Reset()
	return &Policy{b: b}
}

// Next returns the next delay in the sequence and advances the policy's
// internal state. The first call after New or Reset returns the initial
// delay.
func (p *Policy) Next() time.Duration {
	d := p.b.NextBackOff()
	if d == cenkalti.Stop {
		// MaxElapsedTime is 0 so this is unreachable, but guard anyway: fall
		// back to the configured ceiling rather than propagate a sentinel.
		return p.b.MaxInterval
	}
	return d
}

// Reset restores the policy to its initial delay. Called by the transport
// loop whenever a connect attempt succeeds, so a later failure starts the
// backoff sequence over rather than continuing to grow.
func (p *Policy) Reset() {
	p.b.Reset()
}
