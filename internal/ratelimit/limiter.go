// Package ratelimit provides a per-account token bucket limiter guarding
// outbound Gmail/Calendar API calls, grounded on original_source's use of
// a governor-style token bucket per account.
package ratelimit

import (
	"context"

	"golang.org/x/time/rate"
)

// Limiter wraps golang.org/x/time/rate.Limiter with the bucket-size-equals-
// refill-rate convention spec.md §5.1 assumes: a burst of ratePerSecond
// tokens refilling at ratePerSecond per second.
type Limiter struct {
	rl *rate.Limiter
}

// New creates a Limiter allowing ratePerSecond operations per second,
// bursting up to the same count.
func New(ratePerSecond float64) *Limiter {
	burst := int(ratePerSecond)
	if burst < 1 {
		burst = 1
	}
	return &Limiter{rl: rate.NewLimiter(rate.Limit(ratePerSecond), burst)}
}

// Acquire blocks until a token is available or ctx is cancelled.
func (l *Limiter) Acquire(ctx context.Context) error {
	return l.rl.Wait(ctx)
}

// TryAcquire takes a token without blocking, reporting whether one was
// available.
func (l *Limiter) TryAcquire() bool {
	return l.rl.Allow()
}

// SetRate adjusts the refill rate and burst size at runtime, used when
// config is reloaded.
func (l *Limiter) SetRate(ratePerSecond float64) {
	burst := int(ratePerSecond)
	if burst < 1 {
		burst = 1
	}
	l.rl.SetLimit(rate.Limit(ratePerSecond))
	l.rl.SetBurst(burst)
}
