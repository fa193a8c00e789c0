// Package backoff computes retry delays for transient failures at I/O
// boundaries. A Strategy maps an attempt number to the wait that precedes
// it; Retry drives an operation through a Strategy until it succeeds,
// exhausts its attempts, or returns a permanent error.
package backoff

import (
	"math"
	"math/rand/v2"
	"time"
)

// Strategy maps a retry attempt to the delay that precedes it. Attempts
// are 1-indexed: attempt 1 is the first retry after the initial failure.
// Implementations must be safe for concurrent use.
type Strategy interface {
	Delay(attempt int) time.Duration
}

// Constant waits the same Interval before every retry.
type Constant struct {
	Interval time.Duration
}

// NewConstant returns a Strategy with a fixed delay.
func NewConstant(interval time.Duration) *Constant {
	return &Constant{Interval: interval}
}

// Delay implements Strategy.
func (c *Constant) Delay(int) time.Duration {
	return c.Interval
}

// Linear waits Initial on the first retry and grows by another Initial
// each subsequent attempt. Max caps the delay; 0 means uncapped.
type Linear struct {
	Initial time.Duration
	Max     time.Duration
}

// NewLinear returns a linearly growing Strategy.
func NewLinear(initial, maxDelay time.Duration) *Linear {
	return &Linear{Initial: initial, Max: maxDelay}
}

// Delay implements Strategy.
func (l *Linear) Delay(attempt int) time.Duration {
	return capDelay(l.Initial*time.Duration(attempt), l.Max)
}

// Exponential doubles the previous delay each attempt, starting from
// Initial. Max caps the delay; 0 means uncapped.
type Exponential struct {
	Initial time.Duration
	Max     time.Duration
}

// NewExponential returns a doubling Strategy.
func NewExponential(initial, maxDelay time.Duration) *Exponential {
	return &Exponential{Initial: initial, Max: maxDelay}
}

// Delay implements Strategy.
func (e *Exponential) Delay(attempt int) time.Duration {
	return capDelay(doubled(e.Initial, attempt), e.Max)
}

// ExponentialWithJitter draws a uniform delay from [0, d) where d is the
// capped exponential delay for the attempt. The spread keeps synchronized
// retriers from hammering a recovering dependency in lockstep.
type ExponentialWithJitter struct {
	Initial time.Duration
	Max     time.Duration
}

// NewExponentialWithJitter returns a full-jitter exponential Strategy.
func NewExponentialWithJitter(initial, maxDelay time.Duration) *ExponentialWithJitter {
	return &ExponentialWithJitter{Initial: initial, Max: maxDelay}
}

// Delay implements Strategy.
func (e *ExponentialWithJitter) Delay(attempt int) time.Duration {
	d := capDelay(doubled(e.Initial, attempt), e.Max)
	if d <= 0 {
		return 0
	}
	return time.Duration(rand.Int64N(int64(d))) //nolint:gosec // jitter does not need crypto randomness
}

// DefaultStrategy is the Strategy Retry falls back to when RetryConfig
// leaves one unset: exponential growth from 1s capped at 1m, full jitter.
func DefaultStrategy() Strategy {
	return NewExponentialWithJitter(1*time.Second, 1*time.Minute)
}

// doubled returns initial * 2^(attempt-1), saturating instead of
// overflowing for large attempt counts.
func doubled(initial time.Duration, attempt int) time.Duration {
	d := initial
	for i := 1; i < attempt; i++ {
		if d > math.MaxInt64/2 {
			return math.MaxInt64
		}
		d *= 2
	}
	return d
}

func capDelay(d, maxDelay time.Duration) time.Duration {
	if maxDelay > 0 && d > maxDelay {
		return maxDelay
	}
	return d
}
