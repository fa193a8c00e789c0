package backoff

import (
	"context"
	"errors"
	"time"
)

// Classifier reports whether an error is transient and worth retrying.
// A nil Classifier treats every error as transient.
type Classifier func(err error) bool

// RetryConfig bounds a retryable operation.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts, including the first.
	// Values below 1 are treated as 1.
	MaxAttempts int

	// Strategy computes the delay between attempts.
	// Nil means DefaultStrategy().
	Strategy Strategy

	// Transient classifies errors. Non-transient errors stop retrying
	// immediately and are returned as-is.
	Transient Classifier
}

// Retry runs op until it succeeds, the attempts are exhausted, the error is
// classified non-transient, or ctx is cancelled. The last error is returned.
//
// Retry exists so that I/O boundaries share one retry loop instead of
// growing ad hoc copies per call site. Operations that own their retry
// policy (like the dispatch executor) should not be wrapped here.
func Retry(ctx context.Context, cfg RetryConfig, op func(ctx context.Context) error) error {
	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	strategy := cfg.Strategy
	if strategy == nil {
		strategy = DefaultStrategy()
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return errors.Join(err, lastErr)
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}

		if cfg.Transient != nil && !cfg.Transient(lastErr) {
			return lastErr
		}

		if attempt == attempts {
			break
		}

		if !sleep(ctx, strategy.Delay(attempt)) {
			return errors.Join(ctx.Err(), lastErr)
		}
	}

	return lastErr
}

// sleep waits for d, returning false if ctx is cancelled first.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
