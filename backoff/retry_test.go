package backoff_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xraph/continuum/backoff"
)

var errTransient = errors.New("transient")

var errPermanent = errors.New("permanent")

func TestRetry_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := backoff.Retry(context.Background(), backoff.RetryConfig{MaxAttempts: 3}, func(_ context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRetry_RetriesTransientThenSucceeds(t *testing.T) {
	calls := 0
	cfg := backoff.RetryConfig{
		MaxAttempts: 5,
		Strategy:    backoff.NewConstant(time.Millisecond),
		Transient:   func(err error) bool { return errors.Is(err, errTransient) },
	}

	err := backoff.Retry(context.Background(), cfg, func(_ context.Context) error {
		calls++
		if calls < 3 {
			return errTransient
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetry_StopsOnPermanentError(t *testing.T) {
	calls := 0
	cfg := backoff.RetryConfig{
		MaxAttempts: 5,
		Strategy:    backoff.NewConstant(time.Millisecond),
		Transient:   func(err error) bool { return errors.Is(err, errTransient) },
	}

	err := backoff.Retry(context.Background(), cfg, func(_ context.Context) error {
		calls++
		return errPermanent
	})
	if !errors.Is(err, errPermanent) {
		t.Fatalf("error = %v, want %v", err, errPermanent)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRetry_ExhaustsAttempts(t *testing.T) {
	calls := 0
	cfg := backoff.RetryConfig{
		MaxAttempts: 3,
		Strategy:    backoff.NewConstant(time.Millisecond),
	}

	err := backoff.Retry(context.Background(), cfg, func(_ context.Context) error {
		calls++
		return errTransient
	})
	if !errors.Is(err, errTransient) {
		t.Fatalf("error = %v, want %v", err, errTransient)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := backoff.Retry(ctx, backoff.RetryConfig{MaxAttempts: 3}, func(_ context.Context) error {
		calls++
		return errTransient
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if calls != 0 {
		t.Errorf("calls = %d, want 0", calls)
	}
}

func TestRetry_ZeroAttemptsTreatedAsOne(t *testing.T) {
	calls := 0
	err := backoff.Retry(context.Background(), backoff.RetryConfig{}, func(_ context.Context) error {
		calls++
		return errTransient
	})
	if !errors.Is(err, errTransient) {
		t.Fatalf("error = %v, want %v", err, errTransient)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}
