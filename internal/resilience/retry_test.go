package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDoStopsOnSuccess(t *testing.T) {
	calls := 0
	err := Do(context.Background(), 3, time.Millisecond, func() error {
		calls++
		if calls < 2 {
			return errBoom
		}
		return nil
	}, nil)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if calls != 2 {
		t.Fatalf("calls = %d", calls)
	}
}

func TestDoExhaustsAttempts(t *testing.T) {
	calls := 0
	err := Do(context.Background(), 3, time.Millisecond, func() error {
		calls++
		return errBoom
	}, nil)
	if !errors.Is(err, errBoom) {
		t.Fatalf("Do: %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d", calls)
	}
}

func TestDoHonorsRetryablePredicate(t *testing.T) {
	calls := 0
	err := Do(context.Background(), 5, time.Millisecond, func() error {
		calls++
		return ErrBreakerOpen
	}, func(err error) bool {
		return !errors.Is(err, ErrBreakerOpen)
	})
	if !errors.Is(err, ErrBreakerOpen) {
		t.Fatalf("Do: %v", err)
	}
	if calls != 1 {
		t.Fatalf("non-retryable error was retried: calls = %d", calls)
	}
}

func TestDoReturnsContextError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Do(ctx, 3, time.Minute, func() error { return errBoom }, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Do: %v", err)
	}
}
