package resilience

import (
	"context"
	"time"
)

// Do runs fn up to attempts times, sleeping base, 2*base, 3*base, ... between
// tries. retryable decides whether an error is worth another attempt; a nil
// predicate retries everything. The last error is returned when attempts are
// exhausted, a context error when the wait is cancelled.
func Do(ctx context.Context, attempts int, base time.Duration, fn func() error, retryable func(error) bool) error {
	if attempts <= 0 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if retryable != nil && !retryable(err) {
			return err
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-time.After(time.Duration(i+1) * base):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}
