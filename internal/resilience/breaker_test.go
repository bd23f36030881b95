package resilience

import (
	"errors"
	"testing"
	"time"
)

var errBoom = errors.New("boom")

func newTestBreaker() (*Breaker, *time.Time) {
	b := NewBreaker(BreakerConfig{
		WindowSize:  10,
		MinCalls:    4,
		FailureRate: 0.5,
		CoolDown:    10 * time.Second,
	})
	clock := time.Unix(1000, 0)
	b.now = func() time.Time { return clock }
	return b, &clock
}

func TestBreakerStaysClosedUnderMinCalls(t *testing.T) {
	b, _ := newTestBreaker()
	for i := 0; i < 3; i++ {
		if err := b.Execute(func() error { return errBoom }); !errors.Is(err, errBoom) {
			t.Fatalf("call %d: %v", i, err)
		}
	}
	if got := b.State(); got != BreakerClosed {
		t.Fatalf("state = %v", got)
	}
}

func TestBreakerTripsOnFailureRate(t *testing.T) {
	b, _ := newTestBreaker()
	for i := 0; i < 5; i++ {
		_ = b.Execute(func() error { return errBoom })
	}
	if got := b.State(); got != BreakerOpen {
		t.Fatalf("state = %v", got)
	}

	called := false
	err := b.Execute(func() error { called = true; return nil })
	if !errors.Is(err, ErrBreakerOpen) {
		t.Fatalf("expected ErrBreakerOpen, got %v", err)
	}
	if called {
		t.Fatalf("fn ran while the breaker was open")
	}
}

func TestBreakerHalfOpenProbeCloses(t *testing.T) {
	b, clock := newTestBreaker()
	for i := 0; i < 5; i++ {
		_ = b.Execute(func() error { return errBoom })
	}

	*clock = clock.Add(11 * time.Second)
	if got := b.State(); got != BreakerHalfOpen {
		t.Fatalf("state = %v", got)
	}

	if err := b.Execute(func() error { return nil }); err != nil {
		t.Fatalf("probe: %v", err)
	}
	if got := b.State(); got != BreakerClosed {
		t.Fatalf("state after probe = %v", got)
	}
}

func TestBreakerHalfOpenProbeFailureReopens(t *testing.T) {
	b, clock := newTestBreaker()
	for i := 0; i < 5; i++ {
		_ = b.Execute(func() error { return errBoom })
	}

	*clock = clock.Add(11 * time.Second)
	if err := b.Execute(func() error { return errBoom }); !errors.Is(err, errBoom) {
		t.Fatalf("probe: %v", err)
	}
	if got := b.State(); got != BreakerOpen {
		t.Fatalf("state after failed probe = %v", got)
	}

	// second probe within the same half-open window is rejected
	*clock = clock.Add(11 * time.Second)
	if err := b.Execute(func() error { return nil }); err != nil {
		t.Fatalf("probe after second cool-down: %v", err)
	}
}

func TestBreakerLimitsHalfOpenProbes(t *testing.T) {
	b, clock := newTestBreaker()
	for i := 0; i < 5; i++ {
		_ = b.Execute(func() error { return errBoom })
	}
	*clock = clock.Add(11 * time.Second)

	if got := b.State(); got != BreakerHalfOpen {
		t.Fatalf("state = %v", got)
	}
	admitted := 0
	for i := 0; i < 3; i++ {
		if b.allow() {
			admitted++
		}
	}
	if admitted != 1 {
		t.Fatalf("half-open admitted %d probes", admitted)
	}
}
