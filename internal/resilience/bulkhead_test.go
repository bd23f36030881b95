package resilience

import (
	"errors"
	"sync"
	"testing"
)

func TestBulkheadRejectsWhenSaturated(t *testing.T) {
	b := NewBulkhead(2)
	if !b.TryAcquire() || !b.TryAcquire() {
		t.Fatalf("expected two free slots")
	}
	if b.TryAcquire() {
		t.Fatalf("third acquire should fail")
	}

	err := b.Execute(func() error { return nil })
	if !errors.Is(err, ErrBulkheadFull) {
		t.Fatalf("Execute: %v", err)
	}

	b.Release()
	if !b.TryAcquire() {
		t.Fatalf("released slot not reusable")
	}
}

func TestBulkheadExecuteReleasesSlot(t *testing.T) {
	b := NewBulkhead(1)
	for i := 0; i < 3; i++ {
		if err := b.Execute(func() error { return nil }); err != nil {
			t.Fatalf("Execute #%d: %v", i, err)
		}
	}
}

func TestBulkheadConcurrentCap(t *testing.T) {
	const size = 4
	b := NewBulkhead(size)

	var mu sync.Mutex
	inFlight, peak := 0, 0
	gate := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = b.Execute(func() error {
				mu.Lock()
				inFlight++
				if inFlight > peak {
					peak = inFlight
				}
				mu.Unlock()
				<-gate
				mu.Lock()
				inFlight--
				mu.Unlock()
				return nil
			})
		}()
	}

	close(gate)
	wg.Wait()
	if peak > size {
		t.Fatalf("concurrency peak %d exceeded cap %d", peak, size)
	}
}
