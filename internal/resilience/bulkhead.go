package resilience

import "errors"

// ErrBulkheadFull reports that the concurrency cap is saturated.
var ErrBulkheadFull = errors.New("bulkhead full")

// Bulkhead caps concurrent executions with a counting semaphore. Acquisition
// never blocks; saturated callers are rejected immediately so overload stays
// visible instead of queueing.
type Bulkhead struct {
	slots chan struct{}
}

// NewBulkhead builds a bulkhead admitting up to size concurrent holders.
func NewBulkhead(size int) *Bulkhead {
	if size <= 0 {
		size = 1
	}
	return &Bulkhead{slots: make(chan struct{}, size)}
}

// TryAcquire takes a slot if one is free.
func (b *Bulkhead) TryAcquire() bool {
	select {
	case b.slots <- struct{}{}:
		return true
	default:
		return false
	}
}

// Release frees a previously acquired slot.
func (b *Bulkhead) Release() {
	select {
	case <-b.slots:
	default:
	}
}

// Execute runs fn inside a slot, or fails fast with ErrBulkheadFull.
func (b *Bulkhead) Execute(fn func() error) error {
	if !b.TryAcquire() {
		return ErrBulkheadFull
	}
	defer b.Release()
	return fn()
}
