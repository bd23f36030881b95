package gamecache

// Item is one buffered (room code, snapshot) pair. Multiple items for the
// same code may coexist until a drain coalesces them.
type Item struct {
	Code string
	Snap *Snapshot
}

// Buffer is the bounded in-process overflow queue used while the cache is
// unavailable. Multi-producer, single-consumer; Offer never blocks.
type Buffer struct {
	items chan Item
}

// DefaultBufferCapacity bounds the emergency queue.
const DefaultBufferCapacity = 100_000

func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultBufferCapacity
	}
	return &Buffer{items: make(chan Item, capacity)}
}

// Offer enqueues without blocking and reports false when the buffer is full.
// A full buffer is an overload signal the caller must surface.
func (b *Buffer) Offer(code string, snap *Snapshot) bool {
	select {
	case b.items <- Item{Code: code, Snap: snap}:
		return true
	default:
		return false
	}
}

// Drain removes up to max items in FIFO order without blocking.
func (b *Buffer) Drain(max int) []Item {
	if max <= 0 {
		return nil
	}
	out := make([]Item, 0, max)
	for len(out) < max {
		select {
		case item := <-b.items:
			out = append(out, item)
		default:
			return out
		}
	}
	return out
}

// Len reports the current queue depth.
func (b *Buffer) Len() int { return len(b.items) }
