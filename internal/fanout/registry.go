package fanout

import (
	"sync"

	"go.uber.org/zap"

	"github.com/park285/chess-rooms/internal/obslog"
)

const subscriberBuffer = 32

// Subscriber is one live-update stream attached to this process. Updates
// arrive on C; the channel closes when the subscriber is pruned or the room
// completes.
type Subscriber struct {
	C    <-chan []byte
	ch   chan []byte
	once sync.Once
}

func newSubscriber() *Subscriber {
	ch := make(chan []byte, subscriberBuffer)
	return &Subscriber{C: ch, ch: ch}
}

// Deliver sends directly to this subscriber only, bypassing the room-wide
// fanout. Used for per-connection greetings.
func (s *Subscriber) Deliver(data []byte) bool {
	return s.send(data)
}

// send delivers without blocking; false means the subscriber fell behind or
// is gone and must be pruned.
func (s *Subscriber) send(data []byte) bool {
	select {
	case s.ch <- data:
		return true
	default:
		return false
	}
}

func (s *Subscriber) close() {
	s.once.Do(func() { close(s.ch) })
}

// Registry owns the live-view subscribers of this process, keyed by room
// code. Every send is isolated: one failed subscriber is pruned without
// affecting the rest of the room.
type Registry struct {
	mu   sync.RWMutex
	subs map[string][]*Subscriber
}

func NewRegistry() *Registry {
	return &Registry{subs: make(map[string][]*Subscriber)}
}

// Subscribe attaches a new stream to a room code.
func (r *Registry) Subscribe(code string) *Subscriber {
	sub := newSubscriber()
	r.mu.Lock()
	r.subs[code] = append(r.subs[code], sub)
	r.mu.Unlock()
	return sub
}

// Unsubscribe detaches one stream; a dropped client ends only its own
// delivery.
func (r *Registry) Unsubscribe(code string, sub *Subscriber) {
	r.mu.Lock()
	r.subs[code] = remove(r.subs[code], sub)
	if len(r.subs[code]) == 0 {
		delete(r.subs, code)
	}
	r.mu.Unlock()
	sub.close()
}

// Broadcast delivers data to every subscriber of the room, pruning the ones
// that cannot accept it.
func (r *Registry) Broadcast(code string, data []byte) {
	r.mu.RLock()
	subs := append([]*Subscriber(nil), r.subs[code]...)
	r.mu.RUnlock()

	var stale []*Subscriber
	for _, sub := range subs {
		if !sub.send(data) {
			stale = append(stale, sub)
		}
	}
	for _, sub := range stale {
		r.Unsubscribe(code, sub)
		obslog.L().Warn("subscriber_pruned", zap.String("code", code))
	}
}

// Complete closes every stream of a room after a final message, used when a
// game ends.
func (r *Registry) Complete(code string, final []byte) {
	if final != nil {
		r.Broadcast(code, final)
	}
	r.mu.Lock()
	subs := r.subs[code]
	delete(r.subs, code)
	r.mu.Unlock()
	for _, sub := range subs {
		sub.close()
	}
}

// Count reports how many subscribers a room currently has.
func (r *Registry) Count(code string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs[code])
}

func remove(subs []*Subscriber, target *Subscriber) []*Subscriber {
	out := subs[:0]
	for _, s := range subs {
		if s != target {
			out = append(out, s)
		}
	}
	return out
}
