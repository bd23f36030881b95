package fanout

import "testing"

func recv(t *testing.T, sub *Subscriber) string {
	t.Helper()
	select {
	case data, ok := <-sub.C:
		if !ok {
			t.Fatalf("channel closed")
		}
		return string(data)
	default:
		t.Fatalf("no message pending")
		return ""
	}
}

func TestRegistryBroadcastReachesAllRoomSubscribers(t *testing.T) {
	r := NewRegistry()
	s1 := r.Subscribe("abc")
	s2 := r.Subscribe("abc")
	other := r.Subscribe("xyz")

	r.Broadcast("abc", []byte("hello"))

	if got := recv(t, s1); got != "hello" {
		t.Fatalf("s1 got %q", got)
	}
	if got := recv(t, s2); got != "hello" {
		t.Fatalf("s2 got %q", got)
	}
	select {
	case data := <-other.C:
		t.Fatalf("cross-room delivery: %q", data)
	default:
	}
}

func TestRegistryUnsubscribeClosesStream(t *testing.T) {
	r := NewRegistry()
	sub := r.Subscribe("abc")
	r.Unsubscribe("abc", sub)

	if _, ok := <-sub.C; ok {
		t.Fatalf("channel still open after unsubscribe")
	}
	if got := r.Count("abc"); got != 0 {
		t.Fatalf("Count = %d", got)
	}
	// idempotent
	r.Unsubscribe("abc", sub)
}

func TestRegistryPrunesStalledSubscriber(t *testing.T) {
	r := NewRegistry()
	stalled := r.Subscribe("abc")
	healthy := r.Subscribe("abc")

	// fill the stalled subscriber's buffer so the next send fails
	for i := 0; i < subscriberBuffer; i++ {
		if !stalled.send([]byte("x")) {
			t.Fatalf("fill send %d failed", i)
		}
	}

	r.Broadcast("abc", []byte("next"))

	if got := r.Count("abc"); got != 1 {
		t.Fatalf("Count after prune = %d", got)
	}
	if got := recv(t, healthy); got != "next" {
		t.Fatalf("healthy got %q", got)
	}
}

func TestRegistryCompleteDeliversFinalAndCloses(t *testing.T) {
	r := NewRegistry()
	sub := r.Subscribe("abc")

	r.Complete("abc", []byte("bye"))

	if got := recv(t, sub); got != "bye" {
		t.Fatalf("final = %q", got)
	}
	if _, ok := <-sub.C; ok {
		t.Fatalf("channel open after complete")
	}
	if got := r.Count("abc"); got != 0 {
		t.Fatalf("Count = %d", got)
	}
}

func TestSubscriberDeliver(t *testing.T) {
	r := NewRegistry()
	a := r.Subscribe("abc")
	b := r.Subscribe("abc")

	if !a.Deliver([]byte("greeting")) {
		t.Fatalf("Deliver failed")
	}
	if got := recv(t, a); got != "greeting" {
		t.Fatalf("a got %q", got)
	}
	select {
	case data := <-b.C:
		t.Fatalf("direct delivery leaked to b: %q", data)
	default:
	}
}
