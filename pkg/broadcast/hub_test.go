package broadcast

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"
)

func newTestHub() *Hub {
	return NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestHub_BroadcastReachesAllSubscribers(t *testing.T) {
	h := newTestHub()

	subs := make([]*Subscriber, 3)
	for i := range subs {
		subs[i] = h.Register()
	}
	if h.Count() != 3 {
		t.Fatalf("expected 3 subscribers, got %d", h.Count())
	}

	h.Broadcast([]byte(`{"progress":30}`))

	for i, sub := range subs {
		select {
		case payload := <-sub.Events:
			if !bytes.Equal(payload, []byte(`{"progress":30}`)) {
				t.Errorf("subscriber %d got %q", i, payload)
			}
		case <-time.After(time.Second):
			t.Errorf("subscriber %d did not receive the broadcast", i)
		}
	}
}

func TestHub_BroadcastPreservesOrderPerSubscriber(t *testing.T) {
	h := newTestHub()
	sub := h.Register()

	h.Broadcast([]byte("first"))
	h.Broadcast([]byte("second"))

	if got := <-sub.Events; !bytes.Equal(got, []byte("first")) {
		t.Errorf("expected first, got %q", got)
	}
	if got := <-sub.Events; !bytes.Equal(got, []byte("second")) {
		t.Errorf("expected second, got %q", got)
	}
}

func TestHub_SlowSubscriberDropsNotBlocks(t *testing.T) {
	h := newTestHub()
	slow := h.Register()
	fast := h.Register()

	// Fill the slow subscriber's buffer and keep going.
	total := subscriberBuffer + 5
	done := make(chan struct{})
	go func() {
		for i := 0; i < total; i++ {
			h.Broadcast([]byte(fmt.Sprintf("event-%d", i)))
		}
		close(done)
	}()

	// Drain the fast subscriber so the broadcaster is never waiting on it.
	received := 0
	for received < total {
		select {
		case <-fast.Events:
			received++
		case <-time.After(2 * time.Second):
			t.Fatalf("broadcaster stalled after %d events (slow subscriber blocked it)", received)
		}
	}
	<-done

	// The slow subscriber kept its buffer's worth and lost the rest.
	if n := len(slow.Events); n != subscriberBuffer {
		t.Errorf("expected slow subscriber to hold %d buffered events, got %d", subscriberBuffer, n)
	}
}

func TestHub_UnregisterClosesChannel(t *testing.T) {
	h := newTestHub()
	sub := h.Register()

	h.Unregister(sub)

	if _, ok := <-sub.Events; ok {
		t.Error("expected closed channel after Unregister")
	}
	if h.Count() != 0 {
		t.Errorf("expected 0 subscribers, got %d", h.Count())
	}

	// Double unregister is a no-op, not a double close.
	h.Unregister(sub)
}

func TestHub_LateSubscriberMissesEarlierBroadcasts(t *testing.T) {
	h := newTestHub()

	h.Broadcast([]byte("before"))
	sub := h.Register()

	select {
	case payload := <-sub.Events:
		t.Errorf("late subscriber unexpectedly received %q", payload)
	case <-time.After(50 * time.Millisecond):
	}
}
