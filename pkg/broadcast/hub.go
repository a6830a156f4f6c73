// Package broadcast fans event payloads out to the currently connected
// stream subscribers. Delivery is best-effort and at-most-once: a
// subscriber that connects after a broadcast, or whose buffer is full,
// misses that payload.
package broadcast

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Subscriber buffer size. A viewer that falls this far behind starts
// dropping events rather than stalling the broadcaster.
const subscriberBuffer = 16

// Subscriber is one open stream connection. It holds no durable identity
// and no history; it exists from Register until Unregister.
type Subscriber struct {
	ID     string
	Events chan []byte
}

// Hub tracks open subscribers and delivers broadcasts to all of them.
// The transport layer owns connection accept/close; the hub only
// enumerates subscribers and writes to their channels.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[*Subscriber]struct{}
	logger      *slog.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		subscribers: make(map[*Subscriber]struct{}),
		logger:      logger,
	}
}

// Register adds a new subscriber and returns it. The caller must
// Unregister it when the connection closes.
func (h *Hub) Register() *Subscriber {
	sub := &Subscriber{
		ID:     uuid.New().String(),
		Events: make(chan []byte, subscriberBuffer),
	}

	h.mu.Lock()
	h.subscribers[sub] = struct{}{}
	total := len(h.subscribers)
	h.mu.Unlock()

	h.logger.Debug("subscriber registered", "subscriber_id", sub.ID, "total", total)
	return sub
}

// Unregister removes a subscriber and closes its channel. Safe to call
// once per subscriber; unknown subscribers are ignored.
func (h *Hub) Unregister(sub *Subscriber) {
	h.mu.Lock()
	if _, ok := h.subscribers[sub]; ok {
		delete(h.subscribers, sub)
		close(sub.Events)
	}
	total := len(h.subscribers)
	h.mu.Unlock()

	h.logger.Debug("subscriber unregistered", "subscriber_id", sub.ID, "total", total)
}

// Broadcast delivers payload to every open subscriber. Sends never
// block: a subscriber with a full buffer drops the payload, and one
// slow subscriber cannot delay the others or the caller.
func (h *Hub) Broadcast(payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.subscribers {
		select {
		case sub.Events <- payload:
		default:
			h.logger.Warn("subscriber buffer full, dropping event", "subscriber_id", sub.ID)
		}
	}
}

// Count returns the number of currently open subscribers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}
