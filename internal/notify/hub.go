// Package notify fans run progress events out to subscribers, typically SSE
// connections held open by the HTTP server.
package notify

import (
	"log/slog"
	"sync"

	"github.com/starmast/epub-edit/internal/run"
)

// Hub implements run.Notifier. Publishing never blocks: a subscriber whose
// buffer is full misses the event rather than stalling the run.
type Hub struct {
	logger *slog.Logger

	mu     sync.Mutex
	nextID int
	subs   map[int]chan run.Event
}

// NewHub creates an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		logger: logger.With("component", "notify_hub"),
		subs:   make(map[int]chan run.Event),
	}
}

// Subscribe registers a subscriber with the given buffer size and returns
// its event channel plus a cancel function. Cancel closes the channel and
// must be called exactly once.
func (h *Hub) Subscribe(buffer int) (<-chan run.Event, func()) {
	if buffer < 1 {
		buffer = 16
	}
	ch := make(chan run.Event, buffer)

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = ch
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if _, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(ch)
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// Notify delivers ev to every subscriber, dropping it for any subscriber
// that cannot keep up.
func (h *Hub) Notify(ev run.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, ch := range h.subs {
		select {
		case ch <- ev:
		default:
			h.logger.Debug("dropping event for slow subscriber",
				"subscriber", id, "type", ev.Type)
		}
	}
}

// SubscriberCount returns the number of active subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Verify interface
var _ run.Notifier = (*Hub)(nil)
