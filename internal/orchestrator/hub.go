package orchestrator

import (
	"fmt"
	"sync"
)

// PushEvent is one server-push message for a client: a type tag such as
// payment_approved, payment_declined, ticket_issued or promotion, and its
// JSON-serializable payload.
type PushEvent struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// StatusChannelName is the identifier returned to clients so they know
// which server-push channel to observe for reservation status.
func StatusChannelName(clientID string) string {
	return fmt.Sprintf("reservation-status-%s", clientID)
}

// Hub fans server-push events out to attached client connections. A client
// may hold several connections; each gets its own buffered channel. Sends
// never block: a connection too slow to drain its buffer misses events
// rather than stalling the consumption loop.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[chan PushEvent]struct{}
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[chan PushEvent]struct{})}
}

// Attach registers a connection for clientID and returns its event channel.
func (h *Hub) Attach(clientID string) chan PushEvent {
	ch := make(chan PushEvent, 16)
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[clientID] == nil {
		h.subs[clientID] = make(map[chan PushEvent]struct{})
	}
	h.subs[clientID][ch] = struct{}{}
	return ch
}

// Detach removes a connection. The channel is closed so the serving
// goroutine terminates.
func (h *Hub) Detach(clientID string, ch chan PushEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conns, ok := h.subs[clientID]
	if !ok {
		return
	}
	if _, ok := conns[ch]; !ok {
		return
	}
	delete(conns, ch)
	if len(conns) == 0 {
		delete(h.subs, clientID)
	}
	close(ch)
}

// Send delivers an event to every connection of one client.
func (h *Hub) Send(clientID string, ev PushEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs[clientID] {
		select {
		case ch <- ev:
		default:
		}
	}
}
