package orchestrator

import "sync"

// SubscriberSet is the in-memory set of clients subscribed to promotion
// broadcasts. It is mutated by HTTP handlers and read by the promotion
// consumer, so access is guarded.
type SubscriberSet struct {
	mu      sync.RWMutex
	clients map[string]struct{}
}

// NewSubscriberSet returns an empty set.
func NewSubscriberSet() *SubscriberSet {
	return &SubscriberSet{clients: make(map[string]struct{})}
}

// Subscribe adds a client; re-subscribing is harmless.
func (s *SubscriberSet) Subscribe(clientID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[clientID] = struct{}{}
}

// Unsubscribe removes a client and reports whether it was subscribed.
func (s *SubscriberSet) Unsubscribe(clientID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[clientID]; !ok {
		return false
	}
	delete(s.clients, clientID)
	return true
}

// List returns a snapshot of the subscribed client ids.
func (s *SubscriberSet) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.clients))
	for id := range s.clients {
		out = append(out, id)
	}
	return out
}
