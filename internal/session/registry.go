package session

import "sync"

// Registry hands out one Review per user session. Keeping the single-slot
// draft inside an explicit per-session object avoids cross-user leakage when
// many sessions live in one process.
type Registry struct {
	mu      sync.Mutex
	reviews map[string]*Review
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{reviews: make(map[string]*Review)}
}

// For returns the Review owned by the given session id, creating it on first
// use.
func (g *Registry) For(sessionID string) *Review {
	g.mu.Lock()
	defer g.mu.Unlock()
	r, ok := g.reviews[sessionID]
	if !ok {
		r = NewReview()
		g.reviews[sessionID] = r
	}
	return r
}

// Drop forgets the Review of a signed-out session.
func (g *Registry) Drop(sessionID string) {
	g.mu.Lock()
	delete(g.reviews, sessionID)
	g.mu.Unlock()
}
