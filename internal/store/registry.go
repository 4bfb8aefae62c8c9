package store

import (
	"sync"

	"github.com/vkuksa/supermarkets/internal/backend"
)

// Registry hands out one Store per user so each consuming context sees
// its own cache. Instances are created lazily and kept for the process
// lifetime.
type Registry struct {
	querier backend.Querier

	mu     sync.Mutex
	stores map[string]*Store
}

// NewRegistry creates a Registry backed by the given querier.
func NewRegistry(querier backend.Querier) *Registry {
	return &Registry{
		querier: querier,
		stores:  make(map[string]*Store),
	}
}

// ForUser returns the store for the given user ID, creating it on first
// use.
func (r *Registry) ForUser(userID string) *Store {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.stores[userID]
	if !ok {
		s = New(r.querier)
		r.stores[userID] = s
	}
	return s
}

// Drop removes the store for the given user ID, discarding its cache.
// Used when a session ends.
func (r *Registry) Drop(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.stores, userID)
}
