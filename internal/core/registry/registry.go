package registry

import (
	"strings"
	"sync"

	"github.com/Aurracloud/agentic-x402/internal/core/domain"
)

// Registry is the in-memory set of routers being watched. Addresses are
// deduplicated case-insensitively and the casing and label from the first
// sighting win. Routers are never removed.
type Registry struct {
	mu      sync.RWMutex
	byKey   map[string]*domain.TrackedRouter
	ordered []*domain.TrackedRouter
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{byKey: make(map[string]*domain.TrackedRouter)}
}

// Upsert adds a router if its address is not tracked yet and reports whether
// it was newly added. Existing entries keep their original casing, label and
// balance history.
func (r *Registry) Upsert(address, label string) bool {
	key := strings.ToLower(address)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byKey[key]; exists {
		return false
	}

	router := domain.NewTrackedRouter(address, label)
	r.byKey[key] = router
	r.ordered = append(r.ordered, router)
	return true
}

// Get looks up a router by address, case-insensitively.
func (r *Registry) Get(address string) (*domain.TrackedRouter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	router, ok := r.byKey[strings.ToLower(address)]
	return router, ok
}

// All returns the tracked routers in insertion order. The returned slice is a
// snapshot and stays valid while routers are added concurrently.
func (r *Registry) All() []*domain.TrackedRouter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.TrackedRouter, len(r.ordered))
	copy(out, r.ordered)
	return out
}

// Len returns the number of tracked routers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byKey)
}
