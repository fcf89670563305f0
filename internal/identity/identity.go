// Package identity tracks the resolved caller identity per room.
//
// Once onboarding (or general-user registration) completes, the registry lets
// the persistence bridge route turns without repeated backend lookups.
// Entries are never evicted within process lifetime: room names are not
// reused concurrently, so the map growth is bounded by the number of sessions
// a single process serves.
package identity

import (
	"log/slog"
	"sync"

	"github.com/voxa-labs/voxa-agent/internal/models"
)

// Registry maps room names to resolved caller identities. Safe for
// concurrent use. Construct one per process and inject it; it is not ambient
// global state.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]models.Identity
}

// NewRegistry creates an empty identity registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]models.Identity)}
}

// Set records the resolved identity for a room, replacing any prior entry.
func (r *Registry) Set(room string, id models.Identity) {
	r.mu.Lock()
	r.entries[room] = id
	r.mu.Unlock()
	slog.Debug("identity.Registry: entry set", "room", room, "role", id.Role, "businessID", id.BusinessID)
}

// Get returns the identity for a room and whether one has been resolved.
func (r *Registry) Get(room string) (models.Identity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.entries[room]
	return id, ok
}

// Len returns the number of rooms with resolved identities.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
