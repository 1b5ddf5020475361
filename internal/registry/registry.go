// Package registry tracks the set of currently infected entity IDs.
// It is a performance index over the durable state store — never the source
// of truth — and can be rebuilt from persisted state at any time.
package registry

import (
	"sync"

	"github.com/google/uuid"
)

// Registry is a concurrent set of infected entity identifiers. All methods
// are safe to call from any goroutine; duplicate adds are no-ops.
type Registry struct {
	ids sync.Map // uuid.UUID → struct{}
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{}
}

// Add marks an entity as infected.
func (r *Registry) Add(id uuid.UUID) {
	r.ids.Store(id, struct{}{})
}

// Remove unmarks an entity. Removing an absent ID is a no-op.
func (r *Registry) Remove(id uuid.UUID) {
	r.ids.Delete(id)
}

// Contains reports whether the entity is currently marked infected.
func (r *Registry) Contains(id uuid.UUID) bool {
	_, ok := r.ids.Load(id)
	return ok
}

// Snapshot returns a point-in-time copy of the set. The copy is safe to
// iterate while the registry keeps mutating and never reflects later changes.
func (r *Registry) Snapshot() []uuid.UUID {
	var out []uuid.UUID
	r.ids.Range(func(k, _ any) bool {
		out = append(out, k.(uuid.UUID))
		return true
	})
	return out
}

// Len returns the current number of infected entities.
func (r *Registry) Len() int {
	n := 0
	r.ids.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Clear empties the registry. Used before a full reconciliation rebuild.
func (r *Registry) Clear() {
	r.ids.Range(func(k, _ any) bool {
		r.ids.Delete(k)
		return true
	})
}
