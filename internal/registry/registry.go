// Package registry holds the catalog of configured model providers.
//
// Catalog order is significant: the routing policy treats it as an implicit
// priority ranking, so the registry preserves insertion order everywhere.
package registry

import (
	"sync"

	"github.com/auraforge/orchestrator/internal/domain"
)

// Registry is a read-mostly catalog of model providers. An external
// configuration loader may swap the catalog between requests; in-flight
// routing decisions keep working against the snapshot they captured.
type Registry struct {
	mu      sync.RWMutex
	catalog []domain.ModelProvider
}

// New creates a registry with the given catalog. The slice is copied so
// later mutation by the caller cannot disturb routing.
func New(catalog []domain.ModelProvider) *Registry {
	r := &Registry{}
	r.Swap(catalog)
	return r
}

// Swap atomically replaces the catalog. In-flight snapshots are unaffected.
func (r *Registry) Swap(catalog []domain.ModelProvider) {
	next := make([]domain.ModelProvider, len(catalog))
	copy(next, catalog)

	r.mu.Lock()
	r.catalog = next
	r.mu.Unlock()
}

// Snapshot returns the current catalog view. The returned snapshot is
// immutable from the registry's perspective; callers must not mutate it.
func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return Snapshot{providers: r.catalog}
}

// List returns the full catalog in priority order.
func (r *Registry) List() []domain.ModelProvider {
	return r.Snapshot().List()
}

// Enabled returns the enabled subset in priority order.
func (r *Registry) Enabled() []domain.ModelProvider {
	return r.Snapshot().Enabled()
}

// EnabledWithCapability returns enabled providers carrying the given tag.
func (r *Registry) EnabledWithCapability(tag string) []domain.ModelProvider {
	return r.Snapshot().EnabledWithCapability(tag)
}

// ByID looks up a provider by id.
func (r *Registry) ByID(id string) (domain.ModelProvider, bool) {
	return r.Snapshot().ByID(id)
}

// Snapshot is a point-in-time catalog view. All reads within one routing
// decision must go through the same snapshot.
type Snapshot struct {
	providers []domain.ModelProvider
}

// List returns the snapshot's catalog in priority order.
func (s Snapshot) List() []domain.ModelProvider {
	out := make([]domain.ModelProvider, len(s.providers))
	copy(out, s.providers)
	return out
}

// Enabled returns the enabled subset in priority order.
func (s Snapshot) Enabled() []domain.ModelProvider {
	var out []domain.ModelProvider
	for _, p := range s.providers {
		if p.Enabled {
			out = append(out, p)
		}
	}
	return out
}

// EnabledWithCapability returns enabled providers carrying the given tag,
// in priority order.
func (s Snapshot) EnabledWithCapability(tag string) []domain.ModelProvider {
	var out []domain.ModelProvider
	for _, p := range s.providers {
		if p.Enabled && p.HasCapability(tag) {
			out = append(out, p)
		}
	}
	return out
}

// ByID looks up a provider by id.
func (s Snapshot) ByID(id string) (domain.ModelProvider, bool) {
	for _, p := range s.providers {
		if p.ID == id {
			return p, true
		}
	}
	return domain.ModelProvider{}, false
}
