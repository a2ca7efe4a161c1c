// Package registry holds the in-memory catalog of power zones. Zones are
// created once at load time and never destroyed; only their allocation state
// changes afterwards.
package registry

import (
	"fmt"
	"sync"

	"github.com/powergrid-labs/blackoutd/core/model"
)

// ErrUnknownZone is returned when a zone id is not in the catalog.
var ErrUnknownZone = fmt.Errorf("unknown zone")

// Registry is a thread-safe zone catalog. Mutations are serialized per call;
// zones are independent so no cross-zone locking is needed.
type Registry struct {
	mu    sync.RWMutex
	zones map[string]*model.Zone
	order []string
}

// New creates a Registry from the given zone catalog. Registration order is
// preserved; it is the tie-break order used by the allocation planner.
func New(zones []model.Zone) (*Registry, error) {
	r := &Registry{zones: make(map[string]*model.Zone, len(zones))}
	for _, z := range zones {
		if err := z.Validate(); err != nil {
			return nil, err
		}
		if _, dup := r.zones[z.ID]; dup {
			return nil, fmt.Errorf("duplicate zone id %s", z.ID)
		}
		if z.AllocationPercent == 0 && z.State == model.FullPower {
			z.AllocationPercent = 100
		}
		z.SyncState()
		zc := z
		r.zones[z.ID] = &zc
		r.order = append(r.order, z.ID)
	}
	return r, nil
}

// Get returns a copy of the zone with the given id.
func (r *Registry) Get(id string) (model.Zone, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	z, ok := r.zones[id]
	if !ok {
		return model.Zone{}, fmt.Errorf("%w: %s", ErrUnknownZone, id)
	}
	return *z, nil
}

// Has reports whether the zone id exists.
func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.zones[id]
	return ok
}

// List returns copies of all zones in registration order.
func (r *Registry) List() []model.Zone {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.Zone, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.zones[id])
	}
	return out
}

// Update applies the mutator to a single zone under the write lock and
// recomputes its power state afterwards. The updated copy is returned.
func (r *Registry) Update(id string, mutate func(*model.Zone)) (model.Zone, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	z, ok := r.zones[id]
	if !ok {
		return model.Zone{}, fmt.Errorf("%w: %s", ErrUnknownZone, id)
	}
	mutate(z)
	z.SyncState()
	return *z, nil
}

// Len returns the number of registered zones.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.zones)
}
