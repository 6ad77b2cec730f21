// Package bridge maps between resources and flat rdf graphs.
package bridge

import (
	"sync"

	"github.com/FAU-CDI/skosd/internal/ns"
	"github.com/FAU-CDI/skosd/internal/resource"
)

// Factory wraps a decoded resource into the entity of a specific kind.
type Factory func(r *resource.Resource) resource.Entity

// Registry maps rdf:type uris to factories.
// A Registry is safe for concurrent use.
type Registry struct {
	m         sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register registers f to construct entities of the given type.
// A previous factory for typ is replaced.
func (reg *Registry) Register(typ string, f Factory) {
	reg.m.Lock()
	defer reg.m.Unlock()

	reg.factories[typ] = f
}

// Known checks if a factory for typ exists.
func (reg *Registry) Known(typ string) bool {
	if reg == nil {
		return false
	}

	reg.m.RLock()
	defer reg.m.RUnlock()

	_, ok := reg.factories[typ]
	return ok
}

// Wrap wraps r using the factory of the first of its types that is registered.
// Resources without a known type are returned as is.
func (reg *Registry) Wrap(r *resource.Resource) resource.Entity {
	if reg == nil {
		return r
	}

	reg.m.RLock()
	defer reg.m.RUnlock()

	for _, typ := range r.Types() {
		if f, ok := reg.factories[typ]; ok {
			return f(r)
		}
	}
	return r
}

var defaultRegistry = sync.OnceValue(func() *Registry {
	reg := NewRegistry()
	reg.Register(ns.Concept, func(r *resource.Resource) resource.Entity { return &resource.Concept{Resource: r} })
	reg.Register(ns.XLLabel, func(r *resource.Resource) resource.Entity { return &resource.Label{Resource: r} })
	reg.Register(ns.TenantType, func(r *resource.Resource) resource.Entity { return &resource.Tenant{Resource: r} })
	reg.Register(ns.SetType, func(r *resource.Resource) resource.Entity { return &resource.Set{Resource: r} })
	reg.Register(ns.ConceptScheme, func(r *resource.Resource) resource.Entity { return &resource.ConceptScheme{Resource: r} })
	reg.Register(ns.Collection, func(r *resource.Resource) resource.Entity { return &resource.SkosCollection{Resource: r} })
	reg.Register(ns.Person, func(r *resource.Resource) resource.Entity { return &resource.Person{Resource: r} })
	reg.Register(ns.ObjectProperty, func(r *resource.Resource) resource.Entity { return &resource.RelationType{Resource: r} })
	return reg
})

// DefaultRegistry returns the registry holding all kinds known to skosd.
func DefaultRegistry() *Registry {
	return defaultRegistry()
}
