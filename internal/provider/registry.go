package provider

import (
	"context"
	"fmt"
	"sort"

	"github.com/MarcoPoloResearchLab/sqldirectory/internal/directory"
)

// Registry maps provider ids to factories. It is immutable after construction.
type Registry struct {
	factories map[string]*Factory
}

// NewRegistry indexes factories by id.
func NewRegistry(factories ...*Factory) (*Registry, error) {
	indexed := make(map[string]*Factory, len(factories))
	for _, factory := range factories {
		if _, exists := indexed[factory.ID()]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateProvider, factory.ID())
		}
		indexed[factory.ID()] = factory
	}
	return &Registry{factories: indexed}, nil
}

// Factory returns the factory registered under id.
func (r *Registry) Factory(id string) (*Factory, bool) {
	factory, ok := r.factories[id]
	return factory, ok
}

// FactoryFor routes a composite user id to the factory named by its provider prefix.
func (r *Registry) FactoryFor(compositeID string) (*Factory, bool) {
	return r.Factory(directory.ParseStorageID(compositeID).ProviderID)
}

// IDs lists registered provider ids in sorted order.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.factories))
	for id := range r.factories {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Bind pairs the factory registered under id with a configuration.
func (r *Registry) Bind(id string, cfg Configuration) (Binding, error) {
	factory, ok := r.Factory(id)
	if !ok {
		return Binding{}, fmt.Errorf("%w: %s", ErrUnknownProvider, id)
	}
	return Binding{Factory: factory, Configuration: cfg}, nil
}

// Binding is a factory paired with the configuration the host handed it.
type Binding struct {
	Factory       *Factory
	Configuration Configuration
}

// Open creates an adapter for one unit of host work. Callers close it when done.
func (b Binding) Open(ctx context.Context) (directory.Provider, error) {
	adapter, err := b.Factory.Create(ctx, b.Configuration)
	if err != nil {
		return nil, err
	}
	return adapter, nil
}
