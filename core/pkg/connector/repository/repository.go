// Package repository implements the in-memory connector/credentials
// mapping: a generic RWMutex-guarded map exposed through a narrow
// list/get/save/remove interface so the engine never sees the backing
// implementation.
package repository

import (
	"sync"

	"github.com/madcok-co/conduit/core/pkg/connector/schema"
)

// Repository is the generic mapping contract: list of current keys,
// get/save/remove by key. The dispatch engine depends only on this
// interface, never on a concrete backing store.
type Repository[V any] interface {
	List() []string
	Get(id string) (V, bool)
	Save(id string, value V)
	Remove(id string)
}

// InMemory is a single mapping with insertion-independent ordering; the
// listing is simply the current key set.
type InMemory[V any] struct {
	mu   sync.RWMutex
	data map[string]V
}

// NewInMemory creates an empty in-memory repository.
func NewInMemory[V any]() *InMemory[V] {
	return &InMemory[V]{data: make(map[string]V)}
}

func (r *InMemory[V]) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.data))
	for k := range r.data {
		keys = append(keys, k)
	}
	return keys
}

func (r *InMemory[V]) Get(id string) (V, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.data[id]
	return v, ok
}

func (r *InMemory[V]) Save(id string, value V) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[id] = value
}

func (r *InMemory[V]) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.data, id)
}

// Store bundles the two keyed mappings: name → Connector
// and name → Credentials. Credential keys are a subset of service keys,
// enforced by callers (the loader only saves credentials alongside a
// service of the same name).
type Store struct {
	Services    Repository[*schema.Connector]
	Credentials Repository[*schema.Authentication]
}

// NewStore returns a Store backed by two independent in-memory mappings.
func NewStore() *Store {
	return &Store{
		Services:    NewInMemory[*schema.Connector](),
		Credentials: NewInMemory[*schema.Authentication](),
	}
}

// GetService and GetCredentials satisfy engine.Lookup, letting the
// dispatch engine read through a Store without depending on the
// Repository[V] generic interface directly.
func (s *Store) GetService(name string) (*schema.Connector, bool) {
	return s.Services.Get(name)
}

func (s *Store) GetCredentials(name string) (*schema.Authentication, bool) {
	return s.Credentials.Get(name)
}
