package engine

import (
	"fmt"
	"sort"
	"sync"
)

// Registered decider names.
const (
	DeciderStarter = "starter"
	DeciderEcho    = "echo"
)

// Registry holds deciders by name.
type Registry struct {
	mu       sync.RWMutex
	deciders map[string]Decider
}

// NewRegistry creates an empty decider registry.
func NewRegistry() *Registry {
	return &Registry{
		deciders: make(map[string]Decider),
	}
}

// DefaultRegistry returns a registry holding the built-in deciders.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(DeciderStarter, NewStarter())
	r.Register(DeciderEcho, Echo{})
	return r
}

// Register adds a decider under the given name, replacing any previous one.
func (r *Registry) Register(name string, d Decider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deciders[name] = d
}

// Resolve returns the decider registered under name.
func (r *Registry) Resolve(name string) (Decider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.deciders[name]
	if !ok {
		return nil, fmt.Errorf("decider %q is not registered", name)
	}
	return d, nil
}

// Names returns the registered decider names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.deciders))
	for name := range r.deciders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
