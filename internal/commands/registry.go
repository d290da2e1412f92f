package commands

import (
	"fmt"
	"sort"
	"sync"
)

// Registry indexes commands by name, alias and route.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]Command // name and aliases
	names  []string           // primary names, sorted
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Command)}
}

// Register adds a command. Names and aliases share one namespace; a
// clash is an error and leaves the registry unchanged.
func (r *Registry) Register(c Command) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	keys := append([]string{c.Name()}, c.Aliases()...)
	for i, k := range keys {
		if _, exists := r.byName[k]; exists {
			if i == 0 {
				return fmt.Errorf("command already registered: %s", k)
			}
			return fmt.Errorf("command alias already registered: %s", k)
		}
	}
	for _, k := range keys {
		r.byName[k] = c
	}

	i := sort.SearchStrings(r.names, c.Name())
	r.names = append(r.names, "")
	copy(r.names[i+1:], r.names[i:])
	r.names[i] = c.Name()
	return nil
}

// Find looks up a command by name or alias.
func (r *Registry) Find(name string) (Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmd, ok := r.byName[name]
	return cmd, ok
}

// ForRoute returns the command whose argument-free invocation navigates
// to path, e.g. "/dashboard". Ties go to the first name in sort order.
func (r *Registry) ForRoute(path string) (Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, name := range r.names {
		if c := r.byName[name]; c.Route(nil) == path {
			return c, true
		}
	}
	return nil, false
}

// All returns all commands sorted by name.
func (r *Registry) All() []Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]Command, len(r.names))
	for i, name := range r.names {
		result[i] = r.byName[name]
	}
	return result
}

// DefaultRegistry is the global command registry.
var DefaultRegistry = NewRegistry()

// Register adds a command to the default registry.
func Register(c Command) {
	if err := DefaultRegistry.Register(c); err != nil {
		panic(err)
	}
}
