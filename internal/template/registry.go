package template

import (
	"sort"
)

// Generator produces one value for a tag. Values must be JSON encodable.
type Generator func() interface{}

// Registry is an immutable mapping from tag name to generator
type Registry struct {
	generators map[string]Generator
}

// NewRegistry creates a registry from a copy of generators
func NewRegistry(generators map[string]Generator) *Registry {
	copied := make(map[string]Generator, len(generators))
	for name, gen := range generators {
		copied[name] = gen
	}
	return &Registry{generators: copied}
}

// Lookup returns the generator registered under name
func (r *Registry) Lookup(name string) (Generator, bool) {
	gen, ok := r.generators[name]
	return gen, ok
}

// Names returns the registered tag names in sorted order
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.generators))
	for name := range r.generators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered tags
func (r *Registry) Len() int {
	return len(r.generators)
}
