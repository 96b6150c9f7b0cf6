package schema

import (
	"fmt"
	"sort"
	"sync"
)

// Registry maps entity-type keys to descriptors. It is owned by a client
// session rather than being process-global, so independent configurations
// can coexist.
type Registry struct {
	mu          sync.RWMutex
	descriptors map[string]*Descriptor
	strict      bool
}

// Option configures a Registry.
type Option func(*Registry)

// WithStrict enables developer-mode validation: every descriptor is checked
// for its mandatory sections when registered.
func WithStrict(strict bool) Option {
	return func(r *Registry) { r.strict = strict }
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{descriptors: make(map[string]*Descriptor)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Strict reports whether developer-mode validation is enabled.
func (r *Registry) Strict() bool {
	return r.strict
}

// Register adds a descriptor. Duplicate keys are rejected; in strict mode the
// descriptor must also pass ValidateDescriptor.
func (r *Registry) Register(d *Descriptor) error {
	if d == nil || d.Key == "" {
		return fmt.Errorf("descriptor has no key")
	}
	if r.strict {
		if err := ValidateDescriptor(d); err != nil {
			return fmt.Errorf("descriptor %s: %w", d.Key, err)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.descriptors[d.Key]; exists {
		return fmt.Errorf("entity %s is already registered", d.Key)
	}
	r.descriptors[d.Key] = d
	return nil
}

// Get returns the descriptor for key.
func (r *Registry) Get(key string) (*Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.descriptors[key]
	return d, ok
}

// Keys returns the registered entity keys, sorted.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.descriptors))
	for k := range r.descriptors {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ByPath returns the descriptor whose Path or Key equals name, so CLI users
// can say either "projects" or "project".
func (r *Registry) ByPath(name string) (*Descriptor, bool) {
	if d, ok := r.Get(name); ok {
		return d, true
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, d := range r.descriptors {
		if d.Path == name {
			return d, true
		}
	}
	return nil, false
}

// ValidateAll checks cross-descriptor references: every include and every
// resource/collection field must target a registered entity.
func (r *Registry) ValidateAll() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var problems []string
	for _, key := range sortedKeys(r.descriptors) {
		d := r.descriptors[key]
		for _, name := range d.IncludeNames() {
			inc := d.Includes[name]
			if _, ok := r.descriptors[inc.Entity]; !ok {
				problems = append(problems, fmt.Sprintf("%s.%s: include targets unknown entity %q", key, name, inc.Entity))
			}
		}
	}
	if len(problems) > 0 {
		return &DescriptorError{Problems: problems}
	}
	return nil
}

func sortedKeys(m map[string]*Descriptor) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
