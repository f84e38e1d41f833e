package includes

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-article/internal/placeholder"
	"github.com/goliatone/go-article/internal/validation"
	"github.com/goliatone/go-article/pkg/interfaces"
)

// Registry is the thread-safe in-memory implementation of
// interfaces.PartialRegistry. Definitions are compiled on registration so the
// resolver never parses templates or schemas during a render.
type Registry struct {
	mu        sync.RWMutex
	entries   map[string]*entry
	validator *Validator
	sealed    bool
}

// entry is a compiled definition.
type entry struct {
	def      interfaces.PartialDefinition
	template *placeholder.Template
	schema   *validation.Compiled
	params   map[string]interfaces.PartialParam
	order    []string
	required []string
}

// NewRegistry constructs a registry using the supplied validator. A nil
// validator falls back to NewValidator().
func NewRegistry(validator *Validator) *Registry {
	if validator == nil {
		validator = NewValidator()
	}
	return &Registry{
		entries:   make(map[string]*entry),
		validator: validator,
	}
}

// Register stores a definition if it compiles, the name is free, and the
// registry has not been sealed.
func (r *Registry) Register(def interfaces.PartialDefinition) error {
	name := normaliseName(def.Name)
	if name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidDefinition)
	}

	compiled, err := r.validator.compile(def)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return fmt.Errorf("%w: cannot register %q", ErrRegistrySealed, def.Name)
	}
	if _, exists := r.entries[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateDefinition, def.Name)
	}

	r.entries[name] = compiled
	return nil
}

// Get returns the stored definition.
func (r *Registry) Get(name string) (interfaces.PartialDefinition, bool) {
	e, ok := r.lookup(name)
	if !ok {
		return interfaces.PartialDefinition{}, false
	}
	return e.def, true
}

// List returns all registered definitions in name order.
func (r *Registry) List() []interfaces.PartialDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]interfaces.PartialDefinition, 0, len(r.entries))
	for _, e := range r.entries {
		result = append(result, e.def)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result
}

// Remove deletes the definition if it exists.
func (r *Registry) Remove(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed {
		return fmt.Errorf("%w: cannot remove %q", ErrRegistrySealed, name)
	}
	delete(r.entries, normaliseName(name))
	return nil
}

// Seal freezes the table. It is idempotent.
func (r *Registry) Seal() {
	r.mu.Lock()
	r.sealed = true
	r.mu.Unlock()
}

// Sealed reports whether Seal has been called.
func (r *Registry) Sealed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sealed
}

func (r *Registry) lookup(name string) (*entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[normaliseName(name)]
	return e, ok
}

func normaliseName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Ensure Registry implements interfaces.PartialRegistry.
var _ interfaces.PartialRegistry = (*Registry)(nil)
