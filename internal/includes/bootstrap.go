package includes

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-article/pkg/interfaces"
)

// RegisterBuiltIns registers the built-in partial definitions on the provided registry.
// When names is empty, every built-in partial is registered.
func RegisterBuiltIns(registry interfaces.PartialRegistry, names []string) error {
	if registry == nil {
		return fmt.Errorf("includes: registry is required")
	}

	available := make(map[string]interfaces.PartialDefinition)
	for _, def := range BuiltInDefinitions() {
		available[normaliseName(def.Name)] = def
	}

	if len(names) == 0 {
		for _, def := range BuiltInDefinitions() {
			if err := registry.Register(def); err != nil {
				return err
			}
		}
		return nil
	}

	for _, name := range names {
		key := normaliseName(name)
		if key == "" {
			continue
		}
		def, ok := available[key]
		if !ok {
			return fmt.Errorf("includes: built-in %q not found", name)
		}
		if err := registry.Register(def); err != nil {
			return err
		}
	}
	return nil
}

// RegisterFiles registers file partials, replacing any built-in of the same
// name. Two files mapping to the same name are a duplicate definition.
func RegisterFiles(registry interfaces.PartialRegistry, defs []interfaces.PartialDefinition) error {
	if registry == nil {
		return fmt.Errorf("includes: registry is required")
	}
	for _, def := range defs {
		if existing, ok := registry.Get(def.Name); ok && existing.Source == SourceBuiltIn {
			if err := registry.Remove(def.Name); err != nil {
				return err
			}
		}
		if err := registry.Register(def); err != nil {
			return fmt.Errorf("includes: register %s: %w", strings.TrimSpace(def.Source), err)
		}
	}
	return nil
}
