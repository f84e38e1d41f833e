package includes

import "errors"

var (
	// ErrDuplicateDefinition indicates an attempt to register a partial name twice.
	ErrDuplicateDefinition = errors.New("includes: duplicate definition")
	// ErrInvalidDefinition occurs when a definition fails validation.
	ErrInvalidDefinition = errors.New("includes: invalid definition")
	// ErrRegistrySealed is returned for mutations after the table was sealed.
	ErrRegistrySealed = errors.New("includes: registry is sealed")
	// ErrParameterType indicates a parameter could not be coerced to the declared type.
	ErrParameterType = errors.New("includes: parameter type mismatch")
)
