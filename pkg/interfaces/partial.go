package interfaces

import (
	"context"
	"time"
)

// PartialRegistry describes the lifecycle contract for registering and resolving
// partial templates. Implementations must be safe for concurrent use. Once
// sealed, the table is read-only for the rest of the process.
type PartialRegistry interface {
	// Register stores a definition and returns an error when a partial with
	// the same name already exists, the definition fails validation, or the
	// registry has been sealed.
	Register(definition PartialDefinition) error

	// Get returns the definition for the supplied partial name.
	Get(name string) (PartialDefinition, bool)

	// List exposes the current catalogue in name order.
	List() []PartialDefinition

	// Remove deletes the partial. Removing an unknown partial is a no-op.
	Remove(name string) error

	// Seal freezes the table before a render pass begins.
	Seal()
}

// PartialDefinition captures a reusable template fragment and the parameters
// it accepts.
type PartialDefinition struct {
	Name        string
	Description string
	// Source records where the definition came from (builtin or a file path).
	Source   string
	Params   []PartialParam
	Schema   map[string]any
	Template string
	Handler  PartialHandler
}

// PartialParam describes a single parameter, including optional custom validation.
type PartialParam struct {
	Name     string
	Type     PartialParamType
	Required bool
	Default  any
	Validate PartialValidator
}

// PartialParamType enumerates the supported parameter coercions.
type PartialParamType string

const (
	PartialParamString PartialParamType = "string"
	PartialParamInt    PartialParamType = "int"
	PartialParamBool   PartialParamType = "bool"
	PartialParamURL    PartialParamType = "url"
)

// PartialValidator allows definitions to perform custom validation.
type PartialValidator func(value any) error

// PartialHandler renders a partial from resolved parameters when the
// definition is code rather than a template.
type PartialHandler func(ctx PartialContext, params map[string]any) (string, error)

// PartialContext carries runtime metadata surfaced while expanding a partial.
type PartialContext struct {
	Context     context.Context
	Document    *Document
	Partial     string
	Highlighter Highlighter
}

// Highlighter turns a code payload into highlighted markup.
type Highlighter interface {
	Highlight(code string, lang string, opts HighlightOptions) (string, error)
}

// HighlightOptions tunes a single highlight call.
type HighlightOptions struct {
	LineNumbers bool
}

// PartialSanitizer is applied to template partial output before splicing.
type PartialSanitizer interface {
	Sanitize(html string) (string, error)
}

// IncludeMetrics records resolver telemetry.
type IncludeMetrics interface {
	ObserveResolveDuration(partial string, duration time.Duration)
	IncrementResolveError(partial string)
}
