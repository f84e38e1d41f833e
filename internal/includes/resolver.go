package includes

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/goliatone/go-article/internal/logging"
	"github.com/goliatone/go-article/internal/pipelineerr"
	"github.com/goliatone/go-article/internal/placeholder"
	"github.com/goliatone/go-article/pkg/interfaces"
)

// Resolver expands the inclusion markers of a parsed document against a
// sealed registry. Each marker is expanded once and partial output is never
// scanned again.
type Resolver struct {
	registry    *Registry
	sanitizer   interfaces.PartialSanitizer
	highlighter interfaces.Highlighter
	site        map[string]any
	logger      interfaces.Logger
	metrics     interfaces.IncludeMetrics
}

// ResolverOption customises resolver behaviour.
type ResolverOption func(*Resolver)

// WithSanitizer filters the output of template partials before it is spliced
// into the document.
func WithSanitizer(sanitizer interfaces.PartialSanitizer) ResolverOption {
	return func(r *Resolver) {
		r.sanitizer = sanitizer
	}
}

// WithHighlighter supplies the highlighter handed to code partials.
func WithHighlighter(highlighter interfaces.Highlighter) ResolverOption {
	return func(r *Resolver) {
		r.highlighter = highlighter
	}
}

// WithSite exposes site configuration to `{{ site.KEY }}` placeholders.
func WithSite(site map[string]any) ResolverOption {
	return func(r *Resolver) {
		r.site = site
	}
}

// WithLogger attaches a logger used for structured diagnostics.
func WithLogger(logger interfaces.Logger) ResolverOption {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithMetrics wires the metrics recorder used for telemetry.
func WithMetrics(metrics interfaces.IncludeMetrics) ResolverOption {
	return func(r *Resolver) {
		if metrics != nil {
			r.metrics = metrics
		}
	}
}

// NewResolver constructs a resolver over registry.
func NewResolver(registry *Registry, opts ...ResolverOption) *Resolver {
	if registry == nil {
		registry = NewRegistry(nil)
	}
	r := &Resolver{
		registry: registry,
		logger:   logging.NoOp(),
		metrics:  NoOpMetrics(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Registry exposes the underlying partial registry.
func (r *Resolver) Registry() *Registry {
	return r.registry
}

// Resolve expands every inclusion marker in doc. The registry is sealed on
// first use. The first failing marker aborts the document.
func (r *Resolver) Resolve(ctx context.Context, doc *interfaces.Document) (*interfaces.ResolvedDocument, error) {
	if doc == nil {
		return nil, fmt.Errorf("includes: document is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	r.registry.Seal()

	logger := logging.WithDocumentContext(r.baseLogger(ctx), doc.Path, "resolve")
	state := &resolveState{doc: doc, consumed: map[string]bool{}}

	resolved := &interfaces.ResolvedDocument{
		Document: doc,
		Segments: make([]interfaces.ResolvedSegment, 0, len(doc.Segments)),
	}
	includes := 0
	for _, segment := range doc.Segments {
		switch segment.Kind {
		case interfaces.SegmentText:
			resolved.Segments = append(resolved.Segments, interfaces.ResolvedSegment{
				Segment:  segment,
				Output:   segment.Text,
				Resolved: true,
			})
		case interfaces.SegmentCapture:
			resolved.Segments = append(resolved.Segments, interfaces.ResolvedSegment{
				Segment:  segment,
				Resolved: true,
			})
		case interfaces.SegmentInclude:
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			output, err := r.expand(ctx, logger, state, segment.Include)
			if err != nil {
				return nil, pipelineerr.WithPath(err, doc.Path)
			}
			includes++
			resolved.Segments = append(resolved.Segments, interfaces.ResolvedSegment{
				Segment:  segment,
				Output:   output,
				Resolved: true,
			})
		}
	}

	for _, segment := range doc.Segments {
		if segment.Kind != interfaces.SegmentCapture || segment.Capture == nil {
			continue
		}
		if !state.consumed[segment.Capture.Name] {
			logging.WithFields(logger, map[string]any{
				"capture": segment.Capture.Name,
				"line":    segment.Capture.Line,
			}).Warn("includes.capture.unreferenced")
		}
	}

	logging.WithFields(logger, map[string]any{
		"includes": includes,
	}).Debug("includes.resolve.completed")
	return resolved, nil
}

type resolveState struct {
	doc      *interfaces.Document
	consumed map[string]bool
}

func (r *Resolver) expand(ctx context.Context, logger interfaces.Logger, state *resolveState, ref *interfaces.IncludeRef) (string, error) {
	start := time.Now()
	output, err := r.expandInclude(ctx, state, ref)
	elapsed := time.Since(start)
	r.metrics.ObserveResolveDuration(ref.Name, elapsed)

	fields := map[string]any{
		"partial":     ref.Name,
		"line":        ref.Line,
		"duration_ms": elapsed.Milliseconds(),
	}
	if err != nil {
		r.metrics.IncrementResolveError(ref.Name)
		fields["error"] = err
		logging.WithFields(logger, fields).Error("includes.resolve.failed")
		return "", err
	}
	logging.WithFields(logger, fields).Debug("includes.resolve.partial")
	return output, nil
}

func (r *Resolver) expandInclude(ctx context.Context, state *resolveState, ref *interfaces.IncludeRef) (string, error) {
	e, ok := r.registry.lookup(ref.Name)
	if !ok {
		return "", &pipelineerr.ResolutionError{Partial: ref.Name, Line: ref.Line}
	}

	supplied, err := r.bindParams(state, e, ref)
	if err != nil {
		return "", err
	}

	params, err := r.registry.validator.coerceParams(e, supplied)
	if err != nil {
		var missing *pipelineerr.MissingParameterError
		if errors.As(err, &missing) {
			missing.Line = ref.Line
			return "", missing
		}
		return "", &pipelineerr.ResolutionError{Partial: ref.Name, Line: ref.Line, Reason: err.Error()}
	}
	if err := e.schema.Validate(params); err != nil {
		return "", &pipelineerr.ResolutionError{Partial: ref.Name, Line: ref.Line, Reason: err.Error()}
	}

	if e.def.Handler != nil {
		output, err := e.def.Handler(interfaces.PartialContext{
			Context:     ctx,
			Document:    state.doc,
			Partial:     ref.Name,
			Highlighter: r.highlighter,
		}, params)
		if err != nil {
			return "", &pipelineerr.RenderError{
				Reason: fmt.Sprintf("partial %q failed", ref.Name),
				Err:    err,
			}
		}
		return output, nil
	}

	output := e.template.Execute(r.lookup(state.doc, params))
	if r.sanitizer != nil {
		sanitised, err := r.sanitizer.Sanitize(output)
		if err != nil {
			return "", &pipelineerr.ResolutionError{Partial: ref.Name, Line: ref.Line, Reason: err.Error()}
		}
		output = sanitised
	}
	return output, nil
}

// bindParams turns the marker arguments into a parameter map. Positional
// arguments fill declared parameters not supplied by name, in declaration
// order; any left over are named param1, param2, and so on.
func (r *Resolver) bindParams(state *resolveState, e *entry, ref *interfaces.IncludeRef) (map[string]any, error) {
	supplied := make(map[string]any, len(ref.Params))
	named := map[string]bool{}
	for _, param := range ref.Params {
		if !param.Positional {
			named[param.Name] = true
		}
	}

	var free []string
	for _, name := range e.order {
		if !named[name] {
			free = append(free, name)
		}
	}

	position := 0
	for _, param := range ref.Params {
		name := param.Name
		if param.Positional {
			position++
			if len(free) > 0 {
				name, free = free[0], free[1:]
			} else {
				name = "param" + strconv.Itoa(position)
			}
		}

		switch {
		case param.Capture != "":
			block, ok := state.doc.Capture(param.Capture)
			if !ok {
				return nil, &pipelineerr.ResolutionError{
					Partial: ref.Name,
					Line:    ref.Line,
					Reason:  fmt.Sprintf("capture %q is not defined", param.Capture),
				}
			}
			if state.consumed[block.Name] {
				return nil, &pipelineerr.ResolutionError{
					Partial: ref.Name,
					Line:    ref.Line,
					Reason:  fmt.Sprintf("capture %q already consumed", block.Name),
				}
			}
			state.consumed[block.Name] = true
			supplied[name] = block.Payload
			if block.Lang != "" && !named["lang"] {
				supplied["lang"] = block.Lang
			}
			if block.Caption != "" && !named["caption"] {
				supplied["caption"] = block.Caption
			}
		case param.PageKey != "":
			value, ok := state.doc.FrontMatter.Get(param.PageKey)
			if !ok {
				continue
			}
			if declared, isDeclared := e.params[name]; !isDeclared || isTextual(declared.Type) {
				supplied[name] = state.doc.FrontMatter.String(param.PageKey)
			} else {
				supplied[name] = value
			}
		default:
			supplied[name] = param.Value
		}
	}
	return supplied, nil
}

func isTextual(paramType interfaces.PartialParamType) bool {
	return paramType == "" || paramType == interfaces.PartialParamString || paramType == interfaces.PartialParamURL
}

// lookup serves template placeholders. Include keys without a value render as
// empty so default filters apply; unknown scopes are left as written.
func (r *Resolver) lookup(doc *interfaces.Document, params map[string]any) placeholder.Lookup {
	return func(scope, key string) (string, bool) {
		switch scope {
		case placeholder.ScopeInclude:
			value, ok := params[key]
			if !ok || value == nil {
				return "", true
			}
			return fmt.Sprint(value), true
		case placeholder.ScopePage:
			return doc.FrontMatter.String(key), true
		case placeholder.ScopeSite:
			value, ok := r.site[key]
			if !ok || value == nil {
				return "", true
			}
			return fmt.Sprint(value), true
		default:
			return "", false
		}
	}
}

func (r *Resolver) baseLogger(ctx context.Context) interfaces.Logger {
	logger := r.logger
	if logger == nil {
		logger = logging.NoOp()
	}
	if ctx != nil {
		logger = logger.WithContext(ctx)
	}
	return logger
}
