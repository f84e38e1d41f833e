package logging

import (
	"context"
	"maps"
)

type fieldsKey struct{}

// ContextWithFields annotates ctx with fields that context-aware loggers merge
// into every entry. Fields already on ctx are kept unless overridden.
func ContextWithFields(ctx context.Context, fields map[string]any) context.Context {
	if ctx == nil || len(fields) == 0 {
		return ctx
	}
	merged := ContextFields(ctx)
	if merged == nil {
		merged = make(map[string]any, len(fields))
	}
	maps.Copy(merged, fields)
	return context.WithValue(ctx, fieldsKey{}, merged)
}

// ContextWithBuild tags ctx with the id of the site build it belongs to.
func ContextWithBuild(ctx context.Context, buildID string) context.Context {
	if buildID == "" {
		return ctx
	}
	return ContextWithFields(ctx, map[string]any{"build_id": buildID})
}

// ContextFields returns a copy of the fields attached to ctx, or nil.
func ContextFields(ctx context.Context) map[string]any {
	if ctx == nil {
		return nil
	}
	fields, ok := ctx.Value(fieldsKey{}).(map[string]any)
	if !ok || len(fields) == 0 {
		return nil
	}
	return maps.Clone(fields)
}
