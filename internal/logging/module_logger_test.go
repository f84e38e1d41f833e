package logging

import (
	"context"
	"maps"
	"testing"

	"github.com/goliatone/go-article/pkg/interfaces"
)

type recordingLogger struct {
	fields   []map[string]any
	contexts []context.Context
}

func (r *recordingLogger) Trace(string, ...any) {}
func (r *recordingLogger) Debug(string, ...any) {}
func (r *recordingLogger) Info(string, ...any)  {}
func (r *recordingLogger) Warn(string, ...any)  {}
func (r *recordingLogger) Error(string, ...any) {}
func (r *recordingLogger) Fatal(string, ...any) {}

func (r *recordingLogger) WithFields(fields map[string]any) interfaces.Logger {
	r.fields = append(r.fields, maps.Clone(fields))
	return r
}

func (r *recordingLogger) WithContext(ctx context.Context) interfaces.Logger {
	r.contexts = append(r.contexts, ctx)
	return r
}

type stubProvider struct {
	requested []string
	logger    interfaces.Logger
}

func (s *stubProvider) GetLogger(name string) interfaces.Logger {
	s.requested = append(s.requested, name)
	return s.logger
}

func TestModuleLoggerFallsBackToNoOp(t *testing.T) {
	logger := ModuleLogger(nil, "article.test")
	if _, ok := logger.(noopLogger); !ok {
		t.Fatalf("expected noopLogger fallback, got %T", logger)
	}
	logger = logger.WithContext(context.Background())
	logger.Debug("noop")
}

func TestModuleLoggerUsesProviderAndAnnotatesFields(t *testing.T) {
	rec := &recordingLogger{}
	provider := &stubProvider{logger: rec}

	_ = IncludesLogger(provider)

	if len(provider.requested) != 1 || provider.requested[0] != includesModule {
		t.Fatalf("expected module %s, got %v", includesModule, provider.requested)
	}
	if len(rec.fields) != 1 || rec.fields[0]["module"] != includesModule {
		t.Fatalf("expected module field %s, got %v", includesModule, rec.fields)
	}
}

func TestModuleLoggerDefaultsToRootModule(t *testing.T) {
	rec := &recordingLogger{}
	provider := &stubProvider{logger: rec}

	_ = ModuleLogger(provider, "")

	if provider.requested[0] != rootModule {
		t.Fatalf("expected default module %s, got %v", rootModule, provider.requested)
	}
}

func TestWithDocumentContextSkipsEmptyValues(t *testing.T) {
	rec := &recordingLogger{}

	WithDocumentContext(rec, " post.md ", "")

	if len(rec.fields) != 1 {
		t.Fatalf("expected a single WithFields call, got %d", len(rec.fields))
	}
	if rec.fields[0][fieldDocumentPath] != "post.md" {
		t.Fatalf("expected trimmed document path, got %v", rec.fields[0])
	}
	if _, ok := rec.fields[0][fieldStage]; ok {
		t.Fatalf("expected empty stage to be skipped")
	}
}

func TestContextFieldsMerge(t *testing.T) {
	ctx := ContextWithFields(context.Background(), map[string]any{"a": 1})
	ctx = ContextWithFields(ctx, map[string]any{"b": 2})

	fields := ContextFields(ctx)
	if fields["a"] != 1 || fields["b"] != 2 {
		t.Fatalf("expected merged fields, got %v", fields)
	}
}
