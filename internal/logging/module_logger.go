package logging

import (
	"context"
	"strings"

	"github.com/goliatone/go-article/pkg/interfaces"
)

const (
	rootModule     = "article"
	markdownModule = "article.markdown"
	includesModule = "article.includes"
	renderModule   = "article.render"
	siteModule     = "article.site"
	commandsModule = "article.commands"
)

const (
	fieldDocumentPath = "document"
	fieldStage        = "stage"
)

// ModuleLogger returns a module-scoped logger, defaulting to a no-op
// implementation when no provider is supplied. The module identifier is
// attached as a structured field so entries can be filtered per stage.
func ModuleLogger(provider interfaces.LoggerProvider, module string) interfaces.Logger {
	if module == "" {
		module = rootModule
	}

	logger := NoOp()
	if provider != nil {
		if provided := provider.GetLogger(module); provided != nil {
			logger = provided
		}
	}

	return WithFields(logger, map[string]any{
		"module": module,
	})
}

// MarkdownLogger returns the logger namespace reserved for front matter and Markdown work.
func MarkdownLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, markdownModule)
}

// IncludesLogger returns the logger namespace reserved for inclusion resolution.
func IncludesLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, includesModule)
}

// RenderLogger returns the logger namespace reserved for final rendering.
func RenderLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, renderModule)
}

// SiteLogger returns the logger namespace reserved for site builds.
func SiteLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, siteModule)
}

// CommandsLogger returns the logger namespace reserved for command handlers.
func CommandsLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, commandsModule)
}

// WithDocumentContext enriches the logger with the document path and pipeline
// stage. Empty values are ignored.
func WithDocumentContext(logger interfaces.Logger, path, stage string) interfaces.Logger {
	fields := map[string]any{}
	if trimmed := strings.TrimSpace(path); trimmed != "" {
		fields[fieldDocumentPath] = trimmed
	}
	if trimmed := strings.TrimSpace(stage); trimmed != "" {
		fields[fieldStage] = trimmed
	}
	return WithFields(logger, fields)
}

// NoOp returns a logger that drops every log entry.
func NoOp() interfaces.Logger {
	return noopLogger{}
}

type noopLogger struct{}

var _ interfaces.Logger = noopLogger{}

func (noopLogger) Trace(string, ...any) {}
func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
func (noopLogger) Fatal(string, ...any) {}

func (n noopLogger) WithFields(map[string]any) interfaces.Logger {
	return n
}

func (n noopLogger) WithContext(context.Context) interfaces.Logger {
	return n
}
