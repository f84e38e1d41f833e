// Package article renders Markdown content with Liquid-style inclusion
// markers and capture blocks into HTML or resolved Markdown, one document at
// a time or as a whole site.
package article

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/goliatone/go-article/internal/di"
	"github.com/goliatone/go-article/internal/markdown"
	"github.com/goliatone/go-article/internal/site"
	"github.com/goliatone/go-article/pkg/interfaces"
)

type (
	Document          = interfaces.Document
	FrontMatter       = interfaces.FrontMatter
	Output            = interfaces.Output
	OutputFormat      = interfaces.OutputFormat
	RenderOptions     = interfaces.RenderOptions
	PartialDefinition = interfaces.PartialDefinition
	PartialParam      = interfaces.PartialParam
	BuildRecord       = interfaces.BuildRecord
	BuildIndex        = interfaces.BuildIndex
	BuildOptions      = site.BuildOptions
	BuildResult       = site.BuildResult
	RenderedDocument  = site.RenderedDocument
	Diagnostic        = site.Diagnostic
)

const (
	OutputHTML     = interfaces.OutputHTML
	OutputMarkdown = interfaces.OutputMarkdown
)

// Option customises module wiring.
type Option = di.Option

var (
	WithFS             = di.WithFS
	WithLoggerProvider = di.WithLoggerProvider
	WithMarkdownParser = di.WithMarkdownParser
	WithHighlighter    = di.WithHighlighter
	WithSanitizer      = di.WithSanitizer
	WithIncludeMetrics = di.WithIncludeMetrics
	WithPartials       = di.WithPartials
	WithBunDB          = di.WithBunDB
	WithBuildIndex     = di.WithBuildIndex
	WithArtifactWriter = di.WithArtifactWriter
)

// ParseFrontMatter splits the leading front matter block from source.
func ParseFrontMatter(source []byte) (FrontMatter, []byte, error) {
	return markdown.ParseFrontMatter(source)
}

// SerializeFrontMatter writes fm back as a YAML block with --- delimiters.
func SerializeFrontMatter(fm FrontMatter) ([]byte, error) {
	return markdown.SerializeFrontMatter(fm)
}

// Module is the top level article runtime façade.
type Module struct {
	container *di.Container
}

// New constructs a module from cfg. Partials and layouts are loaded from the
// source tree once; the module is safe for concurrent use afterwards.
func New(cfg Config, opts ...Option) (*Module, error) {
	container, err := di.NewContainer(cfg, opts...)
	if err != nil {
		return nil, err
	}
	return &Module{container: container}, nil
}

// Container exposes the underlying DI container for advanced integrations.
func (m *Module) Container() *di.Container {
	return m.container
}

// Config returns the validated configuration.
func (m *Module) Config() Config {
	return m.container.Config
}

// Partials lists the registered partial definitions.
func (m *Module) Partials() []PartialDefinition {
	return m.container.Registry().List()
}

// Layouts lists the loaded layout names.
func (m *Module) Layouts() []string {
	return m.container.Layouts().Names()
}

// ParseDocument parses source into a document without resolving it.
func (m *Module) ParseDocument(path string, source []byte) (*Document, error) {
	return markdown.BuildDocument(path, source, time.Time{}, m.container.Pipeline().Scanner())
}

// RenderSource parses, resolves and renders source as the document at path.
func (m *Module) RenderSource(ctx context.Context, path string, source []byte) (*Output, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("article: document path is required")
	}
	return m.container.Pipeline().RenderSource(ctx, path, source, time.Time{})
}

// RenderFile reads path from the source tree and renders it.
func (m *Module) RenderFile(ctx context.Context, path string) (*Output, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	loaded, err := m.container.Loader().LoadFile(ctx, path)
	if err != nil {
		return nil, err
	}
	return m.container.Pipeline().Render(ctx, loaded.Document)
}

// RenderDocument resolves and renders an already parsed document with opts.
func (m *Module) RenderDocument(ctx context.Context, doc *Document, opts RenderOptions) (*Output, error) {
	return m.container.Pipeline().RenderWith(ctx, doc, opts)
}

// BuildSite renders the source tree into the destination. A failing document
// never stops its siblings; the error joins every failure and the result is
// returned alongside it.
func (m *Module) BuildSite(ctx context.Context, opts BuildOptions) (*BuildResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if m.container.Config.Build.DryRun {
		opts.DryRun = true
	}
	service, closeIndex, err := m.container.SiteService(ctx)
	if err != nil {
		return nil, err
	}
	result, buildErr := service.Build(ctx, opts)
	if err := closeIndex(); err != nil && buildErr == nil {
		buildErr = err
	}
	return result, buildErr
}
