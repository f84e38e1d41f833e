package di

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/uptrace/bun"

	"github.com/goliatone/go-article/internal/highlight"
	"github.com/goliatone/go-article/internal/includes"
	"github.com/goliatone/go-article/internal/includes/parser"
	"github.com/goliatone/go-article/internal/logging"
	"github.com/goliatone/go-article/internal/logging/console"
	"github.com/goliatone/go-article/internal/logging/gologger"
	"github.com/goliatone/go-article/internal/markdown"
	"github.com/goliatone/go-article/internal/render"
	"github.com/goliatone/go-article/internal/runtimeconfig"
	"github.com/goliatone/go-article/internal/site"
	"github.com/goliatone/go-article/pkg/interfaces"
)

// Container wires the pipeline stages from a validated configuration. Every
// stage is built once; the partial registry is sealed before NewContainer
// returns.
type Container struct {
	Config runtimeconfig.Config

	fs             fs.FS
	loggerProvider interfaces.LoggerProvider
	markdownParser interfaces.MarkdownParser
	highlighter    interfaces.Highlighter
	sanitizer      interfaces.PartialSanitizer
	metrics        interfaces.IncludeMetrics
	partials       []interfaces.PartialDefinition
	bunDB          *bun.DB
	index          interfaces.BuildIndex
	writer         site.ArtifactWriter

	scanner  *parser.Scanner
	registry *includes.Registry
	layouts  *render.Layouts
	resolver *includes.Resolver
	renderer *render.Renderer
	pipeline *site.Pipeline
	loader   *markdown.Loader
	logger   interfaces.Logger
}

// Option mutates the container before the pipeline is wired.
type Option func(*Container)

// WithFS replaces the source tree, which defaults to os.DirFS(cfg.Source).
func WithFS(fsys fs.FS) Option {
	return func(c *Container) {
		if fsys != nil {
			c.fs = fsys
		}
	}
}

// WithLoggerProvider overrides the provider derived from cfg.Logging.
func WithLoggerProvider(provider interfaces.LoggerProvider) Option {
	return func(c *Container) {
		if provider != nil {
			c.loggerProvider = provider
		}
	}
}

// WithMarkdownParser overrides the goldmark parser.
func WithMarkdownParser(p interfaces.MarkdownParser) Option {
	return func(c *Container) {
		if p != nil {
			c.markdownParser = p
		}
	}
}

// WithHighlighter overrides the chroma highlighter handed to code partials.
func WithHighlighter(h interfaces.Highlighter) Option {
	return func(c *Container) {
		if h != nil {
			c.highlighter = h
		}
	}
}

// WithSanitizer filters template partial output even when cfg.Includes.Sanitize is off.
func WithSanitizer(s interfaces.PartialSanitizer) Option {
	return func(c *Container) {
		if s != nil {
			c.sanitizer = s
		}
	}
}

// WithIncludeMetrics records per-partial resolve timings.
func WithIncludeMetrics(m interfaces.IncludeMetrics) Option {
	return func(c *Container) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithPartials registers programmatic partials after the built-ins and the
// includes directory. A definition replaces a built-in of the same name; a
// clash with a file partial is an error.
func WithPartials(defs ...interfaces.PartialDefinition) Option {
	return func(c *Container) {
		c.partials = append(c.partials, defs...)
	}
}

// WithBunDB stores the build index in an existing database. The caller keeps
// ownership of db.
func WithBunDB(db *bun.DB) Option {
	return func(c *Container) {
		if db != nil {
			c.bunDB = db
		}
	}
}

// WithBuildIndex injects a build index directly.
func WithBuildIndex(index interfaces.BuildIndex) Option {
	return func(c *Container) {
		if index != nil {
			c.index = index
		}
	}
}

// WithArtifactWriter replaces the destination writer.
func WithArtifactWriter(w site.ArtifactWriter) Option {
	return func(c *Container) {
		if w != nil {
			c.writer = w
		}
	}
}

// NewContainer validates cfg and wires the pipeline.
func NewContainer(cfg runtimeconfig.Config, opts ...Option) (*Container, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Site == nil {
		cfg.Site = map[string]any{}
	}

	c := &Container{Config: cfg}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	if c.fs == nil {
		c.fs = os.DirFS(cfg.Source)
	}
	if c.loggerProvider == nil {
		provider, err := newLoggerProvider(cfg.Logging)
		if err != nil {
			return nil, err
		}
		c.loggerProvider = provider
	}
	c.logger = logging.ModuleLogger(c.loggerProvider, "")

	if err := c.configurePipeline(context.Background()); err != nil {
		return nil, err
	}

	logging.WithFields(c.logger, map[string]any{
		"source":      cfg.Source,
		"destination": cfg.Destination,
		"partials":    len(c.registry.List()),
		"layouts":     c.layouts.Len(),
		"highlighter": c.highlighter != nil,
		"index":       runtimeconfig.NormalizeDriver(cfg.Index.Driver),
	}).Debug("article.configured")
	return c, nil
}

func (c *Container) configurePipeline(ctx context.Context) error {
	cfg := c.Config

	c.scanner = parser.NewScanner(parser.WithBraceSyntax(cfg.Includes.BraceSyntax))

	c.registry = includes.NewRegistry(includes.NewValidator())
	if cfg.Includes.BuiltIns {
		if err := includes.RegisterBuiltIns(c.registry, nil); err != nil {
			return err
		}
	}
	files, err := includes.LoadDir(ctx, c.fs, cfg.Includes.Dir)
	if err != nil {
		return err
	}
	if err := includes.RegisterFiles(c.registry, files); err != nil {
		return err
	}
	if err := includes.RegisterFiles(c.registry, c.partials); err != nil {
		return err
	}
	c.registry.Seal()

	c.layouts, err = render.LoadLayouts(ctx, c.fs, cfg.Layouts.Dir)
	if err != nil {
		return err
	}

	if c.highlighter == nil && cfg.Highlight.Enabled {
		c.highlighter = highlight.New(highlight.Config{
			Style:       cfg.Highlight.Style,
			Classes:     cfg.Highlight.Classes,
			LineNumbers: cfg.Highlight.LineNumbers,
		})
	}
	if c.sanitizer == nil && cfg.Includes.Sanitize {
		c.sanitizer = includes.NewSanitizer()
	}
	if c.markdownParser == nil {
		c.markdownParser = markdown.NewGoldmarkParser(interfaces.ParseOptions{
			Extensions: cfg.Markdown.Extensions,
			HardWraps:  cfg.Markdown.HardWraps,
			SafeMode:   cfg.Markdown.SafeMode,
		})
	}

	resolverOpts := []includes.ResolverOption{
		includes.WithSite(cfg.Site),
		includes.WithLogger(logging.IncludesLogger(c.loggerProvider)),
	}
	if c.highlighter != nil {
		resolverOpts = append(resolverOpts, includes.WithHighlighter(c.highlighter))
	}
	if c.sanitizer != nil {
		resolverOpts = append(resolverOpts, includes.WithSanitizer(c.sanitizer))
	}
	if c.metrics != nil {
		resolverOpts = append(resolverOpts, includes.WithMetrics(c.metrics))
	}
	c.resolver = includes.NewResolver(c.registry, resolverOpts...)

	c.renderer = render.NewRenderer(
		render.WithMarkdownParser(c.markdownParser),
		render.WithLayouts(c.layouts),
		render.WithSite(cfg.Site),
		render.WithLogger(logging.RenderLogger(c.loggerProvider)),
	)

	c.pipeline, err = site.NewPipeline(site.PipelineConfig{
		Scanner:  c.scanner,
		Resolver: c.resolver,
		Renderer: c.renderer,
		Options: interfaces.RenderOptions{
			Format:             interfaces.OutputFormat(runtimeconfig.NormalizeFormat(cfg.Render.Format)),
			IncludeFrontMatter: cfg.Render.IncludeFrontMatter,
		},
		Timeout: cfg.Render.Timeout,
	})
	if err != nil {
		return err
	}

	c.loader = markdown.NewLoader(c.fs, markdown.LoaderConfig{Scanner: c.scanner})
	return nil
}

// Pipeline returns the parse, resolve and render pipeline.
func (c *Container) Pipeline() *site.Pipeline { return c.pipeline }

// Registry returns the sealed partial registry.
func (c *Container) Registry() *includes.Registry { return c.registry }

// Layouts returns the loaded layout table.
func (c *Container) Layouts() *render.Layouts { return c.layouts }

// Loader returns the content loader bound to the source tree.
func (c *Container) Loader() *markdown.Loader { return c.loader }

// LoggerProvider returns the provider every module logger derives from.
func (c *Container) LoggerProvider() interfaces.LoggerProvider { return c.loggerProvider }

// Highlighter returns the configured highlighter, or nil when disabled.
func (c *Container) Highlighter() interfaces.Highlighter { return c.highlighter }

// OpenIndex returns the build index for a site build. The close func releases
// indexes the container opened itself and is a no-op for injected ones.
func (c *Container) OpenIndex(ctx context.Context) (interfaces.BuildIndex, func() error, error) {
	noop := func() error { return nil }
	if c.index != nil {
		return c.index, noop, nil
	}
	if c.bunDB != nil {
		index := site.NewBunIndex(c.bunDB)
		if err := index.EnsureSchema(ctx); err != nil {
			return nil, noop, err
		}
		return index, noop, nil
	}
	index, err := site.OpenIndex(ctx, runtimeconfig.NormalizeDriver(c.Config.Index.Driver), c.Config.Index.DSN, c.Config.Destination)
	if err != nil {
		return nil, noop, err
	}
	return index, index.Close, nil
}

// SiteService builds a site builder with a freshly opened index. Callers must
// invoke the returned close func once the build finishes.
func (c *Container) SiteService(ctx context.Context) (*site.Service, func() error, error) {
	index, closeIndex, err := c.OpenIndex(ctx)
	if err != nil {
		return nil, nil, err
	}

	writer := c.writer
	if writer == nil {
		writer = site.NewFileWriter(c.Config.Destination)
	}
	deps := site.Dependencies{
		Loader:   c.loader,
		Pipeline: c.pipeline,
		Writer:   writer,
		Index:    index,
		Logger:   logging.SiteLogger(c.loggerProvider),
	}
	if stylesheet, ok := c.highlighter.(site.StylesheetSource); ok {
		deps.Highlighter = stylesheet
	}

	service, err := site.NewService(site.Config{
		SourceDir:   ".",
		Workers:     c.Config.Build.Workers,
		Incremental: c.Config.Build.Incremental,
		Stylesheet:  c.Config.Highlight.Stylesheet,
	}, deps)
	if err != nil {
		_ = closeIndex()
		return nil, nil, err
	}
	return service, closeIndex, nil
}

func newLoggerProvider(cfg runtimeconfig.LoggingConfig) (interfaces.LoggerProvider, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", "console":
		opts := console.Options{}
		if level, ok := console.ParseLevel(cfg.Level); ok {
			opts.MinLevel = &level
		}
		return console.NewProvider(opts), nil
	case "gologger":
		provider, err := gologger.NewProvider(gologger.Config{
			Level:     cfg.Level,
			Format:    cfg.Format,
			AddSource: cfg.AddSource,
			Focus:     cfg.Focus,
		})
		if err != nil {
			return nil, err
		}
		return provider, nil
	default:
		return nil, fmt.Errorf("%w: %s", runtimeconfig.ErrLoggingProviderUnknown, cfg.Provider)
	}
}
