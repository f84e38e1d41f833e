package site

import (
	"context"
	"errors"
	"time"

	"github.com/goliatone/go-article/internal/includes"
	"github.com/goliatone/go-article/internal/markdown"
	"github.com/goliatone/go-article/internal/pipelineerr"
	"github.com/goliatone/go-article/internal/render"
	"github.com/goliatone/go-article/pkg/interfaces"
)

// Pipeline runs parse, resolve and render for one document at a time. It is
// safe for concurrent use once its registry is sealed.
type Pipeline struct {
	scanner  markdown.BodyScanner
	resolver *includes.Resolver
	renderer *render.Renderer
	options  interfaces.RenderOptions
	timeout  time.Duration
}

// PipelineConfig wires the stages of a Pipeline.
type PipelineConfig struct {
	Scanner  markdown.BodyScanner
	Resolver *includes.Resolver
	Renderer *render.Renderer
	Options  interfaces.RenderOptions
	// Timeout bounds a single document. Zero disables the budget.
	Timeout time.Duration
}

// NewPipeline constructs a Pipeline. A nil renderer falls back to the
// goldmark renderer without layouts.
func NewPipeline(cfg PipelineConfig) (*Pipeline, error) {
	if cfg.Resolver == nil {
		return nil, errors.New("site: pipeline requires a resolver")
	}
	renderer := cfg.Renderer
	if renderer == nil {
		renderer = render.NewRenderer()
	}
	return &Pipeline{
		scanner:  cfg.Scanner,
		resolver: cfg.Resolver,
		renderer: renderer,
		options:  cfg.Options,
		timeout:  cfg.Timeout,
	}, nil
}

// Scanner returns the body scanner used by RenderSource.
func (p *Pipeline) Scanner() markdown.BodyScanner {
	return p.scanner
}

// Options returns the default render options.
func (p *Pipeline) Options() interfaces.RenderOptions {
	return p.options
}

// Render resolves and renders a parsed document with the default options.
func (p *Pipeline) Render(ctx context.Context, doc *interfaces.Document) (*interfaces.Output, error) {
	return p.RenderWith(ctx, doc, p.options)
}

// RenderWith resolves and renders a parsed document under the per-document
// budget.
func (p *Pipeline) RenderWith(ctx context.Context, doc *interfaces.Document, opts interfaces.RenderOptions) (*interfaces.Output, error) {
	if doc == nil {
		return nil, errors.New("site: document is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	resolved, err := p.resolver.Resolve(ctx, doc)
	if err != nil {
		return nil, budgetError(ctx, doc.Path, err)
	}
	output, err := p.renderer.Render(ctx, resolved, opts)
	if err != nil {
		return nil, budgetError(ctx, doc.Path, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, budgetError(ctx, doc.Path, err)
	}
	return output, nil
}

// RenderSource parses source as the document at path and renders it.
func (p *Pipeline) RenderSource(ctx context.Context, path string, source []byte, modified time.Time) (*interfaces.Output, error) {
	doc, err := markdown.BuildDocument(path, source, modified, p.scanner)
	if err != nil {
		return nil, err
	}
	return p.Render(ctx, doc)
}

func budgetError(ctx context.Context, path string, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) && errors.Is(err, context.DeadlineExceeded) {
		return &pipelineerr.RenderError{Path: path, Reason: "render budget exceeded", Err: err}
	}
	return err
}
