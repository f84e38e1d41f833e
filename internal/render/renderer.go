package render

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/goliatone/go-article/internal/logging"
	"github.com/goliatone/go-article/internal/markdown"
	"github.com/goliatone/go-article/internal/pipelineerr"
	"github.com/goliatone/go-article/internal/placeholder"
	"github.com/goliatone/go-article/pkg/interfaces"
)

// MaxLayoutDepth bounds layout chains so cycles fail instead of looping.
const MaxLayoutDepth = 8

const (
	scopeLayout = "layout"
	keyContent  = "content"
)

// Renderer composes resolved documents into their final output.
type Renderer struct {
	parser  interfaces.MarkdownParser
	layouts *Layouts
	site    map[string]any
	logger  interfaces.Logger
}

// Option customises renderer behaviour.
type Option func(*Renderer)

// WithMarkdownParser overrides the Markdown to HTML converter.
func WithMarkdownParser(parser interfaces.MarkdownParser) Option {
	return func(r *Renderer) {
		if parser != nil {
			r.parser = parser
		}
	}
}

// WithLayouts supplies the layout table.
func WithLayouts(layouts *Layouts) Option {
	return func(r *Renderer) {
		if layouts != nil {
			r.layouts = layouts
		}
	}
}

// WithSite exposes site configuration to `{{ site.KEY }}` placeholders.
func WithSite(site map[string]any) Option {
	return func(r *Renderer) {
		r.site = site
	}
}

// WithLogger attaches a logger used for structured diagnostics.
func WithLogger(logger interfaces.Logger) Option {
	return func(r *Renderer) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRenderer constructs a renderer. Without options it converts Markdown
// with the gfm extension set and applies no layouts.
func NewRenderer(opts ...Option) *Renderer {
	r := &Renderer{
		parser:  markdown.NewGoldmarkParser(interfaces.ParseOptions{Extensions: []string{"gfm"}}),
		layouts: NewLayouts(),
		logger:  logging.NoOp(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Layouts exposes the layout table.
func (r *Renderer) Layouts() *Layouts {
	return r.layouts
}

// Render produces the final text of a resolved document. Any include segment
// left unresolved is a render error.
func (r *Renderer) Render(ctx context.Context, resolved *interfaces.ResolvedDocument, opts interfaces.RenderOptions) (*interfaces.Output, error) {
	if resolved == nil || resolved.Document == nil {
		return nil, fmt.Errorf("render: resolved document is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	doc := resolved.Document
	logger := logging.WithDocumentContext(r.baseLogger(ctx), doc.Path, "render")
	start := time.Now()

	output, err := r.render(ctx, resolved, opts)
	fields := map[string]any{
		"format":      string(opts.Format),
		"duration_ms": time.Since(start).Milliseconds(),
	}
	if err != nil {
		err = pipelineerr.WithPath(err, doc.Path)
		fields["error"] = err
		logging.WithFields(logger, fields).Error("render.document.failed")
		return nil, err
	}
	fields["format"] = string(output.Format)
	fields["layouts"] = output.Layouts
	logging.WithFields(logger, fields).Debug("render.document.completed")
	return output, nil
}

func (r *Renderer) render(ctx context.Context, resolved *interfaces.ResolvedDocument, opts interfaces.RenderOptions) (*interfaces.Output, error) {
	doc := resolved.Document
	if unresolved := resolved.Unresolved(); len(unresolved) > 0 {
		ref := unresolved[0]
		return nil, &pipelineerr.RenderError{
			Reason: fmt.Sprintf("include %q at line %d was never resolved", ref.Name, ref.Line),
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	format := opts.Format
	if format == "" {
		format = interfaces.OutputHTML
	}
	output := &interfaces.Output{Path: doc.Path, Format: format}

	switch format {
	case interfaces.OutputMarkdown:
		body := resolved.Body()
		if opts.IncludeFrontMatter {
			block, err := markdown.SerializeFrontMatter(doc.FrontMatter)
			if err != nil {
				return nil, &pipelineerr.RenderError{Reason: "front matter could not be serialised", Err: err}
			}
			body = string(block) + body
		}
		output.Content = body
		return output, nil

	case interfaces.OutputHTML:
		content := resolved.Body()
		if IsMarkdownPath(doc.Path) {
			html, err := r.parser.Parse([]byte(content))
			if err != nil {
				return nil, &pipelineerr.RenderError{Reason: "markdown conversion failed", Err: err}
			}
			content = string(html)
		}
		if !opts.SkipLayouts {
			wrapped, applied, err := r.applyLayouts(doc, content)
			if err != nil {
				return nil, err
			}
			content = wrapped
			output.Layouts = applied
		}
		output.Content = content
		return output, nil

	default:
		return nil, &pipelineerr.RenderError{Reason: fmt.Sprintf("unsupported output format %q", format)}
	}
}

// applyLayouts wraps content in the layout named by the document and then in
// each parent layout in turn.
func (r *Renderer) applyLayouts(doc *interfaces.Document, content string) (string, []string, error) {
	var applied []string
	name := layoutName(doc.FrontMatter)
	for name != "" {
		if len(applied) >= MaxLayoutDepth {
			return "", nil, &pipelineerr.RenderError{
				Reason: fmt.Sprintf("layout chain %s exceeds depth %d", strings.Join(applied, " > "), MaxLayoutDepth),
			}
		}
		layout, ok := r.layouts.Get(name)
		if !ok {
			return "", nil, &pipelineerr.RenderError{Reason: fmt.Sprintf("unknown layout %q", name)}
		}
		content = layout.template.Execute(r.lookup(doc, layout, content))
		applied = append(applied, layout.Name)
		name = layout.Parent()
	}
	return content, applied, nil
}

func (r *Renderer) lookup(doc *interfaces.Document, layout *Layout, content string) placeholder.Lookup {
	return func(scope, key string) (string, bool) {
		switch scope {
		case placeholder.ScopeNone:
			if key == keyContent {
				return content, true
			}
			return "", false
		case placeholder.ScopePage:
			if _, ok := doc.FrontMatter.Get(key); ok {
				return doc.FrontMatter.String(key), true
			}
			if key == "path" {
				return doc.Path, true
			}
			return "", true
		case scopeLayout:
			return layout.FrontMatter.String(key), true
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

func (r *Renderer) baseLogger(ctx context.Context) interfaces.Logger {
	logger := r.logger
	if logger == nil {
		logger = logging.NoOp()
	}
	if ctx != nil {
		logger = logger.WithContext(ctx)
	}
	return logger
}

// IsMarkdownPath reports whether a document body is Markdown. Only .html and
// .htm sources are taken as ready-made HTML.
func IsMarkdownPath(p string) bool {
	switch strings.ToLower(path.Ext(p)) {
	case ".html", ".htm":
		return false
	default:
		return true
	}
}
