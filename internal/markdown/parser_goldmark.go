package markdown

import (
	"bytes"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/goliatone/go-article/pkg/interfaces"
)

// articleExtensions is the set used when no extensions are configured.
var articleExtensions = []string{"gfm", "footnote", "definition"}

var extensionRegistry = map[string]goldmark.Extender{
	"gfm":           extension.GFM,
	"table":         extension.Table,
	"tables":        extension.Table,
	"strikethrough": extension.Strikethrough,
	"linkify":       extension.Linkify,
	"autolink":      extension.Linkify,
	"tasklist":      extension.TaskList,
	"definition":    extension.DefinitionList,
	"footnote":      extension.Footnote,
	"typographer":   extension.Typographer,
}

// GoldmarkParser converts resolved article bodies to HTML. Engines are built
// once per distinct option set and shared by every render worker.
type GoldmarkParser struct {
	defaults interfaces.ParseOptions
	engines  sync.Map // engineKey -> goldmark.Markdown
}

// NewGoldmarkParser constructs a parser. Resolved partial output is raw HTML,
// so it passes through unless SafeMode is set.
func NewGoldmarkParser(defaults interfaces.ParseOptions) *GoldmarkParser {
	return &GoldmarkParser{defaults: defaults}
}

func (p *GoldmarkParser) Parse(markdown []byte) ([]byte, error) {
	return p.ParseWithOptions(markdown, p.defaults)
}

func (p *GoldmarkParser) ParseWithOptions(markdown []byte, opts interfaces.ParseOptions) ([]byte, error) {
	var buf bytes.Buffer
	if err := p.engine(opts).Convert(markdown, &buf); err != nil {
		return nil, fmt.Errorf("markdown convert: %w", err)
	}
	return buf.Bytes(), nil
}

func (p *GoldmarkParser) engine(opts interfaces.ParseOptions) goldmark.Markdown {
	names := extensionNames(opts.Extensions)
	key := fmt.Sprintf("%s|%t|%t", strings.Join(names, ","), opts.HardWraps, opts.SafeMode)
	if cached, ok := p.engines.Load(key); ok {
		return cached.(goldmark.Markdown)
	}
	engine, _ := p.engines.LoadOrStore(key, newEngine(names, opts))
	return engine.(goldmark.Markdown)
}

// extensionNames normalises configured names, dropping unknown ones and
// duplicates. An empty list selects articleExtensions.
func extensionNames(configured []string) []string {
	if len(configured) == 0 {
		configured = articleExtensions
	}
	names := make([]string, 0, len(configured))
	for _, name := range configured {
		key := strings.ToLower(strings.TrimSpace(name))
		if _, known := extensionRegistry[key]; known && !slices.Contains(names, key) {
			names = append(names, key)
		}
	}
	return names
}

func newEngine(names []string, opts interfaces.ParseOptions) goldmark.Markdown {
	extenders := make([]goldmark.Extender, 0, len(names))
	for _, name := range names {
		extenders = append(extenders, extensionRegistry[name])
	}

	var rendererOptions []renderer.Option
	if opts.HardWraps {
		rendererOptions = append(rendererOptions, html.WithHardWraps())
	}
	if !opts.SafeMode {
		rendererOptions = append(rendererOptions, html.WithUnsafe())
	}

	return goldmark.New(
		goldmark.WithExtensions(extenders...),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		goldmark.WithRendererOptions(rendererOptions...),
	)
}
