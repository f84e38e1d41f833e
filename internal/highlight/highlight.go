// Package highlight renders code payloads as highlighted HTML with chroma.
package highlight

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"

	"github.com/goliatone/go-article/pkg/interfaces"
)

// Config tunes the highlighter.
type Config struct {
	// Style names a chroma style; unknown names fall back to the chroma default.
	Style string
	// Classes emits CSS classes instead of inline styles.
	Classes bool
	// LineNumbers forces line numbers for every call.
	LineNumbers bool
	TabWidth    int
}

// Highlighter implements interfaces.Highlighter. Lexers are looked up per call
// and the style is fixed at construction, so one instance serves every worker.
type Highlighter struct {
	style       *chroma.Style
	classes     bool
	lineNumbers bool
	tabWidth    int
}

var _ interfaces.Highlighter = (*Highlighter)(nil)

// New constructs a Highlighter.
func New(cfg Config) *Highlighter {
	style := styles.Get(strings.TrimSpace(cfg.Style))
	if style == nil {
		style = styles.Fallback
	}
	tabWidth := cfg.TabWidth
	if tabWidth <= 0 {
		tabWidth = 4
	}
	return &Highlighter{
		style:       style,
		classes:     cfg.Classes,
		lineNumbers: cfg.LineNumbers,
		tabWidth:    tabWidth,
	}
}

// Highlight tokenises code with the lexer registered for lang and formats it
// as a <pre> block. Unknown languages are analysed from the code itself and
// finally fall back to plain text.
func (h *Highlighter) Highlight(code string, lang string, opts interfaces.HighlightOptions) (string, error) {
	lexer := lexerFor(lang, code)

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return "", fmt.Errorf("highlight %s: %w", lang, err)
	}

	var buf bytes.Buffer
	if err := h.formatter(opts).Format(&buf, h.style, iterator); err != nil {
		return "", fmt.Errorf("highlight %s: %w", lang, err)
	}
	return buf.String(), nil
}

// WriteCSS writes the stylesheet for class-based output.
func (h *Highlighter) WriteCSS(w io.Writer) error {
	return h.formatter(interfaces.HighlightOptions{}).WriteCSS(w, h.style)
}

// UsesClasses reports whether output depends on the stylesheet from WriteCSS.
func (h *Highlighter) UsesClasses() bool {
	return h.classes
}

func (h *Highlighter) formatter(opts interfaces.HighlightOptions) *chromahtml.Formatter {
	return chromahtml.New(
		chromahtml.WithClasses(h.classes),
		chromahtml.WithLineNumbers(h.lineNumbers || opts.LineNumbers),
		chromahtml.TabWidth(h.tabWidth),
	)
}

func lexerFor(lang, code string) chroma.Lexer {
	lang = strings.ToLower(strings.TrimSpace(lang))
	var lexer chroma.Lexer
	if lang != "" && lang != "text" && lang != "plaintext" {
		lexer = lexers.Get(lang)
	}
	if lexer == nil && lang == "" {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	return chroma.Coalesce(lexer)
}
