package render

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/goliatone/go-article/internal/includes/parser"
	"github.com/goliatone/go-article/internal/markdown"
	"github.com/goliatone/go-article/internal/placeholder"
	"github.com/goliatone/go-article/pkg/interfaces"
)

// DefaultLayoutsDir is the directory layouts are read from.
const DefaultLayoutsDir = "_layouts"

// ErrInvalidLayout matches layout files that cannot be parsed.
var ErrInvalidLayout = errors.New("render: invalid layout")

// Layout is a wrapper template selected through the `layout` front matter
// key. A layout may name its own parent layout the same way.
type Layout struct {
	Name        string
	Source      string
	FrontMatter interfaces.FrontMatter
	template    *placeholder.Template
}

// Parent returns the layout this layout is wrapped in, or "".
func (l *Layout) Parent() string {
	if l == nil {
		return ""
	}
	return layoutName(l.FrontMatter)
}

// ParseLayout builds a layout from a file. Front matter is optional.
func ParseLayout(name, source string, content []byte) (*Layout, error) {
	fm, body, err := markdown.ParseFrontMatter(content)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidLayout, source, err)
	}
	tmpl, err := placeholder.Parse(name, string(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidLayout, source, err)
	}
	return &Layout{
		Name:        name,
		Source:      source,
		FrontMatter: fm,
		template:    tmpl,
	}, nil
}

// Layouts is an immutable layout table.
type Layouts struct {
	byName map[string]*Layout
}

// NewLayouts builds a table. Later layouts replace earlier ones of the same name.
func NewLayouts(layouts ...*Layout) *Layouts {
	table := &Layouts{byName: make(map[string]*Layout, len(layouts))}
	for _, layout := range layouts {
		if layout == nil {
			continue
		}
		table.byName[strings.ToLower(layout.Name)] = layout
	}
	return table
}

// Get returns the named layout.
func (l *Layouts) Get(name string) (*Layout, bool) {
	if l == nil {
		return nil, false
	}
	layout, ok := l.byName[strings.ToLower(parser.PartialName(name))]
	return layout, ok
}

// Names lists the layout names in lexical order.
func (l *Layouts) Names() []string {
	if l == nil {
		return nil
	}
	names := make([]string, 0, len(l.byName))
	for _, layout := range l.byName {
		names = append(names, layout.Name)
	}
	sort.Strings(names)
	return names
}

// Len reports how many layouts the table holds.
func (l *Layouts) Len() int {
	if l == nil {
		return 0
	}
	return len(l.byName)
}

// LoadLayouts reads every layout under dir. A missing directory yields an
// empty table.
func LoadLayouts(ctx context.Context, fsys fs.FS, dir string) (*Layouts, error) {
	if fsys == nil {
		return nil, fmt.Errorf("render: filesystem is required")
	}
	dir = path.Clean(strings.TrimPrefix(strings.TrimSpace(dir), "./"))
	if dir == "" || dir == "." {
		dir = DefaultLayoutsDir
	}

	var layouts []*Layout
	err := fs.WalkDir(fsys, dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		content, err := fs.ReadFile(fsys, p)
		if err != nil {
			return fmt.Errorf("render: read %s: %w", p, err)
		}
		layout, err := ParseLayout(parser.PartialName(strings.TrimPrefix(p, dir+"/")), p, content)
		if err != nil {
			return err
		}
		layouts = append(layouts, layout)
		return nil
	})
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return NewLayouts(), nil
		}
		return nil, err
	}
	return NewLayouts(layouts...), nil
}

func layoutName(fm interfaces.FrontMatter) string {
	name := strings.TrimSpace(fm.String("layout"))
	if strings.EqualFold(name, "none") || strings.EqualFold(name, "null") {
		return ""
	}
	return name
}
