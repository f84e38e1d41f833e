// Package placeholder implements the small Liquid-style substitution language
// used by file partials and layouts: `{{ scope.key | filter: "arg" }}`.
// There is no control flow and output is never re-scanned.
package placeholder

import (
	"errors"
	"fmt"
	"html"
	"regexp"
	"strings"
)

const (
	ScopeInclude = "include"
	ScopePage    = "page"
	ScopeSite    = "site"
	// ScopeNone is used for bare names such as `content`.
	ScopeNone = ""
)

const (
	FilterDefault  = "default"
	FilterEscape   = "escape"
	FilterStrip    = "strip"
	FilterUpcase   = "upcase"
	FilterDowncase = "downcase"
)

// ErrInvalidTemplate matches malformed placeholders and unknown filters.
var ErrInvalidTemplate = errors.New("placeholder: invalid template")

var expressionPattern = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_.\-]*)\s*((?:\|[^}]*)?)\}\}`)

// Filter is one step of a placeholder's filter chain.
type Filter struct {
	Name   string
	Arg    string
	HasArg bool
}

// Placeholder is a single `{{ ... }}` expression.
type Placeholder struct {
	Raw     string
	Scope   string
	Key     string
	Filters []Filter
}

// HasDefault reports whether the chain supplies a default value.
func (p Placeholder) HasDefault() bool {
	for _, filter := range p.Filters {
		if filter.Name == FilterDefault {
			return true
		}
	}
	return false
}

// Lookup resolves a placeholder value. Returning known=false leaves the
// placeholder text in the output untouched.
type Lookup func(scope, key string) (value string, known bool)

type node struct {
	text        string
	placeholder *Placeholder
}

// Template is a parsed placeholder template. It is immutable and safe for
// concurrent Execute calls.
type Template struct {
	name  string
	nodes []node
}

// Parse compiles src. Unknown filters are rejected so typos surface when the
// partial or layout is loaded rather than during a render.
func Parse(name, src string) (*Template, error) {
	tmpl := &Template{name: name}
	matches := expressionPattern.FindAllStringSubmatchIndex(src, -1)

	last := 0
	for _, m := range matches {
		if m[0] > last {
			tmpl.nodes = append(tmpl.nodes, node{text: src[last:m[0]]})
		}
		ph, err := parsePlaceholder(src[m[0]:m[1]], src[m[2]:m[3]], src[m[4]:m[5]])
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidTemplate, name, err)
		}
		tmpl.nodes = append(tmpl.nodes, node{placeholder: ph})
		last = m[1]
	}
	if last < len(src) {
		tmpl.nodes = append(tmpl.nodes, node{text: src[last:]})
	}
	return tmpl, nil
}

// Name returns the template name given to Parse.
func (t *Template) Name() string {
	if t == nil {
		return ""
	}
	return t.name
}

// Placeholders lists the expressions in source order.
func (t *Template) Placeholders() []Placeholder {
	if t == nil {
		return nil
	}
	out := make([]Placeholder, 0, len(t.nodes))
	for _, n := range t.nodes {
		if n.placeholder != nil {
			out = append(out, *n.placeholder)
		}
	}
	return out
}

// Keys returns the distinct keys referenced in scope, in first-use order.
// When withoutDefault is set, keys whose every use carries a default filter
// are omitted.
func (t *Template) Keys(scope string, withoutDefault bool) []string {
	seen := map[string]bool{}
	var keys []string
	for _, ph := range t.Placeholders() {
		if ph.Scope != scope {
			continue
		}
		if withoutDefault && ph.HasDefault() {
			continue
		}
		if !seen[ph.Key] {
			seen[ph.Key] = true
			keys = append(keys, ph.Key)
		}
	}
	return keys
}

// Execute renders the template in a single pass.
func (t *Template) Execute(lookup Lookup) string {
	if t == nil {
		return ""
	}
	var builder strings.Builder
	for _, n := range t.nodes {
		if n.placeholder == nil {
			builder.WriteString(n.text)
			continue
		}
		ph := n.placeholder
		value, known := "", false
		if lookup != nil {
			value, known = lookup(ph.Scope, ph.Key)
		}
		if !known {
			builder.WriteString(ph.Raw)
			continue
		}
		builder.WriteString(applyFilters(value, ph.Filters))
	}
	return builder.String()
}

func applyFilters(value string, filters []Filter) string {
	for _, filter := range filters {
		switch filter.Name {
		case FilterDefault:
			if value == "" {
				value = filter.Arg
			}
		case FilterEscape:
			value = html.EscapeString(value)
		case FilterStrip:
			value = strings.TrimSpace(value)
		case FilterUpcase:
			value = strings.ToUpper(value)
		case FilterDowncase:
			value = strings.ToLower(value)
		}
	}
	return value
}

func parsePlaceholder(raw, path, chain string) (*Placeholder, error) {
	ph := &Placeholder{Raw: raw}
	if scope, key, ok := strings.Cut(path, "."); ok {
		if key == "" {
			return nil, fmt.Errorf("empty key in %q", raw)
		}
		ph.Scope, ph.Key = scope, key
	} else {
		ph.Scope, ph.Key = ScopeNone, path
	}

	filters, err := parseFilters(chain)
	if err != nil {
		return nil, fmt.Errorf("%q: %w", raw, err)
	}
	ph.Filters = filters
	return ph, nil
}

func parseFilters(chain string) ([]Filter, error) {
	chain = strings.TrimSpace(chain)
	if chain == "" {
		return nil, nil
	}

	var filters []Filter
	for _, part := range splitChain(chain) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, arg, hasArg := strings.Cut(part, ":")
		filter := Filter{Name: strings.TrimSpace(name), HasArg: hasArg}
		if hasArg {
			value, err := unquote(strings.TrimSpace(arg))
			if err != nil {
				return nil, err
			}
			filter.Arg = value
		}

		switch filter.Name {
		case FilterDefault:
			if !filter.HasArg {
				return nil, fmt.Errorf("filter %q requires an argument", filter.Name)
			}
		case FilterEscape, FilterStrip, FilterUpcase, FilterDowncase:
		default:
			return nil, fmt.Errorf("unknown filter %q", filter.Name)
		}
		filters = append(filters, filter)
	}
	return filters, nil
}

// splitChain splits on pipes that are not inside quotes.
func splitChain(chain string) []string {
	var (
		parts []string
		quote byte
		start int
	)
	for i := 0; i < len(chain); i++ {
		c := chain[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '|':
			parts = append(parts, chain[start:i])
			start = i + 1
		}
	}
	return append(parts, chain[start:])
}

func unquote(value string) (string, error) {
	if len(value) >= 2 {
		first, last := value[0], value[len(value)-1]
		if (first == '"' || first == '\'') && first == last {
			return value[1 : len(value)-1], nil
		}
	}
	if strings.ContainsAny(value, `"'`) {
		return "", fmt.Errorf("unterminated quote in %q", value)
	}
	return value, nil
}
