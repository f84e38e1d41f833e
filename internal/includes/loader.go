package includes

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/adrg/frontmatter"

	"github.com/goliatone/go-article/internal/includes/parser"
	"github.com/goliatone/go-article/pkg/interfaces"
)

// DefaultDir is the directory file partials are read from.
const DefaultDir = "_includes"

// partialEnvelope is the optional front matter of a partial file.
type partialEnvelope struct {
	Description string          `yaml:"description" toml:"description" json:"description"`
	Params      []paramEnvelope `yaml:"params" toml:"params" json:"params"`
	Schema      map[string]any  `yaml:"schema" toml:"schema" json:"schema"`
}

type paramEnvelope struct {
	Name     string `yaml:"name" toml:"name" json:"name"`
	Type     string `yaml:"type" toml:"type" json:"type"`
	Required bool   `yaml:"required" toml:"required" json:"required"`
	Default  any    `yaml:"default" toml:"default" json:"default"`
}

// LoadDir reads every partial file under dir. A missing directory yields no
// definitions. The partial name is the path relative to dir without its
// extension, so `_includes/figures/wide.html` is addressed as `figures/wide`.
func LoadDir(ctx context.Context, fsys fs.FS, dir string) ([]interfaces.PartialDefinition, error) {
	if fsys == nil {
		return nil, fmt.Errorf("includes: filesystem is required")
	}
	dir = path.Clean(strings.TrimPrefix(strings.TrimSpace(dir), "./"))
	if dir == "" {
		dir = DefaultDir
	}

	var defs []interfaces.PartialDefinition
	err := fs.WalkDir(fsys, dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			if p != dir && strings.HasPrefix(d.Name(), ".") {
				return fs.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			return nil
		}

		source, err := fs.ReadFile(fsys, p)
		if err != nil {
			return fmt.Errorf("includes: read %s: %w", p, err)
		}
		rel := strings.TrimPrefix(p, dir+"/")
		def, err := ParseDefinition(parser.PartialName(rel), p, source)
		if err != nil {
			return err
		}
		defs = append(defs, def)
		return nil
	})
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs, nil
}

// ParseDefinition builds a template definition from a partial file. The
// optional front matter declares parameters and a JSON schema; the rest of
// the file is the template.
func ParseDefinition(name, source string, content []byte) (interfaces.PartialDefinition, error) {
	var envelope partialEnvelope
	body, err := frontmatter.Parse(bytes.NewReader(content), &envelope)
	if err != nil {
		return interfaces.PartialDefinition{}, fmt.Errorf("%w: partial %s: front matter: %v", ErrInvalidDefinition, source, err)
	}

	def := interfaces.PartialDefinition{
		Name:        name,
		Description: envelope.Description,
		Source:      source,
		Template:    strings.TrimRight(string(body), "\r\n"),
	}
	if def.Template == "" {
		return interfaces.PartialDefinition{}, fmt.Errorf("%w: partial %s has an empty template", ErrInvalidDefinition, source)
	}
	for _, param := range envelope.Params {
		def.Params = append(def.Params, interfaces.PartialParam{
			Name:     param.Name,
			Type:     interfaces.PartialParamType(strings.ToLower(strings.TrimSpace(param.Type))),
			Required: param.Required,
			Default:  normaliseValue(param.Default),
		})
	}
	if len(envelope.Schema) > 0 {
		schema, _ := normaliseValue(envelope.Schema).(map[string]any)
		def.Schema = schema
	}
	return def, nil
}

// normaliseValue converts YAML decoded maps with interface keys into
// string-keyed maps so they can be handed to the JSON schema compiler.
func normaliseValue(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(typed))
		for key, item := range typed {
			out[key] = normaliseValue(item)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(typed))
		for key, item := range typed {
			out[fmt.Sprint(key)] = normaliseValue(item)
		}
		return out
	case []any:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = normaliseValue(item)
		}
		return out
	default:
		return value
	}
}
