package markdown

import (
	"bytes"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/frontmatter"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-article/internal/pipelineerr"
	"github.com/goliatone/go-article/pkg/interfaces"
)

const (
	yamlDelimiter = "---"
	tomlDelimiter = "+++"
)

// ParseFrontMatter splits source into its metadata block and body. Sources
// without an opening delimiter on the first line yield an empty block and the
// full text as body. An opening delimiter without a matching close, or a block
// that does not decode into a flat mapping, is a *pipelineerr.ParseError.
func ParseFrontMatter(source []byte) (interfaces.FrontMatter, []byte, error) {
	empty := interfaces.FrontMatter{Values: map[string]any{}}

	first, rest, _ := cutLine(source)
	format := delimiterFormat(first)
	if format == interfaces.FrontMatterNone {
		return empty, source, nil
	}
	delimiter := strings.TrimRight(string(first), " \t\r")

	block, body, found := splitBlock(rest, delimiter)
	if !found {
		return empty, nil, &pipelineerr.ParseError{
			Line:   1,
			Reason: fmt.Sprintf("front matter opened with %s but never closed", delimiter),
		}
	}

	if format == interfaces.FrontMatterYAML {
		if line := documentEndLine(block); line > 0 {
			return empty, nil, &pipelineerr.ParseError{
				Line:   line + 1,
				Reason: "document end marker ... inside front matter",
			}
		}
	}

	values := map[string]any{}
	if len(bytes.TrimSpace(block)) > 0 {
		if _, err := frontmatter.Parse(bytes.NewReader(enclose(block, delimiter)), &values); err != nil {
			return empty, nil, &pipelineerr.ParseError{Line: 1, Reason: "invalid front matter", Err: err}
		}
	}

	flat, err := flattenValues(values)
	if err != nil {
		return empty, nil, &pipelineerr.ParseError{Line: 1, Reason: "invalid front matter", Err: err}
	}

	return interfaces.FrontMatter{Format: format, Values: flat}, body, nil
}

// SerializeFrontMatter writes fm as a YAML block wrapped in --- delimiters.
// Keys are emitted in lexical order. An empty block serialises to nothing.
func SerializeFrontMatter(fm interfaces.FrontMatter) ([]byte, error) {
	if fm.Len() == 0 {
		return nil, nil
	}

	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, key := range fm.Keys() {
		valueNode, err := encodeValue(fm.Values[key])
		if err != nil {
			return nil, fmt.Errorf("serialize front matter value %q: %w", key, err)
		}
		keyNode := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key}
		node.Content = append(node.Content, keyNode, valueNode)
	}

	encoded, err := yaml.Marshal(node)
	if err != nil {
		return nil, fmt.Errorf("serialize front matter: %w", err)
	}

	var buf bytes.Buffer
	buf.Grow(len(encoded) + 8)
	buf.WriteString(yamlDelimiter + "\n")
	buf.Write(encoded)
	buf.WriteString(yamlDelimiter + "\n")
	return buf.Bytes(), nil
}

// encodeValue builds the YAML node for a front matter value. Whole floats keep
// their fractional part so they decode back as floats.
func encodeValue(value any) (*yaml.Node, error) {
	switch typed := value.(type) {
	case float64:
		text := strconv.FormatFloat(typed, 'f', -1, 64)
		if !strings.ContainsAny(text, ".eEnN") {
			text += ".0"
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: text}, nil
	case []any:
		seq := &yaml.Node{Kind: yaml.SequenceNode}
		for _, item := range typed {
			child, err := encodeValue(item)
			if err != nil {
				return nil, err
			}
			seq.Content = append(seq.Content, child)
		}
		return seq, nil
	}
	node := &yaml.Node{}
	if err := node.Encode(value); err != nil {
		return nil, err
	}
	return node, nil
}

func delimiterFormat(line []byte) interfaces.FrontMatterFormat {
	switch strings.TrimRight(string(line), " \t\r") {
	case yamlDelimiter:
		return interfaces.FrontMatterYAML
	case tomlDelimiter:
		return interfaces.FrontMatterTOML
	default:
		return interfaces.FrontMatterNone
	}
}

// splitBlock scans for the closing delimiter on a line of its own and returns
// the enclosed block and the body following the closing line.
func splitBlock(source []byte, delimiter string) (block, body []byte, found bool) {
	offset := 0
	remaining := source
	for len(remaining) > 0 {
		line, next, _ := cutLine(remaining)
		if strings.TrimRight(string(line), " \t\r") == delimiter {
			return source[:offset], next, true
		}
		offset += len(remaining) - len(next)
		remaining = next
	}
	return nil, nil, false
}

// enclose rebuilds a delimited block so the decoder never sees the body.
func enclose(block []byte, delimiter string) []byte {
	var buf bytes.Buffer
	buf.Grow(len(block) + 2*len(delimiter) + 3)
	buf.WriteString(delimiter + "\n")
	buf.Write(block)
	if len(block) > 0 && block[len(block)-1] != '\n' {
		buf.WriteByte('\n')
	}
	buf.WriteString(delimiter + "\n")
	return buf.Bytes()
}

// documentEndLine returns the 1-based line of a YAML "..." marker in block,
// or 0 when there is none.
func documentEndLine(block []byte) int {
	line := 0
	for remaining := block; len(remaining) > 0; {
		var current []byte
		current, remaining, _ = cutLine(remaining)
		line++
		if strings.TrimRight(string(current), " \t\r") == "..." {
			return line
		}
	}
	return 0
}

// cutLine returns the first line of source without its newline, the remainder
// after the newline, and whether a newline was present.
func cutLine(source []byte) (line, rest []byte, ok bool) {
	if idx := bytes.IndexByte(source, '\n'); idx >= 0 {
		return source[:idx], source[idx+1:], true
	}
	return source, nil, false
}

// flattenValues normalises decoded values so YAML and TOML blocks share one
// representation: integers become int, timestamps become RFC3339 strings.
// Nested mappings are rejected.
func flattenValues(values map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(values))
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value, err := normaliseScalar(values[key])
		if err == nil {
			out[key] = value
			continue
		}
		list, ok := asList(values[key])
		if !ok {
			return nil, fmt.Errorf("key %q: %w", key, err)
		}
		items := make([]any, 0, len(list))
		for idx, item := range list {
			normalised, itemErr := normaliseScalar(item)
			if itemErr != nil {
				return nil, fmt.Errorf("key %q[%d]: %w", key, idx, itemErr)
			}
			items = append(items, normalised)
		}
		out[key] = items
	}
	return out, nil
}

func normaliseScalar(value any) (any, error) {
	switch typed := value.(type) {
	case nil, string, bool, float64:
		return typed, nil
	case int:
		return typed, nil
	case int64:
		return int(typed), nil
	case int32:
		return int(typed), nil
	case uint64:
		if typed > math.MaxInt64 {
			return nil, fmt.Errorf("integer %d overflows int64", typed)
		}
		return int(typed), nil
	case float32:
		return float64(typed), nil
	case time.Time:
		return typed.Format(time.RFC3339), nil
	default:
		return nil, fmt.Errorf("unsupported value of type %T", value)
	}
}

func asList(value any) ([]any, bool) {
	switch typed := value.(type) {
	case []any:
		return typed, true
	case []string:
		items := make([]any, len(typed))
		for i, item := range typed {
			items[i] = item
		}
		return items, true
	default:
		return nil, false
	}
}
