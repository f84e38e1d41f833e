package interfaces

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// FrontMatterFormat identifies the delimiter pair a metadata block used.
type FrontMatterFormat string

const (
	FrontMatterNone FrontMatterFormat = ""
	FrontMatterYAML FrontMatterFormat = "yaml"
	FrontMatterTOML FrontMatterFormat = "toml"
)

// FrontMatter is the flat key/value metadata block found at the top of a
// content file. Values are scalars (string, bool, numbers, timestamps) or
// lists of scalars.
type FrontMatter struct {
	Format FrontMatterFormat
	Values map[string]any
}

// Get returns the raw value stored under key.
func (fm FrontMatter) Get(key string) (any, bool) {
	if fm.Values == nil {
		return nil, false
	}
	value, ok := fm.Values[key]
	return value, ok
}

// String returns the value under key formatted as a string, or "" when absent.
func (fm FrontMatter) String(key string) string {
	value, ok := fm.Get(key)
	if !ok || value == nil {
		return ""
	}
	switch typed := value.(type) {
	case string:
		return typed
	case time.Time:
		return typed.Format(time.RFC3339)
	case []any:
		parts := make([]string, 0, len(typed))
		for _, item := range typed {
			parts = append(parts, fmt.Sprint(item))
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(typed)
	}
}

// Keys lists the metadata keys in lexical order.
func (fm FrontMatter) Keys() []string {
	keys := make([]string, 0, len(fm.Values))
	for key := range fm.Values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Len reports how many keys the block holds.
func (fm FrontMatter) Len() int {
	return len(fm.Values)
}

// SegmentKind classifies a span of document body.
type SegmentKind string

const (
	SegmentText    SegmentKind = "text"
	SegmentInclude SegmentKind = "include"
	SegmentCapture SegmentKind = "capture"
)

// Segment is one ordered span of a document body. Exactly one of Text,
// Include or Capture is meaningful depending on Kind.
type Segment struct {
	Kind    SegmentKind
	Text    string
	Include *IncludeRef
	Capture *CaptureBlock
	Line    int
}

// IncludeParam is a single argument passed to an inclusion marker.
type IncludeParam struct {
	// Name is empty for positional arguments until bound by the resolver.
	Name string
	// Value holds the literal value (quotes removed).
	Value string
	// Capture names a previously captured block when the argument references one.
	Capture string
	// PageKey names a front matter key when the argument is written as page.KEY.
	PageKey    string
	Positional bool
}

// IncludeRef is an inclusion marker discovered in a document body.
type IncludeRef struct {
	Name   string
	Params []IncludeParam
	Line   int
	Raw    string
}

// CaptureBlock is a verbatim text span saved under a name for later use by
// an inclusion.
type CaptureBlock struct {
	Name    string
	Payload string
	Lang    string
	Caption string
	Line    int
}

// Document is a parsed content file. It is created once per source file and
// must be treated as immutable after parsing.
type Document struct {
	ID           uuid.UUID
	Path         string
	FrontMatter  FrontMatter
	Segments     []Segment
	Captures     map[string]*CaptureBlock
	Checksum     []byte
	LastModified time.Time
}

// Capture returns the named capture block.
func (d *Document) Capture(name string) (*CaptureBlock, bool) {
	if d == nil || d.Captures == nil {
		return nil, false
	}
	block, ok := d.Captures[name]
	return block, ok
}

// Includes returns every inclusion marker in body order.
func (d *Document) Includes() []*IncludeRef {
	if d == nil {
		return nil
	}
	var refs []*IncludeRef
	for _, segment := range d.Segments {
		if segment.Kind == SegmentInclude && segment.Include != nil {
			refs = append(refs, segment.Include)
		}
	}
	return refs
}

// ResolvedSegment pairs a source segment with its expanded output.
type ResolvedSegment struct {
	Segment  Segment
	Output   string
	Resolved bool
}

// ResolvedDocument is the product of inclusion resolution: the source document
// plus one output per segment.
type ResolvedDocument struct {
	Document *Document
	Segments []ResolvedSegment
}

// Body concatenates the resolved segment outputs in order.
func (r *ResolvedDocument) Body() string {
	if r == nil {
		return ""
	}
	var builder strings.Builder
	for _, segment := range r.Segments {
		builder.WriteString(segment.Output)
	}
	return builder.String()
}

// Unresolved lists include segments that were never expanded.
func (r *ResolvedDocument) Unresolved() []*IncludeRef {
	if r == nil {
		return nil
	}
	var refs []*IncludeRef
	for _, segment := range r.Segments {
		if segment.Segment.Kind == SegmentInclude && !segment.Resolved {
			refs = append(refs, segment.Segment.Include)
		}
	}
	return refs
}
