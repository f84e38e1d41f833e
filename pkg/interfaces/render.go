package interfaces

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// OutputFormat selects how a resolved document is composed.
type OutputFormat string

const (
	// OutputHTML converts Markdown bodies to HTML and applies layouts.
	OutputHTML OutputFormat = "html"
	// OutputMarkdown emits the front matter block followed by the resolved body.
	OutputMarkdown OutputFormat = "markdown"
)

// RenderOptions narrows a single render call.
type RenderOptions struct {
	Format OutputFormat
	// IncludeFrontMatter prepends the serialised front matter block. Only the
	// markdown format honours it.
	IncludeFrontMatter bool
	// SkipLayouts renders the bare body even when front matter names a layout.
	SkipLayouts bool
}

// Output is the final rendered text for one document.
type Output struct {
	Path    string
	Format  OutputFormat
	Content string
	Layouts []string
}

// BuildStatus records the outcome of the last build of a document.
type BuildStatus string

const (
	BuildStatusRendered BuildStatus = "rendered"
	BuildStatusFailed   BuildStatus = "failed"
)

// BuildRecord is the build index entry for one source document.
type BuildRecord struct {
	ID         uuid.UUID
	Path       string
	Checksum   string
	Output     string
	Status     BuildStatus
	Error      string
	RenderedAt time.Time
}

// BuildIndex persists per-document build state so incremental builds can
// skip unchanged sources.
type BuildIndex interface {
	// Lookup returns the stored record or nil when the path is unknown.
	Lookup(ctx context.Context, path string) (*BuildRecord, error)
	Record(ctx context.Context, record BuildRecord) error
	Flush(ctx context.Context) error
	Close() error
}
