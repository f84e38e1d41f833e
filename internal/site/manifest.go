package site

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-article/pkg/interfaces"
)

const (
	// ManifestFileName is the JSON build index written to the destination.
	ManifestFileName    = ".article-manifest.json"
	manifestFileVersion = 1
)

// buildManifest stores metadata about the last build to support incremental runs.
type buildManifest struct {
	Version     int                         `json:"version"`
	GeneratedAt time.Time                   `json:"generated_at"`
	Documents   map[string]manifestDocument `json:"documents"`
}

type manifestDocument struct {
	ID         string    `json:"id"`
	Path       string    `json:"path"`
	Output     string    `json:"output"`
	Checksum   string    `json:"checksum"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
	RenderedAt time.Time `json:"rendered_at"`
}

func newBuildManifest() *buildManifest {
	return &buildManifest{
		Version:   manifestFileVersion,
		Documents: map[string]manifestDocument{},
	}
}

func parseManifest(data []byte) (*buildManifest, error) {
	if len(data) == 0 {
		return newBuildManifest(), nil
	}
	var stored struct {
		Version     int                `json:"version"`
		GeneratedAt time.Time          `json:"generated_at"`
		Documents   []manifestDocument `json:"documents"`
	}
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("site: parse manifest: %w", err)
	}
	manifest := newBuildManifest()
	manifest.GeneratedAt = stored.GeneratedAt
	if stored.Version != 0 {
		manifest.Version = stored.Version
	}
	for _, entry := range stored.Documents {
		manifest.Documents[entry.Path] = entry
	}
	return manifest, nil
}

func (m *buildManifest) marshal() ([]byte, error) {
	// Stable ordering for deterministic output.
	type orderedManifest struct {
		Version     int                `json:"version"`
		GeneratedAt time.Time          `json:"generated_at"`
		Documents   []manifestDocument `json:"documents"`
	}
	ordered := orderedManifest{
		Version:     m.Version,
		GeneratedAt: m.GeneratedAt,
		Documents:   make([]manifestDocument, 0, len(m.Documents)),
	}
	for _, entry := range m.Documents {
		ordered.Documents = append(ordered.Documents, entry)
	}
	sort.Slice(ordered.Documents, func(i, j int) bool {
		return ordered.Documents[i].Path < ordered.Documents[j].Path
	})
	return json.MarshalIndent(ordered, "", "  ")
}

// ManifestIndex is a BuildIndex persisted as a JSON file. Records are kept in
// memory and written on Flush.
type ManifestIndex struct {
	mu       sync.Mutex
	path     string
	manifest *buildManifest
	dirty    bool
	now      func() time.Time
}

// OpenManifestIndex loads the manifest at path. A missing file starts an
// empty index.
func OpenManifestIndex(path string) (*ManifestIndex, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("site: manifest path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("site: read manifest: %w", err)
	}
	manifest, err := parseManifest(data)
	if err != nil {
		return nil, err
	}
	return &ManifestIndex{path: path, manifest: manifest, now: time.Now}, nil
}

// Path returns the manifest file location.
func (i *ManifestIndex) Path() string {
	return i.path
}

func (i *ManifestIndex) Lookup(_ context.Context, path string) (*interfaces.BuildRecord, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	entry, ok := i.manifest.Documents[path]
	if !ok {
		return nil, nil
	}
	id, _ := uuid.Parse(entry.ID)
	return &interfaces.BuildRecord{
		ID:         id,
		Path:       entry.Path,
		Checksum:   entry.Checksum,
		Output:     entry.Output,
		Status:     interfaces.BuildStatus(entry.Status),
		Error:      entry.Error,
		RenderedAt: entry.RenderedAt,
	}, nil
}

func (i *ManifestIndex) Record(_ context.Context, record interfaces.BuildRecord) error {
	if strings.TrimSpace(record.Path) == "" {
		return errors.New("site: build record requires a path")
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	i.manifest.Documents[record.Path] = manifestDocument{
		ID:         record.ID.String(),
		Path:       record.Path,
		Output:     record.Output,
		Checksum:   record.Checksum,
		Status:     string(record.Status),
		Error:      record.Error,
		RenderedAt: record.RenderedAt,
	}
	i.dirty = true
	return nil
}

// Flush writes the manifest when it changed since the last flush.
func (i *ManifestIndex) Flush(_ context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if !i.dirty {
		return nil
	}
	i.manifest.GeneratedAt = i.now().UTC()
	data, err := i.manifest.marshal()
	if err != nil {
		return fmt.Errorf("site: encode manifest: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(i.path), 0o755); err != nil {
		return fmt.Errorf("site: ensure manifest dir: %w", err)
	}
	if err := os.WriteFile(i.path, data, 0o644); err != nil {
		return fmt.Errorf("site: write manifest: %w", err)
	}
	i.dirty = false
	return nil
}

func (i *ManifestIndex) Close() error { return nil }

var _ interfaces.BuildIndex = (*ManifestIndex)(nil)
