package site

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

type writeCategory string

const (
	categoryDocument   writeCategory = "document"
	categoryStylesheet writeCategory = "stylesheet"
)

// WriteRequest describes a file write routed through the artifact writer.
type WriteRequest struct {
	Path     string
	Content  []byte
	Category writeCategory
	Checksum string
}

// ArtifactWriter abstracts where build outputs land.
type ArtifactWriter interface {
	WriteFile(ctx context.Context, req WriteRequest) error
}

// FileWriter writes artifacts below a root directory. Files are written to a
// temporary sibling and renamed into place.
type FileWriter struct {
	root string
}

// NewFileWriter returns a writer rooted at dir.
func NewFileWriter(dir string) *FileWriter {
	return &FileWriter{root: dir}
}

// Root returns the destination directory.
func (w *FileWriter) Root() string {
	return w.root
}

func (w *FileWriter) WriteFile(ctx context.Context, req WriteRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rel := filepath.FromSlash(strings.TrimPrefix(strings.TrimSpace(req.Path), "/"))
	if rel == "" || rel == "." {
		return errors.New("site: write requires path")
	}
	if !filepath.IsLocal(rel) {
		return fmt.Errorf("site: output path %q escapes the destination", req.Path)
	}

	target := filepath.Join(w.root, rel)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("site: ensure dir for %s: %w", req.Path, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".article-*")
	if err != nil {
		return fmt.Errorf("site: write %s: %w", req.Path, err)
	}
	if _, err := tmp.Write(req.Content); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("site: write %s: %w", req.Path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("site: write %s: %w", req.Path, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("site: write %s: %w", req.Path, err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("site: write %s: %w", req.Path, err)
	}
	return nil
}

type noopWriter struct{}

func (noopWriter) WriteFile(context.Context, WriteRequest) error { return nil }
