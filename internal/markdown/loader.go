package markdown

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/goliatone/go-article/pkg/interfaces"
)

// DefaultExtensions lists the content file extensions discovered by default.
var DefaultExtensions = []string{".md", ".markdown", ".html"}

// DefaultContentDirs lists underscore-prefixed directories that still hold content.
var DefaultContentDirs = []string{"_posts"}

// LoaderConfig configures how content files are discovered within a source tree.
type LoaderConfig struct {
	// Extensions limits discovery to these file extensions (defaults to DefaultExtensions).
	Extensions []string
	// ContentDirs names underscore-prefixed directories that are walked anyway
	// (defaults to DefaultContentDirs).
	ContentDirs []string
	// Scanner splits bodies into segments. Nil keeps each body as a single text segment.
	Scanner BodyScanner
}

// Loader turns filesystem paths into parsed documents.
type Loader struct {
	fs         fs.FS
	extensions map[string]struct{}
	content    map[string]struct{}
	scanner    BodyScanner
}

// NewLoader constructs a Loader using the provided filesystem and configuration.
func NewLoader(filesystem fs.FS, cfg LoaderConfig) *Loader {
	exts := cfg.Extensions
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	allowed := make(map[string]struct{}, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		allowed[ext] = struct{}{}
	}

	dirs := cfg.ContentDirs
	if dirs == nil {
		dirs = DefaultContentDirs
	}
	content := make(map[string]struct{}, len(dirs))
	for _, dir := range dirs {
		content[strings.TrimSpace(dir)] = struct{}{}
	}

	return &Loader{
		fs:         filesystem,
		extensions: allowed,
		content:    content,
		scanner:    cfg.Scanner,
	}
}

// DocumentResult carries the parsed document along with the raw source.
type DocumentResult struct {
	Document *interfaces.Document
	Source   []byte
}

// LoadFile reads and parses a single content file.
func (l *Loader) LoadFile(ctx context.Context, name string) (*DocumentResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rel := normalisePath(name)
	data, err := fs.ReadFile(l.fs, rel)
	if err != nil {
		return nil, fmt.Errorf("markdown loader read %s: %w", rel, err)
	}

	info, err := fs.Stat(l.fs, rel)
	if err != nil {
		return nil, fmt.Errorf("markdown loader stat %s: %w", rel, err)
	}

	doc, err := BuildDocument(rel, data, info.ModTime(), l.scanner)
	if err != nil {
		return nil, err
	}

	return &DocumentResult{
		Document: doc,
		Source:   data,
	}, nil
}

// Discover lists content files under dir in lexical order. Directories whose
// names start with "_" or "." are skipped unless listed as content
// directories. Files with those prefixes are always skipped.
func (l *Loader) Discover(ctx context.Context, dir string) ([]string, error) {
	root := normalisePath(dir)

	var paths []string
	walkErr := fs.WalkDir(l.fs, root, func(current string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		name := d.Name()
		if d.IsDir() {
			if _, ok := l.content[name]; ok {
				return nil
			}
			if current != root && isHidden(name) {
				return fs.SkipDir
			}
			return nil
		}
		if isHidden(name) || !l.matchesExtension(name) {
			return nil
		}
		paths = append(paths, current)
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("markdown loader discover %s: %w", root, walkErr)
	}

	sort.Strings(paths)
	return paths, nil
}

func (l *Loader) matchesExtension(name string) bool {
	_, ok := l.extensions[strings.ToLower(filepath.Ext(name))]
	return ok
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".")
}

func normalisePath(p string) string {
	p = filepath.ToSlash(strings.TrimSpace(p))
	if p == "" {
		return "."
	}
	p = path.Clean(p)
	return strings.TrimPrefix(p, "/")
}
