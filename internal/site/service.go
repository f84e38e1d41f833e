package site

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"io"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-article/internal/identity"
	"github.com/goliatone/go-article/internal/logging"
	"github.com/goliatone/go-article/internal/markdown"
	"github.com/goliatone/go-article/pkg/interfaces"
)

var (
	// ErrLoaderRequired indicates the builder was constructed without a loader.
	ErrLoaderRequired = errors.New("site: loader is required")
	// ErrPipelineRequired indicates the builder was constructed without a pipeline.
	ErrPipelineRequired = errors.New("site: pipeline is required")
	// ErrWriterRequired indicates a non dry-run build without an artifact writer.
	ErrWriterRequired = errors.New("site: artifact writer is required")
)

// Config captures builder behaviour.
type Config struct {
	// SourceDir is the discovery root inside the loader filesystem.
	SourceDir string
	// Workers bounds concurrent renders. Zero uses runtime.NumCPU.
	Workers int
	// Incremental skips documents whose checksum and output match the index.
	Incremental bool
	// Stylesheet is the output path of the highlighter CSS. Empty disables it.
	Stylesheet string
}

// StylesheetSource exposes highlighter CSS for class-based output.
type StylesheetSource interface {
	UsesClasses() bool
	WriteCSS(w io.Writer) error
}

// Dependencies wires the collaborators used by the builder.
type Dependencies struct {
	Loader      *markdown.Loader
	Pipeline    *Pipeline
	Writer      ArtifactWriter
	Index       interfaces.BuildIndex
	Highlighter StylesheetSource
	Logger      interfaces.Logger
}

// BuildOptions narrows a single build.
type BuildOptions struct {
	// DryRun renders every document without writing outputs or the index.
	DryRun bool
	// Force re-renders documents the index reports as unchanged.
	Force bool
	// Paths limits the build to these source paths instead of discovery.
	Paths []string
}

// RenderedDocument describes one rendered output.
type RenderedDocument struct {
	ID       uuid.UUID
	Path     string
	Output   string
	Checksum string
	Layouts  []string
	Content  string
}

// Diagnostic records the outcome of one document.
type Diagnostic struct {
	Path     string
	Output   string
	Skipped  bool
	Duration time.Duration
	Err      error
}

// BuildResult reports aggregated build metadata.
type BuildResult struct {
	// ID tags every log entry of the build as build_id.
	ID          string
	Built       int
	Skipped     int
	Failed      int
	Duration    time.Duration
	DryRun      bool
	Stylesheet  string
	Rendered    []RenderedDocument
	Diagnostics []Diagnostic
	Errors      []error
}

// Service renders a source tree into the destination.
type Service struct {
	cfg    Config
	deps   Dependencies
	logger interfaces.Logger
	now    func() time.Time
}

// NewService constructs a builder.
func NewService(cfg Config, deps Dependencies) (*Service, error) {
	if deps.Loader == nil {
		return nil, ErrLoaderRequired
	}
	if deps.Pipeline == nil {
		return nil, ErrPipelineRequired
	}
	return &Service{
		cfg:    cfg,
		deps:   deps,
		logger: logging.OrNoOp(deps.Logger),
		now:    time.Now,
	}, nil
}

type buildOutcome struct {
	diagnostic Diagnostic
	document   *RenderedDocument
	record     *interfaces.BuildRecord
	skipped    bool
	err        error
}

// Build discovers and renders every document. A failing document is recorded
// and its siblings keep rendering; the returned error joins every failure.
func (s *Service) Build(ctx context.Context, opts BuildOptions) (*BuildResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	start := s.now()
	buildID := uuid.NewString()
	ctx = logging.ContextWithBuild(ctx, buildID)
	logger := s.logger.WithContext(ctx)
	result := &BuildResult{ID: buildID, DryRun: opts.DryRun}

	writer := s.deps.Writer
	if opts.DryRun {
		writer = noopWriter{}
	} else if writer == nil {
		return nil, ErrWriterRequired
	}

	paths := opts.Paths
	if len(paths) == 0 {
		discovered, err := s.deps.Loader.Discover(ctx, s.sourceDir())
		if err != nil {
			return nil, err
		}
		paths = discovered
	}

	workers := s.effectiveWorkerCount(len(paths))
	logger.Info("site.build.started", "documents", len(paths), "workers", workers, "dry_run", opts.DryRun)

	var (
		mu          sync.Mutex
		outcomes    = make([]buildOutcome, 0, len(paths))
		errorsSlice []error
	)

	collect := func(outcome buildOutcome) {
		mu.Lock()
		defer mu.Unlock()
		outcomes = append(outcomes, outcome)
		if outcome.record != nil && s.deps.Index != nil && !opts.DryRun {
			if err := s.deps.Index.Record(ctx, *outcome.record); err != nil {
				errorsSlice = append(errorsSlice, err)
			}
		}
	}

	if err := s.renderConcurrently(ctx, paths, workers, writer, opts, collect); err != nil {
		errorsSlice = append(errorsSlice, err)
	}

	sort.Slice(outcomes, func(i, j int) bool {
		return outcomes[i].diagnostic.Path < outcomes[j].diagnostic.Path
	})
	var documentErrors []error
	for _, outcome := range outcomes {
		result.Diagnostics = append(result.Diagnostics, outcome.diagnostic)
		switch {
		case outcome.err != nil:
			result.Failed++
			documentErrors = append(documentErrors, outcome.err)
		case outcome.skipped:
			result.Skipped++
		default:
			result.Built++
			if outcome.document != nil {
				result.Rendered = append(result.Rendered, *outcome.document)
			}
		}
	}
	errorsSlice = append(documentErrors, errorsSlice...)

	if !opts.DryRun {
		stylesheet, err := s.writeStylesheet(ctx, writer)
		if err != nil {
			errorsSlice = append(errorsSlice, err)
		}
		result.Stylesheet = stylesheet
		if s.deps.Index != nil {
			if err := s.deps.Index.Flush(ctx); err != nil {
				errorsSlice = append(errorsSlice, err)
			}
		}
	}

	result.Duration = time.Since(start)
	logger.Info("site.build.completed",
		"built", result.Built,
		"skipped", result.Skipped,
		"failed", result.Failed,
		"duration_ms", result.Duration.Milliseconds(),
	)
	if len(errorsSlice) > 0 {
		result.Errors = append(result.Errors, errorsSlice...)
		return result, errors.Join(errorsSlice...)
	}
	return result, nil
}

func (s *Service) renderConcurrently(
	ctx context.Context,
	paths []string,
	workers int,
	writer ArtifactWriter,
	opts BuildOptions,
	collect func(buildOutcome),
) error {
	if len(paths) == 0 {
		return nil
	}

	jobs := make(chan string)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range jobs {
				select {
				case <-ctx.Done():
					collect(buildOutcome{
						diagnostic: Diagnostic{Path: path, Err: ctx.Err()},
						err:        ctx.Err(),
					})
				default:
					collect(s.renderDocument(ctx, path, writer, opts))
				}
			}
		}()
	}

	for _, path := range paths {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return ctx.Err()
		case jobs <- path:
		}
	}
	close(jobs)
	wg.Wait()
	return nil
}

func (s *Service) renderDocument(ctx context.Context, path string, writer ArtifactWriter, opts BuildOptions) buildOutcome {
	start := s.now()
	logger := logging.WithDocumentContext(s.logger.WithContext(ctx), path, "build")
	outcome := buildOutcome{diagnostic: Diagnostic{Path: path}}

	fail := func(err error) buildOutcome {
		outcome.err = err
		outcome.diagnostic.Err = err
		outcome.diagnostic.Duration = time.Since(start)
		outcome.record.Status = interfaces.BuildStatusFailed
		outcome.record.Error = err.Error()
		logging.WithFields(logger, map[string]any{"error": err}).Error("site.document.failed")
		return outcome
	}

	outcome.record = &interfaces.BuildRecord{
		ID:         identity.BuildRecordUUID(path),
		Path:       path,
		RenderedAt: s.now().UTC(),
	}

	loaded, err := s.deps.Loader.LoadFile(ctx, path)
	if err != nil {
		return fail(err)
	}
	doc := loaded.Document
	checksum := hex.EncodeToString(doc.Checksum)
	output := OutputPath(doc, s.format())
	outcome.diagnostic.Output = output
	outcome.record.Checksum = checksum
	outcome.record.Output = output

	if s.unchanged(ctx, path, checksum, output, opts) {
		outcome.skipped = true
		outcome.record = nil
		outcome.diagnostic.Skipped = true
		outcome.diagnostic.Duration = time.Since(start)
		logger.Debug("site.document.skipped", "output", output)
		return outcome
	}

	rendered, err := s.deps.Pipeline.Render(ctx, doc)
	if err != nil {
		return fail(err)
	}

	if err := writer.WriteFile(ctx, WriteRequest{
		Path:     output,
		Content:  []byte(rendered.Content),
		Category: categoryDocument,
		Checksum: checksum,
	}); err != nil {
		return fail(err)
	}

	outcome.record.Status = interfaces.BuildStatusRendered
	outcome.document = &RenderedDocument{
		ID:       doc.ID,
		Path:     path,
		Output:   output,
		Checksum: checksum,
		Layouts:  rendered.Layouts,
		Content:  rendered.Content,
	}
	outcome.diagnostic.Duration = time.Since(start)
	logger.Debug("site.document.rendered", "output", output, "duration_ms", outcome.diagnostic.Duration.Milliseconds())
	return outcome
}

func (s *Service) unchanged(ctx context.Context, path, checksum, output string, opts BuildOptions) bool {
	if !s.cfg.Incremental || opts.Force || s.deps.Index == nil {
		return false
	}
	record, err := s.deps.Index.Lookup(ctx, path)
	if err != nil || record == nil {
		return false
	}
	return record.Status == interfaces.BuildStatusRendered &&
		record.Checksum == checksum &&
		record.Output == output
}

func (s *Service) writeStylesheet(ctx context.Context, writer ArtifactWriter) (string, error) {
	target := strings.TrimSpace(s.cfg.Stylesheet)
	if target == "" || s.deps.Highlighter == nil || !s.deps.Highlighter.UsesClasses() {
		return "", nil
	}
	var buf bytes.Buffer
	if err := s.deps.Highlighter.WriteCSS(&buf); err != nil {
		return "", err
	}
	if err := writer.WriteFile(ctx, WriteRequest{
		Path:     target,
		Content:  buf.Bytes(),
		Category: categoryStylesheet,
	}); err != nil {
		return "", err
	}
	return target, nil
}

func (s *Service) format() interfaces.OutputFormat {
	if format := s.deps.Pipeline.Options().Format; format != "" {
		return format
	}
	return interfaces.OutputHTML
}

func (s *Service) sourceDir() string {
	if dir := strings.TrimSpace(s.cfg.SourceDir); dir != "" {
		return dir
	}
	return "."
}

func (s *Service) effectiveWorkerCount(documents int) int {
	workers := s.cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if documents > 0 && workers > documents {
		workers = documents
	}
	if workers < 1 {
		workers = 1
	}
	return workers
}
