package site

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-article/internal/identity"
	"github.com/goliatone/go-article/pkg/interfaces"
)

func sampleRecord(path, checksum string) interfaces.BuildRecord {
	return interfaces.BuildRecord{
		ID:         uuid.New(),
		Path:       path,
		Checksum:   checksum,
		Output:     "index.html",
		Status:     interfaces.BuildStatusRendered,
		RenderedAt: time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC),
	}
}

func exerciseIndex(t *testing.T, index interfaces.BuildIndex) {
	t.Helper()
	ctx := context.Background()

	missing, err := index.Lookup(ctx, "index.md")
	if err != nil || missing != nil {
		t.Fatalf("expected unknown path to return nil, got %+v, %v", missing, err)
	}

	record := sampleRecord("index.md", "abc")
	if err := index.Record(ctx, record); err != nil {
		t.Fatalf("Record: %v", err)
	}
	updated := sampleRecord("index.md", "def")
	updated.Status = interfaces.BuildStatusFailed
	updated.Error = "boom"
	if err := index.Record(ctx, updated); err != nil {
		t.Fatalf("Record update: %v", err)
	}

	got, err := index.Lookup(ctx, "index.md")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if got == nil || got.Checksum != "def" || got.Status != interfaces.BuildStatusFailed || got.Error != "boom" || got.ID != updated.ID {
		t.Fatalf("unexpected record %+v", got)
	}
	if !got.RenderedAt.Equal(updated.RenderedAt) {
		t.Fatalf("expected rendered_at %v, got %v", updated.RenderedAt, got.RenderedAt)
	}

	if err := index.Record(ctx, interfaces.BuildRecord{}); err == nil {
		t.Fatalf("expected empty path to be rejected")
	}
	if err := index.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}
}

func TestManifestIndexPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", ManifestFileName)
	index, err := OpenManifestIndex(path)
	if err != nil {
		t.Fatalf("OpenManifestIndex: %v", err)
	}
	exerciseIndex(t, index)

	reopened, err := OpenManifestIndex(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got, err := reopened.Lookup(context.Background(), "index.md")
	if err != nil || got == nil || got.Checksum != "def" {
		t.Fatalf("expected persisted record, got %+v, %v", got, err)
	}
}

func TestBunIndexSQLite(t *testing.T) {
	ctx := context.Background()
	index, err := OpenBunIndex(ctx, DriverSQLite, "file:site_index_test?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("OpenBunIndex: %v", err)
	}
	t.Cleanup(func() { _ = index.Close() })

	exerciseIndex(t, index)
}

func TestBunIndexKeepsOneRowPerPath(t *testing.T) {
	ctx := context.Background()
	index, err := OpenBunIndex(ctx, DriverSQLite, "file:site_index_rows_test?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("OpenBunIndex: %v", err)
	}
	t.Cleanup(func() { _ = index.Close() })

	record := sampleRecord("notes/a.md", "v1")
	record.ID = uuid.Nil
	if err := index.Record(ctx, record); err != nil {
		t.Fatalf("Record: %v", err)
	}
	record.Checksum = "v2"
	if err := index.Record(ctx, record); err != nil {
		t.Fatalf("Record same id: %v", err)
	}

	got, err := index.Lookup(ctx, "notes/a.md")
	if err != nil || got == nil {
		t.Fatalf("Lookup: %+v, %v", got, err)
	}
	if got.ID != identity.BuildRecordUUID("notes/a.md") {
		t.Fatalf("expected path-derived id, got %s", got.ID)
	}
	if got.Checksum != "v2" {
		t.Fatalf("expected updated checksum, got %q", got.Checksum)
	}

	count, err := index.db.NewSelect().Model((*buildRecordModel)(nil)).Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected a single row, got %d", count)
	}
}

func TestOpenIndexSelectsDriver(t *testing.T) {
	dir := t.TempDir()
	index, err := OpenIndex(context.Background(), DriverJSON, "", dir)
	if err != nil {
		t.Fatalf("OpenIndex json: %v", err)
	}
	manifest, ok := index.(*ManifestIndex)
	if !ok || manifest.Path() != filepath.Join(dir, ManifestFileName) {
		t.Fatalf("expected manifest index in destination, got %T", index)
	}

	if _, err := OpenIndex(context.Background(), "mongo", "", dir); !errors.Is(err, ErrIndexDriverUnknown) {
		t.Fatalf("expected ErrIndexDriverUnknown, got %v", err)
	}
}
