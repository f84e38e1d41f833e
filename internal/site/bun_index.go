package site

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"github.com/goliatone/go-article/internal/identity"
	"github.com/goliatone/go-article/pkg/interfaces"
)

const (
	DriverJSON     = "json"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// ErrIndexDriverUnknown matches unsupported build index drivers.
var ErrIndexDriverUnknown = errors.New("site: unknown index driver")

// BunIndex is a BuildIndex stored in a SQL table through go-repository-bun.
type BunIndex struct {
	db     *bun.DB
	repo   repository.Repository[*buildRecordModel]
	ownsDB bool
}

// newBuildRecordRepository creates a repository for build rows keyed by path.
func newBuildRecordRepository(db *bun.DB) repository.Repository[*buildRecordModel] {
	return repository.MustNewRepository(db, repository.ModelHandlers[*buildRecordModel]{
		NewRecord: func() *buildRecordModel { return &buildRecordModel{} },
		GetID: func(m *buildRecordModel) uuid.UUID {
			return m.ID
		},
		SetID: func(m *buildRecordModel, id uuid.UUID) {
			m.ID = id
		},
		GetIdentifier: func() string {
			return "path"
		},
		GetIdentifierValue: func(m *buildRecordModel) string {
			return m.Path
		},
	})
}

// NewBunIndex wraps an existing database handle. The caller keeps ownership
// of db and must call EnsureSchema before use.
func NewBunIndex(db *bun.DB) *BunIndex {
	return &BunIndex{db: db, repo: newBuildRecordRepository(db)}
}

// OpenBunIndex opens driver at dsn and prepares the build table.
func OpenBunIndex(ctx context.Context, driver, dsn string) (*BunIndex, error) {
	var db *bun.DB
	switch driver {
	case DriverSQLite:
		sqldb, err := sql.Open("sqlite3", dsn)
		if err != nil {
			return nil, fmt.Errorf("site: open sqlite index: %w", err)
		}
		// sqlite allows one writer; a single connection also keeps
		// in-memory databases alive for the life of the index.
		sqldb.SetMaxOpenConns(1)
		db = bun.NewDB(sqldb, sqlitedialect.New())
	case DriverPostgres:
		sqldb, err := sql.Open("postgres", dsn)
		if err != nil {
			return nil, fmt.Errorf("site: open postgres index: %w", err)
		}
		db = bun.NewDB(sqldb, pgdialect.New())
	default:
		return nil, fmt.Errorf("%w: %s", ErrIndexDriverUnknown, driver)
	}

	index := NewBunIndex(db)
	index.ownsDB = true
	if err := index.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return index, nil
}

// EnsureSchema creates the build table when missing.
func (i *BunIndex) EnsureSchema(ctx context.Context) error {
	if _, err := i.db.NewCreateTable().Model((*buildRecordModel)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("site: create build index table: %w", err)
	}
	return nil
}

func (i *BunIndex) Lookup(ctx context.Context, path string) (*interfaces.BuildRecord, error) {
	model, err := i.find(ctx, path)
	if err != nil || model == nil {
		return nil, err
	}
	record := modelToRecord(model)
	return &record, nil
}

// Record replaces the row stored for record.Path. A row created under a
// different id is removed first so the id always follows the latest record.
func (i *BunIndex) Record(ctx context.Context, record interfaces.BuildRecord) error {
	if strings.TrimSpace(record.Path) == "" {
		return errors.New("site: build record requires a path")
	}
	model := modelFromRecord(record)

	existing, err := i.find(ctx, model.Path)
	if err != nil {
		return err
	}
	if existing != nil && existing.ID == model.ID {
		_, err = i.repo.Update(ctx, model)
		return err
	}
	if existing != nil {
		if err := i.repo.Delete(ctx, existing); err != nil {
			return fmt.Errorf("site: replace build record %s: %w", model.Path, err)
		}
	}
	_, err = i.repo.Create(ctx, model)
	return err
}

func (i *BunIndex) find(ctx context.Context, path string) (*buildRecordModel, error) {
	model, err := i.repo.GetByIdentifier(ctx, strings.TrimSpace(path))
	if err != nil {
		if goerrors.IsCategory(err, repository.CategoryDatabaseNotFound) || errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return model, nil
}

// Flush is a no-op; every record is written immediately.
func (i *BunIndex) Flush(context.Context) error { return nil }

// Close releases the database when the index opened it.
func (i *BunIndex) Close() error {
	if !i.ownsDB {
		return nil
	}
	return i.db.Close()
}

type buildRecordModel struct {
	bun.BaseModel `bun:"table:article_builds"`

	ID         uuid.UUID `bun:"id,pk,type:uuid"`
	Path       string    `bun:"path,notnull,unique"`
	Checksum   string    `bun:"checksum"`
	Output     string    `bun:"output"`
	Status     string    `bun:"status"`
	Error      string    `bun:"error"`
	RenderedAt time.Time `bun:"rendered_at"`
}

func modelFromRecord(record interfaces.BuildRecord) *buildRecordModel {
	id := record.ID
	if id == uuid.Nil {
		id = identity.BuildRecordUUID(record.Path)
	}
	return &buildRecordModel{
		ID:         id,
		Path:       strings.TrimSpace(record.Path),
		Checksum:   record.Checksum,
		Output:     record.Output,
		Status:     string(record.Status),
		Error:      record.Error,
		RenderedAt: record.RenderedAt.UTC(),
	}
}

func modelToRecord(model *buildRecordModel) interfaces.BuildRecord {
	return interfaces.BuildRecord{
		ID:         model.ID,
		Path:       model.Path,
		Checksum:   model.Checksum,
		Output:     model.Output,
		Status:     interfaces.BuildStatus(model.Status),
		Error:      model.Error,
		RenderedAt: model.RenderedAt,
	}
}

// OpenIndex selects the build index for driver. The json driver keeps its
// manifest in destination.
func OpenIndex(ctx context.Context, driver, dsn, destination string) (interfaces.BuildIndex, error) {
	switch driver {
	case "", DriverJSON:
		return OpenManifestIndex(filepath.Join(destination, ManifestFileName))
	case DriverSQLite, DriverPostgres:
		return OpenBunIndex(ctx, driver, dsn)
	default:
		return nil, fmt.Errorf("%w: %s", ErrIndexDriverUnknown, driver)
	}
}

var _ interfaces.BuildIndex = (*BunIndex)(nil)
