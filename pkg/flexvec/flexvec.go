// Package flexvec provides a Postgres/pgvector vector database with a
// configurable schema for Go AI projects.
package flexvec

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"
	"time"

	_ "github.com/lib/pq"

	"github.com/flexvec/flexvec/pkg/core"
	"github.com/flexvec/flexvec/pkg/executor"
)

// Config represents database configuration.
type Config struct {
	Schema    core.SchemaConfig // Table and column layout
	Metric    core.Metric       // Distance metric (default: cosine)
	IndexType core.IndexType    // Similarity index type (HNSW, IVFFlat)
	BatchSize int               // Batch upsert window (0 for default)
	Logger    core.Logger       // Structured logger (nil for silent)

	// Connection pool tuning for the default database/sql path.
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DefaultConfig returns a configuration for the given table with the
// standard column layout, cosine distance and an HNSW index.
func DefaultConfig(table string) Config {
	return Config{
		Schema: core.SchemaConfig{
			TableName:   table,
			Columns:     core.DefaultColumns(),
			CreateTable: true,
		},
		Metric:          core.MetricCosine,
		IndexType:       core.IndexHNSW,
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
	}
}

// Option is a functional option for configuring the DB.
type Option func(*DB)

// WithExecutor supplies a pre-built executor (for example a pgx pool
// adapter) instead of opening a database/sql connection from the DSN.
func WithExecutor(exec core.Executor) Option {
	return func(db *DB) {
		db.exec = exec
	}
}

// WithoutSetup skips extension, table and index creation on Open. Use it
// when migrations are managed externally.
func WithoutSetup() Option {
	return func(db *DB) {
		db.skipSetup = true
	}
}

// DB represents an open vector database.
type DB struct {
	store     *core.Store
	exec      core.Executor
	sqlDB     *sql.DB
	skipSetup bool
	closed    atomic.Bool
}

// Open connects to Postgres, builds the store and, unless WithoutSetup is
// given, ensures the extensions, table, update trigger and indexes exist.
func Open(ctx context.Context, dsn string, config Config, opts ...Option) (*DB, error) {
	db := &DB{}
	for _, opt := range opts {
		opt(db)
	}

	if db.exec == nil {
		sqlDB, err := sql.Open("postgres", dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		if config.MaxOpenConns > 0 {
			sqlDB.SetMaxOpenConns(config.MaxOpenConns)
		}
		if config.MaxIdleConns > 0 {
			sqlDB.SetMaxIdleConns(config.MaxIdleConns)
		}
		if config.ConnMaxLifetime > 0 {
			sqlDB.SetConnMaxLifetime(config.ConnMaxLifetime)
		}
		if err := sqlDB.PingContext(ctx); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}
		db.sqlDB = sqlDB
		db.exec = executor.NewSQL(sqlDB)
	}

	store, err := core.New(db.exec, core.Config{
		Schema:    config.Schema,
		Metric:    config.Metric,
		BatchSize: config.BatchSize,
		Logger:    config.Logger,
	})
	if err != nil {
		db.close()
		return nil, fmt.Errorf("failed to create store: %w", err)
	}
	db.store = store

	if !db.skipSetup {
		if err := db.setup(ctx, config); err != nil {
			db.close()
			return nil, err
		}
	}
	return db, nil
}

func (db *DB) setup(ctx context.Context, config Config) error {
	if err := db.store.EnsureExtension(ctx); err != nil {
		return fmt.Errorf("failed to ensure extensions: %w", err)
	}
	if err := db.store.EnsureTable(ctx, nil); err != nil {
		return fmt.Errorf("failed to ensure table: %w", err)
	}
	metric := config.Metric
	if metric == "" {
		metric = core.MetricCosine
	}
	indexType := config.IndexType
	if indexType == "" {
		indexType = core.IndexHNSW
	}
	if err := db.store.EnsureIndex(ctx, "", indexType, metric); err != nil {
		return fmt.Errorf("failed to ensure index: %w", err)
	}
	if err := db.store.EnsureMetadataIndex(ctx); err != nil {
		return fmt.Errorf("failed to ensure metadata index: %w", err)
	}
	return nil
}

// Store returns the underlying vector store for full control.
func (db *DB) Store() *core.Store {
	return db.store
}

// Close closes the database connection when this DB owns it. Further
// operations return ErrStoreClosed; closing twice is a no-op.
func (db *DB) Close() error {
	if db.closed.Swap(true) {
		return nil
	}
	return db.close()
}

func (db *DB) close() error {
	if db.sqlDB != nil {
		return db.sqlDB.Close()
	}
	return nil
}

// ensureOpen guards operations against use after Close.
func (db *DB) ensureOpen() error {
	if db.closed.Load() {
		return core.ErrStoreClosed
	}
	return nil
}

// Upsert inserts or updates one record.
func (db *DB) Upsert(ctx context.Context, rec core.Record) (core.UpsertResult, error) {
	if err := db.ensureOpen(); err != nil {
		return core.UpsertResult{}, err
	}
	return db.store.Upsert(ctx, rec)
}

// UpsertBatch inserts or updates records in batches, preserving input order
// in the results.
func (db *DB) UpsertBatch(ctx context.Context, records []core.Record) ([]core.UpsertResult, error) {
	if err := db.ensureOpen(); err != nil {
		return nil, err
	}
	return db.store.UpsertBatch(ctx, records)
}

// Query performs a similarity search.
func (db *DB) Query(ctx context.Context, spec core.QuerySpec) ([]core.ScoredRecord, error) {
	if err := db.ensureOpen(); err != nil {
		return nil, err
	}
	return db.store.Query(ctx, spec)
}

// Get reads back records matching a selector.
func (db *DB) Get(ctx context.Context, spec core.GetSpec) ([]core.Record, error) {
	if err := db.ensureOpen(); err != nil {
		return nil, err
	}
	return db.store.Get(ctx, spec)
}

// Delete removes records matching a selector.
func (db *DB) Delete(ctx context.Context, sel core.Selector) (int64, error) {
	if err := db.ensureOpen(); err != nil {
		return 0, err
	}
	return db.store.Delete(ctx, sel)
}

// Count returns the number of records, scoped to a partition when given.
func (db *DB) Count(ctx context.Context, partition string) (int64, error) {
	if err := db.ensureOpen(); err != nil {
		return 0, err
	}
	return db.store.Count(ctx, partition)
}

// DropCollection deletes every record in a partition.
func (db *DB) DropCollection(ctx context.Context, partition string) (int64, error) {
	if err := db.ensureOpen(); err != nil {
		return 0, err
	}
	return db.store.DropCollection(ctx, partition)
}

// RunTemplate renders and executes a caller-supplied SQL template.
func (db *DB) RunTemplate(ctx context.Context, tpl core.Template) (*core.Result, error) {
	if err := db.ensureOpen(); err != nil {
		return nil, err
	}
	return db.store.RunTemplate(ctx, tpl)
}
