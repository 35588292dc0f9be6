package core

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureExtension(t *testing.T) {
	store, exec := newTestStore(t, fullSchema())

	require.NoError(t, store.EnsureExtension(context.Background()))

	calls := exec.calls()
	require.Len(t, calls, 2)
	assert.Contains(t, calls[0], "CREATE EXTENSION IF NOT EXISTS vector")
	assert.Contains(t, calls[1], `CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`)
}

func TestEnsureTable(t *testing.T) {
	store, exec := newTestStore(t, fullSchema())

	require.NoError(t, store.EnsureTable(context.Background(), nil))

	calls := exec.calls()
	require.NotEmpty(t, calls)
	assert.Contains(t, calls[0], "CREATE TABLE IF NOT EXISTS docs")
	assert.Contains(t, calls[0], "VECTOR(3)")

	// updatedAt is configured, so the touch trigger is installed too.
	joined := ""
	for _, c := range calls[1:] {
		joined += c + "\n"
	}
	assert.Contains(t, joined, "CREATE OR REPLACE FUNCTION docs_updated_at_touch_fn()")
	assert.Contains(t, joined, "DROP TRIGGER IF EXISTS docs_updated_at_touch ON docs")
	assert.Contains(t, joined, "CREATE TRIGGER docs_updated_at_touch BEFORE UPDATE ON docs")
}

func TestEnsureTableDimensionOverride(t *testing.T) {
	store, exec := newTestStore(t, fullSchema())

	dims := 768
	require.NoError(t, store.EnsureTable(context.Background(), &dims))
	assert.Contains(t, exec.calls()[0], "VECTOR(768)")
}

func TestEnsureTableExplicitZeroDimensions(t *testing.T) {
	store, exec := newTestStore(t, fullSchema())

	// nil means "use the configured default"; an explicit zero is invalid.
	zero := 0
	err := store.EnsureTable(context.Background(), &zero)
	assert.ErrorIs(t, err, ErrInvalidDimensions)
	assert.Empty(t, exec.calls())
}

func TestEnsureTableExternallyManaged(t *testing.T) {
	schema := fullSchema()
	schema.CreateTable = false
	store, exec := newTestStore(t, schema)

	require.NoError(t, store.EnsureTable(context.Background(), nil))
	assert.Empty(t, exec.calls(), "externally managed tables must see no DDL")
}

func TestEnsureIndexCreates(t *testing.T) {
	store, exec := newTestStore(t, fullSchema())
	exec.respond = func(query string, args []any) (*Result, error) {
		if args != nil {
			// pg_indexes existence probe: not found
			return &Result{}, nil
		}
		return &Result{}, nil
	}

	require.NoError(t, store.EnsureIndex(context.Background(), "kb", IndexHNSW, MetricCosine))

	calls := exec.calls()
	require.Len(t, calls, 2)
	assert.Contains(t, calls[0], "pg_indexes")
	assert.Equal(t, []any{"docs_kb_hnsw_idx"}, exec.args[0])
	assert.Contains(t, calls[1], "CREATE INDEX docs_kb_hnsw_idx ON docs USING hnsw (embedding vector_cosine_ops)")
	assert.Contains(t, calls[1], "WHERE collection = 'kb'")
}

func TestEnsureIndexIVFFlat(t *testing.T) {
	store, exec := newTestStore(t, fullSchema())

	require.NoError(t, store.EnsureIndex(context.Background(), "", IndexIVFFlat, MetricEuclidean))

	calls := exec.calls()
	require.Len(t, calls, 2)
	assert.Contains(t, calls[1], "USING ivfflat (embedding vector_l2_ops)")
	assert.Contains(t, calls[1], "WITH (lists = 100)")
	assert.NotContains(t, calls[1], "WHERE")
}

func TestEnsureIndexAlreadyExists(t *testing.T) {
	store, exec := newTestStore(t, fullSchema())
	exec.respond = func(query string, args []any) (*Result, error) {
		return &Result{Rows: []Row{{"?column?": 1}}}, nil
	}

	require.NoError(t, store.EnsureIndex(context.Background(), "kb", IndexHNSW, MetricCosine))
	assert.Len(t, exec.calls(), 1, "only the existence probe should run")
}

func TestEnsureIndexDuplicateRaceTolerated(t *testing.T) {
	store, exec := newTestStore(t, fullSchema())
	exec.respond = func(query string, args []any) (*Result, error) {
		if args == nil {
			return nil, errors.New(`relation "docs_kb_hnsw_idx" already exists`)
		}
		return &Result{}, nil
	}

	assert.NoError(t, store.EnsureIndex(context.Background(), "kb", IndexHNSW, MetricCosine))
	assert.Len(t, exec.calls(), 2)
}

func TestEnsureIndexTypedDuplicateTolerated(t *testing.T) {
	store, exec := newTestStore(t, fullSchema())
	exec.respond = func(query string, args []any) (*Result, error) {
		if args == nil {
			return nil, fmt.Errorf("%w: relation \"docs_kb_hnsw_idx\"", ErrDuplicateObject)
		}
		return &Result{}, nil
	}

	assert.NoError(t, store.EnsureIndex(context.Background(), "kb", IndexHNSW, MetricCosine))
}

func TestEnsureIndexBadInput(t *testing.T) {
	store, _ := newTestStore(t, fullSchema())

	err := store.EnsureIndex(context.Background(), "kb", IndexType("btree"), MetricCosine)
	assert.Error(t, err)

	err = store.EnsureIndex(context.Background(), "kb", IndexHNSW, Metric("manhattan"))
	assert.ErrorIs(t, err, ErrUnknownMetric)
}

func TestEnsureIndexNameSanitized(t *testing.T) {
	store, exec := newTestStore(t, fullSchema())

	require.NoError(t, store.EnsureIndex(context.Background(), "My Collection/v2", IndexHNSW, MetricCosine))
	assert.Equal(t, []any{"docs_my_collection_v2_hnsw_idx"}, exec.args[0])
}

func TestEnsureIndexEscapesPartitionLiteral(t *testing.T) {
	store, exec := newTestStore(t, fullSchema())

	require.NoError(t, store.EnsureIndex(context.Background(), "o'brien", IndexHNSW, MetricCosine))
	assert.Contains(t, exec.calls()[1], "WHERE collection = 'o''brien'")
}

func TestEnsureMetadataIndex(t *testing.T) {
	store, exec := newTestStore(t, fullSchema())

	require.NoError(t, store.EnsureMetadataIndex(context.Background()))

	calls := exec.calls()
	require.Len(t, calls, 2)
	assert.Contains(t, calls[1], "CREATE INDEX docs_metadata_gin_idx ON docs USING gin (metadata)")
}

func TestEnsureMetadataIndexWithoutColumn(t *testing.T) {
	store, exec := newTestStore(t, SchemaConfig{TableName: "vectors", Dimensions: 3})

	require.NoError(t, store.EnsureMetadataIndex(context.Background()))
	assert.Empty(t, exec.calls())
}

func TestDropCollection(t *testing.T) {
	store, exec := newTestStore(t, fullSchema())
	exec.respond = func(query string, args []any) (*Result, error) {
		return &Result{RowsAffected: 12}, nil
	}

	deleted, err := store.DropCollection(context.Background(), "kb")
	require.NoError(t, err)
	assert.Equal(t, int64(12), deleted)
	assert.Equal(t, "DELETE FROM docs WHERE collection = $1", exec.calls()[0])
	assert.Equal(t, []any{"kb"}, exec.args[0])
}

func TestDropCollectionWithoutPartitionColumn(t *testing.T) {
	store, _ := newTestStore(t, SchemaConfig{TableName: "vectors", Dimensions: 3})

	_, err := store.DropCollection(context.Background(), "kb")
	assert.ErrorIs(t, err, ErrNoPartitionColumn)
}
