package flexvec

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flexvec/flexvec/pkg/core"
)

type stubExecutor struct {
	queries []string
}

func (s *stubExecutor) Execute(ctx context.Context, query string, args ...any) (*core.Result, error) {
	s.queries = append(s.queries, query)
	return &core.Result{}, nil
}

func (s *stubExecutor) RunInTransaction(ctx context.Context, fn func(tx core.Executor) error) error {
	return fn(s)
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig("embeddings")

	assert.Equal(t, "embeddings", config.Schema.TableName)
	assert.True(t, config.Schema.CreateTable)
	assert.Equal(t, core.MetricCosine, config.Metric)
	assert.Equal(t, core.IndexHNSW, config.IndexType)
	assert.Equal(t, "id", config.Schema.Columns.ID)
	assert.Equal(t, "embedding", config.Schema.Columns.Embedding)
}

func TestOpenRunsSetup(t *testing.T) {
	exec := &stubExecutor{}
	config := DefaultConfig("docs")
	config.Schema.Dimensions = 3

	db, err := Open(context.Background(), "", config, WithExecutor(exec))
	require.NoError(t, err)
	defer db.Close()

	joined := strings.Join(exec.queries, "\n")
	assert.Contains(t, joined, "CREATE EXTENSION IF NOT EXISTS vector")
	assert.Contains(t, joined, "CREATE TABLE IF NOT EXISTS docs")
	assert.Contains(t, joined, "USING hnsw")
	assert.Contains(t, joined, "USING gin")
	require.NotNil(t, db.Store())
}

func TestOpenWithoutSetup(t *testing.T) {
	exec := &stubExecutor{}
	config := DefaultConfig("docs")
	config.Schema.Dimensions = 3

	db, err := Open(context.Background(), "", config, WithExecutor(exec), WithoutSetup())
	require.NoError(t, err)
	defer db.Close()

	assert.Empty(t, exec.queries, "setup must be skipped")
}

func TestCloseBlocksOperations(t *testing.T) {
	exec := &stubExecutor{}
	config := DefaultConfig("docs")
	config.Schema.Dimensions = 3

	db, err := Open(context.Background(), "", config, WithExecutor(exec), WithoutSetup())
	require.NoError(t, err)

	require.NoError(t, db.Close())
	assert.NoError(t, db.Close(), "closing twice is a no-op")

	ctx := context.Background()
	_, err = db.Upsert(ctx, core.Record{Embedding: []float32{1, 2, 3}})
	assert.ErrorIs(t, err, core.ErrStoreClosed)
	_, err = db.Query(ctx, core.QuerySpec{Embedding: []float32{1, 2, 3}})
	assert.ErrorIs(t, err, core.ErrStoreClosed)
	_, err = db.Count(ctx, "")
	assert.ErrorIs(t, err, core.ErrStoreClosed)
	_, err = db.Delete(ctx, core.Selector{IDs: []string{"abc"}})
	assert.ErrorIs(t, err, core.ErrStoreClosed)
	assert.Empty(t, exec.queries, "no statement may reach the executor after Close")
}

func TestOpenRejectsBadConfig(t *testing.T) {
	exec := &stubExecutor{}

	// CreateTable without dimensions is a configuration error.
	_, err := Open(context.Background(), "", DefaultConfig("docs"), WithExecutor(exec))
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrInvalidSchema)
}
