package main

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flexvec/flexvec/pkg/core"
	"github.com/flexvec/flexvec/pkg/flexvec"
)

type stubExecutor struct {
	mu   sync.Mutex
	args [][]any
}

func (s *stubExecutor) Execute(ctx context.Context, query string, args ...any) (*core.Result, error) {
	s.mu.Lock()
	s.args = append(s.args, args)
	s.mu.Unlock()
	return &core.Result{Rows: []core.Row{{"id": "abc", "inserted": true}}, RowsAffected: 1}, nil
}

func (s *stubExecutor) RunInTransaction(ctx context.Context, fn func(tx core.Executor) error) error {
	return fn(s)
}

// The default flag values must yield a schema whose partition and external
// id commands can actually run.
func TestCLIConfigReachesPartitionCommands(t *testing.T) {
	config := cliConfig()
	require.Equal(t, "partition", config.Schema.Columns.Partition)
	require.Equal(t, "external_id", config.Schema.Columns.ExternalID)

	exec := &stubExecutor{}
	db, err := flexvec.Open(context.Background(), "", config,
		flexvec.WithExecutor(exec), flexvec.WithoutSetup())
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()

	// drop-collection path
	_, err = db.DropCollection(ctx, "kb")
	assert.NoError(t, err)

	// get/delete by external id path
	_, err = db.Get(ctx, core.GetSpec{Selector: core.Selector{
		Partition:   "kb",
		ExternalIDs: []string{"ext-1"},
	}})
	assert.NoError(t, err)

	// upsert must bind the partition value, not drop it
	_, err = db.Upsert(ctx, core.Record{
		Partition:  "kb",
		ExternalID: "ext-1",
		Embedding:  []float32{1, 2, 3},
	})
	require.NoError(t, err)
	upsertArgs := exec.args[len(exec.args)-1]
	assert.Contains(t, upsertArgs, "kb")
	assert.Contains(t, upsertArgs, "ext-1")
}

func TestCLIConfigColumnsCanBeDisabled(t *testing.T) {
	origPartition, origExternal := partitionColumn, externalIDColumn
	defer func() { partitionColumn, externalIDColumn = origPartition, origExternal }()

	partitionColumn = ""
	externalIDColumn = ""
	config := cliConfig()
	assert.Empty(t, config.Schema.Columns.Partition)
	assert.Empty(t, config.Schema.Columns.ExternalID)
}
