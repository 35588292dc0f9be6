// Package executor provides query-executor collaborators for the vector
// store engine. The engine only prepares statement text and positional
// values; these adapters own drivers, pooling and transactions.
package executor

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/flexvec/flexvec/pkg/core"
)

// SQLExecutor adapts a database/sql connection pool (postgres driver) to the
// engine's Executor contract.
type SQLExecutor struct {
	db *sql.DB
}

// NewSQL wraps an existing *sql.DB.
func NewSQL(db *sql.DB) *SQLExecutor {
	return &SQLExecutor{db: db}
}

// DB exposes the underlying pool, mainly so callers can close it.
func (e *SQLExecutor) DB() *sql.DB {
	return e.db
}

// Execute runs one statement. Statements that produce rows go through the
// query path; everything else runs as an exec so the affected row count is
// available and multi-statement DDL stays on the simple protocol.
func (e *SQLExecutor) Execute(ctx context.Context, query string, args ...any) (*core.Result, error) {
	return execute(ctx, e.db, query, args...)
}

// RunInTransaction runs fn inside a transaction, committing on nil return
// and rolling back otherwise. The connection is released in every outcome.
func (e *SQLExecutor) RunInTransaction(ctx context.Context, fn func(tx core.Executor) error) error {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(&sqlTxExecutor{tx: tx}); err != nil {
		if rollErr := tx.Rollback(); rollErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rollErr)
		}
		return err
	}
	return tx.Commit()
}

// sqlTxExecutor scopes execution to one open transaction.
type sqlTxExecutor struct {
	tx *sql.Tx
}

func (e *sqlTxExecutor) Execute(ctx context.Context, query string, args ...any) (*core.Result, error) {
	return execute(ctx, e.tx, query, args...)
}

// RunInTransaction inside a transaction reuses the open transaction; the
// engine never needs savepoints.
func (e *sqlTxExecutor) RunInTransaction(ctx context.Context, fn func(tx core.Executor) error) error {
	return fn(e)
}

// queryer is the common surface of *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func execute(ctx context.Context, q queryer, query string, args ...any) (*core.Result, error) {
	args = adaptArgs(args)

	if !returnsRows(query) {
		res, err := q.ExecContext(ctx, query, args...)
		if err != nil {
			return nil, translateError(err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			affected = 0
		}
		return &core.Result{RowsAffected: affected}, nil
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translateError(err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []core.Row
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(core.Row, len(columns))
		for i, col := range columns {
			row[col] = values[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &core.Result{Rows: out, RowsAffected: int64(len(out))}, nil
}

// adaptArgs wraps slice parameters for the postgres array protocol. Byte
// slices are scalar payloads and pass through.
func adaptArgs(args []any) []any {
	out := make([]any, len(args))
	for i, arg := range args {
		switch arg.(type) {
		case []string, []int, []int32, []int64, []float32, []float64, []bool:
			out[i] = pq.Array(arg)
		default:
			out[i] = arg
		}
	}
	return out
}

// returnsRows reports whether a statement produces a result set.
func returnsRows(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	return strings.HasPrefix(q, "select") ||
		strings.HasPrefix(q, "with") ||
		strings.Contains(q, " returning ")
}
