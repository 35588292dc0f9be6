package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flexvec/flexvec/pkg/core"
)

// PgxExecutor adapts a pgx connection pool to the engine's Executor
// contract. An optional statement timeout is applied per acquired
// connection and reset before the connection returns to the pool.
type PgxExecutor struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

// NewPgx wraps an existing pool.
func NewPgx(pool *pgxpool.Pool) *PgxExecutor {
	return &PgxExecutor{pool: pool}
}

// WithStatementTimeout returns a copy that sets statement_timeout for each
// statement it runs. Zero disables the timeout.
func (e *PgxExecutor) WithStatementTimeout(d time.Duration) *PgxExecutor {
	return &PgxExecutor{pool: e.pool, timeout: d}
}

// Pool exposes the underlying pool, mainly so callers can close it.
func (e *PgxExecutor) Pool() *pgxpool.Pool {
	return e.pool
}

// Execute runs one statement. Zero-argument non-row statements go through
// Exec, which uses the simple protocol and accepts multi-statement DDL.
func (e *PgxExecutor) Execute(ctx context.Context, query string, args ...any) (*core.Result, error) {
	if e.timeout <= 0 {
		return pgxExecute(ctx, e.pool, query, args...)
	}

	conn, err := e.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer func() {
		if err := resetStatementTimeout(ctx, conn); err != nil {
			// A connection still carrying the timeout must not go back to
			// the pool.
			_ = conn.Conn().Close(context.WithoutCancel(ctx))
		}
		conn.Release()
	}()

	millis := e.timeout.Milliseconds()
	if _, err := conn.Exec(ctx, fmt.Sprintf("SET statement_timeout = %d", millis)); err != nil {
		return nil, fmt.Errorf("set statement timeout: %w", err)
	}

	return pgxExecute(ctx, conn, query, args...)
}

// resetStatementTimeout clears the session timeout before a connection is
// released. It runs on a detached context: cancellation of the statement the
// timeout was set for must never skip the reset, or the timeout would leak
// into later reuses of the pooled connection.
func resetStatementTimeout(ctx context.Context, conn pgxQueryer) error {
	_, err := conn.Exec(context.WithoutCancel(ctx), "SET statement_timeout = DEFAULT")
	return err
}

// RunInTransaction runs fn inside a transaction, committing on nil return
// and rolling back otherwise.
func (e *PgxExecutor) RunInTransaction(ctx context.Context, fn func(tx core.Executor) error) error {
	return pgx.BeginFunc(ctx, e.pool, func(tx pgx.Tx) error {
		return fn(&pgxTxExecutor{tx: tx})
	})
}

// pgxTxExecutor scopes execution to one open transaction.
type pgxTxExecutor struct {
	tx pgx.Tx
}

func (e *pgxTxExecutor) Execute(ctx context.Context, query string, args ...any) (*core.Result, error) {
	return pgxExecute(ctx, e.tx, query, args...)
}

func (e *pgxTxExecutor) RunInTransaction(ctx context.Context, fn func(tx core.Executor) error) error {
	return fn(e)
}

// pgxQueryer is the common surface of pool, connection and transaction.
type pgxQueryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func pgxExecute(ctx context.Context, q pgxQueryer, query string, args ...any) (*core.Result, error) {
	if len(args) == 0 && !returnsRows(query) {
		tag, err := q.Exec(ctx, query)
		if err != nil {
			return nil, translateError(err)
		}
		return &core.Result{RowsAffected: tag.RowsAffected()}, nil
	}

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, translateError(err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	var out []core.Row
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		row := make(core.Row, len(fields))
		for i, fd := range fields {
			row[fd.Name] = values[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, translateError(err)
	}

	result := &core.Result{Rows: out, RowsAffected: rows.CommandTag().RowsAffected()}
	if result.RowsAffected == 0 {
		result.RowsAffected = int64(len(out))
	}
	return result, nil
}
