package core

import (
	"errors"
	"fmt"
)

// Common errors
var (
	// ErrInvalidIdentifier is returned when a table or column name fails the
	// identifier grammar check
	ErrInvalidIdentifier = errors.New("invalid identifier")

	// ErrInvalidSchema is returned when a schema configuration is invalid
	ErrInvalidSchema = errors.New("invalid schema configuration")

	// ErrInvalidDimensions is returned when the vector dimension setting is invalid
	ErrInvalidDimensions = errors.New("invalid dimensions")

	// ErrMissingSelector is returned when a get or delete call has neither ids
	// nor a partition selector
	ErrMissingSelector = errors.New("missing id or partition selector")

	// ErrUnknownMetric is returned for a distance metric outside the supported set
	ErrUnknownMetric = errors.New("unknown distance metric")

	// ErrNoPartitionColumn is returned when a partition-scoped operation runs
	// against a schema without a partition column
	ErrNoPartitionColumn = errors.New("no partition column configured")

	// ErrEmptyTemplate is returned when a SQL template is empty
	ErrEmptyTemplate = errors.New("empty sql template")

	// ErrDestructiveTemplate is returned when a SQL template stacks a
	// destructive statement after a semicolon
	ErrDestructiveTemplate = errors.New("destructive statement in sql template")

	// ErrEmptyVector is returned when a query or upsert vector is empty
	ErrEmptyVector = errors.New("empty embedding vector")

	// ErrDuplicateObject reports a DDL collision with an object that already
	// exists; idempotent ensure operations treat it as success. Executors
	// translate driver duplicate codes onto this sentinel
	ErrDuplicateObject = errors.New("object already exists")

	// ErrStoreClosed is returned for operations issued after Close
	ErrStoreClosed = errors.New("store is closed")
)

// StoreError wraps errors with operation context
type StoreError struct {
	Op  string // Operation name
	SQL string // Truncated statement text, when a statement was involved
	Err error  // Underlying error
}

// Error implements the error interface
func (e *StoreError) Error() string {
	switch {
	case e.Op == "":
		return fmt.Sprintf("vectorstore: %v", e.Err)
	case e.SQL != "":
		return fmt.Sprintf("vectorstore: %s: %v (sql: %s)", e.Op, e.Err, e.SQL)
	default:
		return fmt.Sprintf("vectorstore: %s: %v", e.Op, e.Err)
	}
}

// Unwrap returns the underlying error
func (e *StoreError) Unwrap() error {
	return e.Err
}

// Is checks if the error matches the target
func (e *StoreError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// wrapError wraps an error with operation context
func wrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}

// maxSQLContext bounds how much statement text a wrapped driver error carries.
const maxSQLContext = 120

// wrapSQLError wraps a driver error with the operation name and a truncated
// copy of the statement that failed. Driver errors are never retried here;
// the caller owns retry policy.
func wrapSQLError(op, query string, err error) error {
	if err == nil {
		return nil
	}
	if len(query) > maxSQLContext {
		query = query[:maxSQLContext] + "..."
	}
	return &StoreError{Op: op, SQL: query, Err: err}
}
