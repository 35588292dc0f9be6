package executor

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"github.com/flexvec/flexvec/pkg/core"
)

// SQLSTATE codes for DDL collisions with existing objects.
const (
	codeDuplicateTable  = "42P07"
	codeDuplicateObject = "42710"
)

// translateError maps driver error codes onto the engine's sentinels so the
// store can react without importing driver packages. Only SQLSTATE is
// inspected; message text depends on the server's locale.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if pqErr.Code == codeDuplicateTable || pqErr.Code == codeDuplicateObject {
			return fmt.Errorf("%w: %v", core.ErrDuplicateObject, err)
		}
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == codeDuplicateTable || pgErr.Code == codeDuplicateObject {
			return fmt.Errorf("%w: %v", core.ErrDuplicateObject, err)
		}
	}
	return err
}
