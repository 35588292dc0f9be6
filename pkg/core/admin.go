package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ivfflatLists is the list count for IVFFlat indexes.
const ivfflatLists = 100

// EnsureExtension enables the vector and uuid generation extensions. Safe to
// call repeatedly.
func (s *Store) EnsureExtension(ctx context.Context) error {
	const op = "ensure_extension"

	for _, stmt := range []string{
		"CREATE EXTENSION IF NOT EXISTS vector",
		`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`,
	} {
		if _, err := s.exec.Execute(ctx, stmt); err != nil {
			return wrapSQLError(op, stmt, err)
		}
	}
	return nil
}

// EnsureTable creates the configured table if the schema owns it. A non-nil
// dimensions argument overrides the configured default; nil means "unset",
// while an explicit 0 is invalid (nullish, not falsy, coalescing). For
// externally managed tables (CreateTable=false) only validation and
// dimension recording happen, no DDL.
func (s *Store) EnsureTable(ctx context.Context, dimensions *int) error {
	const op = "ensure_table"

	dims := s.schema.Dimensions
	if dimensions != nil {
		dims = *dimensions
	}
	if err := ValidateDimensions(float64(dims)); err != nil {
		return wrapError(op, err)
	}
	s.dimensions = dims

	if !s.schema.CreateTable {
		return nil
	}

	schema := *s.schema
	schema.Dimensions = dims
	ddl := schema.CreateTableSQL()
	s.logger.Info("ensuring table", "table", s.schema.TableName, "dimensions", dims)
	if _, err := s.exec.Execute(ctx, ddl); err != nil {
		return wrapSQLError(op, ddl, err)
	}

	if s.schema.Columns.UpdatedAt != "" {
		if err := s.installUpdateTrigger(ctx); err != nil {
			return wrapError(op, err)
		}
	}
	return nil
}

// installUpdateTrigger (re)installs a BEFORE UPDATE trigger touching the
// updatedAt column. Names derive from table and column, so repeated calls
// replace rather than accumulate.
func (s *Store) installUpdateTrigger(ctx context.Context) error {
	table := s.schema.TableName
	col := s.schema.Columns.UpdatedAt
	name := fmt.Sprintf("%s_%s_touch", table, col)

	stmts := []string{
		fmt.Sprintf(`CREATE OR REPLACE FUNCTION %s_fn() RETURNS trigger AS $$
BEGIN
  NEW.%s = now();
  RETURN NEW;
END;
$$ LANGUAGE plpgsql`, name, col),
		fmt.Sprintf("DROP TRIGGER IF EXISTS %s ON %s", name, table),
		fmt.Sprintf("CREATE TRIGGER %s BEFORE UPDATE ON %s FOR EACH ROW EXECUTE FUNCTION %s_fn()", name, table, name),
	}
	for _, stmt := range stmts {
		if _, err := s.exec.Execute(ctx, stmt); err != nil {
			return wrapSQLError("install_trigger", stmt, err)
		}
	}
	return nil
}

// EnsureIndex creates the similarity index for the given partition, index
// type and metric if it does not already exist. The existence check and the
// create are not one transaction; a benign race under concurrent first-time
// callers is tolerated by treating duplicate-index errors as success.
func (s *Store) EnsureIndex(ctx context.Context, partition string, indexType IndexType, metric Metric) error {
	const op = "ensure_index"

	if !indexType.valid() {
		return wrapError(op, fmt.Errorf("unsupported index type %q", string(indexType)))
	}
	opClass, err := metric.IndexOperatorClass()
	if err != nil {
		return wrapError(op, err)
	}

	name := s.indexName(partition, string(indexType))
	exists, err := s.indexExists(ctx, name)
	if err != nil {
		return wrapError(op, err)
	}
	if exists {
		return nil
	}

	stmt := fmt.Sprintf("CREATE INDEX %s ON %s USING %s (%s %s)",
		name, s.schema.TableName, indexType, s.schema.Columns.Embedding, opClass)
	if indexType == IndexIVFFlat {
		stmt += fmt.Sprintf(" WITH (lists = %d)", ivfflatLists)
	}
	if partition != "" && s.schema.HasPartition() {
		// Partial index per partition keeps each collection's index small and
		// independent. The value is a literal; DDL cannot bind parameters.
		stmt += fmt.Sprintf(" WHERE %s = '%s'", s.schema.Columns.Partition, escapeLiteral(partition))
	}

	s.logger.Info("creating index", "index", name, "type", indexType, "metric", metric)
	if _, err := s.exec.Execute(ctx, stmt); err != nil {
		if isDuplicateObject(err) {
			s.logger.Warn("index created concurrently", "index", name)
			return nil
		}
		return wrapSQLError(op, stmt, err)
	}
	return nil
}

// EnsureMetadataIndex creates a GIN index over the metadata column. No-op
// when no metadata column is configured.
func (s *Store) EnsureMetadataIndex(ctx context.Context) error {
	const op = "ensure_metadata_index"

	if s.schema.Columns.Metadata == "" {
		return nil
	}

	name := fmt.Sprintf("%s_%s_gin_idx", s.schema.TableName, s.schema.Columns.Metadata)
	exists, err := s.indexExists(ctx, name)
	if err != nil {
		return wrapError(op, err)
	}
	if exists {
		return nil
	}

	stmt := fmt.Sprintf("CREATE INDEX %s ON %s USING gin (%s)",
		name, s.schema.TableName, s.schema.Columns.Metadata)
	if _, err := s.exec.Execute(ctx, stmt); err != nil {
		if isDuplicateObject(err) {
			return nil
		}
		return wrapSQLError(op, stmt, err)
	}
	return nil
}

// DropCollection deletes every row in the given partition and reports the
// count. The table, its other partitions and its indexes are untouched.
func (s *Store) DropCollection(ctx context.Context, partition string) (int64, error) {
	const op = "drop_collection"

	if !s.schema.HasPartition() {
		return 0, wrapError(op, ErrNoPartitionColumn)
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE %s = $1",
		s.schema.TableName, s.schema.Columns.Partition)
	res, err := s.exec.Execute(ctx, query, partition)
	if err != nil {
		return 0, wrapSQLError(op, query, err)
	}

	s.logger.Info("dropped collection", "partition", partition, "deleted", res.RowsAffected)
	return res.RowsAffected, nil
}

// indexExists checks the catalog for an index by name.
func (s *Store) indexExists(ctx context.Context, name string) (bool, error) {
	res, err := s.exec.Execute(ctx, "SELECT 1 FROM pg_indexes WHERE indexname = $1", name)
	if err != nil {
		return false, err
	}
	return len(res.Rows) > 0, nil
}

// indexName derives a deterministic index name from the table, partition
// value and index type.
func (s *Store) indexName(partition, indexType string) string {
	if partition == "" {
		return fmt.Sprintf("%s_%s_idx", s.schema.TableName, indexType)
	}
	return fmt.Sprintf("%s_%s_%s_idx", s.schema.TableName, sanitizeToken(partition), indexType)
}

// sanitizeToken folds an arbitrary partition value into identifier-safe form
// for use inside a derived name.
func sanitizeToken(value string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(value) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			sb.WriteRune(r)
		default:
			sb.WriteByte('_')
		}
	}
	return sb.String()
}

// escapeLiteral doubles single quotes for embedding a value in DDL text.
func escapeLiteral(value string) string {
	return strings.ReplaceAll(value, "'", "''")
}

// isDuplicateObject reports whether a DDL error means the object already
// exists, which idempotent ensure operations treat as success. Executors
// translate driver duplicate SQLSTATEs onto ErrDuplicateObject; the message
// check remains as a fallback for executors that pass driver errors through.
func isDuplicateObject(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrDuplicateObject) {
		return true
	}
	return strings.Contains(err.Error(), "already exists")
}
