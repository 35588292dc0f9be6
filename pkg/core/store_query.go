package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/flexvec/flexvec/internal/encoding"
)

// DefaultTopK is used when a query does not set TopK.
const DefaultTopK = 10

// Query runs a similarity search and returns hits nearest first. Parameters
// are bound in a fixed order: query vector, partition, metadata filter, extra
// filters, limit, offset.
func (s *Store) Query(ctx context.Context, spec QuerySpec) ([]ScoredRecord, error) {
	const op = "query"

	if len(spec.Embedding) == 0 {
		return nil, wrapError(op, ErrEmptyVector)
	}

	topK := spec.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}
	offset := spec.Offset
	if offset < 0 {
		offset = 0
	}

	operator, err := s.metric.QueryOperator()
	if err != nil {
		return nil, wrapError(op, err)
	}

	vector, err := encoding.VectorLiteral(spec.Embedding)
	if err != nil {
		return nil, wrapError(op, err)
	}
	args := []any{vector}

	var where []string
	if spec.Partition != "" {
		if !s.schema.HasPartition() {
			return nil, wrapError(op, ErrNoPartitionColumn)
		}
		where = append(where, fmt.Sprintf("%s = $%d", s.schema.Columns.Partition, len(args)+1))
		args = append(args, spec.Partition)
	}
	if len(spec.MetadataFilter) > 0 {
		clause, values, err := BuildJSONContainment(s.schema.Columns.Metadata, spec.MetadataFilter, len(args)+1)
		if err != nil {
			return nil, wrapError(op, err)
		}
		where = append(where, clause)
		args = append(args, values...)
	}
	if len(spec.Filters) > 0 {
		clause, values, err := BuildEqualityClause(spec.Filters, len(args)+1)
		if err != nil {
			return nil, wrapError(op, err)
		}
		where = append(where, clause)
		args = append(args, values...)
	}

	fields := s.schema.SelectFields(spec.IncludeEmbedding)
	query := fmt.Sprintf("SELECT %s, %s %s $1::vector AS score FROM %s",
		strings.Join(fields, ", "), s.schema.Columns.Embedding, operator, s.schema.TableName)
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += fmt.Sprintf(" ORDER BY score LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, topK, offset)

	s.logger.Debug("query", "table", s.schema.TableName, "topK", topK, "offset", offset)

	res, err := s.exec.Execute(ctx, query, args...)
	if err != nil {
		return nil, wrapSQLError(op, query, err)
	}

	results := make([]ScoredRecord, 0, len(res.Rows))
	for _, row := range res.Rows {
		rec, err := s.mapRow(row, spec.IncludeEmbedding)
		if err != nil {
			return nil, wrapError(op, err)
		}
		results = append(results, ScoredRecord{Record: rec, Score: asFloat(row["score"])})
	}
	return results, nil
}

// Get reads back rows matching the selector in the database's natural order.
// A selector that matches nothing yields an empty slice, not an error.
func (s *Store) Get(ctx context.Context, spec GetSpec) ([]Record, error) {
	const op = "get"

	clause, args, err := s.selectorClause(spec.Selector, 1)
	if err != nil {
		return nil, wrapError(op, err)
	}

	fields := s.schema.SelectFields(spec.IncludeEmbedding)
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s",
		strings.Join(fields, ", "), s.schema.TableName, clause)

	res, err := s.exec.Execute(ctx, query, args...)
	if err != nil {
		return nil, wrapSQLError(op, query, err)
	}

	records := make([]Record, 0, len(res.Rows))
	for _, row := range res.Rows {
		rec, err := s.mapRow(row, spec.IncludeEmbedding)
		if err != nil {
			return nil, wrapError(op, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// Delete removes rows matching the selector and reports the affected count.
func (s *Store) Delete(ctx context.Context, sel Selector) (int64, error) {
	const op = "delete"

	clause, args, err := s.selectorClause(sel, 1)
	if err != nil {
		return 0, wrapError(op, err)
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE %s", s.schema.TableName, clause)

	res, err := s.exec.Execute(ctx, query, args...)
	if err != nil {
		return 0, wrapSQLError(op, query, err)
	}

	s.logger.Debug("delete", "table", s.schema.TableName, "deleted", res.RowsAffected)
	return res.RowsAffected, nil
}

// Count returns the number of rows, scoped to a partition when given.
func (s *Store) Count(ctx context.Context, partition string) (int64, error) {
	const op = "count"

	query := fmt.Sprintf("SELECT count(*) AS total FROM %s", s.schema.TableName)
	var args []any
	if partition != "" {
		if !s.schema.HasPartition() {
			return 0, wrapError(op, ErrNoPartitionColumn)
		}
		query += fmt.Sprintf(" WHERE %s = $1", s.schema.Columns.Partition)
		args = append(args, partition)
	}

	res, err := s.exec.Execute(ctx, query, args...)
	if err != nil {
		return 0, wrapSQLError(op, query, err)
	}
	if len(res.Rows) == 0 {
		return 0, nil
	}
	return asInt(res.Rows[0]["total"]), nil
}

// selectorClause renders the shared id-first-then-partition selector used by
// Get and Delete. Ids select by primary key regardless of partition; without
// ids both a configured partition column and a partition value are required,
// optionally narrowed by external ids and a metadata containment filter.
// A selector that would match unconditionally is rejected, never executed.
func (s *Store) selectorClause(sel Selector, startIndex int) (string, []any, error) {
	if len(sel.IDs) > 0 {
		return fmt.Sprintf("%s = ANY($%d)", s.schema.Columns.ID, startIndex), []any{sel.IDs}, nil
	}

	if !s.schema.HasPartition() || sel.Partition == "" {
		return "", nil, ErrMissingSelector
	}

	parts := []string{fmt.Sprintf("%s = $%d", s.schema.Columns.Partition, startIndex)}
	args := []any{sel.Partition}

	if len(sel.ExternalIDs) > 0 {
		if !s.schema.HasExternalID() {
			return "", nil, fmt.Errorf("%w: external id column not configured", ErrInvalidSchema)
		}
		parts = append(parts, fmt.Sprintf("%s = ANY($%d)", s.schema.Columns.ExternalID, startIndex+len(args)))
		args = append(args, sel.ExternalIDs)
	}
	if len(sel.MetadataFilter) > 0 {
		clause, values, err := BuildJSONContainment(s.schema.Columns.Metadata, sel.MetadataFilter, startIndex+len(args))
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, clause)
		args = append(args, values...)
	}

	return strings.Join(parts, " AND "), args, nil
}
