package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/flexvec/flexvec/internal/encoding"
)

// Upsert inserts or updates one record. The conflict target is chosen by
// which identifying fields are present: an explicit id conflicts on the
// primary key; otherwise an external id, when both partition and externalId
// columns are configured, conflicts on the (partition, externalId) key; with
// neither the statement is a plain insert.
func (s *Store) Upsert(ctx context.Context, rec Record) (UpsertResult, error) {
	const op = "upsert"

	if len(rec.Embedding) == 0 {
		return UpsertResult{}, wrapError(op, ErrEmptyVector)
	}

	byID := rec.ID != ""
	byExternal := !byID && rec.ExternalID != "" && s.schema.hasExternalKey()

	id := rec.ID
	if id == "" {
		id = uuid.NewString()
	}

	// Column and value lists are built in lock-step: one placeholder and one
	// bound value per included column, in the same order.
	var (
		cols         []string
		placeholders []string
		args         []any
	)
	add := func(col, cast string, value any) {
		cols = append(cols, col)
		placeholders = append(placeholders, fmt.Sprintf("$%d%s", len(args)+1, cast))
		args = append(args, value)
	}

	add(s.schema.Columns.ID, "", id)
	if s.schema.HasPartition() {
		add(s.schema.Columns.Partition, "", rec.Partition)
	}
	if s.schema.HasExternalID() {
		if rec.ExternalID != "" {
			add(s.schema.Columns.ExternalID, "", rec.ExternalID)
		} else {
			add(s.schema.Columns.ExternalID, "", nil)
		}
	}
	if s.schema.Columns.Content != "" {
		add(s.schema.Columns.Content, "", rec.Content)
	}
	if s.schema.Columns.Metadata != "" {
		metadata, err := encoding.EncodeMetadata(rec.Metadata)
		if err != nil {
			return UpsertResult{}, wrapError(op, err)
		}
		add(s.schema.Columns.Metadata, "::jsonb", metadata)
	}
	vector, err := encoding.VectorLiteral(rec.Embedding)
	if err != nil {
		return UpsertResult{}, wrapError(op, err)
	}
	add(s.schema.Columns.Embedding, "::vector", vector)

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		s.schema.TableName, strings.Join(cols, ", "), strings.Join(placeholders, ", "))

	switch {
	case byID:
		query += fmt.Sprintf(" ON CONFLICT (%s) DO UPDATE SET %s",
			s.schema.Columns.ID, s.updateAssignments(cols))
	case byExternal:
		// The conflict target names the partial unique key, so the WHERE
		// predicate must match the index predicate.
		query += fmt.Sprintf(" ON CONFLICT (%s, %s) WHERE %s IS NOT NULL DO UPDATE SET %s",
			s.schema.Columns.Partition, s.schema.Columns.ExternalID,
			s.schema.Columns.ExternalID, s.updateAssignments(cols))
	}

	returning := []string{s.schema.Columns.ID}
	if s.schema.HasExternalID() {
		returning = append(returning, s.schema.Columns.ExternalID)
	}
	if s.schema.HasPartition() {
		returning = append(returning, s.schema.Columns.Partition)
	}
	if byID || byExternal {
		// xmax = 0 distinguishes the insert branch from the update branch of
		// the same conflict target.
		returning = append(returning, "(xmax = 0) AS inserted")
	}
	query += " RETURNING " + strings.Join(returning, ", ")

	s.logger.Debug("upsert", "table", s.schema.TableName, "byID", byID, "byExternal", byExternal)

	res, err := s.exec.Execute(ctx, query, args...)
	if err != nil {
		return UpsertResult{}, wrapSQLError(op, query, err)
	}
	if len(res.Rows) == 0 {
		return UpsertResult{}, wrapError(op, fmt.Errorf("no row returned"))
	}

	row := res.Rows[0]
	out := UpsertResult{
		ID:        asString(row[s.schema.Columns.ID]),
		WasInsert: true,
	}
	if s.schema.HasExternalID() {
		out.ExternalID = asString(row[s.schema.Columns.ExternalID])
	}
	if s.schema.HasPartition() {
		out.Partition = asString(row[s.schema.Columns.Partition])
	}
	if byID || byExternal {
		out.WasInsert = asBool(row["inserted"])
	}
	return out, nil
}

// updateAssignments renders the DO UPDATE SET list: every inserted column
// except the primary key takes its EXCLUDED value, and updatedAt is touched
// when configured.
func (s *Store) updateAssignments(cols []string) string {
	assignments := make([]string, 0, len(cols))
	for _, col := range cols {
		if col == s.schema.Columns.ID {
			continue
		}
		assignments = append(assignments, fmt.Sprintf("%s = EXCLUDED.%s", col, col))
	}
	if s.schema.Columns.UpdatedAt != "" {
		assignments = append(assignments, fmt.Sprintf("%s = now()", s.schema.Columns.UpdatedAt))
	}
	return strings.Join(assignments, ", ")
}

// UpsertBatch upserts records in fixed-size chunks. All items of a chunk are
// issued concurrently and awaited before the next chunk starts, bounding
// in-flight statements at the chunk size. Results match input order
// regardless of completion order.
func (s *Store) UpsertBatch(ctx context.Context, records []Record) ([]UpsertResult, error) {
	if len(records) == 0 {
		return nil, nil
	}

	results := make([]UpsertResult, len(records))
	for start := 0; start < len(records); start += s.batchSize {
		end := start + s.batchSize
		if end > len(records) {
			end = len(records)
		}

		g, gctx := errgroup.WithContext(ctx)
		for i := start; i < end; i++ {
			i := i
			g.Go(func() error {
				res, err := s.Upsert(gctx, records[i])
				if err != nil {
					return fmt.Errorf("record %d: %w", i, err)
				}
				results[i] = res
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, wrapError("upsert_batch", err)
		}
	}

	s.logger.Debug("batch upsert completed", "count", len(records))
	return results, nil
}
