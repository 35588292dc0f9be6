package core

import (
	"fmt"
	"math"
	"strings"
)

// MaxDimensions is the largest vector width pgvector accepts for indexing.
const MaxDimensions = 16000

// Default logical column names applied when the caller leaves them unset.
const (
	defaultIDColumn        = "id"
	defaultEmbeddingColumn = "embedding"
	defaultContentColumn   = "content"
	defaultMetadataColumn  = "metadata"
)

// ColumnMapping maps logical fields to physical column names. ID and
// Embedding are required and receive defaults; the rest are optional and a
// logical field left empty is simply not part of the schema.
type ColumnMapping struct {
	ID         string
	Embedding  string
	Content    string
	Metadata   string
	Partition  string
	ExternalID string
	CreatedAt  string
	UpdatedAt  string
}

// DefaultColumns returns the documented default mapping: id, embedding,
// content and metadata configured, everything else off.
func DefaultColumns() ColumnMapping {
	return ColumnMapping{
		ID:        defaultIDColumn,
		Embedding: defaultEmbeddingColumn,
		Content:   defaultContentColumn,
		Metadata:  defaultMetadataColumn,
	}
}

// SchemaConfig is a validated mapping from logical fields to one physical
// table. It is constructed once per store, immutable afterwards, and
// re-validated on every construction so unsanitized input never reaches SQL
// text.
type SchemaConfig struct {
	TableName          string
	Columns            ColumnMapping
	ExtraReturnColumns []string
	CreateTable        bool
	Dimensions         int
}

// NewSchemaConfig validates a caller-supplied partial configuration merged
// over defaults and returns the immutable result.
func NewSchemaConfig(partial SchemaConfig) (*SchemaConfig, error) {
	cfg := partial

	if cfg.Columns.ID == "" {
		cfg.Columns.ID = defaultIDColumn
	}
	if cfg.Columns.Embedding == "" {
		cfg.Columns.Embedding = defaultEmbeddingColumn
	}

	if _, err := SanitizeIdentifier(cfg.TableName); err != nil {
		return nil, fmt.Errorf("%w: table name: %v", ErrInvalidSchema, err)
	}
	for _, col := range []struct {
		logical string
		name    string
	}{
		{"id", cfg.Columns.ID},
		{"embedding", cfg.Columns.Embedding},
		{"content", cfg.Columns.Content},
		{"metadata", cfg.Columns.Metadata},
		{"partition", cfg.Columns.Partition},
		{"externalId", cfg.Columns.ExternalID},
		{"createdAt", cfg.Columns.CreatedAt},
		{"updatedAt", cfg.Columns.UpdatedAt},
	} {
		if col.name == "" {
			continue
		}
		if _, err := SanitizeIdentifier(col.name); err != nil {
			return nil, fmt.Errorf("%w: column %s: %v", ErrInvalidSchema, col.logical, err)
		}
	}
	for _, extra := range cfg.ExtraReturnColumns {
		if _, err := SanitizeIdentifier(extra); err != nil {
			return nil, fmt.Errorf("%w: extra return column: %v", ErrInvalidSchema, err)
		}
	}

	if cfg.Dimensions != 0 {
		if err := ValidateDimensions(float64(cfg.Dimensions)); err != nil {
			return nil, err
		}
	}
	if cfg.CreateTable && cfg.Dimensions == 0 {
		return nil, fmt.Errorf("%w: createTable requires dimensions", ErrInvalidSchema)
	}

	return &cfg, nil
}

// ValidateDimensions checks a dimension setting. It accepts a float so
// configuration deserialized from JSON can be validated before truncation.
func ValidateDimensions(d float64) error {
	if math.Floor(d) != d {
		return fmt.Errorf("%w: must be an integer, got %v", ErrInvalidDimensions, d)
	}
	if d <= 0 {
		return fmt.Errorf("%w: must be positive, got %v", ErrInvalidDimensions, d)
	}
	if d > MaxDimensions {
		return fmt.Errorf("%w: too large, got %v (max %d)", ErrInvalidDimensions, d, MaxDimensions)
	}
	return nil
}

// HasPartition reports whether a partition column is configured.
func (c *SchemaConfig) HasPartition() bool { return c.Columns.Partition != "" }

// HasExternalID reports whether an external id column is configured.
func (c *SchemaConfig) HasExternalID() bool { return c.Columns.ExternalID != "" }

// hasExternalKey reports whether upserts can be keyed by (partition, externalId).
func (c *SchemaConfig) hasExternalKey() bool { return c.HasPartition() && c.HasExternalID() }

// SelectFields returns the ordered column list every read uses. The order is
// fixed — id, externalId, partition, content, metadata, embedding, extras —
// because row mapping assumes it.
func (c *SchemaConfig) SelectFields(includeEmbedding bool) []string {
	fields := []string{c.Columns.ID}
	if c.Columns.ExternalID != "" {
		fields = append(fields, c.Columns.ExternalID)
	}
	if c.Columns.Partition != "" {
		fields = append(fields, c.Columns.Partition)
	}
	if c.Columns.Content != "" {
		fields = append(fields, c.Columns.Content)
	}
	if c.Columns.Metadata != "" {
		fields = append(fields, c.Columns.Metadata)
	}
	if includeEmbedding {
		fields = append(fields, c.Columns.Embedding)
	}
	fields = append(fields, c.ExtraReturnColumns...)
	return fields
}

// CreateTableSQL derives the DDL for the configured table. Optional column
// clauses appear only for configured logical fields; the clause order is
// fixed regardless of which are present. When both partition and externalId
// are configured a partial unique index enforcing (partition, externalId)
// uniqueness is appended as a second statement.
func (c *SchemaConfig) CreateTableSQL() string {
	cols := []string{
		fmt.Sprintf("%s UUID PRIMARY KEY DEFAULT uuid_generate_v4()", c.Columns.ID),
	}
	if c.Columns.Partition != "" {
		cols = append(cols, fmt.Sprintf("%s TEXT NOT NULL", c.Columns.Partition))
	}
	if c.Columns.ExternalID != "" {
		cols = append(cols, fmt.Sprintf("%s TEXT", c.Columns.ExternalID))
	}
	if c.Columns.Content != "" {
		cols = append(cols, fmt.Sprintf("%s TEXT", c.Columns.Content))
	}
	if c.Columns.Metadata != "" {
		cols = append(cols, fmt.Sprintf("%s JSONB NOT NULL DEFAULT '{}'", c.Columns.Metadata))
	}
	cols = append(cols, fmt.Sprintf("%s VECTOR(%d) NOT NULL", c.Columns.Embedding, c.Dimensions))
	if c.Columns.CreatedAt != "" {
		cols = append(cols, fmt.Sprintf("%s TIMESTAMPTZ DEFAULT now()", c.Columns.CreatedAt))
	}
	if c.Columns.UpdatedAt != "" {
		cols = append(cols, fmt.Sprintf("%s TIMESTAMPTZ DEFAULT now()", c.Columns.UpdatedAt))
	}

	ddl := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s\n);",
		c.TableName, strings.Join(cols, ",\n  "))

	if c.hasExternalKey() {
		ddl += fmt.Sprintf(
			"\nCREATE UNIQUE INDEX IF NOT EXISTS %s_%s_%s_key ON %s (%s, %s) WHERE %s IS NOT NULL;",
			c.TableName, c.Columns.Partition, c.Columns.ExternalID,
			c.TableName, c.Columns.Partition, c.Columns.ExternalID,
			c.Columns.ExternalID)
	}
	return ddl
}
