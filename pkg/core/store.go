package core

import (
	"context"
	"fmt"

	"github.com/flexvec/flexvec/internal/encoding"
)

// Row is one result row keyed by physical column name.
type Row map[string]any

// Result is the executor's answer to one statement.
type Result struct {
	Rows         []Row
	RowsAffected int64
}

// Executor runs SQL on behalf of the store. It owns the connection pool,
// concurrency limits and any per-statement timeout; the store only prepares
// statement text and positional values. Implementations live in pkg/executor.
type Executor interface {
	// Execute runs one statement with positional parameters.
	Execute(ctx context.Context, query string, args ...any) (*Result, error)
	// RunInTransaction runs fn inside a transaction: commit on nil return,
	// rollback otherwise. The transactional executor is only valid inside fn.
	RunInTransaction(ctx context.Context, fn func(tx Executor) error) error
}

// DefaultBatchSize bounds how many upserts run concurrently per batch chunk.
const DefaultBatchSize = 100

// Config configures a Store.
type Config struct {
	Schema    SchemaConfig
	Metric    Metric
	BatchSize int // chunk size for UpsertBatch, default 100
	Logger    Logger
}

// DefaultConfig returns a configuration for the given table with the default
// column mapping and cosine distance.
func DefaultConfig(table string) Config {
	return Config{
		Schema: SchemaConfig{
			TableName: table,
			Columns:   DefaultColumns(),
		},
		Metric:    MetricCosine,
		BatchSize: DefaultBatchSize,
	}
}

// Store is the flexible-schema vector store engine. It is stateless aside
// from the immutable schema captured at construction; every operation builds
// a statement from the schema and hands it to the executor.
type Store struct {
	exec      Executor
	schema    *SchemaConfig
	metric    Metric
	batchSize int
	logger    Logger

	// effective dimensions, recorded by EnsureTable for externally managed
	// tables so vector length context is available in diagnostics
	dimensions int
}

// New validates the configuration and returns a store bound to the executor.
func New(exec Executor, cfg Config) (*Store, error) {
	if exec == nil {
		return nil, wrapError("init", fmt.Errorf("executor is required"))
	}

	schema, err := NewSchemaConfig(cfg.Schema)
	if err != nil {
		return nil, wrapError("init", err)
	}

	metric := cfg.Metric
	if metric == "" {
		metric = MetricCosine
	}
	if _, err := metric.QueryOperator(); err != nil {
		return nil, wrapError("init", err)
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	logger := cfg.Logger
	if logger == nil {
		logger = NopLogger()
	}

	return &Store{
		exec:       exec,
		schema:     schema,
		metric:     metric,
		batchSize:  batchSize,
		logger:     logger,
		dimensions: schema.Dimensions,
	}, nil
}

// Schema returns the validated schema configuration.
func (s *Store) Schema() *SchemaConfig {
	return s.schema
}

// Metric returns the configured distance metric.
func (s *Store) Metric() Metric {
	return s.metric
}

// Record is one stored embedding row in logical form. No database-driver
// types appear here.
type Record struct {
	ID         string         `json:"id"`
	Partition  string         `json:"partition,omitempty"`
	ExternalID string         `json:"externalId,omitempty"`
	Content    string         `json:"content,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Embedding  []float32      `json:"embedding,omitempty"`
	Extra      map[string]any `json:"extra,omitempty"` // values of ExtraReturnColumns, when configured
}

// UpsertResult reports the identity of the written row and which branch of
// the conflict target ran.
type UpsertResult struct {
	ID         string `json:"id"`
	ExternalID string `json:"externalId,omitempty"`
	Partition  string `json:"partition,omitempty"`
	WasInsert  bool   `json:"wasInsert"`
}

// ScoredRecord is a query hit. Score is the raw distance from the configured
// metric's operator: lower is more similar for all three metrics. Converting
// to a similarity (e.g. 1 - score for cosine) is the caller's concern.
type ScoredRecord struct {
	Record
	Score float64 `json:"score"`
}

// QuerySpec describes one similarity search.
type QuerySpec struct {
	Embedding        []float32
	TopK             int // default 10
	Offset           int
	Partition        string
	MetadataFilter   map[string]any
	Filters          []Condition
	IncludeEmbedding bool
}

// Selector picks rows for Get and Delete. IDs win over everything else: ids
// are globally unique, so id selection ignores the partition. Without ids a
// configured partition column plus a partition value is required.
type Selector struct {
	IDs            []string
	ExternalIDs    []string
	Partition      string
	MetadataFilter map[string]any
}

// GetSpec describes one read-back.
type GetSpec struct {
	Selector
	IncludeEmbedding bool
}

// mapRow reshapes one executor row into a Record using the schema's column
// mapping. Missing optional columns map to zero values, never errors.
func (s *Store) mapRow(row Row, includeEmbedding bool) (Record, error) {
	rec := Record{
		ID: asString(row[s.schema.Columns.ID]),
	}
	if col := s.schema.Columns.ExternalID; col != "" {
		rec.ExternalID = asString(row[col])
	}
	if col := s.schema.Columns.Partition; col != "" {
		rec.Partition = asString(row[col])
	}
	if col := s.schema.Columns.Content; col != "" {
		rec.Content = asString(row[col])
	}
	if col := s.schema.Columns.Metadata; col != "" {
		metadata, err := encoding.DecodeMetadata(row[col])
		if err != nil {
			return rec, err
		}
		rec.Metadata = metadata
	}
	if includeEmbedding {
		vector, err := encoding.DecodeVector(row[s.schema.Columns.Embedding])
		if err != nil {
			return rec, err
		}
		rec.Embedding = vector
	}
	if len(s.schema.ExtraReturnColumns) > 0 {
		rec.Extra = make(map[string]any, len(s.schema.ExtraReturnColumns))
		for _, col := range s.schema.ExtraReturnColumns {
			if v, ok := row[col]; ok {
				rec.Extra[col] = v
			}
		}
	}
	return rec, nil
}

// asString renders a driver value as a string without caring which concrete
// type the executor produced.
func asString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

// asFloat renders a driver numeric value as float64.
func asFloat(value any) float64 {
	switch v := value.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int64:
		return float64(v)
	case int:
		return float64(v)
	default:
		return 0
	}
}

// asBool renders a driver boolean value.
func asBool(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		return v == "t" || v == "true"
	case []byte:
		return len(v) > 0 && (v[0] == 't' || v[0] == '1')
	default:
		return false
	}
}

// asInt renders a driver numeric value as int64.
func asInt(value any) int64 {
	switch v := value.(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case float64:
		return int64(v)
	default:
		return 0
	}
}
