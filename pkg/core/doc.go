// Package core provides the flexible-schema vector store engine for flexvec.
//
// It implements vector storage on Postgres with the pgvector extension. The
// table and column layout is configurable: logical fields (id, embedding,
// content, metadata, partition, external id) map to caller-chosen physical
// columns, validated against a strict identifier rule so every generated
// statement is safe to splice.
//
// # Key Components
//
//   - Store: The main entry point for data operations, stateless aside from the schema captured at construction.
//   - Executor Interface: Runs statements on behalf of the store; concrete adapters live in pkg/executor.
//   - SchemaConfig: Validated logical-to-physical column mapping with dimension checks.
//   - Metric: Maps cosine, euclidean and dotproduct to pgvector operators and index operator classes.
//   - Filters: Parameterized equality, IN, NULL and JSONB containment clause builders.
//   - Templates: A guarded escape hatch for caller-supplied SQL with identifier substitution.
//
// # Observability
//
// The engine supports pluggable structured logging through the Logger interface.
package core
