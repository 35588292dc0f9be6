package core

import "fmt"

// Metric identifies a similarity measure for querying and indexing.
type Metric string

const (
	// MetricCosine orders results by cosine distance
	MetricCosine Metric = "cosine"
	// MetricEuclidean orders results by L2 distance
	MetricEuclidean Metric = "euclidean"
	// MetricDotProduct orders results by negative inner product
	MetricDotProduct Metric = "dotproduct"
)

// QueryOperator returns the pgvector distance operator used in ORDER BY and
// score expressions. Lower is more similar for all three operators.
func (m Metric) QueryOperator() (string, error) {
	switch m {
	case MetricCosine:
		return "<=>", nil
	case MetricEuclidean:
		return "<->", nil
	case MetricDotProduct:
		return "<#>", nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMetric, string(m))
	}
}

// IndexOperatorClass returns the operator class a similarity index must be
// built with so that it accelerates queries using QueryOperator. The two
// mappings stay in lock-step: an index built for one metric does nothing for
// a query issued with another.
func (m Metric) IndexOperatorClass() (string, error) {
	switch m {
	case MetricCosine:
		return "vector_cosine_ops", nil
	case MetricEuclidean:
		return "vector_l2_ops", nil
	case MetricDotProduct:
		return "vector_ip_ops", nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMetric, string(m))
	}
}

// IndexType selects the similarity index algorithm.
type IndexType string

const (
	// IndexHNSW builds a hierarchical navigable small world index
	IndexHNSW IndexType = "hnsw"
	// IndexIVFFlat builds an inverted file index with flat lists
	IndexIVFFlat IndexType = "ivfflat"
)

// valid reports whether the index type is one of the supported algorithms.
func (t IndexType) valid() bool {
	return t == IndexHNSW || t == IndexIVFFlat
}
