package core

import (
	"errors"
	"testing"
)

func TestMetricMappings(t *testing.T) {
	tests := []struct {
		metric   Metric
		operator string
		opClass  string
	}{
		{MetricCosine, "<=>", "vector_cosine_ops"},
		{MetricEuclidean, "<->", "vector_l2_ops"},
		{MetricDotProduct, "<#>", "vector_ip_ops"},
	}

	for _, tt := range tests {
		op, err := tt.metric.QueryOperator()
		if err != nil {
			t.Errorf("%s: QueryOperator: %v", tt.metric, err)
		}
		if op != tt.operator {
			t.Errorf("%s: operator = %q, want %q", tt.metric, op, tt.operator)
		}

		class, err := tt.metric.IndexOperatorClass()
		if err != nil {
			t.Errorf("%s: IndexOperatorClass: %v", tt.metric, err)
		}
		if class != tt.opClass {
			t.Errorf("%s: operator class = %q, want %q", tt.metric, class, tt.opClass)
		}
	}
}

func TestMetricUnknown(t *testing.T) {
	if _, err := Metric("manhattan").QueryOperator(); !errors.Is(err, ErrUnknownMetric) {
		t.Errorf("got %v, want ErrUnknownMetric", err)
	}
	if _, err := Metric("").IndexOperatorClass(); !errors.Is(err, ErrUnknownMetric) {
		t.Errorf("got %v, want ErrUnknownMetric", err)
	}
}

func TestIndexTypeValid(t *testing.T) {
	if !IndexHNSW.valid() || !IndexIVFFlat.valid() {
		t.Error("supported index types reported invalid")
	}
	if IndexType("btree").valid() {
		t.Error("btree reported valid")
	}
}
