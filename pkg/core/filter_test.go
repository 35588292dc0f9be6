package core

import (
	"errors"
	"testing"
)

func TestBuildEqualityClause(t *testing.T) {
	clause, values, err := BuildEqualityClause([]Condition{
		Eq("source", "docs"),
		In("lang", []string{"en", "de"}),
		IsNull("deleted_at"),
		Eq("rank", 3),
	}, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "source = $2 AND lang = ANY($3) AND deleted_at IS NULL AND rank = $4"
	if clause != want {
		t.Errorf("clause = %q, want %q", clause, want)
	}
	if len(values) != 3 {
		t.Fatalf("values = %v, want 3 entries", values)
	}
	if values[0] != "docs" || values[2] != 3 {
		t.Errorf("values bound out of order: %v", values)
	}
}

func TestBuildEqualityClauseEmpty(t *testing.T) {
	clause, values, err := BuildEqualityClause(nil, 1)
	if err != nil || clause != "" || values != nil {
		t.Errorf("got (%q, %v, %v), want empty result", clause, values, err)
	}
}

func TestBuildEqualityClauseBadColumn(t *testing.T) {
	_, _, err := BuildEqualityClause([]Condition{Eq("col; drop", 1)}, 1)
	if !errors.Is(err, ErrInvalidIdentifier) {
		t.Errorf("got %v, want ErrInvalidIdentifier", err)
	}
}

func TestBuildJSONContainment(t *testing.T) {
	clause, values, err := BuildJSONContainment("metadata", map[string]any{"source": "docs"}, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if clause != "metadata @> $3::jsonb" {
		t.Errorf("clause = %q", clause)
	}
	if len(values) != 1 || values[0] != `{"source":"docs"}` {
		t.Errorf("values = %v", values)
	}
}

func TestBuildJSONContainmentEmpty(t *testing.T) {
	clause, values, err := BuildJSONContainment("metadata", nil, 1)
	if err != nil || clause != "" || values != nil {
		t.Errorf("got (%q, %v, %v), want empty result", clause, values, err)
	}
}

func TestBuildJSONContainmentBadColumn(t *testing.T) {
	_, _, err := BuildJSONContainment("meta data", map[string]any{"a": 1}, 1)
	if !errors.Is(err, ErrInvalidIdentifier) {
		t.Errorf("got %v, want ErrInvalidIdentifier", err)
	}
}

func TestIsSliceByteException(t *testing.T) {
	if isSlice([]byte("payload")) {
		t.Error("byte slices must bind as scalars")
	}
	if !isSlice([]string{"a"}) {
		t.Error("string slices must bind as arrays")
	}
}
