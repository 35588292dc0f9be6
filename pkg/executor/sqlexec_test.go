package executor

import (
	"reflect"
	"testing"

	"github.com/lib/pq"
)

func TestReturnsRows(t *testing.T) {
	tests := []struct {
		query string
		want  bool
	}{
		{"SELECT 1", true},
		{"  select id from docs", true},
		{"WITH x AS (SELECT 1) SELECT * FROM x", true},
		{"INSERT INTO docs (id) VALUES ($1) RETURNING id", true},
		{"insert into docs (id) values ($1) returning id", true},
		{"INSERT INTO docs (id) VALUES ($1)", false},
		{"DELETE FROM docs WHERE id = $1", false},
		{"CREATE TABLE IF NOT EXISTS docs (id UUID)", false},
		{"UPDATE docs SET content = $1", false},
	}
	for _, tt := range tests {
		if got := returnsRows(tt.query); got != tt.want {
			t.Errorf("returnsRows(%q) = %v, want %v", tt.query, got, tt.want)
		}
	}
}

func TestAdaptArgs(t *testing.T) {
	args := adaptArgs([]any{"scalar", []string{"a", "b"}, []byte("payload"), 7, []int64{1, 2}})

	if args[0] != "scalar" || args[3] != 7 {
		t.Errorf("scalars must pass through: %v", args)
	}
	if !reflect.DeepEqual(args[2], []byte("payload")) {
		t.Errorf("byte slices must pass through, got %T", args[2])
	}
	if _, ok := args[1].(*pq.StringArray); !ok {
		t.Errorf("string slice not wrapped, got %T", args[1])
	}
	if _, ok := args[4].(*pq.Int64Array); !ok {
		t.Errorf("int64 slice not wrapped, got %T", args[4])
	}
}
