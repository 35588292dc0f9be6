package core

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

// Condition is one equality predicate against a physical column. A nil Value
// matches NULL, a slice Value matches membership, anything else matches
// equality.
type Condition struct {
	Column string
	Value  any
}

// Eq builds an equality condition.
func Eq(column string, value any) Condition {
	return Condition{Column: column, Value: value}
}

// In builds a membership condition over the given values.
func In[T any](column string, values []T) Condition {
	return Condition{Column: column, Value: values}
}

// IsNull builds a NULL-match condition.
func IsNull(column string) Condition {
	return Condition{Column: column, Value: nil}
}

// BuildEqualityClause renders conditions as an AND-joined clause. Parameter
// numbering starts at startIndex and is assigned monotonically so composed
// clauses never collide; the caller advances its own index by len(values).
// An empty condition list yields an empty clause and no values.
func BuildEqualityClause(conditions []Condition, startIndex int) (string, []any, error) {
	if len(conditions) == 0 {
		return "", nil, nil
	}

	parts := make([]string, 0, len(conditions))
	values := make([]any, 0, len(conditions))
	idx := startIndex

	for _, cond := range conditions {
		col, err := SanitizeIdentifier(cond.Column)
		if err != nil {
			return "", nil, err
		}
		switch {
		case cond.Value == nil:
			parts = append(parts, fmt.Sprintf("%s IS NULL", col))
		case isSlice(cond.Value):
			parts = append(parts, fmt.Sprintf("%s = ANY($%d)", col, idx))
			values = append(values, cond.Value)
			idx++
		default:
			parts = append(parts, fmt.Sprintf("%s = $%d", col, idx))
			values = append(values, cond.Value)
			idx++
		}
	}

	return strings.Join(parts, " AND "), values, nil
}

// BuildJSONContainment renders a metadata containment predicate: rows match
// when their metadata is a superset of filter. Nested objects are compared
// structurally by the jsonb @> operator, not by deep equality.
func BuildJSONContainment(column string, filter map[string]any, startIndex int) (string, []any, error) {
	if len(filter) == 0 {
		return "", nil, nil
	}

	col, err := SanitizeIdentifier(column)
	if err != nil {
		return "", nil, err
	}

	payload, err := json.Marshal(filter)
	if err != nil {
		return "", nil, fmt.Errorf("failed to marshal metadata filter: %w", err)
	}

	return fmt.Sprintf("%s @> $%d::jsonb", col, startIndex), []any{string(payload)}, nil
}

// isSlice reports whether the value binds as an array parameter. Byte slices
// are scalar payloads, not arrays.
func isSlice(value any) bool {
	if _, ok := value.([]byte); ok {
		return false
	}
	kind := reflect.ValueOf(value).Kind()
	return kind == reflect.Slice || kind == reflect.Array
}
