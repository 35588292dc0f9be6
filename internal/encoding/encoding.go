// Package encoding converts vectors and metadata between their Go
// representations and the text forms bound into SQL statements.
package encoding

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidVector is returned when vector data cannot be encoded or parsed
var ErrInvalidVector = errors.New("invalid vector")

// VectorLiteral encodes a float32 vector as pgvector text, e.g. "[1,0.5,0]".
// The database casts this to the native vector type via ::vector.
func VectorLiteral(vector []float32) (string, error) {
	if len(vector) == 0 {
		return "", ErrInvalidVector
	}

	var sb strings.Builder
	sb.WriteByte('[')
	for i, val := range vector {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatFloat(float64(val), 'f', -1, 32))
	}
	sb.WriteByte(']')
	return sb.String(), nil
}

// ParseVector parses a pgvector text literal back into a float32 slice.
func ParseVector(s string) ([]float32, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '[' || s[len(s)-1] != ']' {
		return nil, fmt.Errorf("%w: %q", ErrInvalidVector, s)
	}

	body := s[1 : len(s)-1]
	if strings.TrimSpace(body) == "" {
		return []float32{}, nil
	}

	parts := strings.Split(body, ",")
	vector := make([]float32, len(parts))
	for i, part := range parts {
		val, err := strconv.ParseFloat(strings.TrimSpace(part), 32)
		if err != nil {
			return nil, fmt.Errorf("%w: element %q", ErrInvalidVector, part)
		}
		vector[i] = float32(val)
	}
	return vector, nil
}

// EncodeMetadata encodes a metadata object as JSON text. A nil map encodes as
// an empty object so the jsonb column never receives NULL from this layer.
func EncodeMetadata(metadata map[string]any) (string, error) {
	if metadata == nil {
		return "{}", nil
	}
	data, err := json.Marshal(metadata)
	if err != nil {
		return "", fmt.Errorf("failed to encode metadata: %w", err)
	}
	return string(data), nil
}

// DecodeMetadata decodes a metadata value as returned by a query executor.
// Drivers disagree on the wire shape of jsonb, so all three common forms are
// accepted.
func DecodeMetadata(value any) (map[string]any, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		return v, nil
	case []byte:
		return unmarshalMetadata(v)
	case string:
		return unmarshalMetadata([]byte(v))
	default:
		return nil, fmt.Errorf("unsupported metadata type %T", value)
	}
}

func unmarshalMetadata(data []byte) (map[string]any, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var metadata map[string]any
	if err := json.Unmarshal(data, &metadata); err != nil {
		return nil, fmt.Errorf("failed to decode metadata: %w", err)
	}
	return metadata, nil
}

// DecodeVector decodes an embedding value as returned by a query executor.
func DecodeVector(value any) ([]float32, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []float32:
		return v, nil
	case []byte:
		return ParseVector(string(v))
	case string:
		return ParseVector(v)
	default:
		return nil, fmt.Errorf("%w: unsupported type %T", ErrInvalidVector, value)
	}
}
