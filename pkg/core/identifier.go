package core

import (
	"fmt"
	"regexp"
)

// identifierPattern is the full grammar for table and column names. Identifiers
// are placed syntactically in SQL text and cannot be bound as parameters, so
// this check is the sole injection gate for names.
var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SanitizeIdentifier validates a table or column name against the identifier
// grammar and returns it unchanged. Every component must route names through
// this gate before interpolating them into SQL text.
func SanitizeIdentifier(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("%w: empty name", ErrInvalidIdentifier)
	}
	if !identifierPattern.MatchString(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidIdentifier, name)
	}
	return name, nil
}
