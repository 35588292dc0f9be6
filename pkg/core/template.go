package core

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Template is a caller-supplied parameterized statement. Named {{...}}
// tokens are substituted with schema-derived identifiers before execution;
// numbered $n placeholders stay for the executor to bind Values positionally.
// A template never mixes with generated statements: an operation either runs
// a template or a derived statement, not both.
type Template struct {
	Text   string
	Values []any
}

var (
	templateTokenPattern = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_]*)\s*\}\}`)
	placeholderPattern   = regexp.MustCompile(`\$(\d+)`)
	// Catches destructive statements stacked after a terminator. This is a
	// smuggling guard, not a SQL parser.
	destructivePattern = regexp.MustCompile(`(?is);\s*(DROP|DELETE|TRUNCATE|ALTER)\b`)
)

// TemplateVars returns the identifier substitutions available to templates.
// Only configured columns are present.
func (s *Store) TemplateVars() map[string]string {
	vars := map[string]string{
		"tableName":    s.schema.TableName,
		"idCol":        s.schema.Columns.ID,
		"embeddingCol": s.schema.Columns.Embedding,
	}
	optional := map[string]string{
		"contentCol":    s.schema.Columns.Content,
		"metadataCol":   s.schema.Columns.Metadata,
		"partitionCol":  s.schema.Columns.Partition,
		"externalIdCol": s.schema.Columns.ExternalID,
		"createdAtCol":  s.schema.Columns.CreatedAt,
		"updatedAtCol":  s.schema.Columns.UpdatedAt,
	}
	for name, col := range optional {
		if col != "" {
			vars[name] = col
		}
	}
	return vars
}

// RenderTemplate substitutes known {{name}} tokens with their identifier
// values. Unknown tokens are left in place; ValidateTemplate reports them as
// warnings since a caller may substitute them later.
func RenderTemplate(text string, vars map[string]string) string {
	return templateTokenPattern.ReplaceAllStringFunc(text, func(token string) string {
		name := templateTokenPattern.FindStringSubmatch(token)[1]
		if value, ok := vars[name]; ok {
			return value
		}
		return token
	})
}

// ValidateTemplate checks a rendered template. Style problems (unresolved
// tokens, odd placeholder numbering) come back as warnings; an empty
// template or a stacked destructive statement is an error.
func ValidateTemplate(text string) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyTemplate
	}

	if m := destructivePattern.FindStringSubmatch(text); m != nil {
		return nil, fmt.Errorf("%w: %s after statement terminator", ErrDestructiveTemplate, strings.ToUpper(m[1]))
	}

	var warnings []string
	for _, token := range templateTokenPattern.FindAllString(text, -1) {
		warnings = append(warnings, fmt.Sprintf("unresolved template token %s", token))
	}

	seen := map[int]bool{}
	for _, m := range placeholderPattern.FindAllStringSubmatch(text, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		seen[n] = true
	}
	if len(seen) > 0 {
		numbers := make([]int, 0, len(seen))
		for n := range seen {
			numbers = append(numbers, n)
		}
		sort.Ints(numbers)
		if numbers[0] != 1 {
			warnings = append(warnings, fmt.Sprintf("placeholder numbering starts at $%d, expected $1", numbers[0]))
		}
		for i := 1; i < len(numbers); i++ {
			if numbers[i] != numbers[i-1]+1 {
				warnings = append(warnings, fmt.Sprintf("gap in placeholder numbering between $%d and $%d", numbers[i-1], numbers[i]))
			}
		}
	}

	return warnings, nil
}

// RunTemplate renders, validates and executes a caller-supplied template.
// Validation warnings are logged, not fatal; errors block execution.
func (s *Store) RunTemplate(ctx context.Context, tpl Template) (*Result, error) {
	const op = "run_template"

	text := RenderTemplate(tpl.Text, s.TemplateVars())
	warnings, err := ValidateTemplate(text)
	if err != nil {
		return nil, wrapError(op, err)
	}
	for _, warning := range warnings {
		s.logger.Warn("sql template", "warning", warning)
	}

	res, err := s.exec.Execute(ctx, text, tpl.Values...)
	if err != nil {
		return nil, wrapSQLError(op, text, err)
	}
	return res, nil
}
