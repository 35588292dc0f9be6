package core

import (
	"errors"
	"strings"
	"testing"
)

func TestRenderTemplate(t *testing.T) {
	vars := map[string]string{"tableName": "docs", "idCol": "id"}
	got := RenderTemplate("SELECT {{ idCol }} FROM {{tableName}} WHERE {{unknown}} = $1", vars)
	want := "SELECT id FROM docs WHERE {{unknown}} = $1"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestValidateTemplateEmpty(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\t"} {
		if _, err := ValidateTemplate(text); !errors.Is(err, ErrEmptyTemplate) {
			t.Errorf("ValidateTemplate(%q): got %v, want ErrEmptyTemplate", text, err)
		}
	}
}

func TestValidateTemplateDestructive(t *testing.T) {
	tests := []string{
		"SELECT 1; DROP TABLE docs",
		"SELECT 1;\n  delete from docs",
		"SELECT 1; TRUNCATE docs",
		"SELECT 1; alter table docs drop column id",
	}
	for _, text := range tests {
		if _, err := ValidateTemplate(text); !errors.Is(err, ErrDestructiveTemplate) {
			t.Errorf("ValidateTemplate(%q): got %v, want ErrDestructiveTemplate", text, err)
		}
	}

	// Destructive verbs are fine as the statement itself, only stacking is
	// blocked.
	if _, err := ValidateTemplate("DELETE FROM docs WHERE id = $1"); err != nil {
		t.Errorf("leading DELETE rejected: %v", err)
	}
}

func TestValidateTemplateWarnings(t *testing.T) {
	warnings, err := ValidateTemplate("SELECT {{mystery}} FROM docs WHERE a = $2 AND b = $4")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	joined := strings.Join(warnings, "; ")
	for _, want := range []string{"unresolved template token", "numbering starts at $2", "gap in placeholder numbering between $2 and $4"} {
		if !strings.Contains(joined, want) {
			t.Errorf("warnings %v missing %q", warnings, want)
		}
	}
}

func TestValidateTemplateClean(t *testing.T) {
	warnings, err := ValidateTemplate("SELECT id FROM docs WHERE a = $1 AND b = $2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("unexpected warnings: %v", warnings)
	}
}
