package engine

import (
	"strings"
	"testing"

	"github.com/shaiso/Seqflow/internal/domain"
)

func TestToDOT(t *testing.T) {
	spec := &domain.WorkflowSpec{
		Name: "rnaseq",
		Steps: []domain.StepSpec{
			{ID: "map", Module: "mapper"},
			{ID: "count", Module: "counter"},
		},
		Design: readsDesign("/data/s1.fq"),
	}

	w, err := buildWorkflow(t, spec, mapperModules(), Settings{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	dot := ToDOT(w)

	for _, want := range []string{
		`digraph "rnaseq" {`,
		`label="map\n(mapper)"`,
		`[label="reads"]`,
		`[label="mapping"]`,
		`[color=green]`,
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT output should contain %q:\n%s", want, dot)
		}
	}

	for _, hidden := range []string{`"checker"`, `"first"`} {
		if strings.Contains(dot, hidden) {
			t.Errorf("DOT output should not contain %s:\n%s", hidden, dot)
		}
	}
}
