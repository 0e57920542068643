package engine

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/shaiso/Seqflow/internal/domain"
)

func TestRender(t *testing.T) {
	t.Setenv("SEQFLOW_TEST_HOME", "/home/seq")

	ctx := NewTemplateContext(map[string]string{
		"genome": "hg38",
		"mode":   "Paired",
	})

	tests := []struct {
		name     string
		template string
		expected string
	}{
		{
			name:     "plain text",
			template: "no templates here",
			expected: "no templates here",
		},
		{
			name:     "global",
			template: "/refs/{{ .Globals.genome }}.fasta",
			expected: "/refs/hg38.fasta",
		},
		{
			name:     "environment",
			template: "{{ .Env.SEQFLOW_TEST_HOME }}/data",
			expected: "/home/seq/data",
		},
		{
			name:     "lower",
			template: "{{ lower .Globals.mode }}",
			expected: "paired",
		},
		{
			name:     "default with value",
			template: `{{ default "single" .Globals.mode }}`,
			expected: "Paired",
		},
		{
			name:     "join split",
			template: `{{ join "+" (split "," "a,b,c") }}`,
			expected: "a+b+c",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Render(tt.template, ctx)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, result)
			}
		})
	}
}

func TestRender_Errors(t *testing.T) {
	ctx := NewTemplateContext(nil)

	if _, err := Render("{{ .Globals.genome", ctx); !errors.Is(err, ErrTemplateParse) {
		t.Errorf("expected ErrTemplateParse, got %v", err)
	}
	if _, err := Render("{{ .Globals.genome }}", ctx); !errors.Is(err, ErrTemplateRender) {
		t.Errorf("expected ErrTemplateRender for missing global, got %v", err)
	}
}

func TestRenderParameters(t *testing.T) {
	ctx := NewTemplateContext(map[string]string{"genome": "mm10"})

	params, err := RenderParameters(map[string]string{
		"threads": "4",
		"index":   "{{ .Globals.genome }}.idx",
	}, ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []domain.Parameter{
		{Name: "index", Value: "mm10.idx"},
		{Name: "threads", Value: "4"},
	}
	if diff := cmp.Diff(want, params); diff != "" {
		t.Errorf("parameters mismatch (-want +got):\n%s", diff)
	}
}

func TestNewStepFromSpec_RenderError(t *testing.T) {
	spec := domain.StepSpec{
		ID:         "map",
		Module:     "mapper",
		Parameters: map[string]string{"index": "{{ .Globals.missing }}"},
	}

	_, err := NewStepFromSpec(spec, NewTemplateContext(nil))
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.StepID != "map" {
		t.Fatalf("expected ValidationError for step map, got %v", err)
	}
	if !errors.Is(err, ErrTemplateRender) {
		t.Errorf("expected ErrTemplateRender, got %v", err)
	}
}
