package engine

import (
	"errors"
	"testing"

	"github.com/shaiso/Seqflow/internal/domain"
)

func standardStep(id string) *Step {
	return NewStep(StepOptions{ID: id, Type: domain.StepTypeStandard})
}

func TestWorkflow_AddStep(t *testing.T) {
	tests := []struct {
		name    string
		setup   []*Step
		pos     int
		step    *Step
		wantErr error
	}{
		{
			name:    "nil step",
			pos:     -1,
			step:    nil,
			wantErr: ErrNilStep,
		},
		{
			name:    "empty id",
			pos:     -1,
			step:    standardStep(""),
			wantErr: ErrEmptyStepID,
		},
		{
			name:    "duplicate id",
			setup:   []*Step{standardStep("map")},
			pos:     -1,
			step:    standardStep("map"),
			wantErr: ErrDuplicateStepID,
		},
		{
			name:    "reserved id",
			pos:     -1,
			step:    standardStep("CHECKER"),
			wantErr: ErrReservedStepID,
		},
		{
			name:    "reserved generator id",
			pos:     -1,
			step:    NewStep(StepOptions{ID: "ROOT", Type: domain.StepTypeGenerator}),
			wantErr: ErrReservedStepID,
		},
		{
			name:    "position out of range",
			pos:     3,
			step:    standardStep("map"),
			wantErr: ErrStepPosition,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewWorkflow(Config{Logger: testLogger()})
			for _, s := range tt.setup {
				if err := w.AddStep(-1, s); err != nil {
					t.Fatalf("setup: %v", err)
				}
			}

			err := w.AddStep(tt.pos, tt.step)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestWorkflow_GeneratorsMayShareID(t *testing.T) {
	w := NewWorkflow(Config{Logger: testLogger()})

	for i := 0; i < 2; i++ {
		g := NewStep(StepOptions{ID: "gen", Type: domain.StepTypeGenerator})
		if err := w.AddStep(-1, g); err != nil {
			t.Fatalf("add generator %d: %v", i, err)
		}
	}
	if len(w.Steps()) != 2 {
		t.Errorf("expected 2 steps, got %d", len(w.Steps()))
	}
}

func TestWorkflow_IndexOfStep(t *testing.T) {
	w := NewWorkflow(Config{Logger: testLogger()})
	a, b, c := standardStep("a"), standardStep("b"), standardStep("c")

	if err := w.AddStep(-1, a); err != nil {
		t.Fatal(err)
	}
	if err := w.AddStep(-1, c); err != nil {
		t.Fatal(err)
	}
	if err := w.AddStep(1, b); err != nil {
		t.Fatal(err)
	}

	for want, s := range []*Step{a, b, c} {
		if got := w.IndexOfStep(s); got != want {
			t.Errorf("IndexOfStep(%s) = %d, want %d", s.ID, got, want)
		}
	}
	if got := w.IndexOfStep(standardStep("x")); got != -1 {
		t.Errorf("expected -1 for unknown step, got %d", got)
	}
}

func TestWorkflow_InfrastructureIDCollision(t *testing.T) {
	// Пользовательский шаг "design" занимает ID инфраструктурного шага.
	w := NewWorkflow(Config{Logger: testLogger()})
	if err := w.AddStep(-1, standardStep("design")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := w.AddFirstSteps(nil); !errors.Is(err, ErrDuplicateStepID) {
		t.Errorf("expected ErrDuplicateStepID, got %v", err)
	}
}

func TestStep_ConfigureTwice(t *testing.T) {
	modules := fakeProvider{"noop": portModule("noop", nil, nil)}
	s := NewStep(StepOptions{ID: "x", Type: domain.StepTypeStandard, Module: "noop"})

	formats := testFormats(t)
	if err := s.configure(formats, modules); err != nil {
		t.Fatalf("first configure: %v", err)
	}
	if err := s.configure(formats, modules); !errors.Is(err, ErrStepConfigured) {
		t.Errorf("expected ErrStepConfigured, got %v", err)
	}
}

func TestStep_ConfigureRejectedParameters(t *testing.T) {
	modules := fakeProvider{
		"strict": func() *fakeModule {
			return &fakeModule{
				name: "strict",
				configure: func(_ *fakeModule, params []domain.Parameter) error {
					if _, ok := domain.LookupParameter(params, "threshold"); !ok {
						return errors.New("missing threshold")
					}
					return nil
				},
			}
		},
	}
	s := NewStep(StepOptions{ID: "x", Type: domain.StepTypeStandard, Module: "strict"})

	err := s.configure(testFormats(t), modules)
	if !errors.Is(err, ErrModuleConfiguration) {
		t.Errorf("expected ErrModuleConfiguration, got %v", err)
	}
}
