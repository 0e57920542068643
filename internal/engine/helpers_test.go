package engine

import (
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/shaiso/Seqflow/internal/domain"
)

// fakeModule — модуль для тестов с заданными портами.
type fakeModule struct {
	name      string
	inputs    []PortSpec
	outputs   []PortSpec
	reqs      []domain.Requirement
	terminal  bool
	configure func(m *fakeModule, params []domain.Parameter) error
}

func (m *fakeModule) Name() string    { return m.name }
func (m *fakeModule) Version() string { return "1.0" }

func (m *fakeModule) Configure(params []domain.Parameter) error {
	if m.configure != nil {
		return m.configure(m, params)
	}
	return nil
}

func (m *fakeModule) InputPorts() []PortSpec             { return m.inputs }
func (m *fakeModule) OutputPorts() []PortSpec            { return m.outputs }
func (m *fakeModule) Requirements() []domain.Requirement { return m.reqs }
func (m *fakeModule) Terminal() bool                     { return m.terminal }

// fakeProvider создаёт модули по фабрикам. Адаптеры движка
// регистрируются всегда.
type fakeProvider map[string]func() *fakeModule

func (p fakeProvider) NewModule(name, _ string) (Module, error) {
	if f, ok := p[name]; ok {
		return f(), nil
	}
	switch name {
	case CopyInputModule:
		return &fakeModule{name: name, configure: configureCopyInput}, nil
	case CopyOutputModule:
		return &fakeModule{name: name, configure: configureCopyOutput}, nil
	case RequirementInstallerModule:
		return &fakeModule{name: name}, nil
	}
	return nil, fmt.Errorf("module %q not found", name)
}

func configureCopyInput(m *fakeModule, params []domain.Parameter) error {
	pm := domain.ParametersToMap(params)
	comp, err := domain.ParseCompression(pm[ParamOutputCompression])
	if err != nil {
		return err
	}
	m.inputs = []PortSpec{{Name: CopyInputPortIn, Format: pm[ParamFormat]}}
	m.outputs = []PortSpec{{Name: CopyInputPortOut, Format: pm[ParamFormat], Compression: comp}}
	return nil
}

func configureCopyOutput(m *fakeModule, params []domain.Parameter) error {
	pm := domain.ParametersToMap(params)
	m.inputs = []PortSpec{{Name: pm[ParamPort], Format: pm[ParamFormat]}}
	return nil
}

// portModule — фабрика модуля с фиксированными портами.
func portModule(name string, inputs, outputs []PortSpec) func() *fakeModule {
	return func() *fakeModule {
		return &fakeModule{name: name, inputs: inputs, outputs: outputs}
	}
}

func inPort(name, format string) PortSpec {
	return PortSpec{Name: name, Format: format}
}

func outPort(name, format string) PortSpec {
	return PortSpec{Name: name, Format: format, Compression: domain.CompressionNone}
}

// fakeRequirement — требование для тестов.
type fakeRequirement struct {
	name        string
	available   bool
	installable bool
	optional    bool
}

func (r fakeRequirement) Name() string        { return r.name }
func (r fakeRequirement) IsAvailable() bool   { return r.available }
func (r fakeRequirement) IsInstallable() bool { return r.installable }
func (r fakeRequirement) IsOptional() bool    { return r.optional }

func (r fakeRequirement) Parameters() []domain.Parameter {
	return []domain.Parameter{{Name: "requirement", Value: r.name}}
}

func testFormats(t *testing.T, extra ...domain.DataFormat) *domain.FormatRegistry {
	t.Helper()
	reg, err := domain.NewFormatRegistry(append(domain.DefaultFormats(), extra...)...)
	if err != nil {
		t.Fatalf("format registry: %v", err)
	}
	return reg
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func readsDesign(file string) *domain.Design {
	return &domain.Design{
		Samples: []domain.Sample{
			{ID: "s1", Files: map[string][]string{"reads_fastq": {file}}},
		},
	}
}

// buildWorkflow строит workflow из описания шагов без шаблонов.
func buildWorkflow(t *testing.T, spec *domain.WorkflowSpec, modules ModuleProvider, settings Settings, formats *domain.FormatRegistry) (*Workflow, error) {
	t.Helper()
	if formats == nil {
		formats = testFormats(t)
	}
	if settings.OutputDir == "" {
		settings.OutputDir = "/out"
	}
	return Build(spec, Config{
		Settings: settings,
		Formats:  formats,
		Modules:  modules,
		Logger:   testLogger(),
	})
}

func stepIDs(w *Workflow) []string {
	ids := make([]string, 0, len(w.Steps()))
	for _, s := range w.Steps() {
		ids = append(ids, s.ID)
	}
	return ids
}
