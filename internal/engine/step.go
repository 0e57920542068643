package engine

import (
	"fmt"

	"github.com/shaiso/Seqflow/internal/domain"
)

// Module — реализация шага с точки зрения графа.
//
// Графу нужны только порты, требования и признак terminal. Выполнение
// описывается отдельно (пакет modules).
type Module interface {
	// Name возвращает имя модуля.
	Name() string

	// Version возвращает версию модуля.
	Version() string

	// Configure проверяет параметры и готовит порты.
	// Вызывается ровно один раз, до InputPorts/OutputPorts.
	Configure(params []domain.Parameter) error

	// InputPorts возвращает входные порты в порядке объявления.
	InputPorts() []PortSpec

	// OutputPorts возвращает выходные порты в порядке объявления.
	OutputPorts() []PortSpec

	// Requirements возвращает внешние требования модуля.
	Requirements() []domain.Requirement

	// Terminal возвращает true, если все последующие шаги должны зависеть от этого.
	Terminal() bool
}

// ModuleProvider создаёт модули по имени.
type ModuleProvider interface {
	NewModule(name, version string) (Module, error)
}

// StepOptions — параметры создания шага.
type StepOptions struct {
	ID                  string
	Type                domain.StepType
	Module              string
	Version             string
	Parameters          []domain.Parameter
	Skip                bool
	CopyResultsToOutput bool
	RequiredMemory      int
	RequiredProcessors  int
	DataProduct         string
	OutputDir           string

	// Inputs — явные связи входов (имя порта → выход другого шага).
	Inputs map[string]domain.PortRef
}

// Step — шаг workflow.
//
// Жизненный цикл: создаётся при сборке графа, конфигурируется один раз
// (модуль получает параметры, порты материализуются через реестр
// форматов), затем выполняется или пропускается.
type Step struct {
	ID                  string
	Type                domain.StepType
	ModuleName          string
	Version             string
	Parameters          []domain.Parameter
	Skip                bool
	CopyResultsToOutput bool
	RequiredMemory      int
	RequiredProcessors  int
	DataProduct         string
	OutputDir           string
	Terminal            bool

	// Module — реализация шага. nil для инфраструктурных шагов.
	Module Module

	// Inputs — явные связи входов.
	Inputs map[string]domain.PortRef

	inputs  []*InputPort
	outputs []*OutputPort

	// deps — зависимости от связей портов и terminal шагов.
	deps []*Step

	// implicitDeps — зависимости от положения в списке (предыдущий шаг,
	// шаг без выходов). Пересчитываются на каждом проходе поиска.
	implicitDeps []*Step

	configured bool
	finalized  bool
}

// NewStep создаёт шаг.
func NewStep(opts StepOptions) *Step {
	return &Step{
		ID:                  opts.ID,
		Type:                opts.Type,
		ModuleName:          opts.Module,
		Version:             opts.Version,
		Parameters:          opts.Parameters,
		Skip:                opts.Skip,
		CopyResultsToOutput: opts.CopyResultsToOutput,
		RequiredMemory:      opts.RequiredMemory,
		RequiredProcessors:  opts.RequiredProcessors,
		DataProduct:         opts.DataProduct,
		OutputDir:           opts.OutputDir,
		Inputs:              opts.Inputs,
	}
}

// NewStepFromSpec создаёт пользовательский шаг из StepSpec.
// Значения параметров рендерятся как шаблоны.
func NewStepFromSpec(spec domain.StepSpec, tc *TemplateContext) (*Step, error) {
	params, err := RenderParameters(spec.Parameters, tc)
	if err != nil {
		return nil, NewValidationError(spec.ID, "parameters", err.Error(), err)
	}

	return NewStep(StepOptions{
		ID:                  spec.ID,
		Type:                domain.StepTypeStandard,
		Module:              spec.Module,
		Version:             spec.Version,
		Parameters:          params,
		Skip:                spec.Skip,
		CopyResultsToOutput: !spec.DiscardOutput,
		RequiredMemory:      spec.RequiredMemory,
		RequiredProcessors:  spec.RequiredProcessors,
		DataProduct:         spec.DataProduct,
		OutputDir:           spec.OutputDir,
		Inputs:              spec.Inputs,
	}), nil
}

// InputPorts возвращает входные порты.
func (s *Step) InputPorts() []*InputPort {
	return s.inputs
}

// OutputPorts возвращает выходные порты.
func (s *Step) OutputPorts() []*OutputPort {
	return s.outputs
}

// InputPort возвращает вход по имени или nil.
func (s *Step) InputPort(name string) *InputPort {
	for _, p := range s.inputs {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// OutputPort возвращает выход по имени или nil.
func (s *Step) OutputPort(name string) *OutputPort {
	for _, p := range s.outputs {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// Dependencies возвращает шаги, от которых зависит этот шаг:
// сначала зависимости по портам и terminal шагам, затем по положению.
func (s *Step) Dependencies() []*Step {
	result := make([]*Step, 0, len(s.deps)+len(s.implicitDeps))
	result = append(result, s.deps...)
	for _, d := range s.implicitDeps {
		if !containsStep(result, d) {
			result = append(result, d)
		}
	}
	return result
}

// DependsOn проверяет прямую зависимость от other.
func (s *Step) DependsOn(other *Step) bool {
	return containsStep(s.deps, other) || containsStep(s.implicitDeps, other)
}

func containsStep(steps []*Step, s *Step) bool {
	for _, candidate := range steps {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsConfigured возвращает true после успешной конфигурации.
func (s *Step) IsConfigured() bool {
	return s.configured
}

// addDependency добавляет зависимость на уровне шагов. Дубликаты и
// зависимость от самого себя игнорируются.
func (s *Step) addDependency(dep *Step) {
	if dep == nil || dep == s || containsStep(s.deps, dep) {
		return
	}
	s.deps = append(s.deps, dep)
}

// addImplicitDependency добавляет зависимость по положению в списке.
func (s *Step) addImplicitDependency(dep *Step) {
	if dep == nil || dep == s || containsStep(s.implicitDeps, dep) {
		return
	}
	s.implicitDeps = append(s.implicitDeps, dep)
}

// AddInputPort добавляет входной порт.
func (s *Step) AddInputPort(spec PortSpec, format *domain.DataFormat) *InputPort {
	compressions := spec.Compressions
	if compressions.IsEmpty() {
		compressions = domain.AllCompressions()
	}
	p := &InputPort{
		Name:                 spec.Name,
		Format:               format,
		Compressions:         compressions,
		RequiredInWorkingDir: spec.RequiredInWorkingDir,
		step:                 s,
	}
	s.inputs = append(s.inputs, p)
	return p
}

// AddOutputPort добавляет выходной порт.
func (s *Step) AddOutputPort(spec PortSpec, format *domain.DataFormat) *OutputPort {
	p := &OutputPort{
		Name:        spec.Name,
		Format:      format,
		Compression: spec.Compression,
		step:        s,
	}
	s.outputs = append(s.outputs, p)
	return p
}

// configure конфигурирует модуль шага и материализует порты.
func (s *Step) configure(formats *domain.FormatRegistry, modules ModuleProvider) error {
	if s.configured {
		return NewValidationError(s.ID, "", "step already configured", ErrStepConfigured)
	}

	switch s.Type {
	case domain.StepTypeRoot, domain.StepTypeDesign, domain.StepTypeChecker, domain.StepTypeFirst:
		// Порты инфраструктурных шагов задаёт workflow.
		s.configured = true
		return nil
	case domain.StepTypeGenerator, domain.StepTypeStandard:
	}

	if s.Module == nil {
		if modules == nil {
			return NewValidationError(s.ID, "module", "no module provider", ErrUnknownModule)
		}
		m, err := modules.NewModule(s.ModuleName, s.Version)
		if err != nil {
			return NewValidationError(s.ID, "module",
				fmt.Sprintf("cannot create module %q: %v", s.ModuleName, err), ErrUnknownModule)
		}
		s.Module = m
	}

	if err := s.Module.Configure(s.Parameters); err != nil {
		return NewValidationError(s.ID, "parameters",
			fmt.Sprintf("module %s: %v", s.Module.Name(), err), fmt.Errorf("%w: %w", ErrModuleConfiguration, err))
	}

	if s.ModuleName == "" {
		s.ModuleName = s.Module.Name()
	}
	if s.Version == "" {
		s.Version = s.Module.Version()
	}
	s.Terminal = s.Module.Terminal()

	for _, spec := range s.Module.InputPorts() {
		format, err := formats.Get(spec.Format)
		if err != nil {
			return NewValidationError(s.ID, spec.Name, err.Error(), err)
		}
		s.AddInputPort(spec, format)
	}
	for _, spec := range s.Module.OutputPorts() {
		format, err := formats.Get(spec.Format)
		if err != nil {
			return NewValidationError(s.ID, spec.Name, err.Error(), err)
		}
		s.AddOutputPort(spec, format)
	}

	s.configured = true
	return nil
}

func (s *Step) String() string {
	return s.ID
}
