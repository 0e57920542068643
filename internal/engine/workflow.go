package engine

import (
	"fmt"
	"log/slog"

	"github.com/shaiso/Seqflow/internal/domain"
	"github.com/shaiso/Seqflow/internal/storage"
)

// DefaultResolveMaxPasses — ограничение числа проходов разрешения зависимостей.
const DefaultResolveMaxPasses = 512

// Settings — настройки, нужные для построения графа.
type Settings struct {
	// OutputDir — глобальный выходной каталог.
	OutputDir string

	// WorkingDir — каталог промежуточных результатов. Пусто — OutputDir.
	WorkingDir string

	// ResolveMaxPasses — максимум проходов поиска зависимостей.
	ResolveMaxPasses int
}

// Config — конфигурация Workflow.
type Config struct {
	Settings Settings

	// Formats — реестр форматов данных.
	Formats *domain.FormatRegistry

	// Modules — фабрика модулей.
	Modules ModuleProvider

	// Design — исходные данные. Определяет выходы DESIGN шага.
	Design *domain.Design

	// Logger — логгер. По умолчанию slog.Default().
	Logger *slog.Logger
}

// Workflow — упорядоченный граф шагов.
//
// Построение графа однопоточное: все мутации списка шагов строго
// упорядочены.
type Workflow struct {
	Name        string
	Description string
	Author      string

	settings Settings
	formats  *domain.FormatRegistry
	modules  ModuleProvider
	design   *domain.Design
	logger   *slog.Logger

	steps []*Step
	ids   map[string]bool

	root       *Step
	designStep *Step
	checker    *Step
	first      *Step

	// generatorAdded — размещённые генераторы по имени формата.
	generatorAdded map[string]*Step

	installerCount       int
	requirementsResolved bool
	lastMutation         string
}

// NewWorkflow создаёт пустой workflow.
func NewWorkflow(cfg Config) *Workflow {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	formats := cfg.Formats
	if formats == nil {
		formats, _ = domain.NewFormatRegistry()
	}

	return &Workflow{
		settings:       cfg.Settings,
		formats:        formats,
		modules:        cfg.Modules,
		design:         cfg.Design,
		logger:         logger,
		ids:            make(map[string]bool),
		generatorAdded: make(map[string]*Step),
	}
}

// Build строит граф по описанию workflow: создаёт шаги, добавляет
// инфраструктурные шаги, конфигурирует шаги и разрешает зависимости.
//
// Форматы из spec.Formats регистрируются в cfg.Formats.
func Build(spec *domain.WorkflowSpec, cfg Config) (*Workflow, error) {
	if cfg.Design == nil {
		cfg.Design = spec.Design
	}
	if cfg.Formats == nil {
		registry, err := domain.NewFormatRegistry(domain.DefaultFormats()...)
		if err != nil {
			return nil, err
		}
		cfg.Formats = registry
	}
	for _, f := range spec.Formats {
		if err := cfg.Formats.Register(f); err != nil {
			return nil, fmt.Errorf("register format: %w", err)
		}
	}

	w := NewWorkflow(cfg)
	w.Name = spec.Name
	w.Description = spec.Description
	w.Author = spec.Author

	tc := NewTemplateContext(spec.Globals)

	if err := w.addMainSteps(spec.Steps, tc); err != nil {
		return nil, err
	}

	first, err := stepsFromSpecs(spec.FirstSteps, tc)
	if err != nil {
		return nil, err
	}
	if err := w.AddFirstSteps(first); err != nil {
		return nil, err
	}

	end, err := stepsFromSpecs(spec.EndSteps, tc)
	if err != nil {
		return nil, err
	}
	if err := w.AddEndSteps(end); err != nil {
		return nil, err
	}

	if err := w.Configure(); err != nil {
		return nil, err
	}
	if err := w.Resolve(); err != nil {
		return nil, err
	}

	return w, nil
}

func stepsFromSpecs(specs []domain.StepSpec, tc *TemplateContext) ([]*Step, error) {
	steps := make([]*Step, 0, len(specs))
	for _, spec := range specs {
		s, err := NewStepFromSpec(spec, tc)
		if err != nil {
			return nil, err
		}
		steps = append(steps, s)
	}
	return steps, nil
}

// addMainSteps добавляет основные шаги. Пропущенные шаги в конце
// списка отбрасываются.
func (w *Workflow) addMainSteps(specs []domain.StepSpec, tc *TemplateContext) error {
	last := len(specs) - 1
	for last >= 0 && specs[last].Skip {
		last--
	}

	for _, spec := range specs[:last+1] {
		step, err := NewStepFromSpec(spec, tc)
		if err != nil {
			return err
		}

		w.logger.Info("create step", "step_id", step.ID, "module", step.ModuleName, "skip", step.Skip)

		if err := w.AddStep(-1, step); err != nil {
			return err
		}
	}

	if len(w.steps) == 0 {
		return ErrNoSteps
	}
	return nil
}

// AddStep вставляет шаг на позицию pos. pos = -1 добавляет в конец.
func (w *Workflow) AddStep(pos int, step *Step) error {
	if step == nil {
		return ErrNilStep
	}
	if step.ID == "" {
		return NewValidationError("", "id", "cannot add a step with empty id", ErrEmptyStepID)
	}

	switch step.Type {
	case domain.StepTypeGenerator:
		// Генераторы могут разделять ID: они различаются по формату.
	case domain.StepTypeStandard, domain.StepTypeRoot, domain.StepTypeDesign, domain.StepTypeChecker, domain.StepTypeFirst:
		if w.ids[step.ID] {
			return NewValidationError(step.ID, "id",
				"cannot add step because it already had been added", ErrDuplicateStepID)
		}
	}

	switch step.Type {
	case domain.StepTypeStandard, domain.StepTypeGenerator:
		if domain.IsReservedStepID(step.ID) {
			return NewValidationError(step.ID, "id", "cannot add a step with a reserved id", ErrReservedStepID)
		}
	case domain.StepTypeRoot, domain.StepTypeDesign, domain.StepTypeChecker, domain.StepTypeFirst:
	}

	switch {
	case pos == -1:
		w.steps = append(w.steps, step)
	case pos < 0 || pos > len(w.steps):
		return NewValidationError(step.ID, "position",
			fmt.Sprintf("position %d out of range [0, %d]", pos, len(w.steps)), ErrStepPosition)
	default:
		w.steps = append(w.steps, nil)
		copy(w.steps[pos+1:], w.steps[pos:])
		w.steps[pos] = step
	}

	w.ids[step.ID] = true
	return nil
}

// IndexOfStep возвращает индекс шага или -1.
func (w *Workflow) IndexOfStep(step *Step) int {
	if step == nil {
		return -1
	}
	for i, s := range w.steps {
		if s == step {
			return i
		}
	}
	return -1
}

// removeStepAt удаляет шаг из списка, не трогая ids.
func (w *Workflow) removeStepAt(i int) *Step {
	step := w.steps[i]
	w.steps = append(w.steps[:i], w.steps[i+1:]...)
	return step
}

// insertStepAt вставляет уже известный графу шаг.
func (w *Workflow) insertStepAt(i int, step *Step) {
	w.steps = append(w.steps, nil)
	copy(w.steps[i+1:], w.steps[i:])
	w.steps[i] = step
}

// Steps возвращает шаги в порядке графа.
func (w *Workflow) Steps() []*Step {
	return w.steps
}

// Step возвращает первый шаг с указанным ID или nil.
func (w *Workflow) Step(id string) *Step {
	for _, s := range w.steps {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// RootStep, DesignStep, CheckerStep, FirstStep возвращают инфраструктурные шаги.
func (w *Workflow) RootStep() *Step    { return w.root }
func (w *Workflow) DesignStep() *Step  { return w.designStep }
func (w *Workflow) CheckerStep() *Step { return w.checker }
func (w *Workflow) FirstStep() *Step   { return w.first }

// Design возвращает исходные данные.
func (w *Workflow) Design() *domain.Design {
	return w.design
}

// Settings возвращает настройки графа.
func (w *Workflow) Settings() Settings {
	return w.settings
}

// Formats возвращает реестр форматов.
func (w *Workflow) Formats() *domain.FormatRegistry {
	return w.formats
}

func (w *Workflow) defaultOutputDir() string {
	if w.settings.WorkingDir != "" {
		return w.settings.WorkingDir
	}
	return w.settings.OutputDir
}

// AddFirstSteps добавляет в начало графа ROOT, DESIGN, CHECKER, FIRST
// и пользовательские первые шаги (сразу после FIRST, в порядке объявления).
func (w *Workflow) AddFirstSteps(firstSteps []*Step) error {
	for i := len(firstSteps) - 1; i >= 0; i-- {
		if firstSteps[i] == nil {
			continue
		}
		if err := w.AddStep(0, firstSteps[i]); err != nil {
			return err
		}
	}

	w.first = w.newInfraStep(domain.StepTypeFirst)
	w.checker = w.newInfraStep(domain.StepTypeChecker)
	w.designStep = w.newInfraStep(domain.StepTypeDesign)
	w.root = w.newInfraStep(domain.StepTypeRoot)

	for _, s := range []*Step{w.first, w.checker, w.designStep, w.root} {
		if err := w.AddStep(0, s); err != nil {
			return err
		}
	}
	return nil
}

// AddEndSteps добавляет шаги в конец графа.
func (w *Workflow) AddEndSteps(endSteps []*Step) error {
	for _, s := range endSteps {
		if s == nil {
			continue
		}
		if err := w.AddStep(-1, s); err != nil {
			return err
		}
	}
	return nil
}

func (w *Workflow) newInfraStep(t domain.StepType) *Step {
	step := NewStep(StepOptions{
		ID:        t.DefaultStepID(),
		Type:      t,
		OutputDir: w.defaultOutputDir(),
	})
	if t == domain.StepTypeDesign {
		if file, ok := w.design.FirstFile(firstFormat(w.design)); ok {
			step.OutputDir = storage.Dir(file)
		}
	}
	return step
}

func firstFormat(d *domain.Design) string {
	formats := d.Formats()
	if len(formats) == 0 {
		return ""
	}
	return formats[0]
}

// Configure конфигурирует все шаги и добавляет шаги-установщики для
// недоступных требований.
func (w *Workflow) Configure() error {
	for _, s := range w.steps {
		if s.configured {
			continue
		}
		if s.OutputDir == "" {
			s.OutputDir = w.defaultOutputDir()
		}
		if err := s.configure(w.formats, w.modules); err != nil {
			return err
		}
	}

	if w.designStep != nil && len(w.designStep.outputs) == 0 {
		if err := w.configureDesignPorts(); err != nil {
			return err
		}
	}

	return w.addRequirementInstallers()
}

// configureDesignPorts создаёт по выходу DESIGN на каждый формат design.
func (w *Workflow) configureDesignPorts() error {
	for _, name := range w.design.Formats() {
		format, err := w.formats.Get(name)
		if err != nil {
			return NewValidationError(w.designStep.ID, name, err.Error(), err)
		}
		file, _ := w.design.FirstFile(name)
		w.designStep.AddOutputPort(PortSpec{
			Name:        name,
			Format:      name,
			Compression: domain.CompressionFromFilename(file),
		}, format)
	}
	return nil
}

// addRequirementInstallers проверяет требования шагов.
//
// Недоступное требование: optional и не устанавливаемое — пропускается;
// обязательное и не устанавливаемое — ошибка; устанавливаемое — перед FIRST
// вставляется шаг-установщик (один на имя требования).
func (w *Workflow) addRequirementInstallers() error {
	if w.requirementsResolved {
		return nil
	}
	w.requirementsResolved = true

	installed := make(map[string]bool)

	for _, step := range append([]*Step(nil), w.steps...) {
		if step.Module == nil {
			continue
		}
		for _, r := range step.Module.Requirements() {
			if r.IsAvailable() || installed[r.Name()] {
				continue
			}

			if !r.IsInstallable() {
				if r.IsOptional() {
					w.logger.Warn("optional requirement is not available",
						"step_id", step.ID, "requirement", r.Name())
					continue
				}
				return NewValidationError(step.ID, "requirements",
					fmt.Sprintf("requirement is not available: %s", r.Name()), ErrRequirementUnavailable)
			}

			installer, err := w.newInstallerStep(r)
			if err != nil {
				return err
			}

			pos := w.IndexOfStep(w.first)
			if pos < 0 {
				pos = -1
			}
			if err := w.AddStep(pos, installer); err != nil {
				return err
			}
			installed[r.Name()] = true

			w.logger.Info("add requirement installer",
				"step_id", installer.ID, "requirement", r.Name(), "for_step", step.ID)
		}
	}

	return nil
}
