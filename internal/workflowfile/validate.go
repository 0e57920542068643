package workflowfile

import (
	"fmt"

	"github.com/shaiso/Seqflow/internal/domain"
	"github.com/shaiso/Seqflow/internal/engine"
)

// Validate выполняет полную валидацию описания workflow.
//
// Проверяет:
//   - Наличие шагов
//   - Уникальность ID шагов (во всех секциях) и зарезервированные ID
//   - Наличие модуля
//   - Явные связи входов (inputs)
//   - Требования к ресурсам
//   - Форматы и образцы design
//
// Существование модулей и совместимость портов проверяет построение графа.
func Validate(spec *domain.WorkflowSpec) error {
	if spec == nil || len(spec.Steps) == 0 {
		return ErrEmptySteps
	}

	for i, f := range spec.Formats {
		if f.Name == "" {
			return engine.NewValidationError("", "formats",
				fmt.Sprintf("format %d has empty name", i), domain.ErrInvalidFormat)
		}
	}

	stepIDs := make(map[string]bool)
	all := make([]domain.StepSpec, 0, len(spec.FirstSteps)+len(spec.Steps)+len(spec.EndSteps))
	all = append(all, spec.FirstSteps...)
	all = append(all, spec.Steps...)
	all = append(all, spec.EndSteps...)

	for i := range all {
		if err := ValidateStep(&all[i], stepIDs); err != nil {
			return err
		}
	}

	if err := validateInputs(all, stepIDs); err != nil {
		return err
	}

	if spec.Design != nil {
		return ValidateDesign(spec.Design)
	}
	return nil
}

// ValidateStep валидирует один шаг.
// stepIDs — уже встреченные ID шагов (для проверки уникальности).
func ValidateStep(step *domain.StepSpec, stepIDs map[string]bool) error {
	if step.ID == "" {
		return engine.NewValidationError("", "id", "step has empty ID", engine.ErrEmptyStepID)
	}

	if domain.IsReservedStepID(step.ID) {
		return engine.NewValidationError(step.ID, "id",
			fmt.Sprintf("step ID %s is reserved", step.ID), engine.ErrReservedStepID)
	}

	if stepIDs[step.ID] {
		return engine.NewValidationError(step.ID, "id",
			fmt.Sprintf("duplicate step ID: %s", step.ID), engine.ErrDuplicateStepID)
	}
	stepIDs[step.ID] = true

	if step.Module == "" {
		return engine.NewValidationError(step.ID, "module", "step has empty module", ErrEmptyModule)
	}

	if step.RequiredMemory < 0 {
		return engine.NewValidationError(step.ID, "required_memory",
			fmt.Sprintf("negative memory requirement: %d", step.RequiredMemory), ErrInvalidResources)
	}
	if step.RequiredProcessors < 0 {
		return engine.NewValidationError(step.ID, "required_processors",
			fmt.Sprintf("negative processor requirement: %d", step.RequiredProcessors), ErrInvalidResources)
	}

	for port, ref := range step.Inputs {
		if ref.Step == step.ID {
			return engine.NewValidationError(step.ID, "inputs."+port,
				"step depends on itself", ErrSelfDependency)
		}
		if ref.Step == "" || ref.Port == "" {
			return engine.NewValidationError(step.ID, "inputs."+port,
				fmt.Sprintf("input %s must name a step and a port", port), ErrInvalidInput)
		}
	}

	return nil
}

// validateInputs проверяет, что явные связи ссылаются на существующие шаги.
// Связь с design допускается.
func validateInputs(steps []domain.StepSpec, stepIDs map[string]bool) error {
	designID := domain.StepTypeDesign.DefaultStepID()

	for i := range steps {
		step := &steps[i]
		for port, ref := range step.Inputs {
			if ref.Step == designID || stepIDs[ref.Step] {
				continue
			}
			return engine.NewValidationError(step.ID, "inputs."+port,
				fmt.Sprintf("depends on unknown step: %s", ref.Step), ErrMissingDependency)
		}
	}
	return nil
}

// ValidateDesign проверяет ID образцов design.
func ValidateDesign(design *domain.Design) error {
	seen := make(map[string]bool, len(design.Samples))
	for i, s := range design.Samples {
		if s.ID == "" {
			return engine.NewValidationError("", "design",
				fmt.Sprintf("sample %d has empty ID", i), ErrInvalidSample)
		}
		if seen[s.ID] {
			return engine.NewValidationError("", "design",
				fmt.Sprintf("duplicate sample ID: %s", s.ID), ErrInvalidSample)
		}
		seen[s.ID] = true
	}
	return nil
}
