package engine

import (
	"fmt"
	"strconv"

	"github.com/shaiso/Seqflow/internal/domain"
)

// Имена модулей, которые движок вставляет в граф сам.
const (
	// CopyInputModule копирует (пере)сжимая вход шага.
	CopyInputModule = "copyinput"

	// CopyOutputModule копирует результаты шага в выходной каталог.
	CopyOutputModule = "copyoutput"

	// RequirementInstallerModule устанавливает внешнее требование.
	RequirementInstallerModule = "requirementinstaller"
)

// Параметры модулей-адаптеров.
const (
	// ParamFormat — имя формата данных.
	ParamFormat = "format"

	// ParamOutputCompression — сжатие выхода copyinput.
	ParamOutputCompression = "output.compression"

	// ParamDesignInput — "true", если данные пришли из DESIGN.
	ParamDesignInput = "design.input"

	// ParamAllowedCompressions — допустимые сжатия потребителя.
	ParamAllowedCompressions = "output.compressions.allowed"

	// ParamPort — имя порта для copyoutput.
	ParamPort = "port"
)

// Имена портов copyinput.
const (
	CopyInputPortIn  = "input"
	CopyInputPortOut = "output"
)

// uniqueStepID подбирает свободный ID вида <base><suffix><N>, N начиная с 1.
func (w *Workflow) uniqueStepID(base, suffix string, reserved map[string]bool) string {
	for i := 1; ; i++ {
		id := base + suffix + strconv.Itoa(i)
		if !w.ids[id] && !reserved[id] {
			return id
		}
	}
}

// newInputCopyStep создаёт адаптер входа <consumer>prepare<N>.
func (w *Workflow) newInputCopyStep(in *InputPort, out *OutputPort, comp domain.Compression) (*Step, error) {
	consumer := in.Step()
	id := w.uniqueStepID(consumer.ID, "prepare", nil)

	designInput := out.Step().Type == domain.StepTypeDesign

	step := NewStep(StepOptions{
		ID:     id,
		Type:   domain.StepTypeStandard,
		Module: CopyInputModule,
		Parameters: []domain.Parameter{
			{Name: ParamFormat, Value: in.Format.Name},
			{Name: ParamOutputCompression, Value: comp.String()},
			{Name: ParamDesignInput, Value: strconv.FormatBool(designInput)},
			{Name: ParamAllowedCompressions, Value: in.Compressions.String()},
		},
		OutputDir: consumer.OutputDir,
	})

	if err := step.configure(w.formats, w.modules); err != nil {
		return nil, err
	}
	if len(step.inputs) != 1 || len(step.outputs) != 1 {
		return nil, NewValidationError(id, "module",
			fmt.Sprintf("module %s must declare one input and one output", CopyInputModule), ErrModuleConfiguration)
	}
	return step, nil
}

// newOutputCopySteps создаёт по адаптеру <producer>finalize<N> на каждый выход.
// Вход адаптера называется так же, как выход производителя.
func (w *Workflow) newOutputCopySteps(producer *Step) ([]*Step, error) {
	result := make([]*Step, 0, len(producer.outputs))
	reserved := make(map[string]bool)

	for _, out := range producer.outputs {
		id := w.uniqueStepID(producer.ID, "finalize", reserved)
		reserved[id] = true

		step := NewStep(StepOptions{
			ID:     id,
			Type:   domain.StepTypeStandard,
			Module: CopyOutputModule,
			Parameters: []domain.Parameter{
				{Name: ParamPort, Value: out.Name},
				{Name: ParamFormat, Value: out.Format.Name},
			},
			CopyResultsToOutput: true,
			OutputDir:           w.settings.OutputDir,
		})

		if err := step.configure(w.formats, w.modules); err != nil {
			return nil, err
		}
		if len(step.inputs) != 1 || step.inputs[0].Name != out.Name {
			return nil, NewValidationError(id, "module",
				fmt.Sprintf("module %s must declare input port %q", CopyOutputModule, out.Name), ErrModuleConfiguration)
		}
		result = append(result, step)
	}

	return result, nil
}

// newGeneratorStep создаёт генератор для формата.
func (w *Workflow) newGeneratorStep(format *domain.DataFormat) (*Step, error) {
	step := NewStep(StepOptions{
		ID:        format.Generator,
		Type:      domain.StepTypeGenerator,
		Module:    format.Generator,
		OutputDir: w.defaultOutputDir(),
	})

	if err := step.configure(w.formats, w.modules); err != nil {
		return nil, err
	}
	if err := checkGeneratorOutputs(step); err != nil {
		return nil, err
	}
	if !sameFormat(step.outputs[0].Format, format) {
		return nil, NewValidationError(step.ID, "module",
			fmt.Sprintf("generator produces %s instead of %s", step.outputs[0].Format.Name, format.Name),
			ErrModuleConfiguration)
	}
	return step, nil
}

// newInstallerStep создаёт шаг-установщик требования.
func (w *Workflow) newInstallerStep(r domain.Requirement) (*Step, error) {
	w.installerCount++

	step := NewStep(StepOptions{
		ID:         r.Name() + "install" + strconv.Itoa(w.installerCount),
		Type:       domain.StepTypeStandard,
		Module:     RequirementInstallerModule,
		Parameters: r.Parameters(),
		OutputDir:  w.defaultOutputDir(),
	})

	if err := step.configure(w.formats, w.modules); err != nil {
		return nil, err
	}
	return step, nil
}

func checkGeneratorOutputs(step *Step) error {
	switch len(step.outputs) {
	case 1:
		return nil
	case 0:
		return NewValidationError(step.ID, "outputs",
			fmt.Sprintf("step %q is a generator but does not generate anything", step.ID), ErrGeneratorWithoutOutput)
	default:
		return NewValidationError(step.ID, "outputs",
			fmt.Sprintf("step %q is a generator but generates more than one format", step.ID), ErrGeneratorManyOutputs)
	}
}
