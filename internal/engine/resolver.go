package engine

import (
	"fmt"
	"sort"

	"github.com/shaiso/Seqflow/internal/domain"
)

// Resolve связывает каждый входной порт с выходным портом производителя.
//
// Порядок:
//  1. явные связи из описания workflow;
//  2. проходы поиска зависимостей от последнего шага к первому. Любая
//     структурная мутация (размещение генератора, вставка адаптера,
//     синтез генератора, перестановка генераторов) завершает проход и
//     запускает новый. Число проходов ограничено Settings.ResolveMaxPasses;
//  3. зависимости от terminal шагов;
//  4. адаптеры копирования результатов в выходной каталог;
//  5. проверка, что все входы связаны;
//  6. проверка, что граф ацикличен.
//
// Повторный вызов на уже разрешённом графе не добавляет шагов.
func (w *Workflow) Resolve() error {
	if err := w.addManualDependencies(); err != nil {
		return err
	}

	maxPasses := w.settings.ResolveMaxPasses
	if maxPasses <= 0 {
		maxPasses = DefaultResolveMaxPasses
	}

	for pass := 1; ; pass++ {
		if pass > maxPasses {
			return fmt.Errorf("%w after %d passes, last change: %s",
				ErrResolveDiverged, maxPasses, w.lastMutation)
		}

		mutated, err := w.searchDependencies()
		if err != nil {
			return err
		}
		if !mutated {
			break
		}

		w.logger.Debug("workflow changed, restarting dependency search",
			"pass", pass, "change", w.lastMutation)
	}

	w.addTerminalDependencies()

	if err := w.addOutputCopySteps(); err != nil {
		return err
	}

	if err := w.checkLinks(); err != nil {
		return err
	}

	if _, err := NewPlan(w); err != nil {
		return err
	}

	return nil
}

// addManualDependencies применяет явные связи входов.
// Уже связанные входы пропускаются.
func (w *Workflow) addManualDependencies() error {
	for _, toStep := range append([]*Step(nil), w.steps...) {
		portNames := make([]string, 0, len(toStep.Inputs))
		for name := range toStep.Inputs {
			portNames = append(portNames, name)
		}
		sort.Strings(portNames)

		for _, toPortName := range portNames {
			ref := toStep.Inputs[toPortName]

			fromStep := w.Step(ref.Step)
			if fromStep == nil {
				return NewValidationError(toStep.ID, toPortName,
					fmt.Sprintf("no workflow step found with id: %s", ref.Step), ErrUnknownStep)
			}

			fromPort := fromStep.OutputPort(ref.Port)
			if fromPort == nil {
				return NewValidationError(toStep.ID, toPortName,
					fmt.Sprintf("no port with name %q found for step with id: %s", ref.Port, fromStep.ID), ErrUnknownPort)
			}

			toPort := toStep.InputPort(toPortName)
			if toPort == nil {
				return NewValidationError(toStep.ID, toPortName,
					fmt.Sprintf("no port with name %q found for step with id: %s", toPortName, toStep.ID), ErrUnknownPort)
			}

			if toPort.IsLinked() {
				continue
			}

			if _, err := w.addDependency(toPort, fromPort); err != nil {
				return err
			}
		}
	}
	return nil
}

// searchDependencies выполняет один проход поиска зависимостей.
// Возвращает true, если граф был структурно изменён и проход нужно повторить.
func (w *Workflow) searchDependencies() (bool, error) {
	var lastStepWithoutOutput *Step

	// Зависимости по положению строятся заново: предыдущий проход мог
	// переставить шаги.
	for _, step := range w.steps {
		step.implicitDeps = nil
	}

	for i := len(w.steps) - 1; i >= 0; i-- {
		step := w.steps[i]

		switch step.Type {
		case domain.StepTypeGenerator:
			if !w.isGeneratorPlaced(step) {
				return true, w.placeGenerator(step)
			}
		case domain.StepTypeRoot, domain.StepTypeDesign, domain.StepTypeChecker,
			domain.StepTypeFirst, domain.StepTypeStandard:
		}

		// Шаг без входов зависит от предыдущего.
		if len(step.inputs) == 0 && i > 0 {
			step.addImplicitDependency(w.steps[i-1])
		}

		// От шага без выходов зависят все следующие шаги до следующего
		// такого же шага включительно.
		if len(step.outputs) == 0 {
			for j := i + 1; j < len(w.steps); j++ {
				next := w.steps[j]
				next.addImplicitDependency(step)
				if next == lastStepWithoutOutput {
					break
				}
			}
			lastStepWithoutOutput = step
		}

		for _, in := range step.inputs {
			if in.IsLinked() {
				continue
			}

			if countUnlinked(step, in.Format) > 1 {
				return false, NewValidationError(step.ID, in.Name,
					fmt.Sprintf("step %q contains more than one port of the same format (%s), "+
						"please manually define all inputs for these ports", step.ID, in.Format.Name),
					ErrAmbiguousPorts)
			}

			if out := w.findProducer(i, in.Format); out != nil {
				inserted, err := w.addDependency(in, out)
				if err != nil {
					return false, err
				}
				if inserted {
					return true, nil
				}
				continue
			}

			return w.resolveMissingInput(step, in)
		}
	}

	return false, nil
}

func (w *Workflow) isGeneratorPlaced(step *Step) bool {
	for _, g := range w.generatorAdded {
		if g == step {
			return true
		}
	}
	return false
}

// placeGenerator переносит генератор сразу за CHECKER и запоминает его
// по генерируемому формату.
func (w *Workflow) placeGenerator(step *Step) error {
	w.removeStepAt(w.IndexOfStep(step))
	w.insertStepAt(w.IndexOfStep(w.checker)+1, step)

	if err := checkGeneratorOutputs(step); err != nil {
		return err
	}

	w.generatorAdded[step.outputs[0].Format.Name] = step
	w.lastMutation = fmt.Sprintf("generator %s placed after %s", step.ID, w.checker.ID)
	return nil
}

func countUnlinked(step *Step, format *domain.DataFormat) int {
	count := 0
	for _, p := range step.inputs {
		if !p.IsLinked() && sameFormat(p.Format, format) {
			count++
		}
	}
	return count
}

// findProducer ищет назад от позиции i первый выход нужного формата
// среди STANDARD, GENERATOR и DESIGN шагов.
func (w *Workflow) findProducer(i int, format *domain.DataFormat) *OutputPort {
	for j := i - 1; j >= 0; j-- {
		candidate := w.steps[j]
		if !isProducer(candidate.Type) {
			continue
		}
		for _, out := range candidate.outputs {
			if sameFormat(out.Format, format) {
				return out
			}
		}
	}
	return nil
}

// resolveMissingInput обрабатывает вход без производителя: синтезирует
// генератор, переставляет генераторы или возвращает ошибку.
func (w *Workflow) resolveMissingInput(step *Step, in *InputPort) (bool, error) {
	format := in.Format

	unresolved := NewValidationError(step.ID, in.Name,
		fmt.Sprintf("cannot find input data format %q for step %s", format.Name, step.ID), ErrUnresolvedInput)

	if !format.IsGenerable() {
		return false, unresolved
	}

	generator, exists := w.generatorAdded[format.Name]
	if !exists {
		g, err := w.newGeneratorStep(format)
		if err != nil {
			return false, err
		}
		if err := w.AddStep(w.IndexOfStep(w.checker)+1, g); err != nil {
			return false, err
		}
		w.generatorAdded[format.Name] = g
		w.lastMutation = fmt.Sprintf("generator %s added for format %s", g.ID, format.Name)
		return true, nil
	}

	switch step.Type {
	case domain.StepTypeGenerator:
		a, b := w.IndexOfStep(step), w.IndexOfStep(generator)
		w.steps[a], w.steps[b] = w.steps[b], w.steps[a]
		w.lastMutation = fmt.Sprintf("generators %s and %s swapped", step.ID, generator.ID)
		return true, nil
	case domain.StepTypeRoot, domain.StepTypeDesign, domain.StepTypeChecker,
		domain.StepTypeFirst, domain.StepTypeStandard:
	}

	return false, unresolved
}

// addDependency связывает in с out. Если нужен адаптер, он вставляется
// непосредственно перед потребителем, и функция возвращает true.
func (w *Workflow) addDependency(in *InputPort, out *OutputPort) (bool, error) {
	reason := adapterReason(in, out)
	if reason == "" {
		link(in, out)
		return false, nil
	}

	consumer := in.Step()
	comp := AdapterCompression(out.Compression, in.Compressions)

	adapter, err := w.newInputCopyStep(in, out, comp)
	if err != nil {
		return false, err
	}
	if err := w.AddStep(w.IndexOfStep(consumer), adapter); err != nil {
		return false, err
	}

	link(adapter.inputs[0], out)
	link(in, adapter.outputs[0])

	w.lastMutation = fmt.Sprintf("adapter %s inserted before %s (%s)", adapter.ID, consumer.ID, reason)
	w.logger.Debug("insert input adapter",
		"step_id", adapter.ID,
		"consumer", consumer.ID,
		"producer", out.Step().ID,
		"reason", reason,
		"compression", comp.String(),
	)
	return true, nil
}

// addTerminalDependencies делает каждый шаг зависимым от всех terminal
// шагов, объявленных раньше него.
func (w *Workflow) addTerminalDependencies() {
	terminals := make([]*Step, 0)
	for _, step := range w.steps {
		for _, t := range terminals {
			step.addDependency(t)
		}
		if step.Terminal {
			terminals = append(terminals, step)
		}
	}
}

// addOutputCopySteps добавляет адаптеры копирования результатов для
// шагов, чей каталог результатов отличается от выходного.
func (w *Workflow) addOutputCopySteps() error {
	for _, step := range append([]*Step(nil), w.steps...) {
		if step.finalized || !step.CopyResultsToOutput || len(step.outputs) == 0 ||
			step.OutputDir == w.settings.OutputDir {
			continue
		}

		copies, err := w.newOutputCopySteps(step)
		if err != nil {
			return err
		}

		pos := w.IndexOfStep(step) + 1
		for k, c := range copies {
			if err := w.AddStep(pos+k, c); err != nil {
				return err
			}
			in := c.inputs[0]
			link(in, step.OutputPort(in.Name))
		}
		step.finalized = true
	}
	return nil
}

// checkLinks проверяет, что все входы всех шагов связаны.
func (w *Workflow) checkLinks() error {
	for _, step := range w.steps {
		for _, in := range step.inputs {
			if !in.IsLinked() {
				return NewValidationError(step.ID, in.Name,
					fmt.Sprintf("the %q port (%s format) of step %q is not linked", in.Name, in.Format.Name, step.ID),
					ErrPortNotLinked)
			}
		}
	}
	return nil
}
