package workflow

import (
	"fmt"
	"strconv"
	"time"

	"github.com/shaiso/Seqflow/internal/domain"
	"github.com/shaiso/Seqflow/internal/engine"
	"github.com/shaiso/Seqflow/internal/modules"
	"github.com/shaiso/Seqflow/internal/storage"
)

// partition — данные одного task шага.
type partition struct {
	sample domain.Sample
	inputs map[string][]domain.DataRef
}

// isSingleTask возвращает true, если шаг обрабатывает все образцы одним task.
func isSingleTask(step *engine.Step) bool {
	if step.Type == domain.StepTypeGenerator || step.ModuleName == engine.RequirementInstallerModule {
		return true
	}
	return step.Module != nil && modules.IsSingleTask(step.Module)
}

// buildTasks создаёт контексты task шага.
func (e *Executor) buildTasks(step *engine.Step) []*domain.TaskContext {
	parts := e.partitions(step)
	tasks := make([]*domain.TaskContext, 0, len(parts))
	now := time.Now()

	for _, p := range parts {
		e.nextTaskID++
		id := e.nextTaskID
		prefix := domain.TaskPrefix(step.ID, id)

		tasks = append(tasks, &domain.TaskContext{
			ID:                 id,
			JobID:              e.jobID,
			StepID:             step.ID,
			StepType:           step.Type,
			Module:             step.ModuleName,
			ModuleVersion:      step.Version,
			Parameters:         step.Parameters,
			Sample:             p.sample.ID,
			Prefix:             prefix,
			TaskDir:            e.taskDir,
			WorkDir:            storage.Join(e.jobDir, WorkDirName, prefix),
			OutputDir:          step.OutputDir,
			Inputs:             p.inputs,
			Outputs:            expectedOutputs(step, p),
			RequiredMemory:     step.RequiredMemory,
			RequiredProcessors: step.RequiredProcessors,
			LogLevel:           e.logLevel,
			CreatedAt:          now,
		})
	}
	return tasks
}

// partitions делит входы шага по образцам.
//
// Task создаётся на каждый образец, данные которого пришли на входы;
// общие данные получает каждый task. Если образцов на входах нет или шаг
// требует один task, создаётся один task со всеми данными.
func (e *Executor) partitions(step *engine.Step) []partition {
	all := make(map[string][]domain.DataRef)
	present := make(map[string]bool)
	for _, in := range step.InputPorts() {
		if in.Link() == nil {
			continue
		}
		refs := e.state.Tokens(in.Link())
		all[in.Name] = refs
		for _, r := range refs {
			if !r.IsShared() {
				present[r.Sample] = true
			}
		}
	}

	single := []partition{{inputs: all}}
	if len(present) == 0 || isSingleTask(step) {
		return single
	}

	design := e.workflow.Design()
	if design == nil {
		return single
	}

	parts := make([]partition, 0, len(present))
	for _, s := range design.Samples {
		if !present[s.ID] {
			continue
		}
		inputs := make(map[string][]domain.DataRef, len(all))
		for port, refs := range all {
			for _, r := range refs {
				if r.IsShared() || r.Sample == s.ID {
					inputs[port] = append(inputs[port], r)
				}
			}
		}
		parts = append(parts, partition{sample: s, inputs: inputs})
	}
	if len(parts) == 0 {
		return single
	}
	return parts
}

// expectedOutputs возвращает данные, которые должен создать task.
//
// Адаптер входа создаёт по копии на каждую входную единицу данных.
// Остальные шаги создают по единице данных на выходной порт.
func expectedOutputs(step *engine.Step, p partition) map[string][]domain.DataRef {
	outs := step.OutputPorts()
	if len(outs) == 0 {
		return nil
	}

	result := make(map[string][]domain.DataRef, len(outs))
	if step.ModuleName == engine.CopyInputModule {
		out := outs[0]
		for _, in := range p.inputs[engine.CopyInputPortIn] {
			result[out.Name] = append(result[out.Name], outputRef(step, out, in.Name, in.Sample))
		}
		return result
	}

	for _, out := range outs {
		name := p.sample.DisplayName()
		if p.sample.ID == "" {
			name = out.Format.DisplayName()
		}
		result[out.Name] = []domain.DataRef{outputRef(step, out, name, p.sample.ID)}
	}
	return result
}

// outputRef строит расположение выходных файлов:
// <outputdir>/<step>_<port>_<name>[_<n>]<ext><compression ext>.
func outputRef(step *engine.Step, out *engine.OutputPort, name, sample string) domain.DataRef {
	count := out.Format.FileCount()
	ext := out.Format.Extension + out.Compression.Extension()
	base := fmt.Sprintf("%s_%s_%s", step.ID, out.Name, name)

	files := make([]string, count)
	for i := range files {
		file := base
		if count > 1 {
			file += "_" + strconv.Itoa(i+1)
		}
		files[i] = storage.Join(step.OutputDir, file+ext)
	}

	return domain.DataRef{
		Name:        name,
		Sample:      sample,
		Format:      out.Format.Name,
		Compression: out.Compression,
		Files:       files,
	}
}
