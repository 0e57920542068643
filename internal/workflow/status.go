package workflow

import "github.com/shaiso/Seqflow/internal/domain"

// StepStatus — состояние шага в снимке запуска.
type StepStatus struct {
	ID     string
	Type   domain.StepType
	Module string
	State  domain.StepState
}

// RunStatus — снимок состояния запуска.
type RunStatus struct {
	JobID   string
	JobDir  string
	Started bool
	Stats   RunStats

	// Failed — ID неуспешных шагов в порядке плана.
	Failed []string

	// Steps — шаги в топологическом порядке.
	Steps []StepStatus
}

// Status возвращает снимок состояния запуска.
// Безопасен для вызова из других горутин во время Run.
func (e *Executor) Status() RunStatus {
	status := RunStatus{
		JobID:  e.jobID,
		JobDir: e.jobDir,
	}

	state := e.State()
	if state == nil {
		return status
	}

	status.Started = true
	status.Stats = state.Stats()
	status.Failed = state.GetFailedSteps()
	for _, node := range state.Plan.Order {
		status.Steps = append(status.Steps, StepStatus{
			ID:     node.ID,
			Type:   node.Step.Type,
			Module: node.Step.ModuleName,
			State:  state.StepState(node.Step),
		})
	}
	return status
}
