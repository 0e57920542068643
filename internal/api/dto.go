package api

import (
	"time"

	"github.com/shaiso/Seqflow/internal/domain"
	"github.com/shaiso/Seqflow/internal/workflow"
)

// RunResponse — состояние запуска.
type RunResponse struct {
	JobID   string `json:"job_id"`
	JobDir  string `json:"job_dir"`
	Started bool   `json:"started"`

	Total     int `json:"total"`
	Completed int `json:"completed"`
	Skipped   int `json:"skipped"`
	Running   int `json:"running"`
	Failed    int `json:"failed"`
	Pending   int `json:"pending"`

	FailedSteps []string `json:"failed_steps,omitempty"`
}

// StepResponse — состояние шага.
type StepResponse struct {
	ID     string `json:"id"`
	Type   string `json:"type"`
	Module string `json:"module,omitempty"`
	State  string `json:"state"`
}

// JobResponse — задание очереди.
type JobResponse struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	TaskID          int        `json:"task_id"`
	Status          string     `json:"status"`
	ExitCode        *int       `json:"exit_code,omitempty"`
	CancelRequested bool       `json:"cancel_requested"`
	WorkerID        string     `json:"worker_id,omitempty"`
	Error           string     `json:"error,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	FinishedAt      *time.Time `json:"finished_at,omitempty"`
}

func toRunResponse(s workflow.RunStatus) RunResponse {
	return RunResponse{
		JobID:       s.JobID,
		JobDir:      s.JobDir,
		Started:     s.Started,
		Total:       s.Stats.TotalSteps,
		Completed:   s.Stats.CompletedSteps,
		Skipped:     s.Stats.SkippedSteps,
		Running:     s.Stats.RunningSteps,
		Failed:      s.Stats.FailedSteps,
		Pending:     s.Stats.PendingSteps,
		FailedSteps: s.Failed,
	}
}

func toStepResponses(steps []workflow.StepStatus) []StepResponse {
	result := make([]StepResponse, len(steps))
	for i, s := range steps {
		result[i] = StepResponse{
			ID:     s.ID,
			Type:   s.Type.String(),
			Module: s.Module,
			State:  string(s.State),
		}
	}
	return result
}

func toJobResponse(job *domain.QueueJob) JobResponse {
	resp := JobResponse{
		ID:              job.ID.String(),
		Name:            job.Name,
		TaskID:          job.TaskID,
		Status:          string(job.Status),
		CancelRequested: job.CancelRequested,
		WorkerID:        job.WorkerID,
		Error:           job.Error,
		CreatedAt:       job.CreatedAt,
		StartedAt:       job.StartedAt,
		FinishedAt:      job.FinishedAt,
	}
	if job.Status == domain.JobStatusComplete {
		code := job.ExitCode
		resp.ExitCode = &code
	}
	return resp
}
