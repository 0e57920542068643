package api

import (
	"net/http"
)

// GetRun возвращает сводку состояния запуска.
// GET /api/v1/run
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	Success(w, toRunResponse(h.run.Status()))
}

// ListRunSteps возвращает шаги запуска в порядке выполнения.
// GET /api/v1/run/steps
func (h *Handler) ListRunSteps(w http.ResponseWriter, r *http.Request) {
	status := h.run.Status()
	if !status.Started {
		InvalidState(w, "run has not started")
		return
	}
	Success(w, toStepResponses(status.Steps))
}
