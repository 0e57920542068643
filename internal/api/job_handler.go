package api

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/shaiso/Seqflow/internal/domain"
)

// GetJob возвращает задание очереди.
// GET /api/v1/jobs/{id}
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	id, ok := parseJobID(w, r)
	if !ok {
		return
	}

	job, err := h.jobs.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "job not found") {
		return
	}

	Success(w, toJobResponse(job))
}

// CancelJob запрашивает отмену задания.
// POST /api/v1/jobs/{id}/cancel
func (h *Handler) CancelJob(w http.ResponseWriter, r *http.Request) {
	id, ok := parseJobID(w, r)
	if !ok {
		return
	}

	job, err := h.jobs.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "job not found") {
		return
	}
	if job.Status == domain.JobStatusComplete {
		InvalidState(w, "job already complete")
		return
	}

	if err := h.jobs.RequestCancel(r.Context(), id); HandleRepoError(w, h.logger, err, "job not found") {
		return
	}

	h.logger.Info("job cancel requested", "job_id", id)

	job.CancelRequested = true
	Accepted(w, toJobResponse(job))
}

func parseJobID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid job id")
		return uuid.Nil, false
	}
	return id, true
}
