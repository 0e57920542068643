package api

import (
	"net/http"
)

// RegisterRoutes регистрирует маршруты API.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	chain := Chain(
		Recovery(h.logger),
		Logging(h.logger),
	)

	mux.HandleFunc("GET /healthz", h.Healthz)

	if h.run != nil {
		mux.Handle("GET /api/v1/run", chain(http.HandlerFunc(h.GetRun)))
		mux.Handle("GET /api/v1/run/steps", chain(http.HandlerFunc(h.ListRunSteps)))
	}

	if h.jobs != nil {
		mux.Handle("GET /api/v1/jobs/{id}", chain(http.HandlerFunc(h.GetJob)))
		mux.Handle("POST /api/v1/jobs/{id}/cancel", chain(http.HandlerFunc(h.CancelJob)))
	}
}

// Healthz отвечает "ok".
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}
