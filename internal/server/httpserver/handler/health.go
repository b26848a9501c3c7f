package handler

import (
	"net/http"
	"time"

	"github.com/yndnr/crudkv-go/internal/core/domain"
)

// handleHealth handles GET /health. It reports liveness only.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeResponse(w, r, http.StatusOK, HealthResponse{
		Status: "healthy",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}

// handleReady handles GET /ready: the engine is open and answers Stats.
func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	if h.store == nil || h.store.Closed() {
		h.writeError(w, r, http.StatusServiceUnavailable, domain.ErrServiceUnavailable.Code, "storage is closed")
		return
	}
	if err := h.store.Ping(r.Context()); err != nil {
		h.requestLogger(r).Warn("readiness check failed", "error", err)
		h.writeError(w, r, http.StatusServiceUnavailable, domain.ErrServiceUnavailable.Code, domain.ErrServiceUnavailable.Message)
		return
	}

	h.writeResponse(w, r, http.StatusOK, HealthResponse{
		Status: "ready",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}
