package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/sparselabs/ragserve/internal/vectorstore"
)

const readyProbeTimeout = 10 * time.Second

type HealthHandler struct {
	store vectorstore.Store
}

func NewHealthHandler(store vectorstore.Store) *HealthHandler {
	return &HealthHandler{store: store}
}

func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyProbeTimeout)
	defer cancel()

	ready, err := h.store.Ready(ctx)
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "detail": err.Error()})
		return
	}
	if !ready {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "detail": "collection has no points"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
