package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sparselabs/ragserve/internal/rag"
)

// Answerer is the serving-path orchestration the handler delegates to.
type Answerer interface {
	Answer(ctx context.Context, req rag.Request) (*rag.Response, error)
}

type QueryHandler struct {
	orchestrator Answerer
}

func NewQueryHandler(a Answerer) *QueryHandler {
	return &QueryHandler{orchestrator: a}
}

func (h *QueryHandler) Query(w http.ResponseWriter, r *http.Request) {
	var req rag.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeQueryError(w, &rag.QueryError{StatusCode: http.StatusBadRequest, Detail: "invalid request body"})
		return
	}
	if req.Query == "" {
		writeQueryError(w, &rag.QueryError{StatusCode: http.StatusBadRequest, Detail: "query required"})
		return
	}

	resp, err := h.orchestrator.Answer(r.Context(), req)
	if err != nil {
		var qerr *rag.QueryError
		if !errors.As(err, &qerr) {
			qerr = &rag.QueryError{StatusCode: http.StatusInternalServerError, Detail: err.Error()}
		}
		writeQueryError(w, qerr)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func writeQueryError(w http.ResponseWriter, qerr *rag.QueryError) {
	writeJSON(w, qerr.StatusCode, qerr)
}
