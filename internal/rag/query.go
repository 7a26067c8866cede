package rag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sparselabs/ragserve/internal/embedding"
	"github.com/sparselabs/ragserve/internal/llm"
	"github.com/sparselabs/ragserve/internal/vectorstore"
)

const (
	// DefaultSearchLimit caps retrieval when the request omits one.
	DefaultSearchLimit = 10
	// DefaultModel is the generation model used when the request
	// omits one.
	DefaultModel = "gpt-4.1"

	// DefaultSearchTimeout and DefaultGenerateTimeout bound the two
	// outbound calls a request makes; a hung index or model call
	// fails the request instead of holding it open.
	DefaultSearchTimeout   = 30 * time.Second
	DefaultGenerateTimeout = 2 * time.Minute

	passageSeparator = "\n\n---\n\n"

	promptTemplate = "Based on this context:\n\n```text\n%s\n```\n\n, reply to this query:\n\n```text\n%s\n```"
)

// Request is one incoming query.
type Request struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
	Model string `json:"model,omitempty"`
}

// Response carries the generated answer and the passages it was
// grounded on, in retrieval rank order.
type Response struct {
	Response  string   `json:"response"`
	Retrieved []string `json:"retrieved"`
}

// QueryError is the structured failure a request ends with. It never
// takes the serving process down.
type QueryError struct {
	StatusCode int    `json:"status_code"`
	Detail     string `json:"detail"`
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query failed (%d): %s", e.StatusCode, e.Detail)
}

// Orchestrator answers queries: embed, search, assemble context,
// generate. Each request is independent; the store and gateway
// handles are shared read-only across in-flight requests.
type Orchestrator struct {
	embedder *embedding.BM25
	store    vectorstore.Store
	gateway  llm.Gateway

	searchTimeout   time.Duration
	generateTimeout time.Duration
}

func NewOrchestrator(embedder *embedding.BM25, store vectorstore.Store, gateway llm.Gateway) *Orchestrator {
	return &Orchestrator{
		embedder:        embedder,
		store:           store,
		gateway:         gateway,
		searchTimeout:   DefaultSearchTimeout,
		generateTimeout: DefaultGenerateTimeout,
	}
}

// Answer runs the full serving path for one request. Any stage
// failure comes back as a *QueryError.
func (o *Orchestrator) Answer(ctx context.Context, req Request) (*Response, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	model := req.Model
	if model == "" {
		model = DefaultModel
	}

	vec := o.embedder.Embed(req.Query)

	slog.Info("vector search starting", "query", req.Query)
	searchStart := time.Now()
	searchCtx, cancelSearch := context.WithTimeout(ctx, o.searchTimeout)
	retrieved, err := o.store.Search(searchCtx, vec, uint64(limit))
	cancelSearch()
	if err != nil {
		return nil, &QueryError{
			StatusCode: 500,
			Detail:     fmt.Sprintf("could not retrieve results: %s", err),
		}
	}
	searchElapsed := time.Since(searchStart)
	slog.Info("vector search done",
		"query", req.Query, "results", len(retrieved), "limit", limit,
		"elapsed_ms", searchElapsed.Milliseconds())

	prompt := fmt.Sprintf(promptTemplate, strings.Join(retrieved, passageSeparator), req.Query)

	slog.Info("generation starting", "query", req.Query, "model", model)
	genStart := time.Now()
	genCtx, cancelGen := context.WithTimeout(ctx, o.generateTimeout)
	answer, err := o.gateway.Generate(genCtx, model, prompt)
	cancelGen()
	if err != nil {
		return nil, &QueryError{
			StatusCode: 500,
			Detail:     fmt.Sprintf("could not generate a response: %s", err),
		}
	}
	if answer == "" {
		return nil, &QueryError{
			StatusCode: 500,
			Detail:     "no response was generated",
		}
	}
	genElapsed := time.Since(genStart)
	slog.Info("generation done",
		"query", req.Query, "model", model, "elapsed_ms", genElapsed.Milliseconds())
	slog.Debug("request latency",
		"query", req.Query, "total_ms", (searchElapsed + genElapsed).Milliseconds())

	return &Response{Response: answer, Retrieved: retrieved}, nil
}
