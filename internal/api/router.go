package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sparselabs/ragserve/internal/api/handlers"
	"github.com/sparselabs/ragserve/internal/api/middleware"
	"github.com/sparselabs/ragserve/internal/config"
	"github.com/sparselabs/ragserve/internal/vectorstore"
)

type Router struct {
	mux          *chi.Mux
	cfg          *config.Config
	orchestrator handlers.Answerer
	store        vectorstore.Store
}

func NewRouter(cfg *config.Config, orchestrator handlers.Answerer, store vectorstore.Store) *Router {
	return &Router{
		mux:          chi.NewRouter(),
		cfg:          cfg,
		orchestrator: orchestrator,
		store:        store,
	}
}

func (rt *Router) Setup() http.Handler {
	r := rt.mux

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(rt.cfg.Serve.CORSOrigin))

	rl := middleware.NewRateLimiter(rt.cfg.Serve.RateLimitPerMinute)
	r.Use(rl.Limit)

	health := handlers.NewHealthHandler(rt.store)
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)

	queryH := handlers.NewQueryHandler(rt.orchestrator)
	r.Post("/queries", queryH.Query)

	return r
}
