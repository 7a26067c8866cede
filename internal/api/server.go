package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sparselabs/ragserve/internal/config"
	"github.com/sparselabs/ragserve/internal/vectorstore"
)

const readinessTimeout = 30 * time.Second

// Server wraps the HTTP stack for the serving path. Before accepting
// traffic it checks once that the collection is populated; serving
// against an empty or missing index refuses to start.
type Server struct {
	cfg    *config.Config
	router *Router
	store  vectorstore.Store
}

func NewServer(cfg *config.Config, router *Router, store vectorstore.Store) *Server {
	return &Server{cfg: cfg, router: router, store: store}
}

func (s *Server) Run(ctx context.Context) error {
	readyCtx, cancel := context.WithTimeout(ctx, readinessTimeout)
	defer cancel()

	ready, err := s.store.Ready(readyCtx)
	if err != nil {
		return fmt.Errorf("startup readiness check: %w", err)
	}
	if !ready {
		return errors.New("collection holds no vectors; run the load command first")
	}

	srv := &http.Server{
		Addr:         s.cfg.Addr(),
		Handler:      s.router.Setup(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting query server", "addr", s.cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	case <-quit:
	}

	slog.Info("shutting down server...")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced shutdown: %w", err)
	}
	slog.Info("server stopped")
	return nil
}
