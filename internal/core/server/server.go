package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mohammed-shakir/supermarkt-search/internal/core/health"
	middleware "github.com/mohammed-shakir/supermarkt-search/internal/core/middleware"
	"github.com/mohammed-shakir/supermarkt-search/internal/core/router"
)

// NewRouter mounts the API routes and probes. metrics may be nil.
func NewRouter(logger *slog.Logger, h *router.Handlers, ready health.ReadinessReporter, metrics http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recover(logger))
	r.Use(middleware.Logging(logger))
	r.Use(middleware.CORS())

	r.Get("/health", health.Liveness())
	r.Get("/ready", health.Readiness(ready))
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}

	r.Post("/geocode", router.Observe("/geocode", h.Geocode))
	r.Post("/supermarkets", router.Observe("/supermarkets", h.Supermarkets))
	r.Get("/search", router.Observe("/search", h.Search))
	return r
}

// sets up http and serves until ctx is done
func Run(ctx context.Context, addr string, handler http.Handler, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listen", "addr", addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		return err
	}
}
