package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mohammed-shakir/farm-selector/internal/api"
	"github.com/mohammed-shakir/farm-selector/internal/core/config"
	"github.com/mohammed-shakir/farm-selector/internal/core/health"
	middleware "github.com/mohammed-shakir/farm-selector/internal/core/middleware"
)

// NewRouter builds the full HTTP surface of the selector.
func NewRouter(cfg config.Config, logger *slog.Logger, h *api.Handler, deps map[string]health.Pinger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recover(logger))
	r.Use(middleware.Logging(logger))
	r.Use(middleware.CORS(cfg.CORSOrigin))

	r.Get("/healthz", health.Liveness())
	r.Get("/readyz", health.Readiness(deps))
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	h.Routes(r)
	return r
}

// sets up http and starts serving
func Run(ctx context.Context, cfg config.Config, logger *slog.Logger, handler http.Handler) error {
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// a submit waits on the backend, so leave room past SubmitTimeout
		WriteTimeout: cfg.SubmitTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listen", "addr", cfg.Addr)
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
