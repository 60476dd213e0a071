// Package server assembles the HTTP surface and runs it until shutdown.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mohammed-shakir/healpix-index/internal/core/config"
	"github.com/mohammed-shakir/healpix-index/internal/core/health"
	middleware "github.com/mohammed-shakir/healpix-index/internal/core/middleware"
	"github.com/mohammed-shakir/healpix-index/internal/core/router"
)

type Options struct {
	// MetricsHandler serves /metrics; the default registry is used when nil.
	MetricsHandler http.Handler
	Readiness      []health.ReadinessReporter
}

// NewHandler builds the routed handler without starting a listener.
func NewHandler(logger *slog.Logger, deps router.Deps, opts Options) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recover(logger))
	r.Use(middleware.Logging(logger))
	r.Use(middleware.Metrics())
	r.Use(middleware.CORS())

	mh := opts.MetricsHandler
	if mh == nil {
		mh = promhttp.Handler()
	}

	r.Get("/healthz", health.Liveness())
	r.Get("/readyz", health.Readiness(opts.Readiness...))
	r.Method(http.MethodGet, "/metrics", mh)

	if deps.Logger == nil {
		deps.Logger = logger
	}
	router.Mount(r, deps)
	return r
}

// Run sets up http and serves until ctx is cancelled.
func Run(ctx context.Context, cfg config.Config, logger *slog.Logger, deps router.Deps, opts Options) error {
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           NewHandler(logger, deps, opts),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
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
