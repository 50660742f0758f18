// Command stub-backend stands in for the farm location backend during local runs.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mohammed-shakir/farm-selector/internal/core/health"
	"github.com/mohammed-shakir/farm-selector/internal/logger"
	"github.com/mohammed-shakir/farm-selector/internal/submitter"
)

var Version = "dev"

func main() {
	cfg, err := LoadConfig(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}
	zl := logger.Build(logger.Config{Level: cfg.LogLevel, Component: "stub-backend"}, os.Stdout)
	log := logger.NewSlog(&zl)
	log.Info("starting stub-backend", "addr", cfg.Addr, "version", Version, "fail", cfg.Fail)

	// HTTP server
	router := http.NewServeMux()
	router.HandleFunc("GET /healthz", health.Liveness())
	router.Handle("POST "+submitter.LocationInputPath, locationHandler(log, cfg.Fail, time.Now))
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Start server
	serverErrCh := make(chan error, 1)
	go func() {
		log.Info("http listen", "addr", cfg.Addr)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- err
		}
	}()

	// Shutdown
	shutdownSignalCh := make(chan os.Signal, 1)
	signal.Notify(shutdownSignalCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-shutdownSignalCh:
		log.Info("signal received, shutting down", "signal", sig.String())
	case err := <-serverErrCh:
		log.Error("server error", "err", err)
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	_ = httpServer.Shutdown(shutdownCtx)
	log.Info("server stopped")
}
