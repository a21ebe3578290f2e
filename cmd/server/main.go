package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"landtrust/internal/platform/config"
	"landtrust/internal/platform/httpserver"
	"landtrust/internal/platform/logger"
	"landtrust/internal/platform/metrics"
)

const shutdownTimeout = 10 * time.Second

// main wires dependencies, exposes the HTTP router and keeps the server
// lifecycle small. Business logic lives in internal packages.
func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "landtrust:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("initializing landtrust",
		"addr", cfg.Addr,
		"environment", cfg.Environment,
		"providers", len(cfg.EnabledProviders()),
		"listing_sources", len(cfg.EnabledListings()),
	)

	a, err := build(ctx, cfg, log, metrics.NewRegistry())
	if err != nil {
		return err
	}
	defer a.close()

	srv := httpserver.New(cfg.Addr, a.router)
	errCh := make(chan error, 1)
	go func() {
		log.Info("starting http server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info("shutting down server gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	log.Info("server stopped")
	return nil
}
