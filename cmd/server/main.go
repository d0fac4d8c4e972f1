// Package main is the entry point for DealDesk, a CRM record store with a
// rule-based insight engine and a live pipeline dashboard.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/dealdesk/internal/config"
	"github.com/aristath/dealdesk/internal/di"
	"github.com/aristath/dealdesk/internal/server"
	"github.com/aristath/dealdesk/pkg/logger"
)

// getEnv retrieves an environment variable value, returning a fallback if the
// variable is not set or is empty
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// main loads configuration, wires the record store and services, starts the
// scheduler and HTTP server, then waits for a shutdown signal.
func main() {
	cfg, err := config.Load()
	if err != nil {
		// Use fallback logger if config fails
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	version := getEnv("VERSION", "dev")
	log.Info().Str("version", version).Str("data_dir", cfg.DataDir).Msg("Starting DealDesk")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	container, _, err := di.Wire(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}

	srv := server.New(server.Config{
		Log:       log,
		Config:    cfg,
		Container: container,
		Version:   version,
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	container.Scheduler.Start()

	// Compute the default dashboard once so the first request is a memo hit
	if _, err := container.DashboardService.Refresh(ctx, "startup", cfg.MaxInsights); err != nil {
		log.Warn().Err(err).Msg("Initial insight refresh failed")
	}

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Stops the scheduler (waiting for running jobs) and closes the store
	if err := container.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close record store")
	}

	log.Info().Msg("Server stopped")
}
