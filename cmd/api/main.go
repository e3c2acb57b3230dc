// Command api is the MLB data API server.
//
// Usage:
//
//	mlb-api
//	API_PORT=8080 HISTORICAL_STORE=memory mlb-api

// @title MLB Data API
// @version 1.0.0
// @description Hybrid MLB data API. Closed seasons are served from the historical store, the open season from live providers, both behind a TTL cache.
// @host localhost:8000
// @BasePath /
// @schemes http https
// @license.name MIT
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

	"github.com/joho/godotenv"
	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"

	"github.com/hankstank/mlb-data/internal/api"
	"github.com/hankstank/mlb-data/internal/app"
	"github.com/hankstank/mlb-data/internal/config"
	"github.com/hankstank/mlb-data/internal/logging"

	_ "github.com/hankstank/mlb-data/docs" // swagger docs
)

func main() {
	// Load .env if present
	_ = godotenv.Load(".env")

	cfg, err := config.Load()
	if err != nil {
		logging.Setup(logging.Config{}).Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger := logging.Setup(logging.Config{Format: cfg.LogFormat, Level: cfg.LogLevel})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize", "error", err)
		os.Exit(1)
	}
	defer a.Close()
	logger.Info("Components ready",
		"historical_store", cfg.HistoricalStore,
		"event_store", cfg.EventStore,
		"min_season", cfg.Seasons.MinSeason,
		"current_season", cfg.Seasons.CurrentSeason,
		"task_queue", queueKind(cfg))

	addr := fmt.Sprintf("%s:%d", cfg.APIHost, cfg.APIPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      api.NewRouter(a.HandlerDeps(), a.Metrics, cfg),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	hook := (&sutureslog.Handler{Logger: logger}).MustHook()
	sup := suture.New("mlb-api", suture.Spec{
		EventHook:      hook,
		FailureBackoff: 15 * time.Second,
		Timeout:        15 * time.Second,
	})
	for _, svc := range a.Services() {
		sup.Add(svc)
	}
	sup.Add(&api.Service{Server: srv, ShutdownTimeout: 10 * time.Second, Logger: logger})

	logger.Info("Starting MLB Data API",
		"addr", addr,
		"environment", cfg.Environment,
		"docs", fmt.Sprintf("http://localhost:%d/docs/", cfg.APIPort))

	if err := sup.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Supervisor stopped", "error", err)
	}

	logger.Info("Shutting down...")
	a.Wait()
	logger.Info("Server stopped")
}

func queueKind(cfg *config.Config) string {
	if cfg.NATSURL != "" {
		return "jetstream"
	}
	return "local"
}
