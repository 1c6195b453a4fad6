package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/scorecheck/backend/internal/config"
	"github.com/scorecheck/backend/internal/database"
	"github.com/scorecheck/backend/internal/services"
)

// Prunes expired refresh tokens and student responses older than
// RESPONSE_RETENTION. Meant to run from cron.
func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := config.SetupLogging(cfg.Logging, os.Stderr)

	db, err := database.Connect(cfg)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	now := time.Now()
	tokens, err := services.NewAuthService(db, cfg).PruneTokens(ctx, now)
	if err != nil {
		logger.Error("pruning refresh tokens failed", "error", err)
		os.Exit(1)
	}

	cutoff := now.Add(-cfg.Cleanup.ResponseRetention)
	responses, err := services.NewStatsService(db).PruneResponses(ctx, cutoff)
	if err != nil {
		logger.Error("pruning student responses failed", "error", err)
		os.Exit(1)
	}

	logger.Info("cleanup completed", "refresh_tokens", tokens, "responses", responses, "cutoff", cutoff.Format(time.RFC3339))
}
