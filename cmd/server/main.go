package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/sberahim/sqlalchemy-challenge/internal/app"
	"github.com/sberahim/sqlalchemy-challenge/internal/config"
	"github.com/sberahim/sqlalchemy-challenge/internal/logging"
)

// Default version is "dev" if not set with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	envErr := godotenv.Load(".env")

	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(os.Stdout, cfg, version)
	slog.SetDefault(logger)

	if envErr != nil && !errors.Is(envErr, os.ErrNotExist) {
		slog.Warn("could not load .env", "error", envErr)
	}

	slog.Info("starting",
		"version", version,
		"env", cfg.AppEnv,
		"log_level", cfg.LogLevel.String(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run failed", "err", err)
		os.Exit(1)
	}

	slog.Info("shutting down")
}
