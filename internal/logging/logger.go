package logging

import (
	"io"
	"log/slog"
	"time"

	"github.com/lmittmann/tint"

	"github.com/sberahim/sqlalchemy-challenge/internal/config"
)

const AppName = "climate-api"

// New returns the process logger. Development builds get a colourised tint
// handler; release builds emit JSON tagged with version and environment.
func New(w io.Writer, cfg config.Config, version string) *slog.Logger {
	if version == "dev" {
		h := tint.NewHandler(w, &tint.Options{
			Level:      cfg.LogLevel,
			AddSource:  true,
			TimeFormat: time.Kitchen,
		})
		return slog.New(h).With("app", AppName)
	}

	h := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	})
	return slog.New(h).With(
		"app", AppName,
		"version", version,
		"env", cfg.AppEnv,
	)
}
