package app

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/sberahim/sqlalchemy-challenge/internal/config"
	"github.com/sberahim/sqlalchemy-challenge/internal/db"
	"github.com/sberahim/sqlalchemy-challenge/internal/httpapi"
	"github.com/sberahim/sqlalchemy-challenge/internal/metrics"
	"github.com/sberahim/sqlalchemy-challenge/internal/modules/climate"
	"github.com/sberahim/sqlalchemy-challenge/internal/modules/climate/views"
)

const shutdownTimeout = 10 * time.Second

func Run(ctx context.Context, cfg config.Config) error {
	slog.Info("config loaded",
		"appEnv", cfg.AppEnv,
		"logLevel", cfg.LogLevel.String(),
		"httpAddr", cfg.HTTPAddr,
		"dbDriver", cfg.Driver,
		"sqlitePath", cfg.Path,
		"dbMaxOpenConns", cfg.MaxOpenConns,
		"dbMaxIdleConns", cfg.MaxIdleConns,
		"dbConnMaxLifetime", cfg.ConnMaxLifetime,
		"lookbackDays", cfg.LookbackDays,
		"referenceDate", referenceDate(cfg),
	)
	dbConn, err := db.Open(cfg)
	if err != nil {
		return err
	}
	defer func() {
		closeErr := db.Close(dbConn)
		if closeErr != nil {
			slog.Error("db close", "error", closeErr)
		}
	}()

	if err := db.ValidateSchema(ctx, dbConn); err != nil {
		return err
	}
	slog.Info("record store schema ok")

	if err := views.LoadTemplates(); err != nil {
		return err
	}

	handler, m := NewHandler(dbConn, cfg)
	srv := httpapi.NewServer(cfg, handler, m)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http listening", "addr", cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	slog.Info("http shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	err = <-errCh
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return ctx.Err()
}

// NewHandler wires the routes on top of an open store. Templates must already
// be loaded.
func NewHandler(dbConn *sql.DB, cfg config.Config) (http.Handler, *metrics.Metrics) {
	m := metrics.New(dbConn)
	mux := httpapi.NewMux(dbConn, m.Handler())
	climate.RegisterFeature(mux, dbConn, cfg, m)
	return mux, m
}

func referenceDate(cfg config.Config) string {
	if cfg.ReferenceDate.IsZero() {
		return "latest measurement"
	}
	return cfg.ReferenceDate.Format(config.DateLayout)
}
