// Package migrate builds a climate dataset from scratch: goose migrations
// create the station and measurement tables, and LoadCSV fills them from the
// hawaii_stations.csv / hawaii_measurements.csv resources.
//
// The service itself never migrates; it opens an existing store read-only.
package migrate

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/pressly/goose/v3"
)

//go:embed sql/*.sql
var sqlFS embed.FS

const migrationsDir = "sql"

// Up applies every embedded migration that has not been applied yet.
func Up(ctx context.Context, db *sql.DB) error {
	provider, err := newProvider(db)
	if err != nil {
		return err
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	for _, r := range results {
		slog.Info("migration applied",
			"version", r.Source.Version,
			"path", r.Source.Path,
			"duration_ms", r.Duration.Milliseconds(),
		)
	}
	return nil
}

// Version reports the highest applied migration version.
func Version(ctx context.Context, db *sql.DB) (int64, error) {
	provider, err := newProvider(db)
	if err != nil {
		return 0, err
	}
	return provider.GetDBVersion(ctx)
}

func newProvider(db *sql.DB) (*goose.Provider, error) {
	fsys, err := fs.Sub(sqlFS, migrationsDir)
	if err != nil {
		return nil, fmt.Errorf("migrations dir: %w", err)
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, fsys)
	if err != nil {
		return nil, fmt.Errorf("goose provider: %w", err)
	}
	return provider, nil
}
