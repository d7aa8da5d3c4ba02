// Command seed builds a climate record store from the CSV resources:
//
//	seed -db Resources/hawaii.sqlite \
//	     -stations Resources/hawaii_stations.csv \
//	     -measurements Resources/hawaii_measurements.csv
//
// Without -db the SQLITE_PATH / DB_DSN configuration is used.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/sberahim/sqlalchemy-challenge/internal/config"
	"github.com/sberahim/sqlalchemy-challenge/internal/db"
	"github.com/sberahim/sqlalchemy-challenge/internal/logging"
	"github.com/sberahim/sqlalchemy-challenge/internal/migrate"
)

var version = "dev"

func main() {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	slog.SetDefault(logging.New(os.Stderr, cfg, version))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		slog.Error("seed failed", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	fs.SetOutput(stdout)
	dbPath := fs.String("db", "", "SQLite file to create or extend (default: SQLITE_PATH)")
	stationsPath := fs.String("stations", "", "hawaii_stations.csv")
	measurementsPath := fs.String("measurements", "", "hawaii_measurements.csv")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *dbPath != "" {
		cfg.Path = *dbPath
		cfg.DSN = ""
	}

	conn, err := db.OpenReadWrite(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(conn); err != nil {
			slog.Error("db close", "error", err)
		}
	}()

	if err := migrate.Up(ctx, conn); err != nil {
		return err
	}

	stations, closeStations, err := openOptional(*stationsPath)
	if err != nil {
		return err
	}
	defer closeStations()
	measurements, closeMeasurements, err := openOptional(*measurementsPath)
	if err != nil {
		return err
	}
	defer closeMeasurements()

	res, err := migrate.LoadCSV(ctx, conn, stations, measurements)
	if err != nil {
		return err
	}

	schemaVersion, err := migrate.Version(ctx, conn)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(stdout, "schema version %d: loaded %d stations, %d measurements\n",
		schemaVersion, res.Stations, res.Measurements)
	return err
}

// openOptional returns a nil reader when path is empty.
func openOptional(path string) (io.Reader, func(), error) {
	if path == "" {
		return nil, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { _ = f.Close() }, nil
}
