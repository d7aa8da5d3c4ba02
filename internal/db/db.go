package db

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/sberahim/sqlalchemy-challenge/internal/config"

	sqlite3 "github.com/mattn/go-sqlite3"
	moderncsqlite "modernc.org/sqlite"
)

// Open opens the record store read-only. The service never writes, so the
// connection is opened with mode=ro and a missing file is an error rather
// than an empty database.
func Open(cfg config.Config) (*sql.DB, error) {
	return open(cfg, true)
}

// OpenReadWrite opens (and creates if needed) the database for tooling that
// builds a dataset, such as the seed command and tests.
func OpenReadWrite(cfg config.Config) (*sql.DB, error) {
	return open(cfg, false)
}

func open(cfg config.Config, readOnly bool) (*sql.DB, error) {
	dsn, err := buildDSN(cfg, readOnly)
	if err != nil {
		return nil, err
	}

	var db *sql.DB
	if cfg.LogSQL {
		connector, err := NewLoggingConnector(underlyingDriver(cfg.Driver), dsn, slog.Default())
		if err != nil {
			return nil, fmt.Errorf("db connector: %w", err)
		}
		db = sql.OpenDB(connector)
	} else {
		db, err = sql.Open(cfg.Driver, dsn)
		if err != nil {
			return nil, fmt.Errorf("db open: %w", err)
		}
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns >= 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}

	return db, nil
}

func Close(db *sql.DB) error {
	if db == nil {
		return nil
	}
	return db.Close()
}

func underlyingDriver(name string) driver.Driver {
	if name == "sqlite" {
		return &moderncsqlite.Driver{}
	}
	return &sqlite3.SQLiteDriver{}
}

func buildDSN(cfg config.Config, readOnly bool) (string, error) {
	if cfg.DSN != "" {
		return cfg.DSN, nil
	}

	path := cfg.Path
	if path == "" {
		return "", fmt.Errorf("SQLITE_PATH is empty")
	}

	if readOnly && !strings.HasPrefix(path, "file:") && path != ":memory:" {
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("record store %s: %w", path, err)
		}
	}

	params := driverParams(cfg.Driver, readOnly)

	if strings.HasPrefix(path, "file:") {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		return path + sep + strings.Join(params, "&"), nil
	}

	return fmt.Sprintf("file:%s?%s", path, strings.Join(params, "&")), nil
}

// driverParams returns DSN query parameters; the two drivers spell pragmas differently.
func driverParams(driverName string, readOnly bool) []string {
	var params []string
	if readOnly {
		params = append(params, "mode=ro")
	} else {
		params = append(params, "mode=rwc")
	}
	if driverName == "sqlite" {
		return append(params, "_pragma=busy_timeout(5000)")
	}
	return append(params, "_busy_timeout=5000")
}
