package config

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// DateLayout is the calendar date format used by the measurement table and the API.
const DateLayout = "2006-01-02"

type Config struct {
	AppEnv   string
	LogLevel slog.Level
	HTTPAddr string

	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Driver is the database/sql driver name: "sqlite3" (mattn) or "sqlite" (modernc).
	Driver          string
	DSN             string
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	LogSQL          bool

	LookbackDays int
	// ReferenceDate pins the end of the lookback window. Zero means the latest
	// date present in the measurement table.
	ReferenceDate time.Time

	BreakerMaxFailures uint32
	BreakerTimeout     time.Duration
	BreakerInterval    time.Duration
}

type env struct {
	AppEnv   string `envconfig:"APP_ENV" default:"dev"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`

	ReadTimeout  time.Duration `envconfig:"HTTP_READ_TIMEOUT" default:"10s"`
	WriteTimeout time.Duration `envconfig:"HTTP_WRITE_TIMEOUT" default:"30s"`

	Driver          string        `envconfig:"DB_DRIVER" default:"sqlite3"`
	DSN             string        `envconfig:"DB_DSN"`
	Path            string        `envconfig:"SQLITE_PATH" default:"Resources/hawaii.sqlite"`
	MaxOpenConns    int           `envconfig:"DB_MAX_OPEN_CONNS" default:"4"`
	MaxIdleConns    int           `envconfig:"DB_MAX_IDLE_CONNS" default:"4"`
	ConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"0s"`
	LogSQL          bool          `envconfig:"DB_LOG_SQL" default:"false"`

	LookbackDays  int    `envconfig:"LOOKBACK_DAYS" default:"365"`
	ReferenceDate string `envconfig:"REFERENCE_DATE"`

	BreakerMaxFailures uint32        `envconfig:"BREAKER_MAX_FAILURES" default:"5"`
	BreakerTimeout     time.Duration `envconfig:"BREAKER_TIMEOUT" default:"10s"`
	BreakerInterval    time.Duration `envconfig:"BREAKER_INTERVAL" default:"30s"`
}

func LoadFromEnv() (Config, error) {
	var e env
	if err := envconfig.Process("", &e); err != nil {
		return Config{}, fmt.Errorf("process env: %w", err)
	}

	// A variable that is set but blank bypasses envconfig defaults.
	appEnv := orDefault(e.AppEnv, "dev")
	switch appEnv {
	case "dev", "prod":
	default:
		return Config{}, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", appEnv)
	}

	level, err := parseLogLevel(orDefault(e.LogLevel, "info"))
	if err != nil {
		return Config{}, err
	}

	driver := orDefault(e.Driver, "sqlite3")
	switch driver {
	case "sqlite3", "sqlite":
	default:
		return Config{}, fmt.Errorf("invalid DB_DRIVER %q (allowed: sqlite3, sqlite)", driver)
	}

	path := orDefault(e.Path, "Resources/hawaii.sqlite")
	if !strings.HasPrefix(path, "file:") && path != ":memory:" {
		path = filepath.Clean(path)
	}

	if e.LookbackDays <= 0 {
		return Config{}, fmt.Errorf("invalid LOOKBACK_DAYS %d (must be > 0)", e.LookbackDays)
	}

	var reference time.Time
	if s := strings.TrimSpace(e.ReferenceDate); s != "" {
		reference, err = time.Parse(DateLayout, s)
		if err != nil {
			return Config{}, fmt.Errorf("invalid REFERENCE_DATE %q (expected YYYY-MM-DD): %w", s, err)
		}
	}

	if e.BreakerMaxFailures == 0 {
		return Config{}, fmt.Errorf("invalid BREAKER_MAX_FAILURES %d (must be > 0)", e.BreakerMaxFailures)
	}

	return Config{
		AppEnv:             appEnv,
		LogLevel:           level,
		HTTPAddr:           orDefault(e.HTTPAddr, ":8080"),
		ReadTimeout:        e.ReadTimeout,
		WriteTimeout:       e.WriteTimeout,
		Driver:             driver,
		DSN:                strings.TrimSpace(e.DSN),
		Path:               path,
		MaxOpenConns:       e.MaxOpenConns,
		MaxIdleConns:       e.MaxIdleConns,
		ConnMaxLifetime:    e.ConnMaxLifetime,
		LogSQL:             e.LogSQL,
		LookbackDays:       e.LookbackDays,
		ReferenceDate:      reference,
		BreakerMaxFailures: e.BreakerMaxFailures,
		BreakerTimeout:     e.BreakerTimeout,
		BreakerInterval:    e.BreakerInterval,
	}, nil
}

func orDefault(s, def string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	return s
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}
