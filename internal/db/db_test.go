package db

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sberahim/sqlalchemy-challenge/internal/config"
)

func TestBuildDSN(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "hawaii.sqlite")
	if err := os.WriteFile(existing, nil, 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	tests := []struct {
		name     string
		cfg      config.Config
		readOnly bool
		want     string
		wantErr  bool
	}{
		{
			name: "explicit DSN wins",
			cfg:  config.Config{Driver: "sqlite3", DSN: "file:x.db?mode=ro", Path: existing},
			want: "file:x.db?mode=ro",
		},
		{
			name:     "mattn read-only",
			cfg:      config.Config{Driver: "sqlite3", Path: existing},
			readOnly: true,
			want:     "file:" + existing + "?mode=ro&_busy_timeout=5000",
		},
		{
			name:     "modernc read-only",
			cfg:      config.Config{Driver: "sqlite", Path: existing},
			readOnly: true,
			want:     "file:" + existing + "?mode=ro&_pragma=busy_timeout(5000)",
		},
		{
			name: "read-write creates",
			cfg:  config.Config{Driver: "sqlite3", Path: filepath.Join(dir, "new.db")},
			want: "file:" + filepath.Join(dir, "new.db") + "?mode=rwc&_busy_timeout=5000",
		},
		{
			name:     "file: prefix with params is appended",
			cfg:      config.Config{Driver: "sqlite3", Path: "file:data.db?cache=shared"},
			readOnly: true,
			want:     "file:data.db?cache=shared&mode=ro&_busy_timeout=5000",
		},
		{
			name:     "missing file is an error when read-only",
			cfg:      config.Config{Driver: "sqlite3", Path: filepath.Join(dir, "absent.sqlite")},
			readOnly: true,
			wantErr:  true,
		},
		{
			name:    "empty path",
			cfg:     config.Config{Driver: "sqlite3"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := buildDSN(tt.cfg, tt.readOnly)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("buildDSN() = %q, nil; want error", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("buildDSN() err = %v", err)
			}
			if got != tt.want {
				t.Errorf("buildDSN() = %q; want %q", got, tt.want)
			}
		})
	}
}

func TestOpen_ReadOnlyRejectsWrites(t *testing.T) {
	for _, driverName := range []string{"sqlite3", "sqlite"} {
		t.Run(driverName, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "store.db")
			cfg := config.Config{Driver: driverName, Path: path, MaxOpenConns: 1, MaxIdleConns: 1}

			rw, err := OpenReadWrite(cfg)
			if err != nil {
				t.Fatalf("OpenReadWrite: %v", err)
			}
			if _, err := rw.Exec(`CREATE TABLE t (id INTEGER)`); err != nil {
				t.Fatalf("create: %v", err)
			}
			if err := Close(rw); err != nil {
				t.Fatalf("close: %v", err)
			}

			ro, err := Open(cfg)
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			defer func() { _ = Close(ro) }()

			if _, err := ro.Exec(`INSERT INTO t (id) VALUES (1)`); err == nil {
				t.Fatal("insert on read-only store succeeded; want error")
			}
		})
	}
}

func TestOpen_LogSQLConnector(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logged.db")
	db, err := OpenReadWrite(config.Config{Driver: "sqlite3", Path: path, LogSQL: true, MaxOpenConns: 1})
	if err != nil {
		t.Fatalf("OpenReadWrite: %v", err)
	}
	defer func() { _ = Close(db) }()

	if _, ok := db.Driver().(*loggingDriver); !ok {
		t.Fatalf("driver = %T; want *loggingDriver", db.Driver())
	}
}

func TestClose_Nil(t *testing.T) {
	if err := Close(nil); err != nil {
		t.Fatalf("Close(nil) = %v; want nil", err)
	}
}

func TestValidateSchema(t *testing.T) {
	ctx := context.Background()

	t.Run("complete schema", func(t *testing.T) {
		db, err := OpenReadWrite(config.Config{Driver: "sqlite3", Path: filepath.Join(t.TempDir(), "ok.db"), MaxOpenConns: 1})
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		defer func() { _ = Close(db) }()
		_, err = db.Exec(`
			CREATE TABLE measurement (id INTEGER PRIMARY KEY, station TEXT, date TEXT, prcp FLOAT, tobs FLOAT);
			CREATE TABLE station (id INTEGER PRIMARY KEY, station TEXT, name TEXT, latitude FLOAT, longitude FLOAT, elevation FLOAT);
		`)
		if err != nil {
			t.Fatalf("create: %v", err)
		}

		if err := ValidateSchema(ctx, db); err != nil {
			t.Fatalf("ValidateSchema() = %v; want nil", err)
		}
	})

	t.Run("missing table and column", func(t *testing.T) {
		db, err := OpenReadWrite(config.Config{Driver: "sqlite3", Path: filepath.Join(t.TempDir(), "bad.db"), MaxOpenConns: 1})
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		defer func() { _ = Close(db) }()
		if _, err := db.Exec(`CREATE TABLE measurement (id INTEGER PRIMARY KEY, station TEXT, date TEXT, prcp FLOAT)`); err != nil {
			t.Fatalf("create: %v", err)
		}

		err = ValidateSchema(ctx, db)
		var schemaErr *SchemaError
		if !errors.As(err, &schemaErr) {
			t.Fatalf("ValidateSchema() = %v; want *SchemaError", err)
		}
		msg := schemaErr.Error()
		for _, want := range []string{"measurement.tobs", "table station"} {
			if !strings.Contains(msg, want) {
				t.Errorf("error %q does not mention %q", msg, want)
			}
		}
	})
}
