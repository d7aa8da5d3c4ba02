package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sberahim/sqlalchemy-challenge/internal/config"
	"github.com/sberahim/sqlalchemy-challenge/internal/db"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func TestRun_SeedsStore(t *testing.T) {
	dir := t.TempDir()
	stations := writeFile(t, dir, "hawaii_stations.csv",
		"station,name,latitude,longitude,elevation\nUSC00519397,\"WAIKIKI 717.2, HI US\",21.2716,-157.8168,3.0\n")
	measurements := writeFile(t, dir, "hawaii_measurements.csv",
		"station,date,prcp,tobs\nUSC00519397,2010-01-01,0.08,65\nUSC00519397,2010-01-02,0.0,63\n")
	dbPath := filepath.Join(dir, "hawaii.sqlite")

	cfg := config.Config{Driver: "sqlite3", Path: "ignored.sqlite"}
	var out bytes.Buffer
	err := run(context.Background(), cfg, []string{
		"-db", dbPath, "-stations", stations, "-measurements", measurements,
	}, &out)
	require.NoError(t, err)
	assert.Equal(t, "schema version 2: loaded 1 stations, 2 measurements\n", out.String())

	ro, err := db.Open(config.Config{Driver: "sqlite3", Path: dbPath})
	require.NoError(t, err)
	defer func() { _ = ro.Close() }()
	require.NoError(t, db.ValidateSchema(context.Background(), ro))

	var n int
	require.NoError(t, ro.QueryRow(`SELECT COUNT(*) FROM measurement`).Scan(&n))
	assert.Equal(t, 2, n)
}

func TestRun_SchemaOnly(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "empty.sqlite")
	var out bytes.Buffer
	err := run(context.Background(), config.Config{Driver: "sqlite", Path: dbPath}, nil, &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "loaded 0 stations, 0 measurements")
}

func TestRun_MissingCSV(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "x.sqlite")
	err := run(context.Background(), config.Config{Driver: "sqlite3"}, []string{
		"-db", dbPath, "-stations", filepath.Join(t.TempDir(), "nope.csv"),
	}, &bytes.Buffer{})
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestRun_BadFlag(t *testing.T) {
	err := run(context.Background(), config.Config{}, []string{"-unknown"}, &bytes.Buffer{})
	require.Error(t, err)
}
