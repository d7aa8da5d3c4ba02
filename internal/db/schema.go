package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"strings"
)

// expectedSchema is the fixed layout of the climate dataset.
var expectedSchema = map[string][]string{
	"measurement": {"id", "station", "date", "prcp", "tobs"},
	"station":     {"id", "station", "name", "latitude", "longitude", "elevation"},
}

// SchemaError lists every table or column the record store is missing.
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return "record store schema mismatch: missing " + strings.Join(e.Missing, ", ")
}

// ValidateSchema checks that the measurement and station tables exist with
// the columns the service queries.
func ValidateSchema(ctx context.Context, db *sql.DB) error {
	tables := make([]string, 0, len(expectedSchema))
	for t := range expectedSchema {
		tables = append(tables, t)
	}
	sort.Strings(tables)

	var missing []string
	for _, table := range tables {
		cols, err := tableColumns(ctx, db, table)
		if err != nil {
			return fmt.Errorf("inspect table %s: %w", table, err)
		}
		if len(cols) == 0 {
			missing = append(missing, "table "+table)
			continue
		}
		for _, col := range expectedSchema[table] {
			if !cols[col] {
				missing = append(missing, table+"."+col)
			}
		}
	}

	if len(missing) > 0 {
		return &SchemaError{Missing: missing}
	}
	slog.Debug("record store schema ok", "tables", tables)
	return nil
}

func tableColumns(ctx context.Context, db *sql.DB, table string) (map[string]bool, error) {
	rows, err := db.QueryContext(ctx, `SELECT name FROM pragma_table_info(?)`, table)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close table_info rows", "table", table, "error", err)
		}
	}()

	cols := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		cols[strings.ToLower(name)] = true
	}
	return cols, rows.Err()
}
