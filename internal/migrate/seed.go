package migrate

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

var (
	stationHeader     = []string{"station", "name", "latitude", "longitude", "elevation"}
	measurementHeader = []string{"station", "date", "prcp", "tobs"}
)

// LoadResult counts the rows inserted by LoadCSV.
type LoadResult struct {
	Stations     int
	Measurements int
}

// LoadCSV inserts stations and measurements in a single transaction. Either
// reader may be nil. Empty prcp/tobs cells become NULL.
func LoadCSV(ctx context.Context, db *sql.DB, stations, measurements io.Reader) (LoadResult, error) {
	var res LoadResult

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return res, fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			slog.Error("seed rollback", "error", err)
		}
	}()

	if stations != nil {
		n, err := loadStations(ctx, tx, stations)
		if err != nil {
			return res, fmt.Errorf("stations: %w", err)
		}
		res.Stations = n
	}
	if measurements != nil {
		n, err := loadMeasurements(ctx, tx, measurements)
		if err != nil {
			return res, fmt.Errorf("measurements: %w", err)
		}
		res.Measurements = n
	}

	if err := tx.Commit(); err != nil {
		return res, fmt.Errorf("commit: %w", err)
	}
	return res, nil
}

func loadStations(ctx context.Context, tx *sql.Tx, r io.Reader) (int, error) {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO station (station, name, latitude, longitude, elevation) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer func() { _ = stmt.Close() }()

	return eachRecord(r, stationHeader, func(line int, rec []string) error {
		lat, err := strconv.ParseFloat(rec[2], 64)
		if err != nil {
			return fmt.Errorf("line %d: latitude %q: %w", line, rec[2], err)
		}
		lon, err := strconv.ParseFloat(rec[3], 64)
		if err != nil {
			return fmt.Errorf("line %d: longitude %q: %w", line, rec[3], err)
		}
		elev, err := strconv.ParseFloat(rec[4], 64)
		if err != nil {
			return fmt.Errorf("line %d: elevation %q: %w", line, rec[4], err)
		}
		_, err = stmt.ExecContext(ctx, rec[0], rec[1], lat, lon, elev)
		return err
	})
}

func loadMeasurements(ctx context.Context, tx *sql.Tx, r io.Reader) (int, error) {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO measurement (station, date, prcp, tobs) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer func() { _ = stmt.Close() }()

	return eachRecord(r, measurementHeader, func(line int, rec []string) error {
		if _, err := time.Parse(dateLayout, rec[1]); err != nil {
			return fmt.Errorf("line %d: date %q (expected YYYY-MM-DD): %w", line, rec[1], err)
		}
		prcp, err := nullableFloat(rec[2])
		if err != nil {
			return fmt.Errorf("line %d: prcp %q: %w", line, rec[2], err)
		}
		tobs, err := nullableFloat(rec[3])
		if err != nil {
			return fmt.Errorf("line %d: tobs %q: %w", line, rec[3], err)
		}
		_, err = stmt.ExecContext(ctx, rec[0], rec[1], prcp, tobs)
		return err
	})
}

// eachRecord checks the header row then calls fn for every data row.
func eachRecord(r io.Reader, header []string, fn func(line int, rec []string) error) (int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(header)
	cr.TrimLeadingSpace = true

	got, err := cr.Read()
	if err != nil {
		return 0, fmt.Errorf("read header: %w", err)
	}
	for i, col := range header {
		if !strings.EqualFold(strings.TrimSpace(got[i]), col) {
			return 0, fmt.Errorf("header column %d = %q; want %q", i+1, got[i], col)
		}
	}

	n := 0
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return n, nil
		}
		if err != nil {
			return n, err
		}
		if err := fn(line, rec); err != nil {
			return n, err
		}
		n++
	}
}

func nullableFloat(s string) (sql.NullFloat64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return sql.NullFloat64{}, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return sql.NullFloat64{}, err
	}
	return sql.NullFloat64{Float64: f, Valid: true}, nil
}
