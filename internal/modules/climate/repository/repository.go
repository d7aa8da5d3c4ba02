package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sberahim/sqlalchemy-challenge/internal/config"
	"github.com/sberahim/sqlalchemy-challenge/internal/modules/climate/types"
)

//go:embed sql/get-latest-date.sql
var getLatestDateSQL string

//go:embed sql/get-precipitation.sql
var getPrecipitationSQL string

//go:embed sql/get-stations.sql
var getStationsSQL string

//go:embed sql/get-station-counts.sql
var getStationCountsSQL string

//go:embed sql/get-temperatures.sql
var getTemperaturesSQL string

//go:embed sql/get-temperature-summary.sql
var getTemperatureSummarySQL string

type ClimateRepository interface {
	// WithSession runs fn against a single read-only transaction. The
	// transaction is rolled back when fn returns, whatever the outcome.
	WithSession(ctx context.Context, fn func(repo ClimateRepository) error) error

	// LatestDate returns the most recent measurement date; ok is false when
	// the measurement table is empty.
	LatestDate(ctx context.Context) (latest time.Time, ok bool, err error)
	Precipitation(ctx context.Context, from time.Time) ([]types.Measurement, error)
	Stations(ctx context.Context) ([]types.Station, error)
	StationCounts(ctx context.Context) ([]types.StationCount, error)
	Temperatures(ctx context.Context, stationID string, from time.Time) ([]types.Measurement, error)
	TemperatureSummary(ctx context.Context, start time.Time, end *time.Time) (types.Summary, error)
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type repositoryImpl struct {
	db *sql.DB
	q  querier
}

func NewRepository(db *sql.DB) ClimateRepository {
	return &repositoryImpl{db: db, q: db}
}

func (r *repositoryImpl) WithSession(ctx context.Context, fn func(repo ClimateRepository) error) error {
	if r.db == nil {
		// already inside a session
		return fn(r)
	}

	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return fmt.Errorf("begin session: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			slog.Error("release session", "error", err)
		}
	}()

	return fn(&repositoryImpl{q: tx})
}

func (r *repositoryImpl) LatestDate(ctx context.Context) (time.Time, bool, error) {
	var latest sql.NullString
	if err := r.q.QueryRowContext(ctx, getLatestDateSQL).Scan(&latest); err != nil {
		return time.Time{}, false, err
	}
	if !latest.Valid {
		return time.Time{}, false, nil
	}
	t, err := time.Parse(config.DateLayout, latest.String)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse latest date %q: %w", latest.String, err)
	}
	return t, true, nil
}

func (r *repositoryImpl) Precipitation(ctx context.Context, from time.Time) ([]types.Measurement, error) {
	rows, err := r.q.QueryContext(ctx, getPrecipitationSQL, from.Format(config.DateLayout))
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close precipitation rows", "error", err)
		}
	}()

	var out []types.Measurement
	for rows.Next() {
		var (
			m    types.Measurement
			prcp sql.NullFloat64
		)
		if err := rows.Scan(&m.Date, &prcp); err != nil {
			return nil, err
		}
		m.Precipitation = floatPtr(prcp)
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *repositoryImpl) Stations(ctx context.Context) ([]types.Station, error) {
	rows, err := r.q.QueryContext(ctx, getStationsSQL)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close stations rows", "error", err)
		}
	}()

	var out []types.Station
	for rows.Next() {
		var (
			s             types.Station
			lat, lon, elv sql.NullFloat64
		)
		if err := rows.Scan(&s.ID, &s.StationCode, &s.Name, &lat, &lon, &elv); err != nil {
			return nil, err
		}
		s.Latitude, s.Longitude, s.Elevation = lat.Float64, lon.Float64, elv.Float64
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *repositoryImpl) StationCounts(ctx context.Context) ([]types.StationCount, error) {
	rows, err := r.q.QueryContext(ctx, getStationCountsSQL)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close station count rows", "error", err)
		}
	}()

	var out []types.StationCount
	for rows.Next() {
		var c types.StationCount
		if err := rows.Scan(&c.StationID, &c.Count); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *repositoryImpl) Temperatures(ctx context.Context, stationID string, from time.Time) ([]types.Measurement, error) {
	rows, err := r.q.QueryContext(ctx, getTemperaturesSQL, stationID, from.Format(config.DateLayout))
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close temperature rows", "error", err)
		}
	}()

	var out []types.Measurement
	for rows.Next() {
		m := types.Measurement{StationID: stationID}
		var tobs sql.NullFloat64
		if err := rows.Scan(&m.Date, &tobs); err != nil {
			return nil, err
		}
		m.Temperature = floatPtr(tobs)
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *repositoryImpl) TemperatureSummary(ctx context.Context, start time.Time, end *time.Time) (types.Summary, error) {
	var endArg any
	if end != nil {
		endArg = end.Format(config.DateLayout)
	}

	var minT, avgT, maxT sql.NullFloat64
	err := r.q.QueryRowContext(ctx, getTemperatureSummarySQL, start.Format(config.DateLayout), endArg).
		Scan(&minT, &avgT, &maxT)
	if err != nil {
		return types.Summary{}, err
	}
	return types.Summary{
		Min:     floatPtr(minT),
		Average: floatPtr(avgT),
		Max:     floatPtr(maxT),
	}, nil
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
