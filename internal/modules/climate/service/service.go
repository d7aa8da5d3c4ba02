package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sberahim/sqlalchemy-challenge/internal/config"
	"github.com/sberahim/sqlalchemy-challenge/internal/modules/climate/repository"
	"github.com/sberahim/sqlalchemy-challenge/internal/modules/climate/types"
)

// ErrInvalidDate is returned when a start or end parameter is not YYYY-MM-DD.
var ErrInvalidDate = errors.New("invalid date")

// DateError names the offending parameter.
type DateError struct {
	Param string
	Value string
}

func (e *DateError) Error() string {
	return fmt.Sprintf("invalid '%s' (expected YYYY-MM-DD)", e.Param)
}

func (e *DateError) Unwrap() error { return ErrInvalidDate }

type Options struct {
	LookbackDays int
	// ReferenceDate pins the end of the lookback window. When zero the most
	// recent measurement date is used.
	ReferenceDate time.Time
}

type Service struct {
	repository repository.ClimateRepository
	opts       Options
}

func NewService(repository repository.ClimateRepository, opts Options) *Service {
	if opts.LookbackDays <= 0 {
		opts.LookbackDays = 365
	}
	return &Service{repository: repository, opts: opts}
}

// PrecipitationReport maps each date of the lookback window to a precipitation
// value. When several stations report the same date the greatest station code
// wins.
func (s *Service) PrecipitationReport(ctx context.Context) (types.DateValues, error) {
	out := types.DateValues{}
	err := s.repository.WithSession(ctx, func(repo repository.ClimateRepository) error {
		from, ok, err := s.windowStart(ctx, repo)
		if err != nil || !ok {
			return err
		}
		rows, err := repo.Precipitation(ctx, from)
		if err != nil {
			return err
		}
		for _, m := range rows {
			if m.Precipitation != nil {
				out[m.Date] = *m.Precipitation
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("precipitation report: %w", err)
	}
	return out, nil
}

// StationCatalog keys every station by its code.
func (s *Service) StationCatalog(ctx context.Context) (types.StationCatalog, error) {
	stations, err := s.repository.Stations(ctx)
	if err != nil {
		return nil, fmt.Errorf("station catalog: %w", err)
	}
	out := make(types.StationCatalog, len(stations))
	for _, st := range stations {
		out[st.StationCode] = []any{st.ID, st.Name, st.Latitude, st.Longitude, st.Elevation}
	}
	return out, nil
}

// BusiestStationTemperatures returns the lookback window of temperature
// observations for the station with the most measurement rows.
func (s *Service) BusiestStationTemperatures(ctx context.Context) (types.DateValues, error) {
	out := types.DateValues{}
	err := s.repository.WithSession(ctx, func(repo repository.ClimateRepository) error {
		counts, err := repo.StationCounts(ctx)
		if err != nil {
			return err
		}
		station, ok := BusiestStation(counts)
		if !ok {
			return nil
		}
		from, ok, err := s.windowStart(ctx, repo)
		if err != nil || !ok {
			return err
		}
		rows, err := repo.Temperatures(ctx, station, from)
		if err != nil {
			return err
		}
		slog.Debug("busiest station", "station", station, "from", from.Format(config.DateLayout), "rows", len(rows))
		for _, m := range rows {
			if m.Temperature != nil {
				out[m.Date] = *m.Temperature
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("busiest station temperatures: %w", err)
	}
	return out, nil
}

// TemperatureSummary returns min, average and max temperature from start
// onward, bounded by end when it is not empty. An empty match yields a
// Summary with nil fields.
func (s *Service) TemperatureSummary(ctx context.Context, start, end string) (types.Summary, error) {
	from, err := ParseDate("start", start)
	if err != nil {
		return types.Summary{}, err
	}
	var to *time.Time
	if end != "" {
		t, err := ParseDate("end", end)
		if err != nil {
			return types.Summary{}, err
		}
		to = &t
	}
	if to != nil && to.Before(from) {
		return types.Summary{}, nil
	}

	summary, err := s.repository.TemperatureSummary(ctx, from, to)
	if err != nil {
		return types.Summary{}, fmt.Errorf("temperature summary: %w", err)
	}
	return summary, nil
}

// BusiestStation picks the station with the strictly greatest count; on a tie
// the first one in counts wins.
func BusiestStation(counts []types.StationCount) (string, bool) {
	best := -1
	for i, c := range counts {
		if best < 0 || c.Count > counts[best].Count {
			best = i
		}
	}
	if best < 0 {
		return "", false
	}
	return counts[best].StationID, true
}

func ParseDate(param, value string) (time.Time, error) {
	t, err := time.Parse(config.DateLayout, value)
	if err != nil {
		return time.Time{}, &DateError{Param: param, Value: value}
	}
	return t, nil
}

// windowStart returns the first day of the lookback window. ok is false when
// no reference date is configured and the store holds no measurements.
func (s *Service) windowStart(ctx context.Context, repo repository.ClimateRepository) (time.Time, bool, error) {
	ref := s.opts.ReferenceDate
	if ref.IsZero() {
		latest, ok, err := repo.LatestDate(ctx)
		if err != nil || !ok {
			return time.Time{}, false, err
		}
		ref = latest
	}
	return ref.AddDate(0, 0, -s.opts.LookbackDays), true, nil
}
