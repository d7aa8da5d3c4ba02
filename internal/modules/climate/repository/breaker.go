package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"github.com/sberahim/sqlalchemy-challenge/internal/modules/climate/types"
)

// ErrStoreUnavailable marks every failure that originates in the record store,
// including calls rejected while the breaker is open.
var ErrStoreUnavailable = errors.New("record store unavailable")

// QueryObserver receives the outcome of every store call.
type QueryObserver interface {
	ObserveQuery(op string, d time.Duration, err error)
	SetBreakerState(name string, state int)
}

type BreakerConfig struct {
	MaxFailures uint32
	Timeout     time.Duration
	Interval    time.Duration
}

type breakerRepository struct {
	cb       *gobreaker.CircuitBreaker
	next     ClimateRepository
	observer QueryObserver
}

// NewBreakerRepository wraps next so that after MaxFailures consecutive store
// errors calls fail fast until Timeout has passed.
func NewBreakerRepository(name string, cfg BreakerConfig, next ClimateRepository, observer QueryObserver) ClimateRepository {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		// a cancelled request says nothing about the store
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("record store breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
			if observer != nil {
				observer.SetBreakerState(name, int(to))
			}
		},
	}
	return &breakerRepository{
		cb:       gobreaker.NewCircuitBreaker(settings),
		next:     next,
		observer: observer,
	}
}

func execute[T any](b *breakerRepository, op string, fn func() (T, error)) (T, error) {
	start := time.Now()
	res, err := b.cb.Execute(func() (any, error) {
		v, err := fn()
		return v, err
	})
	if b.observer != nil {
		b.observer.ObserveQuery(op, time.Since(start), err)
	}
	if err != nil {
		var zero T
		return zero, fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
	}
	v, ok := res.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("%s: unexpected result type %T", op, res)
	}
	return v, nil
}

func (b *breakerRepository) WithSession(ctx context.Context, fn func(repo ClimateRepository) error) error {
	_, err := execute(b, "session", func() (struct{}, error) {
		return struct{}{}, b.next.WithSession(ctx, fn)
	})
	return err
}

type latestDate struct {
	t  time.Time
	ok bool
}

func (b *breakerRepository) LatestDate(ctx context.Context) (time.Time, bool, error) {
	res, err := execute(b, "latest_date", func() (latestDate, error) {
		t, ok, err := b.next.LatestDate(ctx)
		return latestDate{t: t, ok: ok}, err
	})
	return res.t, res.ok, err
}

func (b *breakerRepository) Precipitation(ctx context.Context, from time.Time) ([]types.Measurement, error) {
	return execute(b, "precipitation", func() ([]types.Measurement, error) {
		return b.next.Precipitation(ctx, from)
	})
}

func (b *breakerRepository) Stations(ctx context.Context) ([]types.Station, error) {
	return execute(b, "stations", func() ([]types.Station, error) {
		return b.next.Stations(ctx)
	})
}

func (b *breakerRepository) StationCounts(ctx context.Context) ([]types.StationCount, error) {
	return execute(b, "station_counts", func() ([]types.StationCount, error) {
		return b.next.StationCounts(ctx)
	})
}

func (b *breakerRepository) Temperatures(ctx context.Context, stationID string, from time.Time) ([]types.Measurement, error) {
	return execute(b, "temperatures", func() ([]types.Measurement, error) {
		return b.next.Temperatures(ctx, stationID, from)
	})
}

func (b *breakerRepository) TemperatureSummary(ctx context.Context, start time.Time, end *time.Time) (types.Summary, error) {
	return execute(b, "temperature_summary", func() (types.Summary, error) {
		return b.next.TemperatureSummary(ctx, start, end)
	})
}
