package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sberahim/sqlalchemy-challenge/internal/modules/climate/types"
)

type failingRepo struct {
	err   error
	calls int
}

func (f *failingRepo) WithSession(ctx context.Context, fn func(repo ClimateRepository) error) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	return fn(f)
}

func (f *failingRepo) LatestDate(context.Context) (time.Time, bool, error) {
	f.calls++
	return time.Date(2017, 8, 23, 0, 0, 0, 0, time.UTC), f.err == nil, f.err
}

func (f *failingRepo) Precipitation(context.Context, time.Time) ([]types.Measurement, error) {
	f.calls++
	return nil, f.err
}

func (f *failingRepo) Stations(context.Context) ([]types.Station, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []types.Station{{ID: "1", StationCode: "USC00519397"}}, nil
}

func (f *failingRepo) StationCounts(context.Context) ([]types.StationCount, error) {
	f.calls++
	return nil, f.err
}

func (f *failingRepo) Temperatures(context.Context, string, time.Time) ([]types.Measurement, error) {
	f.calls++
	return nil, f.err
}

func (f *failingRepo) TemperatureSummary(context.Context, time.Time, *time.Time) (types.Summary, error) {
	f.calls++
	return types.Summary{}, f.err
}

type recordingObserver struct {
	mu     sync.Mutex
	ops    []string
	errs   int
	states []int
}

func (o *recordingObserver) ObserveQuery(op string, _ time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.ops = append(o.ops, op)
	if err != nil {
		o.errs++
	}
}

func (o *recordingObserver) SetBreakerState(_ string, state int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.states = append(o.states, state)
}

func TestBreaker_PassesResultsThrough(t *testing.T) {
	ctx := context.Background()
	obs := &recordingObserver{}
	repo := NewBreakerRepository("test", BreakerConfig{MaxFailures: 3, Timeout: time.Minute}, &failingRepo{}, obs)

	stations, err := repo.Stations(ctx)
	require.NoError(t, err)
	assert.Equal(t, "USC00519397", stations[0].StationCode)

	latest, ok, err := repo.LatestDate(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2017, latest.Year())

	assert.Equal(t, []string{"stations", "latest_date"}, obs.ops)
	assert.Zero(t, obs.errs)
}

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	ctx := context.Background()
	next := &failingRepo{err: errors.New("disk I/O error")}
	obs := &recordingObserver{}
	repo := NewBreakerRepository("test", BreakerConfig{MaxFailures: 2, Timeout: time.Minute}, next, obs)

	for i := 0; i < 2; i++ {
		_, err := repo.Stations(ctx)
		require.ErrorIs(t, err, ErrStoreUnavailable)
		assert.Contains(t, err.Error(), "disk I/O error")
	}
	assert.Equal(t, 2, next.calls)

	_, err := repo.Precipitation(ctx, time.Now())
	require.ErrorIs(t, err, ErrStoreUnavailable)
	require.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 2, next.calls, "open breaker must not reach the store")

	assert.Equal(t, []int{int(gobreaker.StateOpen)}, obs.states)
	assert.Equal(t, 3, obs.errs)
}

func TestBreaker_IgnoresCanceledRequests(t *testing.T) {
	ctx := context.Background()
	next := &failingRepo{err: context.Canceled}
	repo := NewBreakerRepository("test", BreakerConfig{MaxFailures: 1, Timeout: time.Minute}, next, nil)

	for i := 0; i < 3; i++ {
		_, err := repo.StationCounts(ctx)
		require.ErrorIs(t, err, context.Canceled)
	}
	assert.Equal(t, 3, next.calls, "cancellations must not trip the breaker")
}

func TestBreaker_SessionFailureCounts(t *testing.T) {
	ctx := context.Background()
	next := &failingRepo{err: errors.New("unable to open database file")}
	repo := NewBreakerRepository("test", BreakerConfig{MaxFailures: 1, Timeout: time.Minute}, next, nil)

	err := repo.WithSession(ctx, func(ClimateRepository) error { return nil })
	require.ErrorIs(t, err, ErrStoreUnavailable)

	_, err = repo.TemperatureSummary(ctx, time.Now(), nil)
	require.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 1, next.calls)
}
