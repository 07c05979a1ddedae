package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benchline-erp/benchline/internal/fx"
)

type fakeSource struct {
	rates  map[string]decimal.Decimal
	quoted []string
}

func (f *fakeSource) Quote(_ context.Context, from, to string, onDate time.Time) (fx.ExchangeRate, error) {
	pair := from + ":" + to
	f.quoted = append(f.quoted, pair)
	rate, ok := f.rates[pair]
	if !ok {
		return fx.ExchangeRate{}, fx.ErrRateNotFound
	}
	return fx.ExchangeRate{From: from, To: to, Date: onDate, Rate: rate}, nil
}

type fakeSeeder struct {
	seeded []fx.ExchangeRate
	err    error
}

func (f *fakeSeeder) Seed(_ context.Context, rate fx.ExchangeRate) error {
	if f.err != nil {
		return f.err
	}
	f.seeded = append(f.seeded, rate)
	return nil
}

func seedTask(t *testing.T, pairs []string, date string) *asynq.Task {
	t.Helper()
	task, err := NewFXSeedTask(pairs, date)
	require.NoError(t, err)
	return task
}

func TestFXSeedSeedsConfiguredPairs(t *testing.T) {
	source := &fakeSource{rates: map[string]decimal.Decimal{
		"EUR:USD": decimal.NewFromFloat(1.0825),
		"GBP:USD": decimal.NewFromFloat(1.2610),
	}}
	seeder := &fakeSeeder{}
	job := NewFXSeedJob(source, seeder, []string{"EUR:USD", "GBP:USD"}, nil)
	job.WithClock(func() time.Time {
		return time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	})

	err := job.Handle(context.Background(), seedTask(t, nil, ""))
	require.NoError(t, err)

	require.Len(t, seeder.seeded, 2)
	assert.Equal(t, "EUR", seeder.seeded[0].From)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), seeder.seeded[0].Date, "intraday clock truncated to the day")
}

func TestFXSeedPayloadOverridesDefaults(t *testing.T) {
	source := &fakeSource{rates: map[string]decimal.Decimal{
		"JPY:USD": decimal.NewFromFloat(0.0067),
	}}
	seeder := &fakeSeeder{}
	job := NewFXSeedJob(source, seeder, []string{"EUR:USD"}, nil)

	err := job.Handle(context.Background(), seedTask(t, []string{"JPY:USD"}, "2026-02-14"))
	require.NoError(t, err)

	assert.Equal(t, []string{"JPY:USD"}, source.quoted)
	require.Len(t, seeder.seeded, 1)
	assert.Equal(t, time.Date(2026, 2, 14, 0, 0, 0, 0, time.UTC), seeder.seeded[0].Date)
}

func TestFXSeedSkipsFailingPair(t *testing.T) {
	source := &fakeSource{rates: map[string]decimal.Decimal{
		"GBP:USD": decimal.NewFromFloat(1.2610),
	}}
	seeder := &fakeSeeder{}
	job := NewFXSeedJob(source, seeder, []string{"EUR:USD", "GBP:USD"}, nil)

	err := job.Handle(context.Background(), seedTask(t, nil, ""))
	require.NoError(t, err, "one bad pair must not fail the run when others seed")
	require.Len(t, seeder.seeded, 1)
	assert.Equal(t, "GBP", seeder.seeded[0].From)
}

func TestFXSeedAllPairsFailing(t *testing.T) {
	source := &fakeSource{rates: map[string]decimal.Decimal{}}
	job := NewFXSeedJob(source, &fakeSeeder{}, []string{"EUR:USD"}, nil)

	err := job.Handle(context.Background(), seedTask(t, nil, ""))
	require.ErrorIs(t, err, fx.ErrRateNotFound)
}

func TestFXSeedSeederFailure(t *testing.T) {
	source := &fakeSource{rates: map[string]decimal.Decimal{
		"EUR:USD": decimal.NewFromFloat(1.0825),
	}}
	seeder := &fakeSeeder{err: errors.New("unique violation")}
	job := NewFXSeedJob(source, seeder, []string{"EUR:USD"}, nil)

	err := job.Handle(context.Background(), seedTask(t, nil, ""))
	require.Error(t, err)
}

func TestFXSeedMalformedInput(t *testing.T) {
	job := NewFXSeedJob(&fakeSource{}, &fakeSeeder{}, nil, nil)

	err := job.Handle(context.Background(), asynq.NewTask(TaskFXSeed, []byte("{not json")))
	require.ErrorIs(t, err, asynq.SkipRetry)

	err = job.Handle(context.Background(), seedTask(t, nil, "14/02/2026"))
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestFXSeedMalformedPairSkipped(t *testing.T) {
	source := &fakeSource{rates: map[string]decimal.Decimal{
		"EUR:USD": decimal.NewFromFloat(1.0825),
	}}
	seeder := &fakeSeeder{}
	job := NewFXSeedJob(source, seeder, []string{"EURUSD", "EUR:USD"}, nil)

	err := job.Handle(context.Background(), seedTask(t, nil, ""))
	require.NoError(t, err)
	assert.Equal(t, []string{"EUR:USD"}, source.quoted)
}

func TestSplitPairs(t *testing.T) {
	assert.Equal(t, []string{"EUR:USD", "GBP:USD"}, SplitPairs(" EUR:USD , GBP:USD "))
	assert.Nil(t, SplitPairs(""))
}
