package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hibiken/asynq"

	"github.com/benchline-erp/benchline/internal/fx"
)

const (
	// TaskFXSeed refreshes stored exchange rates for the configured pairs.
	TaskFXSeed = "fx:seed"
)

// FXSeedPayload configures which pairs the seeding run covers. An empty Pairs
// list means the worker's configured default pairs. Date defaults to today.
type FXSeedPayload struct {
	Pairs []string `json:"pairs"`
	Date  string   `json:"date"`
}

// RateSource fetches the day's quote for one currency pair.
type RateSource interface {
	Quote(ctx context.Context, from, to string, onDate time.Time) (fx.ExchangeRate, error)
}

// RateSeeder persists a fetched rate.
type RateSeeder interface {
	Seed(ctx context.Context, rate fx.ExchangeRate) error
}

// FXSeedJob fetches quotes from the rate source and stores them through the
// resolver so the day's postings never miss a rate.
type FXSeedJob struct {
	Source       RateSource
	Seeder       RateSeeder
	DefaultPairs []string
	Logger       *slog.Logger
	clock        func() time.Time
}

// NewFXSeedJob constructs the job handler.
func NewFXSeedJob(source RateSource, seeder RateSeeder, defaultPairs []string, logger *slog.Logger) *FXSeedJob {
	return &FXSeedJob{
		Source:       source,
		Seeder:       seeder,
		DefaultPairs: defaultPairs,
		Logger:       logger,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// NewFXSeedTask creates an Asynq task for a seeding run.
func NewFXSeedTask(pairs []string, date string) (*asynq.Task, error) {
	body, err := json.Marshal(FXSeedPayload{Pairs: pairs, Date: date})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskFXSeed, body, asynq.Queue(QueueDefault)), nil
}

// Handle executes one seeding run. A pair that fails to quote is logged and
// skipped so the other pairs still get their rate.
func (j *FXSeedJob) Handle(ctx context.Context, task *asynq.Task) error {
	if j == nil || j.Source == nil || j.Seeder == nil {
		return errors.New("fx seed: dependencies not configured")
	}
	var payload FXSeedPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	day := j.now().Truncate(24 * time.Hour)
	if payload.Date != "" {
		parsed, err := time.Parse("2006-01-02", payload.Date)
		if err != nil {
			return asynq.SkipRetry
		}
		day = parsed
	}

	pairs := payload.Pairs
	if len(pairs) == 0 {
		pairs = j.DefaultPairs
	}
	if len(pairs) == 0 {
		j.log().Info("no pairs configured, nothing to seed")
		return nil
	}

	seeded := 0
	var lastErr error
	for _, pair := range pairs {
		from, to, err := splitPair(pair)
		if err != nil {
			j.log().Warn("skipping malformed pair", slog.String("pair", pair))
			continue
		}
		quote, err := j.Source.Quote(ctx, from, to, day)
		if err != nil {
			lastErr = err
			j.log().Error("quote failed", slog.String("pair", pair), slog.Any("error", err))
			continue
		}
		if err := j.Seeder.Seed(ctx, quote); err != nil {
			lastErr = err
			j.log().Error("seed failed", slog.String("pair", pair), slog.Any("error", err))
			continue
		}
		seeded++
	}

	j.log().Info("seeded exchange rates",
		slog.String("date", day.Format("2006-01-02")),
		slog.Int("seeded", seeded),
		slog.Int("requested", len(pairs)))
	if seeded == 0 && lastErr != nil {
		return lastErr
	}
	return nil
}

// WithClock overrides the internal clock for deterministic tests.
func (j *FXSeedJob) WithClock(clock func() time.Time) {
	if j != nil && clock != nil {
		j.clock = clock
	}
}

// SplitPairs parses the comma-separated FROM:TO pair list from configuration.
func SplitPairs(raw string) []string {
	var pairs []string
	for _, p := range strings.Split(raw, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			pairs = append(pairs, p)
		}
	}
	return pairs
}

func splitPair(pair string) (string, string, error) {
	parts := strings.Split(pair, ":")
	if len(parts) != 2 || len(parts[0]) != 3 || len(parts[1]) != 3 {
		return "", "", fmt.Errorf("malformed pair %q", pair)
	}
	return parts[0], parts[1], nil
}

func (j *FXSeedJob) log() *slog.Logger {
	if j != nil && j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskFXSeed))
	}
	return slog.Default().With(slog.String("job", TaskFXSeed))
}

func (j *FXSeedJob) now() time.Time {
	if j != nil && j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
