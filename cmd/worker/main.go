package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/benchline-erp/benchline/internal/app"
	"github.com/benchline-erp/benchline/internal/fx"
	"github.com/benchline-erp/benchline/internal/platform/db"
	"github.com/benchline-erp/benchline/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}

	fxRepo := fx.NewRepository(pool)
	fxCache := fx.NewRateCache(redisClient, cfg.FXCacheTTL)
	resolver := fx.NewResolver(fxRepo, fxCache, logger)
	source := fx.NewHTTPSource(cfg.FXSourceURL)

	seedPairs := jobs.SplitPairs(cfg.FXSeedPairs)
	seedJob := jobs.NewFXSeedJob(source, resolver, seedPairs, logger)

	seedTask, err := jobs.NewFXSeedTask(nil, "")
	if err != nil {
		logger.Error("build fx seed task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskFXSeed, Handler: seedJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.FXSeedCron, Task: seedTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("build worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("starting worker", slog.Int("pairs", len(seedPairs)))
	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker stopped", slog.Any("error", err))
		os.Exit(1)
	}
}
