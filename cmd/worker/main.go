package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/atelierops/atelier/internal/app"
	"github.com/atelierops/atelier/internal/platform/cache"
	"github.com/atelierops/atelier/internal/platform/db"
	"github.com/atelierops/atelier/internal/reports"
	"github.com/atelierops/atelier/internal/shared"
	"github.com/atelierops/atelier/jobs"
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
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	// asynq cannot run without redis, so a failed ping is fatal here.
	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	idempotencyStore := shared.NewIdempotencyStore(pool)
	cleanupJob := jobs.NewIdempotencyCleanupJob(idempotencyStore, logger, nil)

	reportCache := reports.NewCache(redisClient, cfg.ReportCacheTTL)
	if err := reportCache.ListenForInvalidation(ctx); err != nil {
		logger.Warn("report cache subscription", slog.Any("error", err))
	}
	reportRepo := reports.NewRepository(pool)
	reportService := reports.NewService(reportRepo, reportCache, nil)
	warmupJob := jobs.NewReportWarmupJob(reportService, logger, nil)

	cleanupTask, err := jobs.NewIdempotencyCleanupTask(jobs.IdempotencyCleanupPayload{
		RetentionHours: int(cfg.IdempotencyRetention.Hours()),
	})
	if err != nil {
		logger.Error("build cleanup task", slog.Any("error", err))
		os.Exit(1)
	}
	warmupTask, err := jobs.NewReportWarmupTask(jobs.ReportWarmupPayload{WindowDays: 7})
	if err != nil {
		logger.Error("build warmup task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskIdempotencyCleanup, Handler: cleanupJob.Handle},
			{Type: jobs.TaskReportWarmup, Handler: warmupJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "45 2 * * *", Task: cleanupTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "15 5 * * *", Task: warmupTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("build worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("worker starting")
	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker stopped", slog.Any("error", err))
		os.Exit(1)
	}
}
