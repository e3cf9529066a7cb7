package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/atelierops/atelier/internal/app"
	"github.com/atelierops/atelier/internal/batches"
	"github.com/atelierops/atelier/internal/catalog"
	"github.com/atelierops/atelier/internal/ledger"
	"github.com/atelierops/atelier/internal/observability"
	"github.com/atelierops/atelier/internal/platform/cache"
	"github.com/atelierops/atelier/internal/platform/db"
	"github.com/atelierops/atelier/internal/reports"
	"github.com/atelierops/atelier/internal/shared"
	"github.com/atelierops/atelier/internal/shifts"
	"github.com/atelierops/atelier/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	// Reports degrade to uncached reads when redis is unreachable.
	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, report cache disabled", slog.Any("error", err))
	}
	defer func() {
		if redisClient == nil {
			return
		}
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	auditLogger := shared.NewAuditLogger(dbpool)
	idempotencyStore := shared.NewIdempotencyStore(dbpool)
	metrics := observability.NewMetrics()

	catalogRepo := catalog.NewRepository(dbpool)
	catalogService := catalog.NewService(catalogRepo)
	catalogHandler := catalog.NewHandler(logger, catalogService)

	batchRepo := batches.NewRepository(dbpool)
	batchService := batches.NewService(batchRepo)
	batchHandler := batches.NewHandler(logger, batchService)

	reportCache := reports.NewCache(redisClient, cfg.ReportCacheTTL)
	if err := reportCache.ListenForInvalidation(ctx); err != nil {
		logger.Warn("report cache subscription", slog.Any("error", err))
	}
	reportRepo := reports.NewRepository(dbpool)
	reportService := reports.NewService(reportRepo, reportCache, nil)
	reportHandler := reports.NewHandler(logger, reportService)

	ledgerRepo := ledger.NewRepository(dbpool)
	ledgerService := ledger.NewService(ledgerRepo, auditLogger, idempotencyStore, nil)
	ledgerService.SetInvalidator(reportService)
	ledgerHandler := ledger.NewHandler(logger, ledgerService)
	ledgerHandler.SetMetrics(metrics)

	shiftRepo := shifts.NewRepository(dbpool)
	shiftService := shifts.NewService(shiftRepo, nil)
	shiftHandler := shifts.NewHandler(logger, shiftService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		CatalogHandler: catalogHandler,
		LedgerHandler:  ledgerHandler,
		BatchHandler:   batchHandler,
		ShiftHandler:   shiftHandler,
		ReportHandler:  reportHandler,
		JobHandler:     jobHandler,
		Metrics:        metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
