package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/granary-erp/granary-erp/internal/app"
	jobmetrics "github.com/granary-erp/granary-erp/internal/jobs"
	"github.com/granary-erp/granary-erp/internal/ledger"
	"github.com/granary-erp/granary-erp/internal/masterdata"
	"github.com/granary-erp/granary-erp/internal/movement"
	"github.com/granary-erp/granary-erp/internal/platform/db"
	"github.com/granary-erp/granary-erp/jobs"
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

	masterRepo := masterdata.NewRepository(pool)
	movementRepo := movement.NewRepository(pool)
	ledgerService := ledger.NewService(movementRepo, masterRepo, logger)

	metrics := jobmetrics.NewMetrics(nil)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskLedgerIntegrityScan, Handler: jobs.NewIntegrityScanHandler(ledgerService, masterRepo, metrics, logger)},
			{Type: jobs.TaskLedgerRecompute, Handler: jobs.NewRecomputeHandler(ledgerService, metrics, logger)},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "30 1 * * *", Task: jobs.NewLedgerIntegrityScanTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
