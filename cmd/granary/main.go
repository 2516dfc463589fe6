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

	"github.com/granary-erp/granary-erp/internal/app"
	"github.com/granary-erp/granary-erp/internal/ledger"
	"github.com/granary-erp/granary-erp/internal/masterdata"
	"github.com/granary-erp/granary-erp/internal/movement"
	"github.com/granary-erp/granary-erp/internal/platform/cache"
	"github.com/granary-erp/granary-erp/internal/platform/db"
	"github.com/granary-erp/granary-erp/internal/production"
	"github.com/granary-erp/granary-erp/internal/ricestock"
	"github.com/granary-erp/granary-erp/internal/shared"
	"github.com/granary-erp/granary-erp/jobs"
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

	locker := shared.NewKeyLocker(redisClient, cfg.WriteLockTTL)
	auditLogger := shared.NewAuditLogger(dbpool)
	approvalRecorder := shared.NewApprovalRecorder(dbpool, logger)
	idempotencyStore := shared.NewIdempotencyStore(dbpool)

	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	masterRepo := masterdata.NewRepository(dbpool)
	masterHandler := masterdata.NewHandler(logger, masterRepo)

	movementRepo := movement.NewRepository(dbpool)
	productionRepo := production.NewRepository(dbpool)
	productionService := production.NewService(productionRepo, movementRepo, masterRepo, auditLogger,
		locker, jobClient, production.Config{PaddyBagsPerQuintal: cfg.PaddyBagsPerQuintal}, logger)
	productionHandler := production.NewHandler(logger, productionService, time.Now)

	movementService := movement.NewService(movementRepo, productionService, auditLogger, approvalRecorder,
		idempotencyStore, locker, jobClient, logger)
	movementHandler := movement.NewHandler(logger, movementService)

	ledgerService := ledger.NewService(movementRepo, masterRepo, logger)
	ledgerHandler := ledger.NewHandler(logger, ledgerService, time.Now)

	riceRepo := ricestock.NewRepository(dbpool)
	riceService := ricestock.NewService(riceRepo, masterRepo, auditLogger, locker, logger)
	riceHandler := ricestock.NewHandler(logger, riceService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobsHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		MovementHandler:   movementHandler,
		LedgerHandler:     ledgerHandler,
		ProductionHandler: productionHandler,
		RiceStockHandler:  riceHandler,
		MasterDataHandler: masterHandler,
		JobsHandler:       jobsHandler,
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
