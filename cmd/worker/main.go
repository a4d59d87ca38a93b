package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/kharcha-erp/kharcha/internal/app"
	"github.com/kharcha-erp/kharcha/internal/budget"
	jobmetrics "github.com/kharcha-erp/kharcha/internal/jobs"
	"github.com/kharcha-erp/kharcha/internal/platform/cache"
	"github.com/kharcha-erp/kharcha/internal/platform/db"
	"github.com/kharcha-erp/kharcha/internal/report"
	"github.com/kharcha-erp/kharcha/jobs"
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

	budgetService := budget.NewService(budget.NewRepository(pool))
	reportCache := report.NewCache(redisClient, cfg.ReportCacheTTL)
	reportService := report.NewService(budgetService, reportCache)
	metrics := jobmetrics.NewMetrics(nil)

	handlers := []jobs.TaskHandler{
		{Type: jobs.TaskUtilizationWarmup, Handler: jobs.NewUtilizationWarmupHandler(reportService, metrics, logger)},
		{Type: jobs.TaskReportInvalidate, Handler: jobs.NewReportInvalidateHandler(reportService, metrics, logger)},
	}

	var cron []jobs.CronRegistration
	if cfg.WarmupDepts != "" && cfg.WarmupFiscalYear != "" {
		var deptIDs []string
		for _, id := range strings.Split(cfg.WarmupDepts, ",") {
			if id = strings.TrimSpace(id); id != "" {
				deptIDs = append(deptIDs, id)
			}
		}
		warmupTask, err := jobs.NewUtilizationWarmupTask(jobs.UtilizationWarmupPayload{
			DeptIDs:    deptIDs,
			FiscalYear: cfg.WarmupFiscalYear,
		})
		if err != nil {
			logger.Error("build warmup task", slog.Any("error", err))
			os.Exit(1)
		}
		cron = append(cron, jobs.CronRegistration{
			Spec:    cfg.WarmupSchedule,
			Task:    warmupTask,
			Options: []asynq.Option{asynq.MaxRetry(3)},
		})
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Handlers:    handlers,
		Cron:        cron,
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
