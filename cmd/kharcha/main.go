package main

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/kharcha-erp/kharcha/internal/app"
	"github.com/kharcha-erp/kharcha/internal/budget"
	"github.com/kharcha-erp/kharcha/internal/intent"
	"github.com/kharcha-erp/kharcha/internal/observability"
	"github.com/kharcha-erp/kharcha/internal/order"
	"github.com/kharcha-erp/kharcha/internal/payment"
	"github.com/kharcha-erp/kharcha/internal/platform/cache"
	"github.com/kharcha-erp/kharcha/internal/platform/db"
	"github.com/kharcha-erp/kharcha/internal/report"
	reportexport "github.com/kharcha-erp/kharcha/internal/report/export"
	"github.com/kharcha-erp/kharcha/internal/shared"
	"github.com/kharcha-erp/kharcha/internal/vendor"
	"github.com/kharcha-erp/kharcha/jobs"
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

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, report cache disabled", slog.Any("error", err))
	}
	defer func() {
		if redisClient != nil {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}
	}()

	metrics := observability.NewMetrics()
	auditLogger := shared.NewAuditLogger(pool)

	budgetRepo := budget.NewRepository(pool)
	budgetService := budget.NewService(budgetRepo)
	budgetHandler := budget.NewHandler(logger, budgetService)

	intentRepo := intent.NewRepository(pool)
	intentService := intent.NewService(intentRepo, budgetService, auditLogger)
	intentService.WithMetrics(metrics)
	intentHandler := intent.NewHandler(logger, intentService)

	vendorRepo := vendor.NewRepository(pool)
	vendorService := vendor.NewService(vendorRepo)
	vendorHandler := vendor.NewHandler(logger, vendorService)

	orderRepo := order.NewRepository(pool)
	orderService := order.NewService(orderRepo, intentService, vendorService, budgetService, auditLogger)
	orderService.WithMetrics(metrics)
	orderService.WithLogger(logger)
	orderHandler := order.NewHandler(logger, orderService)

	paymentHandler := payment.NewHandler(logger)

	reportCache := report.NewCache(redisClient, cfg.ReportCacheTTL)
	if err := reportCache.ListenForInvalidation(ctx, ""); err != nil {
		logger.Warn("cache invalidation listener", slog.Any("error", err))
	}
	reportService := report.NewService(budgetService, reportCache)
	reportHandler := report.NewHandler(logger, reportService, report.CSVWriter{
		Utilization: func(buf *bytes.Buffer, rep report.UtilizationReport) error {
			return reportexport.WriteUtilizationCSV(buf, rep)
		},
		Overview: func(buf *bytes.Buffer, overview report.Overview) error {
			return reportexport.WriteOverviewCSV(buf, overview)
		},
	})

	var jobsHandler *jobs.Handler
	if redisClient != nil {
		inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
		defer func() { _ = inspector.Close() }()
		jobsHandler = jobs.NewHandler(inspector, logger)
	}

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		BudgetHandler:  budgetHandler,
		IntentHandler:  intentHandler,
		VendorHandler:  vendorHandler,
		OrderHandler:   orderHandler,
		PaymentHandler: paymentHandler,
		ReportHandler:  reportHandler,
		JobsHandler:    jobsHandler,
		Metrics:        metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", slog.String("addr", cfg.AppAddr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.AppRequestTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown", slog.Any("error", err))
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server run", slog.Any("error", err))
			os.Exit(1)
		}
	}
}
