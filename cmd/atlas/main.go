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

	"github.com/atlas-erp/atlas-erp/internal/app"
	"github.com/atlas-erp/atlas-erp/internal/auth"
	"github.com/atlas-erp/atlas-erp/internal/invoice"
	"github.com/atlas-erp/atlas-erp/internal/masterdata/companies"
	"github.com/atlas-erp/atlas-erp/internal/masterdata/departments"
	"github.com/atlas-erp/atlas-erp/internal/masterdata/incentives"
	"github.com/atlas-erp/atlas-erp/internal/masterdata/itemlabels"
	"github.com/atlas-erp/atlas-erp/internal/observability"
	"github.com/atlas-erp/atlas-erp/internal/platform/cache"
	"github.com/atlas-erp/atlas-erp/internal/platform/db"
	"github.com/atlas-erp/atlas-erp/internal/reports"
	"github.com/atlas-erp/atlas-erp/internal/salesorder"
	"github.com/atlas-erp/atlas-erp/jobs"
)

func main() {
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

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, report cache disabled", slog.Any("error", err))
		redisClient = nil
	}
	defer func() {
		if redisClient != nil {
			_ = redisClient.Close()
		}
	}()

	metrics := observability.NewMetrics()

	policy := auth.DefaultWarehousePolicy()
	authHandler := auth.NewHandler(logger, auth.NewService(auth.NewRepository(pool), policy))
	invoiceRepo := invoice.NewPGRepository(pool, policy)
	orders := salesorder.NewService(salesorder.NewRepository(pool))
	lifecycle := invoice.NewLifecycle(invoiceRepo, logger)
	invoiceService := invoice.NewService(invoiceRepo, orders, lifecycle, logger)
	invoiceHandler := invoice.NewHandler(logger, invoiceService, invoice.NewMapper(pool))

	reportsCache := reports.NewCache(redisClient, cfg.ReportCacheTTL)
	reportsHandler := reports.NewHandler(logger, reports.NewService(pool), reportsCache)

	companyHandler := companies.NewHandler(logger, companies.NewRepository(pool))
	departmentHandler := departments.NewHandler(logger, departments.NewRepository(pool))
	labelHandler := itemlabels.NewHandler(logger, itemlabels.NewRepository(pool), itemlabels.NewService(pool, logger))
	incentiveHandler := incentives.NewHandler(logger, incentives.NewRepository(pool), incentives.NewService(pool, logger))

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		AuthHandler:       authHandler,
		InvoiceHandler:    invoiceHandler,
		ReportsHandler:    reportsHandler,
		CompanyHandler:    companyHandler,
		DepartmentHandler: departmentHandler,
		LabelHandler:      labelHandler,
		IncentiveHandler:  incentiveHandler,
		JobHandler:        jobHandler,
		Metrics:           metrics,
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
