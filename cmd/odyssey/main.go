package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-tours/internal/app"
	"github.com/odyssey-erp/odyssey-tours/internal/auth"
	"github.com/odyssey-erp/odyssey-tours/internal/bookings"
	"github.com/odyssey-erp/odyssey-tours/internal/expenses"
	"github.com/odyssey-erp/odyssey-tours/internal/fx"
	"github.com/odyssey-erp/odyssey-tours/internal/observability"
	"github.com/odyssey-erp/odyssey-tours/internal/payments"
	"github.com/odyssey-erp/odyssey-tours/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-tours/internal/platform/db"
	"github.com/odyssey-erp/odyssey-tours/internal/rates"
	"github.com/odyssey-erp/odyssey-tours/internal/reports"
	"github.com/odyssey-erp/odyssey-tours/jobs"
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

	logger := app.NewLogger(cfg, "odyssey")

	dbpool, err := db.New(ctx, cfg.PGDSN, db.PoolOptions{MaxConns: cfg.PGMaxConns})
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	services := app.NewServices(cfg, dbpool, redisClient, logger, metrics)

	if err := services.ReportCache.ListenForInvalidation(ctx, func(ver int64) {
		logger.Debug("report cache bumped", slog.Int64("version", ver))
	}); err != nil {
		logger.Warn("subscribe report cache bumps", slog.Any("error", err))
	}

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
	jobClient := jobs.NewClient(redisOpts)
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("asynq client close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("asynq inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:  logger,
		Config:  cfg,
		Guard:   services.Guard,
		Metrics: metrics,
		Auth:    auth.NewHandler(logger, services.Auth, services.Guard),
		Handlers: []app.RouteMounter{
			rates.NewHandler(logger, services.Rates, services.Guard),
			bookings.NewHandler(logger, services.Bookings, services.Guard),
			payments.NewHandler(logger, services.Payments, services.Guard),
			expenses.NewHandler(logger, services.Expenses, services.Guard),
			fx.NewHandler(logger, services.FX),
			reports.NewHandler(logger, services.Reports, services.Guard),
			jobs.NewHandler(jobClient, inspector, services.Guard, logger),
		},
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("env", cfg.AppEnv))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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
