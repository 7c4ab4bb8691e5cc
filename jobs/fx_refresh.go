package jobs

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-tours/internal/fx"
	jobmetrics "github.com/odyssey-erp/odyssey-tours/internal/jobs"
)

// RateRefresher reloads the shared rate table.
type RateRefresher interface {
	Refresh(ctx context.Context) (fx.Table, error)
}

// CacheBumper invalidates cached reports.
type CacheBumper interface {
	Bump(ctx context.Context) error
}

// FXRefreshJob stores fresh rates in Redis. Reports are converted with the
// rates in force, so the report cache is bumped after every refresh.
type FXRefreshJob struct {
	Rates   RateRefresher
	Cache   CacheBumper
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

func NewFXRefreshJob(rates RateRefresher, cache CacheBumper, logger *slog.Logger, metrics *jobmetrics.Metrics) *FXRefreshJob {
	return &FXRefreshJob{Rates: rates, Cache: cache, Logger: logger, Metrics: metrics}
}

// Handle processes fx:refresh tasks.
func (j *FXRefreshJob) Handle(ctx context.Context, _ *asynq.Task) (resultErr error) {
	if j == nil || j.Rates == nil {
		return errors.New("fx refresh: handler not configured")
	}
	metrics := pickMetrics(j.Metrics)
	tracker := metrics.Track(TaskFXRefresh)
	defer func() { resultErr = tracker.End(resultErr) }()

	logger := jobLogger(j.Logger, TaskFXRefresh)
	table, err := j.Rates.Refresh(ctx)
	if err != nil {
		logger.Error("refresh fx rates", slog.Any("error", err))
		return err
	}
	metrics.SetFXRates(len(table.Rates))
	if j.Cache != nil {
		if err := j.Cache.Bump(ctx); err != nil {
			logger.Warn("bump report cache", slog.Any("error", err))
		}
	}
	logger.Info("fx rates refreshed",
		slog.String("base", table.Base),
		slog.Int("rates", len(table.Rates)),
		slog.String("source", table.Source),
		slog.Time("as_of", table.AsOf))
	return nil
}
