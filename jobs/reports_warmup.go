package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/odyssey-tours/internal/jobs"
	"github.com/odyssey-erp/odyssey-tours/internal/reports"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// Warmer precomputes reports into the cache.
type Warmer interface {
	Warm(ctx context.Context) ([]reports.WarmResult, error)
}

// ReportsWarmupJob fills the report cache so the first dashboard load after
// a cache bump is served from Redis.
type ReportsWarmupJob struct {
	Reports Warmer
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	Timeout time.Duration
}

func NewReportsWarmupJob(warmer Warmer, logger *slog.Logger, metrics *jobmetrics.Metrics) *ReportsWarmupJob {
	return &ReportsWarmupJob{Reports: warmer, Logger: logger, Metrics: metrics, Timeout: time.Minute}
}

// Handle processes reports:warmup tasks.
func (j *ReportsWarmupJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Reports == nil {
		return errors.New("reports warmup: handler not configured")
	}
	var payload ReportsWarmupPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	if payload.Reason == "" {
		payload.Reason = "schedule"
	}

	metrics := pickMetrics(j.Metrics)
	tracker := metrics.Track(TaskReportsWarmup)
	defer func() { resultErr = tracker.End(resultErr) }()

	logger := jobLogger(j.Logger, TaskReportsWarmup).With(slog.String("reason", payload.Reason))
	start := time.Now()
	if j.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.Timeout)
		defer cancel()
	}
	results, err := j.Reports.Warm(ctx)
	if err != nil {
		logger.Error("warm reports", slog.Any("error", err))
		return err
	}
	for _, r := range results {
		metrics.AddWarmed(r.Report, r.Count)
	}
	logger.Info("completed reports warmup", slog.Int("reports", len(results)), slog.Duration("duration", time.Since(start)))
	return nil
}

func pickMetrics(m *jobmetrics.Metrics) *jobmetrics.Metrics {
	if m != nil {
		return m
	}
	return defaultJobMetrics
}

func jobLogger(logger *slog.Logger, job string) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return logger.With(slog.String("job", job))
}
