package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/odyssey-tours/internal/jobs"
)

const defaultKeyRetention = 7 * 24 * time.Hour

// KeyCleaner removes idempotency keys older than the retention window.
type KeyCleaner interface {
	Cleanup(ctx context.Context, olderThan time.Duration) error
}

type IdempotencyCleanupJob struct {
	Keys    KeyCleaner
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

func NewIdempotencyCleanupJob(keys KeyCleaner, logger *slog.Logger, metrics *jobmetrics.Metrics) *IdempotencyCleanupJob {
	return &IdempotencyCleanupJob{Keys: keys, Logger: logger, Metrics: metrics}
}

// Handle processes idempotency:cleanup tasks.
func (j *IdempotencyCleanupJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Keys == nil {
		return errors.New("idempotency cleanup: handler not configured")
	}
	retention := defaultKeyRetention
	if len(t.Payload()) > 0 {
		var payload IdempotencyCleanupPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		if payload.OlderThanHours > 0 {
			retention = time.Duration(payload.OlderThanHours) * time.Hour
		}
	}
	tracker := pickMetrics(j.Metrics).Track(TaskIdempotencyCleanup)
	defer func() { resultErr = tracker.End(resultErr) }()

	if err := j.Keys.Cleanup(ctx, retention); err != nil {
		jobLogger(j.Logger, TaskIdempotencyCleanup).Error("cleanup idempotency keys", slog.Any("error", err))
		return err
	}
	jobLogger(j.Logger, TaskIdempotencyCleanup).Info("idempotency keys pruned", slog.Duration("older_than", retention))
	return nil
}
