package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskReportsWarmup precomputes the report cache.
	TaskReportsWarmup = "reports:warmup"
	// TaskFXRefresh pulls remote exchange rates into Redis.
	TaskFXRefresh = "fx:refresh"
	// TaskIdempotencyCleanup prunes old idempotency keys.
	TaskIdempotencyCleanup = "idempotency:cleanup"
)

// ReportsWarmupPayload records who asked for the warmup.
type ReportsWarmupPayload struct {
	Reason string `json:"reason"`
}

// NewReportsWarmupTask builds a warmup task. A warmup already queued with the
// same reason is not queued twice within the uniqueness window.
func NewReportsWarmupTask(reason string) (*asynq.Task, error) {
	data, err := json.Marshal(ReportsWarmupPayload{Reason: reason})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReportsWarmup, data, asynq.Unique(time.Minute)), nil
}

// NewFXRefreshTask builds a rate refresh task.
func NewFXRefreshTask() *asynq.Task {
	return asynq.NewTask(TaskFXRefresh, nil)
}

// IdempotencyCleanupPayload sets how old a key must be before it is removed.
type IdempotencyCleanupPayload struct {
	OlderThanHours int `json:"older_than_hours"`
}

func NewIdempotencyCleanupTask(olderThan time.Duration) (*asynq.Task, error) {
	data, err := json.Marshal(IdempotencyCleanupPayload{OlderThanHours: int(olderThan.Hours())})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, data), nil
}
