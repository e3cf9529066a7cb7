// Package jobs wires background processing on top of Asynq: periodic
// idempotency-key cleanup and report cache warmup.
package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskIdempotencyCleanup prunes expired idempotency keys.
	TaskIdempotencyCleanup = "idempotency:cleanup"
	// TaskReportWarmup precomputes the default-window reports so the first
	// reader of the day does not pay the aggregation cost.
	TaskReportWarmup = "reports:warmup"
)

// IdempotencyCleanupPayload configures one cleanup run.
type IdempotencyCleanupPayload struct {
	RetentionHours int `json:"retention_hours"`
}

// NewIdempotencyCleanupTask constructs the cleanup task.
func NewIdempotencyCleanupTask(payload IdempotencyCleanupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, data, asynq.Queue(QueueDefault)), nil
}

// ReportWarmupPayload configures one warmup run.
type ReportWarmupPayload struct {
	WindowDays int `json:"window_days"`
}

// NewReportWarmupTask constructs the warmup task.
func NewReportWarmupTask(payload ReportWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReportWarmup, data, asynq.Queue(QueueDefault)), nil
}
