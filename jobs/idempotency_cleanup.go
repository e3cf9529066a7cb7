package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/atelierops/atelier/internal/jobs"
	"github.com/atelierops/atelier/internal/shared"
)

const defaultRetention = 24 * time.Hour

// IdempotencyCleanupJob prunes idempotency keys past their retention. Keys
// only guard against short-horizon double submits; old ones are dead weight.
type IdempotencyCleanupJob struct {
	store   *shared.IdempotencyStore
	log     *slog.Logger
	metrics *jobmetrics.Metrics
}

// NewIdempotencyCleanupJob constructs the job.
func NewIdempotencyCleanupJob(store *shared.IdempotencyStore, logger *slog.Logger, metrics *jobmetrics.Metrics) *IdempotencyCleanupJob {
	return &IdempotencyCleanupJob{store: store, log: logger, metrics: metrics}
}

// Handle processes TaskIdempotencyCleanup tasks.
func (j *IdempotencyCleanupJob) Handle(ctx context.Context, t *asynq.Task) error {
	tracker := j.metrics.Track("idempotency_cleanup")

	var payload IdempotencyCleanupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		_ = tracker.End(err)
		return asynq.SkipRetry
	}
	retention := defaultRetention
	if payload.RetentionHours > 0 {
		retention = time.Duration(payload.RetentionHours) * time.Hour
	}

	removed, err := j.store.Cleanup(ctx, retention)
	if err != nil {
		j.logger().Error("idempotency cleanup failed", slog.Any("error", err))
		return tracker.End(err)
	}
	j.logger().Info("idempotency cleanup done",
		slog.Int64("removed", removed),
		slog.Duration("retention", retention))
	return tracker.End(nil)
}

func (j *IdempotencyCleanupJob) logger() *slog.Logger {
	if j.log != nil {
		return j.log
	}
	return slog.Default()
}
