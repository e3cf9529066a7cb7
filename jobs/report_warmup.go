package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	jobmetrics "github.com/atelierops/atelier/internal/jobs"
	"github.com/atelierops/atelier/internal/reports"
)

// ReportWarmupJob precomputes the work and productivity reports so the
// morning's first reader hits a warm cache.
type ReportWarmupJob struct {
	service *reports.Service
	log     *slog.Logger
	metrics *jobmetrics.Metrics
}

// NewReportWarmupJob constructs the job.
func NewReportWarmupJob(service *reports.Service, logger *slog.Logger, metrics *jobmetrics.Metrics) *ReportWarmupJob {
	return &ReportWarmupJob{service: service, log: logger, metrics: metrics}
}

// Handle processes TaskReportWarmup tasks.
func (j *ReportWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	tracker := j.metrics.Track("report_warmup")

	var payload ReportWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		_ = tracker.End(err)
		return asynq.SkipRetry
	}

	var from, to time.Time
	if payload.WindowDays > 0 {
		to = time.Now().UTC()
		from = to.AddDate(0, 0, -payload.WindowDays)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := j.service.Work(gctx, from, to)
		return err
	})
	g.Go(func() error {
		_, err := j.service.Productivity(gctx, from, to)
		return err
	})
	if err := g.Wait(); err != nil {
		j.logger().Error("report warmup failed", slog.Any("error", err))
		return tracker.End(err)
	}
	j.logger().Info("report warmup done", slog.Int("window_days", payload.WindowDays))
	return tracker.End(nil)
}

func (j *ReportWarmupJob) logger() *slog.Logger {
	if j.log != nil {
		return j.log
	}
	return slog.Default()
}
