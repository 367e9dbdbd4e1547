package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/julienlmr/gameshelf-backend/pkg/logger"
	"github.com/julienlmr/gameshelf-backend/pkg/metrics"
)

const defaultNotificationRetentionDays = 90

type dismissedNotificationDeleter interface {
	DeleteDismissedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type NotificationCleanupJobParams struct {
	Logger    *logger.Logger
	Repo      dismissedNotificationDeleter
	Metrics   *metrics.CronJobMetrics
	Retention int
	// Now is overridable in tests.
	Now func() time.Time
}

// NewNotificationCleanupJob hard-deletes notifications dismissed longer ago
// than the retention window. Live and merely-read notifications are never
// touched.
func NewNotificationCleanupJob(params NotificationCleanupJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = defaultNotificationRetentionDays
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &notificationCleanupJob{
		logg:      params.Logger,
		repo:      params.Repo,
		metrics:   params.Metrics,
		retention: retention,
		now:       now,
	}, nil
}

type notificationCleanupJob struct {
	logg      *logger.Logger
	repo      dismissedNotificationDeleter
	metrics   *metrics.CronJobMetrics
	retention int
	now       func() time.Time
}

func (j *notificationCleanupJob) Name() string { return "notification-cleanup" }

func (j *notificationCleanupJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-time.Duration(j.retention) * 24 * time.Hour)

	deleted, err := j.repo.DeleteDismissedBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("notification cleanup: %w", err)
	}

	if j.metrics != nil {
		j.metrics.AddProcessed(j.Name(), int(deleted))
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":         cutoff,
		"retention_days": j.retention,
		"rows_deleted":   deleted,
	})
	j.logg.Info(logCtx, "notification cleanup complete")
	return nil
}
