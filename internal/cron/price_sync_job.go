package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/julienlmr/gameshelf-backend/internal/prices"
	"github.com/julienlmr/gameshelf-backend/pkg/logger"
	"github.com/julienlmr/gameshelf-backend/pkg/metrics"
)

const (
	defaultPriceSyncBatch  = 200
	defaultPriceSyncMaxAge = 24 * time.Hour
)

type staleGameLister interface {
	StaleGameIDs(ctx context.Context, olderThan time.Time, limit int) ([]uuid.UUID, error)
}

type priceRefresher interface {
	Refresh(ctx context.Context, gameID uuid.UUID) (*prices.PriceDTO, error)
}

type PriceSyncJobParams struct {
	Logger  *logger.Logger
	Repo    staleGameLister
	Prices  priceRefresher
	Metrics *metrics.CronJobMetrics
	MaxAge  time.Duration
	Batch   int
	// Now is overridable in tests.
	Now func() time.Time
}

// NewPriceSyncJob refreshes the estimates of games whose price row is missing
// or older than the max age, one provider call per game. A single failing
// game does not abort the batch; the job fails only when every refresh in the
// batch failed.
func NewPriceSyncJob(params PriceSyncJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("prices repository required")
	}
	if params.Prices == nil {
		return nil, fmt.Errorf("prices service required")
	}
	maxAge := params.MaxAge
	if maxAge <= 0 {
		maxAge = defaultPriceSyncMaxAge
	}
	batch := params.Batch
	if batch <= 0 {
		batch = defaultPriceSyncBatch
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &priceSyncJob{
		logg:    params.Logger,
		repo:    params.Repo,
		prices:  params.Prices,
		metrics: params.Metrics,
		maxAge:  maxAge,
		batch:   batch,
		now:     now,
	}, nil
}

type priceSyncJob struct {
	logg    *logger.Logger
	repo    staleGameLister
	prices  priceRefresher
	metrics *metrics.CronJobMetrics
	maxAge  time.Duration
	batch   int
	now     func() time.Time
}

func (j *priceSyncJob) Name() string { return "price-sync" }

func (j *priceSyncJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.maxAge)

	gameIDs, err := j.repo.StaleGameIDs(ctx, cutoff, j.batch)
	if err != nil {
		return fmt.Errorf("list stale games: %w", err)
	}
	if len(gameIDs) == 0 {
		j.logg.Info(ctx, "no stale price estimates")
		return nil
	}

	var refreshed int
	var errs []error
	for _, gameID := range gameIDs {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if _, err := j.prices.Refresh(ctx, gameID); err != nil {
			errs = append(errs, fmt.Errorf("refresh %s: %w", gameID, err))
			gameCtx := j.logg.WithField(ctx, "game_id", gameID.String())
			j.logg.Error(gameCtx, "price refresh failed", err)
			continue
		}
		refreshed++
	}

	if j.metrics != nil {
		j.metrics.AddProcessed(j.Name(), refreshed)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"refreshed": refreshed,
		"failed":    len(errs),
	})
	j.logg.Info(logCtx, "price sync complete")

	if refreshed == 0 && len(errs) > 0 {
		return multierr.Combine(errs...)
	}
	return nil
}
