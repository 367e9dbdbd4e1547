package prices

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/julienlmr/gameshelf-backend/pkg/db/models"
)

// Repository persists the one price row kept per game.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Upsert(ctx context.Context, estimate *models.PriceEstimate) error
	FindByGameID(ctx context.Context, gameID uuid.UUID) (*models.PriceEstimate, error)
	StaleGameIDs(ctx context.Context, olderThan time.Time, limit int) ([]uuid.UUID, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a prices repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Upsert(ctx context.Context, estimate *models.PriceEstimate) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "game_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"loose_price", "complete_price", "new_price", "currency", "fetched_at", "updated_at",
			}),
		}).
		Create(estimate).Error
}

func (r *repositoryImpl) FindByGameID(ctx context.Context, gameID uuid.UUID) (*models.PriceEstimate, error) {
	var estimate models.PriceEstimate
	err := r.db.WithContext(ctx).
		Where("game_id = ?", gameID).
		Take(&estimate).Error
	if err != nil {
		return nil, err
	}
	return &estimate, nil
}

// StaleGameIDs returns games whose estimate is missing or older than the
// cutoff, stalest first, for the sync job to refresh.
func (r *repositoryImpl) StaleGameIDs(ctx context.Context, olderThan time.Time, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Table("games g").
		Select("g.id").
		Joins("LEFT JOIN price_estimates pe ON pe.game_id = g.id").
		Where("pe.id IS NULL OR pe.fetched_at < ?", olderThan).
		Order("pe.fetched_at ASC NULLS FIRST").
		Limit(limit).
		Scan(&ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
