package achievements

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/julienlmr/gameshelf-backend/pkg/db/models"
)

// Repository reads the seeded achievement definitions and records unlocks
// together with the notification announcing them.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ListDefinitions(ctx context.Context) ([]models.Achievement, error)
	UnlockedAt(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]time.Time, error)
	CreateUnlock(ctx context.Context, unlock *models.AchievementUnlock) (bool, error)
	CreateNotification(ctx context.Context, notification *models.Notification) error
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns an achievements repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) ListDefinitions(ctx context.Context) ([]models.Achievement, error) {
	var definitions []models.Achievement
	err := r.db.WithContext(ctx).
		Order("kind ASC, threshold ASC").
		Find(&definitions).Error
	if err != nil {
		return nil, err
	}
	return definitions, nil
}

func (r *repositoryImpl) UnlockedAt(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]time.Time, error) {
	var unlocks []models.AchievementUnlock
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Find(&unlocks).Error
	if err != nil {
		return nil, err
	}

	result := make(map[uuid.UUID]time.Time, len(unlocks))
	for _, unlock := range unlocks {
		result[unlock.AchievementID] = unlock.UnlockedAt
	}
	return result, nil
}

// CreateUnlock records an unlock with a conflict-skipping insert against the
// per-user unique constraint. An errored statement would abort the
// surrounding transaction; a conflict only means a concurrent evaluation got
// there first. The boolean reports whether this call inserted the row.
func (r *repositoryImpl) CreateUnlock(ctx context.Context, unlock *models.AchievementUnlock) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(unlock)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repositoryImpl) CreateNotification(ctx context.Context, notification *models.Notification) error {
	return r.db.WithContext(ctx).Create(notification).Error
}
