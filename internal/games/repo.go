package games

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/julienlmr/gameshelf-backend/pkg/db/models"
)

// Repository exposes game catalog persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a games repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Upsert inserts catalog games, refreshing metadata on external id conflicts,
// and returns the persisted rows.
func (r *Repository) Upsert(ctx context.Context, games []models.Game) ([]models.Game, error) {
	if len(games) == 0 {
		return nil, nil
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "external_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"title", "cover_url", "console_name", "genre", "release_year", "updated_at"}),
		}).
		Create(&games).Error
	if err != nil {
		return nil, err
	}

	externalIDs := make([]string, 0, len(games))
	for _, g := range games {
		externalIDs = append(externalIDs, g.ExternalID)
	}
	var persisted []models.Game
	if err := r.db.WithContext(ctx).Where("external_id IN ?", externalIDs).Find(&persisted).Error; err != nil {
		return nil, err
	}
	return persisted, nil
}

// FindByID loads a single game by its UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Game, error) {
	var game models.Game
	if err := r.db.WithContext(ctx).First(&game, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &game, nil
}

// FindByIDs loads the games matching the provided identifiers.
func (r *Repository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Game, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var found []models.Game
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&found).Error; err != nil {
		return nil, err
	}
	return found, nil
}

// ListIDs returns all game ids, oldest first. Used by the price sync job.
func (r *Repository) ListIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.Game{}).
		Order("created_at ASC").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
