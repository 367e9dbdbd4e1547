package sharetokens

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/julienlmr/gameshelf-backend/pkg/db/models"
)

// Repository exposes persistence helpers for share tokens.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, token *models.ShareToken) error
	FindActiveByToken(ctx context.Context, token string) (*models.ShareToken, error)
	FindLatestByUser(ctx context.Context, userID uuid.UUID) (*models.ShareToken, error)
	DeactivateAllForUser(ctx context.Context, userID uuid.UUID) error
	SetActive(ctx context.Context, userID uuid.UUID, isActive bool) (bool, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a share-token repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, token *models.ShareToken) error {
	return r.db.WithContext(ctx).Create(token).Error
}

func (r *repositoryImpl) FindActiveByToken(ctx context.Context, token string) (*models.ShareToken, error) {
	var row models.ShareToken
	err := r.db.WithContext(ctx).
		Where("token = ? AND is_active", token).
		First(&row).
		Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// FindLatestByUser returns the newest token row regardless of its active
// flag, so a revoked link can be re-enabled with the same URL.
func (r *repositoryImpl) FindLatestByUser(ctx context.Context, userID uuid.UUID) (*models.ShareToken, error) {
	var row models.ShareToken
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		First(&row).
		Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repositoryImpl) DeactivateAllForUser(ctx context.Context, userID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.ShareToken{}).
		Where("user_id = ? AND is_active", userID).
		UpdateColumn("is_active", false).
		Error
}

// SetActive flips the active flag on the user's newest token without
// rotating its value. Returns false when the user has no token at all.
func (r *repositoryImpl) SetActive(ctx context.Context, userID uuid.UUID, isActive bool) (bool, error) {
	result := r.db.WithContext(ctx).
		Exec(`UPDATE share_tokens SET is_active = ?, updated_at = now()
WHERE id = (SELECT id FROM share_tokens WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT 1)`, isActive, userID)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
