package friends

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/julienlmr/gameshelf-backend/pkg/db/models"
	"github.com/julienlmr/gameshelf-backend/pkg/enums"
)

// Repository covers friendship rows plus the friend notifications that track
// pending requests.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, friendship *models.Friendship) error
	FindByID(ctx context.Context, friendshipID uuid.UUID) (*models.Friendship, error)
	FindBetween(ctx context.Context, userA, userB uuid.UUID) (*models.Friendship, error)
	Accept(ctx context.Context, friendshipID uuid.UUID) (int64, error)
	Delete(ctx context.Context, friendshipID uuid.UUID) (bool, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]friendRecord, error)
	CountAcceptedForUser(ctx context.Context, userID uuid.UUID) (int64, error)
	CreateNotification(ctx context.Context, notification *models.Notification) error
	DismissNotificationsForFriendship(ctx context.Context, friendshipID uuid.UUID, now time.Time) (int64, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a friends repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

type friendRecord struct {
	FriendshipID uuid.UUID      `gorm:"column:friendship_id"`
	RequesterID  uuid.UUID      `gorm:"column:requester_id"`
	UserID       uuid.UUID      `gorm:"column:user_id"`
	DisplayName  string         `gorm:"column:display_name"`
	AvatarURL    sql.NullString `gorm:"column:avatar_url"`
	Status       string         `gorm:"column:status"`
	CreatedAt    time.Time      `gorm:"column:created_at"`
}

func (rec friendRecord) toDTO(viewerID uuid.UUID) FriendDTO {
	direction := directionIncoming
	if rec.RequesterID == viewerID {
		direction = directionOutgoing
	}
	return FriendDTO{
		FriendshipID: rec.FriendshipID,
		UserID:       rec.UserID,
		DisplayName:  rec.DisplayName,
		AvatarURL:    nullStringPtr(rec.AvatarURL),
		Status:       rec.Status,
		Direction:    direction,
		CreatedAt:    rec.CreatedAt,
	}
}

func (r *repositoryImpl) Create(ctx context.Context, friendship *models.Friendship) error {
	return r.db.WithContext(ctx).Create(friendship).Error
}

func (r *repositoryImpl) FindByID(ctx context.Context, friendshipID uuid.UUID) (*models.Friendship, error) {
	var friendship models.Friendship
	err := r.db.WithContext(ctx).
		Where("id = ?", friendshipID).
		First(&friendship).Error
	if err != nil {
		return nil, err
	}
	return &friendship, nil
}

// FindBetween looks the relation up in both directions; the pair constraint is
// directional, so an existing reverse request still counts as a relation.
func (r *repositoryImpl) FindBetween(ctx context.Context, userA, userB uuid.UUID) (*models.Friendship, error) {
	var friendship models.Friendship
	err := r.db.WithContext(ctx).
		Where("(requester_id = ? AND addressee_id = ?) OR (requester_id = ? AND addressee_id = ?)",
			userA, userB, userB, userA).
		Take(&friendship).Error
	if err != nil {
		return nil, err
	}
	return &friendship, nil
}

// Accept flips a pending row to accepted; the status guard keeps a repeated
// accept from reporting success.
func (r *repositoryImpl) Accept(ctx context.Context, friendshipID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Friendship{}).
		Where("id = ? AND status = ?", friendshipID, enums.FriendshipStatusPending).
		UpdateColumns(map[string]interface{}{
			"status":     enums.FriendshipStatusAccepted,
			"updated_at": time.Now().UTC(),
		})
	return result.RowsAffected, result.Error
}

func (r *repositoryImpl) Delete(ctx context.Context, friendshipID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("id = ?", friendshipID).
		Delete(&models.Friendship{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ListForUser returns every relation the user participates in, joined with the
// counterpart's profile, accepted first and newest within each group.
func (r *repositoryImpl) ListForUser(ctx context.Context, userID uuid.UUID) ([]friendRecord, error) {
	selectColumns := []string{
		"f.id AS friendship_id",
		"f.requester_id",
		"u.id AS user_id",
		"u.display_name",
		"u.avatar_url",
		"f.status",
		"f.created_at",
	}

	var records []friendRecord
	err := r.db.WithContext(ctx).
		Table("friendships f").
		Select(strings.Join(selectColumns, ", ")).
		Joins("JOIN users u ON u.id = CASE WHEN f.requester_id = ? THEN f.addressee_id ELSE f.requester_id END", userID).
		Where("f.requester_id = ? OR f.addressee_id = ?", userID, userID).
		Order("f.status ASC, f.created_at DESC, f.id DESC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *repositoryImpl) CountAcceptedForUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Friendship{}).
		Where("(requester_id = ? OR addressee_id = ?) AND status = ?",
			userID, userID, enums.FriendshipStatusAccepted).
		Count(&count).Error
	return count, err
}

func (r *repositoryImpl) CreateNotification(ctx context.Context, notification *models.Notification) error {
	return r.db.WithContext(ctx).Create(notification).Error
}

// DismissNotificationsForFriendship closes the live friend notifications for a
// relation, used when the request is accepted or the relation removed.
func (r *repositoryImpl) DismissNotificationsForFriendship(ctx context.Context, friendshipID uuid.UUID, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("friendship_id = ? AND type = ? AND dismissed_at IS NULL",
			friendshipID, enums.NotificationTypeFriend).
		UpdateColumn("dismissed_at", now)
	return result.RowsAffected, result.Error
}

func nullStringPtr(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	return &value.String
}
