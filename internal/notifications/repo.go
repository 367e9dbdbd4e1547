package notifications

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/julienlmr/gameshelf-backend/pkg/db/models"
	"github.com/julienlmr/gameshelf-backend/pkg/enums"
	"github.com/julienlmr/gameshelf-backend/pkg/pagination"
)

// Repository exposes persistence helpers for notifications.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, notification *models.Notification) error
	FindOwned(ctx context.Context, recipientID, notificationID uuid.UUID) (*models.Notification, error)
	ListLive(ctx context.Context, params listLiveParams) ([]liveNotificationRecord, *pagination.Cursor, error)
	MarkRead(ctx context.Context, recipientID, notificationID uuid.UUID, now time.Time) (markResult, error)
	MarkAllRead(ctx context.Context, recipientID uuid.UUID, now time.Time) (int64, error)
	Dismiss(ctx context.Context, recipientID, notificationID uuid.UUID, now time.Time) (markResult, error)
	DismissByIDs(ctx context.Context, ids []uuid.UUID, now time.Time) error
	DismissForItem(ctx context.Context, itemID uuid.UUID, now time.Time) (int64, error)
	ClearItemBuy(ctx context.Context, itemID uuid.UUID) error
	CountLiveByType(ctx context.Context, recipientID uuid.UUID) (map[enums.NotificationType]int64, error)
	CountUnread(ctx context.Context, recipientID uuid.UUID) (int64, error)
	DeleteDismissedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a notifications repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

type listLiveParams struct {
	RecipientID uuid.UUID
	Limit       int
	Cursor      *pagination.Cursor
}

type markResult struct {
	Updated bool
	Found   bool
}

// liveNotificationRecord is one live notification row joined with the display
// data of whatever it references. All reference columns are nullable; which
// ones are populated depends on the notification type, and a type whose
// reference columns come back empty is an orphan.
type liveNotificationRecord struct {
	ID                  uuid.UUID      `gorm:"column:id"`
	RecipientID         uuid.UUID      `gorm:"column:recipient_id"`
	Type                string         `gorm:"column:type"`
	WishlistItemID      uuid.NullUUID  `gorm:"column:wishlist_item_id"`
	AchievementUnlockID uuid.NullUUID  `gorm:"column:achievement_unlock_id"`
	FriendshipID        uuid.NullUUID  `gorm:"column:friendship_id"`
	ReadAt              sql.NullTime   `gorm:"column:read_at"`
	CreatedAt           time.Time      `gorm:"column:created_at"`
	ItemID              uuid.NullUUID  `gorm:"column:item_id"`
	ItemStatus          sql.NullString `gorm:"column:item_status"`
	ItemBuy             sql.NullBool   `gorm:"column:item_buy"`
	GameID              uuid.NullUUID  `gorm:"column:joined_game_id"`
	GameTitle           sql.NullString `gorm:"column:game_title"`
	GameCoverURL        sql.NullString `gorm:"column:game_cover_url"`
	GameConsoleName     sql.NullString `gorm:"column:game_console_name"`
	AchievementCode     sql.NullString `gorm:"column:achievement_code"`
	AchievementName     sql.NullString `gorm:"column:achievement_name"`
	AchievementPoints   sql.NullInt64  `gorm:"column:achievement_points"`
	UnlockedAt          sql.NullTime   `gorm:"column:unlocked_at"`
	FriendID            uuid.NullUUID  `gorm:"column:friend_id"`
	FriendDisplayName   sql.NullString `gorm:"column:friend_display_name"`
	FriendAvatarURL     sql.NullString `gorm:"column:friend_avatar_url"`
	FriendshipStatus    sql.NullString `gorm:"column:friendship_status"`
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, notification *models.Notification) error {
	return r.db.WithContext(ctx).Create(notification).Error
}

func (r *repositoryImpl) FindOwned(ctx context.Context, recipientID, notificationID uuid.UUID) (*models.Notification, error) {
	var row models.Notification
	err := r.db.WithContext(ctx).
		Where("id = ? AND recipient_id = ?", notificationID, recipientID).
		First(&row).
		Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// ListLive returns live notifications joined with the referenced entity's
// display data, newest first.
func (r *repositoryImpl) ListLive(ctx context.Context, params listLiveParams) ([]liveNotificationRecord, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)

	selectColumns := []string{
		"n.id",
		"n.recipient_id",
		"n.type",
		"n.wishlist_item_id",
		"n.achievement_unlock_id",
		"n.friendship_id",
		"n.read_at",
		"n.created_at",
		"ci.id AS item_id",
		"ci.status AS item_status",
		"ci.buy AS item_buy",
		"g.id AS joined_game_id",
		"g.title AS game_title",
		"g.cover_url AS game_cover_url",
		"g.console_name AS game_console_name",
		"a.code AS achievement_code",
		"a.name AS achievement_name",
		"a.points AS achievement_points",
		"au.unlocked_at",
		"fu.id AS friend_id",
		"fu.display_name AS friend_display_name",
		"fu.avatar_url AS friend_avatar_url",
		"f.status AS friendship_status",
	}

	query := r.db.WithContext(ctx).
		Table("notifications n").
		Select(strings.Join(selectColumns, ", ")).
		Joins("LEFT JOIN collection_items ci ON ci.id = n.wishlist_item_id").
		Joins("LEFT JOIN games g ON g.id = ci.game_id").
		Joins("LEFT JOIN achievement_unlocks au ON au.id = n.achievement_unlock_id").
		Joins("LEFT JOIN achievements a ON a.id = au.achievement_id").
		Joins("LEFT JOIN friendships f ON f.id = n.friendship_id").
		Joins("LEFT JOIN users fu ON fu.id = CASE WHEN f.requester_id = n.recipient_id THEN f.addressee_id ELSE f.requester_id END").
		Where("n.recipient_id = ? AND n.dismissed_at IS NULL", params.RecipientID)

	if params.Cursor != nil {
		query = query.Where("(n.created_at < ?) OR (n.created_at = ? AND n.id < ?)", params.Cursor.CreatedAt, params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var records []liveNotificationRecord
	if err := query.Order("n.created_at DESC, n.id DESC").Limit(limit).Scan(&records).Error; err != nil {
		return nil, nil, err
	}

	if len(records) > normalized {
		next := records[normalized]
		records = records[:normalized]
		return records, &pagination.Cursor{CreatedAt: next.CreatedAt, ID: next.ID}, nil
	}
	return records, nil, nil
}

func (r *repositoryImpl) MarkRead(ctx context.Context, recipientID, notificationID uuid.UUID, now time.Time) (markResult, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ? AND recipient_id = ? AND read_at IS NULL", notificationID, recipientID).
		UpdateColumn("read_at", now)
	if result.Error != nil {
		return markResult{}, result.Error
	}

	mark := markResult{Updated: result.RowsAffected > 0}
	if result.RowsAffected > 0 {
		mark.Found = true
		return mark, nil
	}

	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ? AND recipient_id = ?", notificationID, recipientID).
		Count(&count).Error; err != nil {
		return markResult{}, err
	}
	mark.Found = count > 0
	return mark, nil
}

func (r *repositoryImpl) MarkAllRead(ctx context.Context, recipientID uuid.UUID, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("recipient_id = ? AND read_at IS NULL AND dismissed_at IS NULL", recipientID).
		UpdateColumn("read_at", now)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *repositoryImpl) Dismiss(ctx context.Context, recipientID, notificationID uuid.UUID, now time.Time) (markResult, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ? AND recipient_id = ? AND dismissed_at IS NULL", notificationID, recipientID).
		UpdateColumn("dismissed_at", now)
	if result.Error != nil {
		return markResult{}, result.Error
	}

	mark := markResult{Updated: result.RowsAffected > 0}
	if result.RowsAffected > 0 {
		mark.Found = true
		return mark, nil
	}

	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ? AND recipient_id = ?", notificationID, recipientID).
		Count(&count).Error; err != nil {
		return markResult{}, err
	}
	mark.Found = count > 0
	return mark, nil
}

func (r *repositoryImpl) DismissByIDs(ctx context.Context, ids []uuid.UUID, now time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id IN ? AND dismissed_at IS NULL", ids).
		UpdateColumn("dismissed_at", now).
		Error
}

// DismissForItem dismisses every live wishlist notification pointing at the
// given collection item.
func (r *repositoryImpl) DismissForItem(ctx context.Context, itemID uuid.UUID, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("wishlist_item_id = ? AND type = ? AND dismissed_at IS NULL", itemID, enums.NotificationTypeWishlist).
		UpdateColumn("dismissed_at", now)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// ClearItemBuy resets the buy flag on the referenced collection item so a
// dismissed purchase notification cannot be recreated by a stale flag.
func (r *repositoryImpl) ClearItemBuy(ctx context.Context, itemID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Exec("UPDATE collection_items SET buy = false, updated_at = now() WHERE id = ? AND buy IS TRUE", itemID).
		Error
}

func (r *repositoryImpl) CountLiveByType(ctx context.Context, recipientID uuid.UUID) (map[enums.NotificationType]int64, error) {
	var rows []struct {
		Type  string `gorm:"column:type"`
		Count int64  `gorm:"column:count"`
	}
	err := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Select("type, COUNT(*) AS count").
		Where("recipient_id = ? AND dismissed_at IS NULL", recipientID).
		Group("type").
		Scan(&rows).
		Error
	if err != nil {
		return nil, err
	}

	counts := make(map[enums.NotificationType]int64, len(rows))
	for _, row := range rows {
		counts[enums.NotificationType(row.Type)] = row.Count
	}
	return counts, nil
}

func (r *repositoryImpl) CountUnread(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("recipient_id = ? AND dismissed_at IS NULL AND read_at IS NULL", recipientID).
		Count(&count).
		Error
	return count, err
}

// DeleteDismissedBefore hard-deletes notifications dismissed before the
// cutoff. Used by the retention cron job only.
func (r *repositoryImpl) DeleteDismissedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("dismissed_at IS NOT NULL AND dismissed_at < ?", cutoff).
		Delete(&models.Notification{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
