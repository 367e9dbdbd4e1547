package wishlist

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/julienlmr/gameshelf-backend/pkg/db/models"
	"github.com/julienlmr/gameshelf-backend/pkg/enums"
)

// Repository exposes the wishlist-specific persistence surface: the public
// share view, the guarded item mutations of the purchase workflow, and the
// notification rows those mutations keep in lockstep.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ListShared(ctx context.Context, ownerID uuid.UUID) ([]SharedItemDTO, error)
	FindOwnedItem(ctx context.Context, ownerID, itemID uuid.UUID) (*itemWithGameRecord, error)
	SetBuy(ctx context.Context, ownerID, itemID uuid.UUID, buy bool) (int64, error)
	Promote(ctx context.Context, ownerID, itemID uuid.UUID) (int64, error)
	ItemStatus(ctx context.Context, ownerID, itemID uuid.UUID) (enums.ItemStatus, bool, error)
	CreateNotification(ctx context.Context, notification *models.Notification) (bool, error)
	FindOwnedNotification(ctx context.Context, ownerID, notificationID uuid.UUID) (*models.Notification, error)
	DismissNotification(ctx context.Context, ownerID, notificationID uuid.UUID, now time.Time) (int64, error)
	DismissNotificationsForItem(ctx context.Context, itemID uuid.UUID, now time.Time) (int64, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a wishlist repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

type itemWithGameRecord struct {
	ID        uuid.UUID      `gorm:"column:id"`
	UserID    uuid.UUID      `gorm:"column:user_id"`
	GameID    uuid.UUID      `gorm:"column:game_id"`
	Status    string         `gorm:"column:status"`
	Buy       sql.NullBool   `gorm:"column:buy"`
	GameTitle string         `gorm:"column:game_title"`
	CoverURL  sql.NullString `gorm:"column:cover_url"`
	Console   string         `gorm:"column:console_name"`
	CreatedAt time.Time      `gorm:"column:created_at"`
}

func (rec itemWithGameRecord) buyRequested() bool {
	return rec.Buy.Valid && rec.Buy.Bool
}

func (rec itemWithGameRecord) status() enums.ItemStatus {
	return enums.ItemStatus(rec.Status)
}

// ListShared returns the owner's wishlist entries sorted alphabetically by
// game title, the order the share page renders them in.
func (r *repositoryImpl) ListShared(ctx context.Context, ownerID uuid.UUID) ([]SharedItemDTO, error) {
	selectColumns := []string{
		"ci.id",
		"ci.user_id",
		"ci.game_id",
		"ci.status",
		"ci.buy",
		"g.title AS game_title",
		"g.cover_url",
		"g.console_name",
		"ci.created_at",
	}

	var records []itemWithGameRecord
	err := r.db.WithContext(ctx).
		Table("collection_items ci").
		Select(strings.Join(selectColumns, ", ")).
		Joins("JOIN games g ON g.id = ci.game_id").
		Where("ci.user_id = ? AND ci.status = ?", ownerID, enums.ItemStatusWishlist).
		Order("g.title ASC, ci.id ASC").
		Scan(&records).
		Error
	if err != nil {
		return nil, err
	}

	items := make([]SharedItemDTO, 0, len(records))
	for _, record := range records {
		items = append(items, SharedItemDTO{
			ItemID: record.ID,
			Buy:    record.buyRequested(),
			Game: SharedGameDTO{
				ID:          record.GameID,
				Title:       record.GameTitle,
				CoverURL:    nullStringPtr(record.CoverURL),
				ConsoleName: record.Console,
			},
		})
	}
	return items, nil
}

func (r *repositoryImpl) FindOwnedItem(ctx context.Context, ownerID, itemID uuid.UUID) (*itemWithGameRecord, error) {
	var record itemWithGameRecord
	err := r.db.WithContext(ctx).
		Table("collection_items ci").
		Select("ci.id, ci.user_id, ci.game_id, ci.status, ci.buy, g.title AS game_title, g.cover_url, g.console_name, ci.created_at").
		Joins("JOIN games g ON g.id = ci.game_id").
		Where("ci.id = ? AND ci.user_id = ?", itemID, ownerID).
		Take(&record).
		Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// SetBuy flips the buy flag, guarded so it can never touch an item that has
// left the wishlist.
func (r *repositoryImpl) SetBuy(ctx context.Context, ownerID, itemID uuid.UUID, buy bool) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.CollectionItem{}).
		Where("id = ? AND user_id = ? AND status = ?", itemID, ownerID, enums.ItemStatusWishlist).
		UpdateColumns(map[string]any{"buy": buy, "updated_at": time.Now().UTC()})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// Promote moves a wishlist item into the owner's collection, clearing the buy
// flag in the same statement. Returns zero rows when the item already left
// the wishlist.
func (r *repositoryImpl) Promote(ctx context.Context, ownerID, itemID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.CollectionItem{}).
		Where("id = ? AND user_id = ? AND status = ?", itemID, ownerID, enums.ItemStatusWishlist).
		UpdateColumns(map[string]any{
			"status":     enums.ItemStatusNotStarted,
			"buy":        false,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// ItemStatus reports the item's current status, distinguishing a missing item
// from one in the wrong state.
func (r *repositoryImpl) ItemStatus(ctx context.Context, ownerID, itemID uuid.UUID) (enums.ItemStatus, bool, error) {
	var row struct {
		Status string `gorm:"column:status"`
	}
	err := r.db.WithContext(ctx).
		Model(&models.CollectionItem{}).
		Select("status").
		Where("id = ? AND user_id = ?", itemID, ownerID).
		Take(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	return enums.ItemStatus(row.Status), true, nil
}

// CreateNotification inserts the owner's purchase notification. A conflict
// with the partial unique index on live notifications is skipped rather than
// raised: an errored statement would abort the surrounding transaction, and
// the conflict only means a concurrent toggle already created the row. The
// boolean reports whether this call inserted it.
func (r *repositoryImpl) CreateNotification(ctx context.Context, notification *models.Notification) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(notification)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repositoryImpl) FindOwnedNotification(ctx context.Context, ownerID, notificationID uuid.UUID) (*models.Notification, error) {
	var row models.Notification
	err := r.db.WithContext(ctx).
		Where("id = ? AND recipient_id = ?", notificationID, ownerID).
		First(&row).
		Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repositoryImpl) DismissNotification(ctx context.Context, ownerID, notificationID uuid.UUID, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ? AND recipient_id = ? AND dismissed_at IS NULL", notificationID, ownerID).
		UpdateColumn("dismissed_at", now)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// DismissNotificationsForItem dismisses every live purchase notification
// pointing at the item, for the true-to-false edge of the buy toggle.
func (r *repositoryImpl) DismissNotificationsForItem(ctx context.Context, itemID uuid.UUID, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("wishlist_item_id = ? AND type = ? AND dismissed_at IS NULL", itemID, enums.NotificationTypeWishlist).
		UpdateColumn("dismissed_at", now)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func nullStringPtr(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	v := value.String
	return &v
}
