package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/julienlmr/gameshelf-backend/pkg/enums"
)

// Notification is surfaced to a user for a pending event. Exactly one of the
// reference columns is set, matching Type. Rows are never hard-deleted by the
// workflow; removal is DismissedAt being set. A partial unique index
// (notifications_live_ref_key, see migrations) guarantees at most one live
// notification per (recipient, type, reference).
type Notification struct {
	ID                  uuid.UUID              `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	RecipientID         uuid.UUID              `gorm:"column:recipient_id;type:uuid;not null;index:notifications_recipient_idx"`
	Type                enums.NotificationType `gorm:"type:notification_type;not null"`
	WishlistItemID      *uuid.UUID             `gorm:"column:wishlist_item_id;type:uuid"`
	AchievementUnlockID *uuid.UUID             `gorm:"column:achievement_unlock_id;type:uuid"`
	FriendshipID        *uuid.UUID             `gorm:"column:friendship_id;type:uuid"`
	ReadAt              *time.Time             `gorm:"column:read_at;type:timestamptz"`
	DismissedAt         *time.Time             `gorm:"column:dismissed_at;type:timestamptz"`
	CreatedAt           time.Time              `gorm:"column:created_at;type:timestamptz;default:now()"`
}

// Live reports whether the notification has not been dismissed.
func (n Notification) Live() bool {
	return n.DismissedAt == nil
}
