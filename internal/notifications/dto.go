package notifications

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/julienlmr/gameshelf-backend/pkg/enums"
)

// NotificationDTO is the transport shape for a live notification. Exactly one
// of the reference payloads is set, matching Type.
type NotificationDTO struct {
	ID          uuid.UUID              `json:"id"`
	Type        enums.NotificationType `json:"type"`
	ReadAt      *time.Time             `json:"read_at,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
	Wishlist    *WishlistRefDTO        `json:"wishlist,omitempty"`
	Achievement *AchievementRefDTO     `json:"achievement,omitempty"`
	Friend      *FriendRefDTO          `json:"friend,omitempty"`
}

// WishlistRefDTO carries the purchase-intent context of a wishlist notification.
type WishlistRefDTO struct {
	ItemID      uuid.UUID `json:"item_id"`
	Buy         bool      `json:"buy"`
	GameID      uuid.UUID `json:"game_id"`
	GameTitle   string    `json:"game_title"`
	CoverURL    *string   `json:"cover_url,omitempty"`
	ConsoleName string    `json:"console_name"`
}

// AchievementRefDTO carries the display data of an unlocked achievement.
type AchievementRefDTO struct {
	Code       string     `json:"code"`
	Name       string     `json:"name"`
	Points     int        `json:"points"`
	UnlockedAt *time.Time `json:"unlocked_at,omitempty"`
}

// FriendRefDTO summarizes the other side of a friendship notification.
type FriendRefDTO struct {
	UserID      uuid.UUID `json:"user_id"`
	DisplayName string    `json:"display_name"`
	AvatarURL   *string   `json:"avatar_url,omitempty"`
	Status      string    `json:"status"`
}

// orphaned reports whether the referenced entity could not be resolved. A
// live wishlist notification whose item left the wishlist counts as orphaned
// too; the write paths dismiss those, this is the read-side sweep.
func (r liveNotificationRecord) orphaned() bool {
	switch enums.NotificationType(r.Type) {
	case enums.NotificationTypeWishlist:
		if !r.ItemID.Valid {
			return true
		}
		return r.ItemStatus.Valid && !enums.ItemStatus(r.ItemStatus.String).IsWishlist()
	case enums.NotificationTypeAchievement:
		return !r.AchievementName.Valid
	case enums.NotificationTypeFriend:
		return !r.FriendID.Valid
	default:
		return true
	}
}

func (r liveNotificationRecord) toDTO() NotificationDTO {
	dto := NotificationDTO{
		ID:        r.ID,
		Type:      enums.NotificationType(r.Type),
		CreatedAt: r.CreatedAt,
	}
	if r.ReadAt.Valid {
		readAt := r.ReadAt.Time
		dto.ReadAt = &readAt
	}

	switch dto.Type {
	case enums.NotificationTypeWishlist:
		dto.Wishlist = &WishlistRefDTO{
			ItemID:      r.ItemID.UUID,
			Buy:         r.ItemBuy.Valid && r.ItemBuy.Bool,
			GameID:      r.GameID.UUID,
			GameTitle:   r.GameTitle.String,
			CoverURL:    nullStringPtr(r.GameCoverURL),
			ConsoleName: r.GameConsoleName.String,
		}
	case enums.NotificationTypeAchievement:
		ref := &AchievementRefDTO{
			Code:   r.AchievementCode.String,
			Name:   r.AchievementName.String,
			Points: int(r.AchievementPoints.Int64),
		}
		if r.UnlockedAt.Valid {
			unlockedAt := r.UnlockedAt.Time
			ref.UnlockedAt = &unlockedAt
		}
		dto.Achievement = ref
	case enums.NotificationTypeFriend:
		dto.Friend = &FriendRefDTO{
			UserID:      r.FriendID.UUID,
			DisplayName: r.FriendDisplayName.String,
			AvatarURL:   nullStringPtr(r.FriendAvatarURL),
			Status:      r.FriendshipStatus.String,
		}
	}
	return dto
}

func nullStringPtr(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	v := value.String
	return &v
}
