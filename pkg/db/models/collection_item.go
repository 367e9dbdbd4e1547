package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/julienlmr/gameshelf-backend/pkg/enums"
)

// CollectionItem links a user to a game. Items with status WISHLIST form the
// user's wishlist; the Buy flag is only meaningful there.
type CollectionItem struct {
	ID        uuid.UUID        `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID        `gorm:"column:user_id;type:uuid;not null;index:collection_items_user_id_idx;uniqueIndex:collection_items_user_game_key"`
	GameID    uuid.UUID        `gorm:"column:game_id;type:uuid;not null;index:collection_items_game_id_idx;uniqueIndex:collection_items_user_game_key"`
	Status    enums.ItemStatus `gorm:"type:item_status;not null;default:'WISHLIST'"`
	Buy       *bool            `gorm:"column:buy"`
	Rating    *int             `gorm:"column:rating"`
	Notes     *string          `gorm:"type:text"`
	CreatedAt time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// BuyRequested reports whether a gift-giver has flagged purchase intent.
func (c CollectionItem) BuyRequested() bool {
	return c.Buy != nil && *c.Buy
}
