package models

import (
	"time"

	"github.com/google/uuid"
)

// ShareToken grants anonymous read access to one user's wishlist plus the
// buy-toggle action. Rotation deactivates older rows instead of deleting them.
type ShareToken struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;index:share_tokens_user_id_idx"`
	Token     string    `gorm:"type:text;not null;uniqueIndex:share_tokens_token_key"`
	IsActive  bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
