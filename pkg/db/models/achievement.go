package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/julienlmr/gameshelf-backend/pkg/enums"
)

// Achievement is a seeded definition; unlocks reference it per user.
type Achievement struct {
	ID          uuid.UUID             `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Code        string                `gorm:"type:text;not null;uniqueIndex:achievements_code_key"`
	Name        string                `gorm:"type:text;not null"`
	Description string                `gorm:"type:text;not null"`
	Points      int                   `gorm:"not null;default:0"`
	Kind        enums.AchievementKind `gorm:"type:achievement_kind;not null"`
	Threshold   int                   `gorm:"not null"`
	CreatedAt   time.Time             `gorm:"column:created_at;autoCreateTime"`
}

// AchievementUnlock records that a user crossed an achievement threshold.
type AchievementUnlock struct {
	ID            uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID        uuid.UUID `gorm:"column:user_id;type:uuid;not null;index:achievement_unlocks_user_idx;uniqueIndex:achievement_unlocks_user_achievement_key"`
	AchievementID uuid.UUID `gorm:"column:achievement_id;type:uuid;not null;uniqueIndex:achievement_unlocks_user_achievement_key"`
	UnlockedAt    time.Time `gorm:"column:unlocked_at;autoCreateTime"`
}
