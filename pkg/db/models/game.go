package models

import (
	"time"

	"github.com/google/uuid"
)

// Game is a locally cached row from the external metadata provider.
type Game struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ExternalID  string    `gorm:"column:external_id;type:text;not null;uniqueIndex:games_external_id_key"`
	Title       string    `gorm:"type:text;not null;index:games_title_idx"`
	CoverURL    *string   `gorm:"column:cover_url;type:text"`
	ConsoleName string    `gorm:"column:console_name;type:text;not null"`
	Genre       *string   `gorm:"type:text"`
	ReleaseYear *int      `gorm:"column:release_year"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
