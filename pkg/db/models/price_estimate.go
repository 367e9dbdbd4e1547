package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PriceEstimate stores the latest auction-derived prices for a game, refreshed
// by the price sync job.
type PriceEstimate struct {
	ID            uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	GameID        uuid.UUID       `gorm:"column:game_id;type:uuid;not null;uniqueIndex:price_estimates_game_id_key"`
	LoosePrice    decimal.Decimal `gorm:"column:loose_price;type:numeric(10,2);not null"`
	CompletePrice decimal.Decimal `gorm:"column:complete_price;type:numeric(10,2);not null"`
	NewPrice      decimal.Decimal `gorm:"column:new_price;type:numeric(10,2);not null"`
	Currency      string          `gorm:"type:text;not null;default:'EUR'"`
	FetchedAt     time.Time       `gorm:"column:fetched_at;not null"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
