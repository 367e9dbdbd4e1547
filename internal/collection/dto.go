package collection

import (
	"time"

	"github.com/google/uuid"

	"github.com/julienlmr/gameshelf-backend/internal/games"
	"github.com/julienlmr/gameshelf-backend/pkg/db/models"
	"github.com/julienlmr/gameshelf-backend/pkg/enums"
)

// ItemDTO is the transport shape for a collection entry including the
// referenced game's display data.
type ItemDTO struct {
	ID        uuid.UUID        `json:"id"`
	GameID    uuid.UUID        `json:"game_id"`
	Status    enums.ItemStatus `json:"status"`
	Buy       bool             `json:"buy"`
	Rating    *int             `json:"rating,omitempty"`
	Notes     *string          `json:"notes,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
	Game      *games.GameDTO   `json:"game,omitempty"`
}

// AddItemRequest adds a game to the caller's collection or wishlist.
type AddItemRequest struct {
	GameID uuid.UUID `json:"game_id" validate:"required"`
	Status string    `json:"status" validate:"omitempty,oneof=WISHLIST NOT_STARTED IN_PROGRESS COMPLETED DROPPED"`
	Notes  *string   `json:"notes" validate:"omitempty,max=2000"`
}

// UpdateItemRequest mutates an existing entry. Absent fields are untouched.
type UpdateItemRequest struct {
	Status *string `json:"status" validate:"omitempty,oneof=WISHLIST NOT_STARTED IN_PROGRESS COMPLETED DROPPED"`
	Rating *int    `json:"rating" validate:"omitempty,min=1,max=5"`
	Notes  *string `json:"notes" validate:"omitempty,max=2000"`
}

// ListParams filters and paginates a collection listing.
type ListParams struct {
	Status string
	Cursor string
	Limit  int
}

// PageMeta carries cursor pagination metadata for list responses.
type PageMeta struct {
	Total   int    `json:"total"`
	Current string `json:"current"`
	First   string `json:"first"`
	Last    string `json:"last"`
	Prev    string `json:"prev"`
	Next    string `json:"next"`
}

// ItemsPageDTO is one page of collection entries.
type ItemsPageDTO struct {
	Items      []ItemDTO `json:"items"`
	Pagination PageMeta  `json:"pagination"`
}

// FromModel converts a persisted entry into its transport shape. The game is
// attached separately when the row was loaded with a join.
func FromModel(item *models.CollectionItem) ItemDTO {
	return ItemDTO{
		ID:        item.ID,
		GameID:    item.GameID,
		Status:    item.Status,
		Buy:       item.BuyRequested(),
		Rating:    item.Rating,
		Notes:     item.Notes,
		CreatedAt: item.CreatedAt,
		UpdatedAt: item.UpdatedAt,
	}
}
