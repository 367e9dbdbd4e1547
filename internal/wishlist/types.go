package wishlist

import (
	"github.com/google/uuid"
)

// SharedGameDTO is the game display data shown to anonymous visitors.
type SharedGameDTO struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	CoverURL    *string   `json:"cover_url,omitempty"`
	ConsoleName string    `json:"console_name"`
}

// SharedItemDTO is one wishlist entry on the public share view.
type SharedItemDTO struct {
	ItemID uuid.UUID     `json:"item_id"`
	Buy    bool          `json:"buy"`
	Game   SharedGameDTO `json:"game"`
}

// SharedViewDTO is the anonymous read view of one user's wishlist.
type SharedViewDTO struct {
	OwnerDisplayName string          `json:"owner_display_name"`
	Items            []SharedItemDTO `json:"items"`
}

// ToggleBuyRequest flips purchase intent on a wishlist item. Token is set on
// the anonymous path and empty when the owner acts on their own item.
type ToggleBuyRequest struct {
	Token  string    `json:"token" validate:"omitempty,max=128"`
	ItemID uuid.UUID `json:"item_id" validate:"required"`
	Buy    *bool     `json:"buy" validate:"required"`
}

// DecisionResultDTO reports the item state after a validate/refuse decision.
type DecisionResultDTO struct {
	ItemID uuid.UUID `json:"item_id"`
	Status string    `json:"status"`
	Buy    bool      `json:"buy"`
}
