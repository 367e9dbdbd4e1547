package enums

import "fmt"

// ItemStatus maps to the item_status enum in Postgres. It tracks where a game
// sits in a user's collection lifecycle.
type ItemStatus string

const (
	ItemStatusWishlist   ItemStatus = "WISHLIST"
	ItemStatusNotStarted ItemStatus = "NOT_STARTED"
	ItemStatusInProgress ItemStatus = "IN_PROGRESS"
	ItemStatusCompleted  ItemStatus = "COMPLETED"
	ItemStatusDropped    ItemStatus = "DROPPED"
)

var validItemStatuses = []ItemStatus{
	ItemStatusWishlist,
	ItemStatusNotStarted,
	ItemStatusInProgress,
	ItemStatusCompleted,
	ItemStatusDropped,
}

// IsValid checks whether the given status matches the canonical enum.
func (s ItemStatus) IsValid() bool {
	for _, candidate := range validItemStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsWishlist reports whether the status keeps the item on the wishlist, where
// the buy flag is meaningful.
func (s ItemStatus) IsWishlist() bool {
	return s == ItemStatusWishlist
}

// ParseItemStatus converts raw strings into ItemStatus.
func ParseItemStatus(value string) (ItemStatus, error) {
	for _, candidate := range validItemStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid item status %q", value)
}
