package enums

import "fmt"

// FriendshipStatus maps to the friendship_status enum in Postgres.
type FriendshipStatus string

const (
	FriendshipStatusPending  FriendshipStatus = "pending"
	FriendshipStatusAccepted FriendshipStatus = "accepted"
)

var validFriendshipStatuses = []FriendshipStatus{
	FriendshipStatusPending,
	FriendshipStatusAccepted,
}

// IsValid checks whether the given status matches the canonical enum.
func (s FriendshipStatus) IsValid() bool {
	for _, candidate := range validFriendshipStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseFriendshipStatus converts raw strings into FriendshipStatus.
func ParseFriendshipStatus(value string) (FriendshipStatus, error) {
	for _, candidate := range validFriendshipStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid friendship status %q", value)
}
