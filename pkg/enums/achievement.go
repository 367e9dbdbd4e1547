package enums

import "fmt"

// AchievementKind selects the counter an achievement threshold applies to.
type AchievementKind string

const (
	AchievementKindGamesCollected AchievementKind = "games_collected"
	AchievementKindGamesCompleted AchievementKind = "games_completed"
	AchievementKindFriendsAdded   AchievementKind = "friends_added"
)

var validAchievementKinds = []AchievementKind{
	AchievementKindGamesCollected,
	AchievementKindGamesCompleted,
	AchievementKindFriendsAdded,
}

// IsValid checks whether the given kind matches the canonical enum.
func (k AchievementKind) IsValid() bool {
	for _, candidate := range validAchievementKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParseAchievementKind converts raw strings into AchievementKind.
func ParseAchievementKind(value string) (AchievementKind, error) {
	for _, candidate := range validAchievementKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid achievement kind %q", value)
}
