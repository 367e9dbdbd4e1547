package achievements

import "time"

// AchievementDTO is one definition with the caller's progress against it.
type AchievementDTO struct {
	Code        string     `json:"code"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Points      int        `json:"points"`
	Kind        string     `json:"kind"`
	Threshold   int        `json:"threshold"`
	Progress    int64      `json:"progress"`
	UnlockedAt  *time.Time `json:"unlocked_at,omitempty"`
}
