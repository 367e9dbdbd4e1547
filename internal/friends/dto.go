package friends

import (
	"time"

	"github.com/google/uuid"
)

// FriendDTO is one relation seen from the caller's side: User* fields
// describe the counterpart, Direction tells who initiated a pending request.
type FriendDTO struct {
	FriendshipID uuid.UUID `json:"friendship_id"`
	UserID       uuid.UUID `json:"user_id"`
	DisplayName  string    `json:"display_name"`
	AvatarURL    *string   `json:"avatar_url,omitempty"`
	Status       string    `json:"status"`
	Direction    string    `json:"direction"`
	CreatedAt    time.Time `json:"created_at"`
}

type SendRequestRequest struct {
	Email string `json:"email" validate:"required,email"`
}

const (
	directionIncoming = "incoming"
	directionOutgoing = "outgoing"
)
