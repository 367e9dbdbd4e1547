package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/julienlmr/gameshelf-backend/pkg/enums"
)

// Friendship is a directed request from requester to addressee; accepting it
// makes the relation mutual.
type Friendship struct {
	ID          uuid.UUID              `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	RequesterID uuid.UUID              `gorm:"column:requester_id;type:uuid;not null;index:friendships_requester_idx;uniqueIndex:friendships_pair_key"`
	AddresseeID uuid.UUID              `gorm:"column:addressee_id;type:uuid;not null;index:friendships_addressee_idx;uniqueIndex:friendships_pair_key"`
	Status      enums.FriendshipStatus `gorm:"type:friendship_status;not null;default:'pending'"`
	CreatedAt   time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}
