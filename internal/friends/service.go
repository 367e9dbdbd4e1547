package friends

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/julienlmr/gameshelf-backend/pkg/db"
	"github.com/julienlmr/gameshelf-backend/pkg/db/models"
	"github.com/julienlmr/gameshelf-backend/pkg/enums"
	pkgerrors "github.com/julienlmr/gameshelf-backend/pkg/errors"
	"github.com/julienlmr/gameshelf-backend/pkg/logger"
)

// Service manages friend relations. A request notifies the addressee; accept
// makes the relation mutual and closes the notification; remove works for
// either side and covers declining a pending request.
type Service interface {
	SendRequest(ctx context.Context, requesterID uuid.UUID, addresseeEmail string) (*FriendDTO, error)
	Accept(ctx context.Context, userID, friendshipID uuid.UUID) (*FriendDTO, error)
	Remove(ctx context.Context, userID, friendshipID uuid.UUID) error
	List(ctx context.Context, userID uuid.UUID) ([]FriendDTO, error)
}

type userFinder interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type countInvalidator interface {
	InvalidateCount(ctx context.Context, userID uuid.UUID)
}

type service struct {
	repo        Repository
	users       userFinder
	txRunner    db.TxRunner
	invalidator countInvalidator
	logg        *logger.Logger
}

type ServiceParams struct {
	Repo        Repository
	Users       userFinder
	TxRunner    db.TxRunner
	Invalidator countInvalidator
	Logger      *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("friends repository is required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("users repository is required")
	}
	if params.TxRunner == nil {
		return nil, fmt.Errorf("transaction runner is required")
	}
	return &service{
		repo:        params.Repo,
		users:       params.Users,
		txRunner:    params.TxRunner,
		invalidator: params.Invalidator,
		logg:        params.Logger,
	}, nil
}

// SendRequest creates a pending relation toward the user behind the email and
// a friend notification for them. The addressee lookup deliberately returns
// the same not-found error for unknown and inactive accounts.
func (s *service) SendRequest(ctx context.Context, requesterID uuid.UUID, addresseeEmail string) (*FriendDTO, error) {
	email := strings.ToLower(strings.TrimSpace(addresseeEmail))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}

	addressee, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no user with that email")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "look up addressee")
	}
	if !addressee.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no user with that email")
	}
	if addressee.ID == requesterID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cannot send a friend request to yourself")
	}

	friendship := &models.Friendship{
		RequesterID: requesterID,
		AddresseeID: addressee.ID,
		Status:      enums.FriendshipStatusPending,
	}

	err = s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		existing, err := repo.FindBetween(ctx, requesterID, addressee.ID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "look up existing relation")
		}
		if existing != nil {
			if existing.Status == enums.FriendshipStatusAccepted {
				return pkgerrors.New(pkgerrors.CodeConflict, "already friends")
			}
			return pkgerrors.New(pkgerrors.CodeConflict, "friend request already pending")
		}

		if err := repo.Create(ctx, friendship); err != nil {
			if db.IsUniqueViolation(err, "friendships_pair_key") {
				return pkgerrors.New(pkgerrors.CodeConflict, "friend request already pending")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create friendship")
		}

		notification := &models.Notification{
			RecipientID:  addressee.ID,
			Type:         enums.NotificationTypeFriend,
			FriendshipID: &friendship.ID,
		}
		if err := repo.CreateNotification(ctx, notification); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create friend notification")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.invalidator != nil {
		s.invalidator.InvalidateCount(ctx, addressee.ID)
	}

	return &FriendDTO{
		FriendshipID: friendship.ID,
		UserID:       addressee.ID,
		DisplayName:  addressee.DisplayName,
		AvatarURL:    addressee.AvatarURL,
		Status:       string(enums.FriendshipStatusPending),
		Direction:    directionOutgoing,
		CreatedAt:    friendship.CreatedAt,
	}, nil
}

// Accept is addressee-only: the requester cannot accept their own request.
func (s *service) Accept(ctx context.Context, userID, friendshipID uuid.UUID) (*FriendDTO, error) {
	var friendship *models.Friendship

	err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		found, err := repo.FindByID(ctx, friendshipID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "friend request not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load friendship")
		}
		if found.AddresseeID != userID {
			return pkgerrors.New(pkgerrors.CodeNotFound, "friend request not found")
		}
		if found.Status != enums.FriendshipStatusPending {
			return pkgerrors.New(pkgerrors.CodeAlreadyProcessed, "friend request already processed")
		}

		updated, err := repo.Accept(ctx, friendshipID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "accept friendship")
		}
		if updated == 0 {
			return pkgerrors.New(pkgerrors.CodeAlreadyProcessed, "friend request already processed")
		}

		if _, err := repo.DismissNotificationsForFriendship(ctx, friendshipID, time.Now().UTC()); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "dismiss friend notification")
		}

		friendship = found
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.invalidator != nil {
		s.invalidator.InvalidateCount(ctx, userID)
	}

	requester, err := s.users.FindByID(ctx, friendship.RequesterID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load requester profile")
	}

	return &FriendDTO{
		FriendshipID: friendship.ID,
		UserID:       requester.ID,
		DisplayName:  requester.DisplayName,
		AvatarURL:    requester.AvatarURL,
		Status:       string(enums.FriendshipStatusAccepted),
		Direction:    directionIncoming,
		CreatedAt:    friendship.CreatedAt,
	}, nil
}

// Remove deletes the relation for either participant. Deleting a pending
// request is how the addressee declines it; the friend notification goes with
// the row through the foreign key cascade.
func (s *service) Remove(ctx context.Context, userID, friendshipID uuid.UUID) error {
	var counterpartID uuid.UUID

	err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		found, err := repo.FindByID(ctx, friendshipID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "friendship not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load friendship")
		}
		if found.RequesterID != userID && found.AddresseeID != userID {
			return pkgerrors.New(pkgerrors.CodeNotFound, "friendship not found")
		}
		counterpartID = found.RequesterID
		if counterpartID == userID {
			counterpartID = found.AddresseeID
		}

		deleted, err := repo.Delete(ctx, friendshipID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete friendship")
		}
		if !deleted {
			return pkgerrors.New(pkgerrors.CodeNotFound, "friendship not found")
		}
		return nil
	})
	if err != nil {
		return err
	}

	// Both inboxes may have carried a notification for this relation.
	if s.invalidator != nil {
		s.invalidator.InvalidateCount(ctx, userID)
		s.invalidator.InvalidateCount(ctx, counterpartID)
	}
	return nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID) ([]FriendDTO, error) {
	records, err := s.repo.ListForUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list friendships")
	}

	result := make([]FriendDTO, 0, len(records))
	for _, record := range records {
		result = append(result, record.toDTO(userID))
	}
	return result, nil
}
