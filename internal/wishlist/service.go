package wishlist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/julienlmr/gameshelf-backend/internal/notifications"
	"github.com/julienlmr/gameshelf-backend/pkg/db"
	"github.com/julienlmr/gameshelf-backend/pkg/db/models"
	"github.com/julienlmr/gameshelf-backend/pkg/enums"
	pkgerrors "github.com/julienlmr/gameshelf-backend/pkg/errors"
	"github.com/julienlmr/gameshelf-backend/pkg/logger"
)

// Service coordinates the purchase-intent workflow: anonymous gift-givers
// flag wishlist items through a share token, the owner is notified, and the
// owner validates or refuses the purchase.
type Service interface {
	SharedView(ctx context.Context, token string) (*SharedViewDTO, error)
	ToggleBuyWithToken(ctx context.Context, token string, itemID uuid.UUID, buy bool) error
	ToggleBuyAsOwner(ctx context.Context, ownerID, itemID uuid.UUID, buy bool) error
	Validate(ctx context.Context, ownerID, notificationID uuid.UUID) (*DecisionResultDTO, error)
	Refuse(ctx context.Context, ownerID, notificationID uuid.UUID) (*DecisionResultDTO, error)
}

type tokenResolver interface {
	Resolve(ctx context.Context, token string) (uuid.UUID, error)
}

type ownerFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type eventPublisher interface {
	PublishCreated(ctx context.Context, event notifications.Event) error
}

type countInvalidator interface {
	InvalidateCount(ctx context.Context, recipientID uuid.UUID)
}

// ServiceParams bundles the dependencies required to build a wishlist service.
type ServiceParams struct {
	Repo        Repository
	Tokens      tokenResolver
	Users       ownerFinder
	TxRunner    db.TxRunner
	Publisher   eventPublisher
	Invalidator countInvalidator
	Logger      *logger.Logger
}

type service struct {
	repo        Repository
	tokens      tokenResolver
	users       ownerFinder
	txRunner    db.TxRunner
	publisher   eventPublisher
	invalidator countInvalidator
	logg        *logger.Logger
}

// NewService constructs a wishlist service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("wishlist repository is required")
	}
	if params.Tokens == nil {
		return nil, fmt.Errorf("token resolver is required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("users repository is required")
	}
	if params.TxRunner == nil {
		return nil, fmt.Errorf("transaction runner is required")
	}
	return &service{
		repo:        params.Repo,
		tokens:      params.Tokens,
		users:       params.Users,
		txRunner:    params.TxRunner,
		publisher:   params.Publisher,
		invalidator: params.Invalidator,
		logg:        params.Logger,
	}, nil
}

// SharedView resolves a share token into the owner's wishlist, sorted by game
// title, with only the display data an anonymous visitor needs.
func (s *service) SharedView(ctx context.Context, token string) (*SharedViewDTO, error) {
	ownerID, err := s.tokens.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}

	owner, err := s.users.FindByID(ctx, ownerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid share token")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load wishlist owner")
	}

	items, err := s.repo.ListShared(ctx, ownerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list shared wishlist")
	}

	return &SharedViewDTO{
		OwnerDisplayName: owner.DisplayName,
		Items:            items,
	}, nil
}

// ToggleBuyWithToken is the anonymous path: the share token scopes the write
// to items owned by the token's owner, nothing else.
func (s *service) ToggleBuyWithToken(ctx context.Context, token string, itemID uuid.UUID, buy bool) error {
	ownerID, err := s.tokens.Resolve(ctx, token)
	if err != nil {
		return err
	}
	return s.toggleBuy(ctx, ownerID, itemID, buy)
}

// ToggleBuyAsOwner lets the owner self-correct the flag on their own item.
func (s *service) ToggleBuyAsOwner(ctx context.Context, ownerID, itemID uuid.UUID, buy bool) error {
	return s.toggleBuy(ctx, ownerID, itemID, buy)
}

// toggleBuy sets the buy flag and keeps the notification in lockstep. The
// false-to-true edge creates the owner's notification with a conflict-skipping
// insert against the partial unique index on live notifications: concurrent
// toggles collapse into one row, the loser sees no insert and still reports
// success, and no statement errors inside the transaction. The true-to-false
// edge dismisses whatever live notification the item has.
func (s *service) toggleBuy(ctx context.Context, ownerID, itemID uuid.UUID, buy bool) error {
	var createdEvent *notifications.Event

	err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		item, err := repo.FindOwnedItem(ctx, ownerID, itemID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "wishlist item not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load wishlist item")
		}
		if !item.status().IsWishlist() {
			return pkgerrors.New(pkgerrors.CodeInvalidState, "item is no longer on the wishlist")
		}

		updated, err := repo.SetBuy(ctx, ownerID, itemID, buy)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "set purchase intent")
		}
		if updated == 0 {
			// Lost a race with a status edit between read and write.
			return pkgerrors.New(pkgerrors.CodeInvalidState, "item is no longer on the wishlist")
		}

		if buy {
			notification := &models.Notification{
				RecipientID:    ownerID,
				Type:           enums.NotificationTypeWishlist,
				WishlistItemID: &item.ID,
			}
			created, err := repo.CreateNotification(ctx, notification)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create purchase notification")
			}
			if !created {
				// A concurrent toggle already created the live notification.
				return nil
			}
			createdEvent = &notifications.Event{
				NotificationID: notification.ID,
				RecipientID:    ownerID,
				Type:           enums.NotificationTypeWishlist,
				GameTitle:      item.GameTitle,
			}
			return nil
		}

		if _, err := repo.DismissNotificationsForItem(ctx, item.ID, time.Now().UTC()); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "dismiss purchase notification")
		}
		return nil
	})
	if err != nil {
		return err
	}

	if s.invalidator != nil {
		s.invalidator.InvalidateCount(ctx, ownerID)
	}
	if createdEvent != nil && s.publisher != nil {
		if err := s.publisher.PublishCreated(ctx, *createdEvent); err != nil && s.logg != nil {
			s.logg.Error(ctx, "publish purchase notification event failed", err)
		}
	}
	return nil
}

// Validate accepts a purchase: the item moves into the owner's collection
// with the buy flag cleared and the notification is dismissed, all in one
// transaction so no reader can observe a half-applied decision.
func (s *service) Validate(ctx context.Context, ownerID, notificationID uuid.UUID) (*DecisionResultDTO, error) {
	return s.decide(ctx, ownerID, notificationID, true)
}

// Refuse declines a purchase: the item stays on the wishlist, the buy flag is
// cleared, and the notification is dismissed atomically.
func (s *service) Refuse(ctx context.Context, ownerID, notificationID uuid.UUID) (*DecisionResultDTO, error) {
	return s.decide(ctx, ownerID, notificationID, false)
}

func (s *service) decide(ctx context.Context, ownerID, notificationID uuid.UUID, accept bool) (*DecisionResultDTO, error) {
	var result *DecisionResultDTO
	staleNotification := false

	err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		notification, err := repo.FindOwnedNotification(ctx, ownerID, notificationID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load notification")
		}
		if notification.Type != enums.NotificationTypeWishlist || notification.WishlistItemID == nil {
			return pkgerrors.New(pkgerrors.CodeInvalidState, "not a purchase notification")
		}
		if !notification.Live() {
			return pkgerrors.New(pkgerrors.CodeAlreadyProcessed, "notification already processed")
		}

		itemID := *notification.WishlistItemID
		now := time.Now().UTC()

		var updated int64
		if accept {
			updated, err = repo.Promote(ctx, ownerID, itemID)
		} else {
			updated, err = repo.SetBuy(ctx, ownerID, itemID, false)
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "apply purchase decision")
		}

		if updated == 0 {
			status, found, statusErr := repo.ItemStatus(ctx, ownerID, itemID)
			if statusErr != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, statusErr, "inspect wishlist item")
			}
			staleNotification = true
			if !found {
				return pkgerrors.New(pkgerrors.CodeNotFound, "wishlist item no longer exists")
			}
			return pkgerrors.New(pkgerrors.CodeInvalidState, fmt.Sprintf("item is no longer on the wishlist (status %s)", status))
		}

		if _, err := repo.DismissNotification(ctx, ownerID, notificationID, now); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "dismiss notification")
		}

		status := enums.ItemStatusWishlist
		if accept {
			status = enums.ItemStatusNotStarted
		}
		result = &DecisionResultDTO{
			ItemID: itemID,
			Status: string(status),
			Buy:    false,
		}
		return nil
	})
	if err != nil {
		// The notification points at an item that is gone or already left
		// the wishlist; dismiss it outside the rolled-back transaction so
		// the owner stops hitting the same dead entry.
		if staleNotification {
			if _, dismissErr := s.repo.DismissNotification(ctx, ownerID, notificationID, time.Now().UTC()); dismissErr != nil && s.logg != nil {
				s.logg.Error(ctx, "dismiss stale notification failed", dismissErr)
			}
			if s.invalidator != nil {
				s.invalidator.InvalidateCount(ctx, ownerID)
			}
		}
		return nil, err
	}

	if s.invalidator != nil {
		s.invalidator.InvalidateCount(ctx, ownerID)
	}
	return result, nil
}
