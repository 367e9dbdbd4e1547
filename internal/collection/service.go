package collection

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/julienlmr/gameshelf-backend/internal/games"
	"github.com/julienlmr/gameshelf-backend/pkg/db"
	"github.com/julienlmr/gameshelf-backend/pkg/db/models"
	"github.com/julienlmr/gameshelf-backend/pkg/enums"
	pkgerrors "github.com/julienlmr/gameshelf-backend/pkg/errors"
	"github.com/julienlmr/gameshelf-backend/pkg/logger"
)

// Service defines collection behavior for controllers.
type Service interface {
	Add(ctx context.Context, userID uuid.UUID, req AddItemRequest) (*ItemDTO, error)
	Get(ctx context.Context, userID, itemID uuid.UUID) (*ItemDTO, error)
	Update(ctx context.Context, userID, itemID uuid.UUID, req UpdateItemRequest) (*ItemDTO, error)
	Remove(ctx context.Context, userID, itemID uuid.UUID) error
	List(ctx context.Context, userID uuid.UUID, params ListParams) (ItemsPageDTO, error)
}

type gameFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Game, error)
}

// ItemNotificationDismisser dismisses live wishlist notifications that
// reference an item, inside the caller's transaction.
type ItemNotificationDismisser func(ctx context.Context, tx *gorm.DB, itemID uuid.UUID) error

// ServiceParams bundles the dependencies required to build a collection service.
type ServiceParams struct {
	Repo                     Repository
	Games                    gameFinder
	TxRunner                 db.TxRunner
	DismissItemNotifications ItemNotificationDismisser
	Logger                   *logger.Logger
}

type service struct {
	repo     Repository
	games    gameFinder
	txRunner db.TxRunner
	dismiss  ItemNotificationDismisser
	logg     *logger.Logger
}

// NewService constructs a collection service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("collection repository is required")
	}
	if params.Games == nil {
		return nil, fmt.Errorf("games repository is required")
	}
	if params.TxRunner == nil {
		return nil, fmt.Errorf("transaction runner is required")
	}
	return &service{
		repo:     params.Repo,
		games:    params.Games,
		txRunner: params.TxRunner,
		dismiss:  params.DismissItemNotifications,
		logg:     params.Logger,
	}, nil
}

// Add inserts a game into the caller's collection. Items default to the
// wishlist status; the buy flag starts unset.
func (s *service) Add(ctx context.Context, userID uuid.UUID, req AddItemRequest) (*ItemDTO, error) {
	game, err := s.games.FindByID(ctx, req.GameID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "game not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load game")
	}

	status := enums.ItemStatusWishlist
	if req.Status != "" {
		parsed, err := enums.ParseItemStatus(req.Status)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status")
		}
		status = parsed
	}

	item := models.CollectionItem{
		UserID: userID,
		GameID: game.ID,
		Status: status,
		Notes:  req.Notes,
	}

	if err := s.repo.Create(ctx, &item); err != nil {
		if db.IsUniqueViolation(err, "collection_items_user_game_key") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "game already in collection")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create collection item")
	}

	dto := FromModel(&item)
	gameDTO := games.FromModel(game)
	dto.Game = &gameDTO
	return &dto, nil
}

func (s *service) Get(ctx context.Context, userID, itemID uuid.UUID) (*ItemDTO, error) {
	item, err := s.loadOwned(ctx, s.repo, userID, itemID)
	if err != nil {
		return nil, err
	}

	dto := FromModel(item)
	if game, err := s.games.FindByID(ctx, item.GameID); err == nil {
		gameDTO := games.FromModel(game)
		dto.Game = &gameDTO
	}
	return &dto, nil
}

// Update applies partial edits to an owned entry. Any status edit that moves
// the item off the wishlist clears the buy flag and dismisses the pending
// purchase-intent notification in the same transaction, so a gift-giver's
// signal cannot outlive the wishlist entry it points at.
func (s *service) Update(ctx context.Context, userID, itemID uuid.UUID, req UpdateItemRequest) (*ItemDTO, error) {
	var updated *models.CollectionItem

	err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		item, err := s.loadOwned(ctx, repo, userID, itemID)
		if err != nil {
			return err
		}

		leftWishlist := false
		if req.Status != nil {
			parsed, err := enums.ParseItemStatus(*req.Status)
			if err != nil {
				return pkgerrors.New(pkgerrors.CodeValidation, "invalid status")
			}
			if item.Status.IsWishlist() && !parsed.IsWishlist() {
				leftWishlist = true
			}
			item.Status = parsed
		}
		if req.Rating != nil {
			if *req.Rating < 1 || *req.Rating > 5 {
				return pkgerrors.New(pkgerrors.CodeValidation, "rating must be between 1 and 5")
			}
			item.Rating = req.Rating
		}
		if req.Notes != nil {
			item.Notes = req.Notes
		}

		if leftWishlist {
			hadBuy := item.BuyRequested()
			buy := false
			item.Buy = &buy
			if hadBuy && s.dismiss != nil {
				if err := s.dismiss(ctx, tx, item.ID); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "dismiss item notifications")
				}
			}
		}

		if err := repo.Save(ctx, item); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update collection item")
		}
		updated = item
		return nil
	})
	if err != nil {
		return nil, err
	}

	dto := FromModel(updated)
	return &dto, nil
}

// Remove deletes an owned entry. Notifications referencing the item are left
// behind on purpose; the notification read path dismisses them.
func (s *service) Remove(ctx context.Context, userID, itemID uuid.UUID) error {
	found, err := s.repo.Delete(ctx, userID, itemID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete collection item")
	}
	if !found {
		return pkgerrors.New(pkgerrors.CodeNotFound, "collection item not found")
	}
	return nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID, params ListParams) (ItemsPageDTO, error) {
	if params.Status != "" {
		if _, err := enums.ParseItemStatus(params.Status); err != nil {
			return ItemsPageDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter")
		}
	}

	page, err := s.repo.ListPage(ctx, userID, params)
	if err != nil {
		return ItemsPageDTO{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list collection items")
	}
	return page, nil
}

func (s *service) loadOwned(ctx context.Context, repo Repository, userID, itemID uuid.UUID) (*models.CollectionItem, error) {
	item, err := repo.FindOwned(ctx, userID, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "collection item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load collection item")
	}
	return item, nil
}
