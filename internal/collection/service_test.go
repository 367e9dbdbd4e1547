package collection

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/julienlmr/gameshelf-backend/pkg/db/models"
	"github.com/julienlmr/gameshelf-backend/pkg/enums"
	pkgerrors "github.com/julienlmr/gameshelf-backend/pkg/errors"
)

type stubRepo struct {
	item      *models.CollectionItem
	findErr   error
	createErr error
	saveErr   error

	created      *models.CollectionItem
	saved        *models.CollectionItem
	deletedFound bool
	deleteErr    error
	page         ItemsPageDTO
	listErr      error
}

func (s *stubRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubRepo) Create(_ context.Context, item *models.CollectionItem) error {
	if s.createErr != nil {
		return s.createErr
	}
	item.ID = uuid.New()
	s.created = item
	return nil
}

func (s *stubRepo) FindOwned(_ context.Context, userID, itemID uuid.UUID) (*models.CollectionItem, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	if s.item == nil || s.item.ID != itemID || s.item.UserID != userID {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *s.item
	return &copied, nil
}

func (s *stubRepo) Save(_ context.Context, item *models.CollectionItem) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved = item
	return nil
}

func (s *stubRepo) Delete(_ context.Context, _, _ uuid.UUID) (bool, error) {
	return s.deletedFound, s.deleteErr
}

func (s *stubRepo) ListPage(_ context.Context, _ uuid.UUID, _ ListParams) (ItemsPageDTO, error) {
	return s.page, s.listErr
}

func (s *stubRepo) CountByUser(_ context.Context, _ uuid.UUID) (int64, error) { return 0, nil }

func (s *stubRepo) CountByStatus(_ context.Context, _ uuid.UUID, _ enums.ItemStatus) (int64, error) {
	return 0, nil
}

type stubGameFinder struct {
	game *models.Game
	err  error
}

func (s *stubGameFinder) FindByID(_ context.Context, id uuid.UUID) (*models.Game, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.game == nil || s.game.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	return s.game, nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func newTestService(t *testing.T, repo *stubRepo, finder *stubGameFinder, dismiss ItemNotificationDismisser) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Repo:                     repo,
		Games:                    finder,
		TxRunner:                 stubTxRunner{},
		DismissItemNotifications: dismiss,
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func assertCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with code %s, got nil", code)
	}
	var typed *pkgerrors.Error
	if !errors.As(err, &typed) {
		t.Fatalf("expected typed error, got %v", err)
	}
	if typed.Code() != code {
		t.Fatalf("expected code %s, got %s", code, typed.Code())
	}
}

func TestAddDefaultsToWishlist(t *testing.T) {
	game := &models.Game{ID: uuid.New(), Title: "Chrono Trigger", ConsoleName: "SNES"}
	repo := &stubRepo{}
	svc := newTestService(t, repo, &stubGameFinder{game: game}, nil)

	dto, err := svc.Add(context.Background(), uuid.New(), AddItemRequest{GameID: game.ID})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if dto.Status != enums.ItemStatusWishlist {
		t.Fatalf("expected WISHLIST status, got %s", dto.Status)
	}
	if dto.Buy {
		t.Fatal("expected buy to start unset")
	}
	if dto.Game == nil || dto.Game.Title != "Chrono Trigger" {
		t.Fatal("expected game display data attached")
	}
	if repo.created == nil {
		t.Fatal("expected item persisted")
	}
}

func TestAddUnknownGameReturnsNotFound(t *testing.T) {
	svc := newTestService(t, &stubRepo{}, &stubGameFinder{}, nil)

	_, err := svc.Add(context.Background(), uuid.New(), AddItemRequest{GameID: uuid.New()})
	assertCode(t, err, pkgerrors.CodeNotFound)
}

func TestAddDuplicateReturnsConflict(t *testing.T) {
	game := &models.Game{ID: uuid.New(), Title: "Chrono Trigger"}
	repo := &stubRepo{createErr: &pq.Error{Code: "23505", Constraint: "collection_items_user_game_key"}}
	svc := newTestService(t, repo, &stubGameFinder{game: game}, nil)

	_, err := svc.Add(context.Background(), uuid.New(), AddItemRequest{GameID: game.ID})
	assertCode(t, err, pkgerrors.CodeConflict)
}

func TestUpdateLeavingWishlistClearsBuy(t *testing.T) {
	userID := uuid.New()
	buy := true
	item := &models.CollectionItem{
		ID:     uuid.New(),
		UserID: userID,
		GameID: uuid.New(),
		Status: enums.ItemStatusWishlist,
		Buy:    &buy,
	}
	repo := &stubRepo{item: item}
	var dismissedItem uuid.UUID
	dismiss := func(_ context.Context, _ *gorm.DB, itemID uuid.UUID) error {
		dismissedItem = itemID
		return nil
	}
	svc := newTestService(t, repo, &stubGameFinder{}, dismiss)

	status := string(enums.ItemStatusCompleted)
	dto, err := svc.Update(context.Background(), userID, item.ID, UpdateItemRequest{Status: &status})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if dto.Status != enums.ItemStatusCompleted {
		t.Fatalf("expected COMPLETED status, got %s", dto.Status)
	}
	if dto.Buy {
		t.Fatal("expected buy reset when status leaves the wishlist")
	}
	if repo.saved == nil || repo.saved.BuyRequested() {
		t.Fatal("expected persisted item with buy cleared")
	}
	if dismissedItem != item.ID {
		t.Fatal("expected pending purchase notification dismissed in the same transaction")
	}
}

func TestUpdateWithinWishlistKeepsBuy(t *testing.T) {
	userID := uuid.New()
	buy := true
	item := &models.CollectionItem{
		ID:     uuid.New(),
		UserID: userID,
		GameID: uuid.New(),
		Status: enums.ItemStatusWishlist,
		Buy:    &buy,
	}
	repo := &stubRepo{item: item}
	dismissCalled := false
	dismiss := func(_ context.Context, _ *gorm.DB, _ uuid.UUID) error {
		dismissCalled = true
		return nil
	}
	svc := newTestService(t, repo, &stubGameFinder{}, dismiss)

	notes := "confirmed with the seller"
	dto, err := svc.Update(context.Background(), userID, item.ID, UpdateItemRequest{Notes: &notes})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !dto.Buy {
		t.Fatal("expected buy untouched by a notes-only edit")
	}
	if dismissCalled {
		t.Fatal("expected no notification dismissal for a notes-only edit")
	}
}

func TestUpdateRejectsInvalidRating(t *testing.T) {
	userID := uuid.New()
	item := &models.CollectionItem{ID: uuid.New(), UserID: userID, Status: enums.ItemStatusCompleted}
	svc := newTestService(t, &stubRepo{item: item}, &stubGameFinder{}, nil)

	rating := 6
	_, err := svc.Update(context.Background(), userID, item.ID, UpdateItemRequest{Rating: &rating})
	assertCode(t, err, pkgerrors.CodeValidation)
}

func TestUpdateUnknownItemReturnsNotFound(t *testing.T) {
	svc := newTestService(t, &stubRepo{}, &stubGameFinder{}, nil)

	status := string(enums.ItemStatusCompleted)
	_, err := svc.Update(context.Background(), uuid.New(), uuid.New(), UpdateItemRequest{Status: &status})
	assertCode(t, err, pkgerrors.CodeNotFound)
}

func TestRemoveUnknownItemReturnsNotFound(t *testing.T) {
	svc := newTestService(t, &stubRepo{deletedFound: false}, &stubGameFinder{}, nil)

	err := svc.Remove(context.Background(), uuid.New(), uuid.New())
	assertCode(t, err, pkgerrors.CodeNotFound)
}

func TestListRejectsInvalidStatusFilter(t *testing.T) {
	svc := newTestService(t, &stubRepo{}, &stubGameFinder{}, nil)

	_, err := svc.List(context.Background(), uuid.New(), ListParams{Status: "PAUSED"})
	assertCode(t, err, pkgerrors.CodeValidation)
}
