package notifications

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/julienlmr/gameshelf-backend/pkg/db/models"
	"github.com/julienlmr/gameshelf-backend/pkg/enums"
	pkgerrors "github.com/julienlmr/gameshelf-backend/pkg/errors"
	paginationpkg "github.com/julienlmr/gameshelf-backend/pkg/pagination"
)

type fakeRepository struct {
	listFn        func(ctx context.Context, params listLiveParams) ([]liveNotificationRecord, *paginationpkg.Cursor, error)
	findOwnedFn   func(ctx context.Context, recipientID, notificationID uuid.UUID) (*models.Notification, error)
	markReadFn    func(ctx context.Context, recipientID, notificationID uuid.UUID, now time.Time) (markResult, error)
	countByTypeFn func(ctx context.Context, recipientID uuid.UUID) (map[enums.NotificationType]int64, error)
	countUnreadFn func(ctx context.Context, recipientID uuid.UUID) (int64, error)

	dismissedIDs   []uuid.UUID
	dismissedOwned []uuid.UUID
	clearedItems   []uuid.UUID
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepository) Create(_ context.Context, _ *models.Notification) error { return nil }

func (f *fakeRepository) FindOwned(ctx context.Context, recipientID, notificationID uuid.UUID) (*models.Notification, error) {
	if f.findOwnedFn != nil {
		return f.findOwnedFn(ctx, recipientID, notificationID)
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepository) ListLive(ctx context.Context, params listLiveParams) ([]liveNotificationRecord, *paginationpkg.Cursor, error) {
	if f.listFn != nil {
		return f.listFn(ctx, params)
	}
	return nil, nil, nil
}

func (f *fakeRepository) MarkRead(ctx context.Context, recipientID, notificationID uuid.UUID, now time.Time) (markResult, error) {
	if f.markReadFn != nil {
		return f.markReadFn(ctx, recipientID, notificationID, now)
	}
	return markResult{}, nil
}

func (f *fakeRepository) MarkAllRead(_ context.Context, _ uuid.UUID, _ time.Time) (int64, error) {
	return 0, nil
}

func (f *fakeRepository) Dismiss(_ context.Context, _, notificationID uuid.UUID, _ time.Time) (markResult, error) {
	f.dismissedOwned = append(f.dismissedOwned, notificationID)
	return markResult{Updated: true, Found: true}, nil
}

func (f *fakeRepository) DismissByIDs(_ context.Context, ids []uuid.UUID, _ time.Time) error {
	f.dismissedIDs = append(f.dismissedIDs, ids...)
	return nil
}

func (f *fakeRepository) DismissForItem(_ context.Context, _ uuid.UUID, _ time.Time) (int64, error) {
	return 0, nil
}

func (f *fakeRepository) ClearItemBuy(_ context.Context, itemID uuid.UUID) error {
	f.clearedItems = append(f.clearedItems, itemID)
	return nil
}

func (f *fakeRepository) CountLiveByType(ctx context.Context, recipientID uuid.UUID) (map[enums.NotificationType]int64, error) {
	if f.countByTypeFn != nil {
		return f.countByTypeFn(ctx, recipientID)
	}
	return map[enums.NotificationType]int64{}, nil
}

func (f *fakeRepository) CountUnread(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	if f.countUnreadFn != nil {
		return f.countUnreadFn(ctx, recipientID)
	}
	return 0, nil
}

func (f *fakeRepository) DeleteDismissedBefore(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

type fakeCache struct {
	values map[string]string
	sets   map[string]string
	dels   []string
}

func (f *fakeCache) Get(_ context.Context, key string) (string, error) {
	if value, ok := f.values[key]; ok {
		return value, nil
	}
	return "", redislib.Nil
}

func (f *fakeCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	if f.sets == nil {
		f.sets = map[string]string{}
	}
	f.sets[key] = value.(string)
	return nil
}

func (f *fakeCache) Del(_ context.Context, keys ...string) error {
	f.dels = append(f.dels, keys...)
	return nil
}

func (f *fakeCache) NotificationCountKey(userID string) string {
	return "gs:cache:notifications:count:" + userID
}

type fakeSweeper struct {
	calls int
	err   error
}

func (f *fakeSweeper) EvaluateUnlocks(_ context.Context, _ uuid.UUID) error {
	f.calls++
	return f.err
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func newTestService(t *testing.T, repo Repository, sweeper achievementSweeper, cache countCache) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Repo:     repo,
		TxRunner: stubTxRunner{},
		Sweeper:  sweeper,
		Cache:    cache,
		CacheTTL: 5 * time.Minute,
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

func wishlistRecord(recipientID uuid.UUID, createdAt time.Time) liveNotificationRecord {
	itemID := uuid.New()
	return liveNotificationRecord{
		ID:             uuid.New(),
		RecipientID:    recipientID,
		Type:           string(enums.NotificationTypeWishlist),
		WishlistItemID: uuid.NullUUID{UUID: itemID, Valid: true},
		CreatedAt:      createdAt,
		ItemID:         uuid.NullUUID{UUID: itemID, Valid: true},
		ItemStatus:     sql.NullString{String: string(enums.ItemStatusWishlist), Valid: true},
		ItemBuy:        sql.NullBool{Bool: true, Valid: true},
		GameID:         uuid.NullUUID{UUID: uuid.New(), Valid: true},
		GameTitle:      sql.NullString{String: "Chrono Trigger", Valid: true},
	}
}

func TestListDismissesOrphanedNotifications(t *testing.T) {
	recipientID := uuid.New()
	now := time.Now().UTC()

	healthy := wishlistRecord(recipientID, now)
	orphan := liveNotificationRecord{
		ID:             uuid.New(),
		RecipientID:    recipientID,
		Type:           string(enums.NotificationTypeWishlist),
		WishlistItemID: uuid.NullUUID{UUID: uuid.New(), Valid: true},
		CreatedAt:      now.Add(-time.Hour),
	}

	repo := &fakeRepository{
		listFn: func(_ context.Context, _ listLiveParams) ([]liveNotificationRecord, *paginationpkg.Cursor, error) {
			return []liveNotificationRecord{healthy, orphan}, nil, nil
		},
		countByTypeFn: func(_ context.Context, _ uuid.UUID) (map[enums.NotificationType]int64, error) {
			return map[enums.NotificationType]int64{enums.NotificationTypeWishlist: 1}, nil
		},
	}
	svc := newTestService(t, repo, nil, nil)

	result, err := svc.List(context.Background(), ListParams{RecipientID: recipientID})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(result.Items) != 1 {
		t.Fatalf("expected 1 item after orphan sweep, got %d", len(result.Items))
	}
	if result.Items[0].ID != healthy.ID {
		t.Fatal("expected the resolvable notification to survive")
	}
	if len(repo.dismissedIDs) != 1 || repo.dismissedIDs[0] != orphan.ID {
		t.Fatal("expected the orphan to be dismissed during the read")
	}
	if result.Total != 1 || result.WishlistCount != 1 {
		t.Fatalf("unexpected counts: total=%d wishlist=%d", result.Total, result.WishlistCount)
	}
}

func TestListTreatsNonWishlistStatusAsOrphan(t *testing.T) {
	recipientID := uuid.New()
	record := wishlistRecord(recipientID, time.Now().UTC())
	record.ItemStatus = sql.NullString{String: string(enums.ItemStatusNotStarted), Valid: true}

	repo := &fakeRepository{
		listFn: func(_ context.Context, _ listLiveParams) ([]liveNotificationRecord, *paginationpkg.Cursor, error) {
			return []liveNotificationRecord{record}, nil, nil
		},
	}
	svc := newTestService(t, repo, nil, nil)

	result, err := svc.List(context.Background(), ListParams{RecipientID: recipientID})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(result.Items) != 0 {
		t.Fatal("expected notification for a promoted item to be swept")
	}
	if len(repo.dismissedIDs) != 1 {
		t.Fatal("expected the stale notification dismissed")
	}
}

func TestListRunsAchievementSweepFirst(t *testing.T) {
	sweeper := &fakeSweeper{}
	repo := &fakeRepository{}
	svc := newTestService(t, repo, sweeper, nil)

	if _, err := svc.List(context.Background(), ListParams{RecipientID: uuid.New()}); err != nil {
		t.Fatalf("List: %v", err)
	}
	if sweeper.calls != 1 {
		t.Fatalf("expected one sweep call, got %d", sweeper.calls)
	}
}

func TestListSurvivesSweeperFailure(t *testing.T) {
	sweeper := &fakeSweeper{err: errors.New("unlock query failed")}
	svc := newTestService(t, &fakeRepository{}, sweeper, nil)

	if _, err := svc.List(context.Background(), ListParams{RecipientID: uuid.New()}); err != nil {
		t.Fatalf("expected sweep failure to be non-fatal, got %v", err)
	}
}

func TestDismissWishlistNotificationClearsBuy(t *testing.T) {
	recipientID := uuid.New()
	itemID := uuid.New()
	notification := &models.Notification{
		ID:             uuid.New(),
		RecipientID:    recipientID,
		Type:           enums.NotificationTypeWishlist,
		WishlistItemID: &itemID,
	}
	repo := &fakeRepository{
		findOwnedFn: func(_ context.Context, _, _ uuid.UUID) (*models.Notification, error) {
			return notification, nil
		},
	}
	cache := &fakeCache{}
	svc := newTestService(t, repo, nil, cache)

	if err := svc.Dismiss(context.Background(), recipientID, notification.ID); err != nil {
		t.Fatalf("Dismiss: %v", err)
	}
	if len(repo.dismissedOwned) != 1 || repo.dismissedOwned[0] != notification.ID {
		t.Fatal("expected notification dismissed")
	}
	if len(repo.clearedItems) != 1 || repo.clearedItems[0] != itemID {
		t.Fatal("expected item buy flag cleared in the same transaction")
	}
	if len(cache.dels) != 1 {
		t.Fatal("expected unread count cache invalidated")
	}
}

func TestDismissAlreadyDismissedReturnsAlreadyProcessed(t *testing.T) {
	recipientID := uuid.New()
	dismissedAt := time.Now().UTC()
	repo := &fakeRepository{
		findOwnedFn: func(_ context.Context, _, _ uuid.UUID) (*models.Notification, error) {
			return &models.Notification{
				ID:          uuid.New(),
				RecipientID: recipientID,
				Type:        enums.NotificationTypeWishlist,
				DismissedAt: &dismissedAt,
			}, nil
		},
	}
	svc := newTestService(t, repo, nil, nil)

	err := svc.Dismiss(context.Background(), recipientID, uuid.New())
	assertCode(t, err, pkgerrors.CodeAlreadyProcessed)
}

func TestMarkReadUnknownReturnsNotFound(t *testing.T) {
	repo := &fakeRepository{
		markReadFn: func(_ context.Context, _, _ uuid.UUID, _ time.Time) (markResult, error) {
			return markResult{Found: false}, nil
		},
	}
	svc := newTestService(t, repo, nil, nil)

	err := svc.MarkRead(context.Background(), uuid.New(), uuid.New())
	assertCode(t, err, pkgerrors.CodeNotFound)
}

func TestUnreadCountUsesCache(t *testing.T) {
	recipientID := uuid.New()
	cache := &fakeCache{values: map[string]string{
		"gs:cache:notifications:count:" + recipientID.String(): "7",
	}}
	repo := &fakeRepository{
		countUnreadFn: func(_ context.Context, _ uuid.UUID) (int64, error) {
			t.Fatal("expected cache hit to skip the database")
			return 0, nil
		},
	}
	svc := newTestService(t, repo, nil, cache)

	count, err := svc.UnreadCount(context.Background(), recipientID)
	if err != nil {
		t.Fatalf("UnreadCount: %v", err)
	}
	if count != 7 {
		t.Fatalf("expected cached count 7, got %d", count)
	}
}

func TestUnreadCountCachesOnMiss(t *testing.T) {
	recipientID := uuid.New()
	cache := &fakeCache{}
	repo := &fakeRepository{
		countUnreadFn: func(_ context.Context, _ uuid.UUID) (int64, error) {
			return 3, nil
		},
	}
	svc := newTestService(t, repo, nil, cache)

	count, err := svc.UnreadCount(context.Background(), recipientID)
	if err != nil {
		t.Fatalf("UnreadCount: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected count 3, got %d", count)
	}
	if cache.sets["gs:cache:notifications:count:"+recipientID.String()] != "3" {
		t.Fatal("expected count written to cache")
	}
}
