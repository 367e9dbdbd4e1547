package notifications

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/julienlmr/gameshelf-backend/pkg/db"
	"github.com/julienlmr/gameshelf-backend/pkg/enums"
	pkgerrors "github.com/julienlmr/gameshelf-backend/pkg/errors"
	"github.com/julienlmr/gameshelf-backend/pkg/logger"
	"github.com/julienlmr/gameshelf-backend/pkg/pagination"
)

// Service defines notification read/dismiss operations.
type Service interface {
	List(ctx context.Context, params ListParams) (*ListResult, error)
	MarkRead(ctx context.Context, recipientID, notificationID uuid.UUID) error
	MarkAllRead(ctx context.Context, recipientID uuid.UUID) (int64, error)
	Dismiss(ctx context.Context, recipientID, notificationID uuid.UUID) error
	UnreadCount(ctx context.Context, recipientID uuid.UUID) (int64, error)
	InvalidateCount(ctx context.Context, recipientID uuid.UUID)
}

// achievementSweeper runs the opportunistic unlock check before a listing so
// freshly crossed thresholds show up in the same response.
type achievementSweeper interface {
	EvaluateUnlocks(ctx context.Context, userID uuid.UUID) error
}

type countCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	NotificationCountKey(userID string) string
}

// ListParams configures pagination for notifications.
type ListParams struct {
	RecipientID uuid.UUID
	Limit       int
	Cursor      string
}

// ListResult wraps live notifications plus per-type counts.
type ListResult struct {
	Items            []NotificationDTO `json:"items"`
	Cursor           string            `json:"cursor"`
	Total            int64             `json:"total"`
	WishlistCount    int64             `json:"wishlist_count"`
	AchievementCount int64             `json:"achievement_count"`
	FriendCount      int64             `json:"friend_count"`
}

// ServiceParams bundles the dependencies required to build a notifications service.
type ServiceParams struct {
	Repo     Repository
	TxRunner db.TxRunner
	Sweeper  achievementSweeper
	Cache    countCache
	CacheTTL time.Duration
	Logger   *logger.Logger
}

type service struct {
	repo     Repository
	txRunner db.TxRunner
	sweeper  achievementSweeper
	cache    countCache
	cacheTTL time.Duration
	logg     *logger.Logger
}

// NewService constructs a notifications service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("notifications repository is required")
	}
	if params.TxRunner == nil {
		return nil, fmt.Errorf("transaction runner is required")
	}
	return &service{
		repo:     params.Repo,
		txRunner: params.TxRunner,
		sweeper:  params.Sweeper,
		cache:    params.Cache,
		cacheTTL: params.CacheTTL,
		logg:     params.Logger,
	}, nil
}

// List returns the caller's live notifications, newest first. Orphaned rows
// found during enrichment are dismissed and excluded, so a deleted game or
// revoked friendship cannot leave a notification pointing at nothing.
func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	if params.RecipientID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "recipient id required")
	}

	if s.sweeper != nil {
		if err := s.sweeper.EvaluateUnlocks(ctx, params.RecipientID); err != nil && s.logg != nil {
			s.logg.Error(ctx, "achievement sweep failed", err)
		}
	}

	query := listLiveParams{
		RecipientID: params.RecipientID,
		Limit:       params.Limit,
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	records, next, err := s.repo.ListLive(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list notifications")
	}

	items := make([]NotificationDTO, 0, len(records))
	var orphans []uuid.UUID
	for _, record := range records {
		if record.orphaned() {
			orphans = append(orphans, record.ID)
			continue
		}
		items = append(items, record.toDTO())
	}

	if len(orphans) > 0 {
		if err := s.repo.DismissByIDs(ctx, orphans, time.Now().UTC()); err != nil {
			if s.logg != nil {
				s.logg.Error(ctx, "dismiss orphaned notifications failed", err)
			}
		} else {
			s.InvalidateCount(ctx, params.RecipientID)
		}
	}

	counts, err := s.repo.CountLiveByType(ctx, params.RecipientID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count notifications")
	}

	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}

	result := &ListResult{
		Items:            items,
		Cursor:           cursor,
		WishlistCount:    counts[enums.NotificationTypeWishlist],
		AchievementCount: counts[enums.NotificationTypeAchievement],
		FriendCount:      counts[enums.NotificationTypeFriend],
	}
	result.Total = result.WishlistCount + result.AchievementCount + result.FriendCount
	return result, nil
}

func (s *service) MarkRead(ctx context.Context, recipientID, notificationID uuid.UUID) error {
	if notificationID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification id required")
	}

	result, err := s.repo.MarkRead(ctx, recipientID, notificationID, time.Now().UTC())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark notification read")
	}
	if !result.Found {
		return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
	}
	if result.Updated {
		s.InvalidateCount(ctx, recipientID)
	}
	return nil
}

func (s *service) MarkAllRead(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	count, err := s.repo.MarkAllRead(ctx, recipientID, time.Now().UTC())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark notifications read")
	}
	if count > 0 {
		s.InvalidateCount(ctx, recipientID)
	}
	return count, nil
}

// Dismiss marks a notification dismissed. For wishlist notifications the
// referenced item's buy flag is cleared in the same transaction so the
// purchase signal cannot resurrect the notification.
func (s *service) Dismiss(ctx context.Context, recipientID, notificationID uuid.UUID) error {
	err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		notification, err := repo.FindOwned(ctx, recipientID, notificationID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load notification")
		}
		if !notification.Live() {
			return pkgerrors.New(pkgerrors.CodeAlreadyProcessed, "notification already dismissed")
		}

		if _, err := repo.Dismiss(ctx, recipientID, notificationID, time.Now().UTC()); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "dismiss notification")
		}

		if notification.Type == enums.NotificationTypeWishlist && notification.WishlistItemID != nil {
			if err := repo.ClearItemBuy(ctx, *notification.WishlistItemID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear purchase intent")
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.InvalidateCount(ctx, recipientID)
	return nil
}

// UnreadCount serves the badge counter, cached briefly in redis because the
// UI polls it.
func (s *service) UnreadCount(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, s.cache.NotificationCountKey(recipientID.String()))
		if err == nil {
			if count, parseErr := strconv.ParseInt(cached, 10, 64); parseErr == nil {
				return count, nil
			}
		} else if !errors.Is(err, redislib.Nil) && s.logg != nil {
			s.logg.Error(ctx, "unread count cache read failed", err)
		}
	}

	count, err := s.repo.CountUnread(ctx, recipientID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count unread notifications")
	}

	if s.cache != nil {
		key := s.cache.NotificationCountKey(recipientID.String())
		if err := s.cache.Set(ctx, key, strconv.FormatInt(count, 10), s.cacheTTL); err != nil && s.logg != nil {
			s.logg.Error(ctx, "unread count cache write failed", err)
		}
	}
	return count, nil
}

// InvalidateCount drops the cached unread counter after any mutation.
func (s *service) InvalidateCount(ctx context.Context, recipientID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, s.cache.NotificationCountKey(recipientID.String())); err != nil && s.logg != nil {
		s.logg.Error(ctx, "unread count cache invalidation failed", err)
	}
}
