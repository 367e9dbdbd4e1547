package achievements

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/julienlmr/gameshelf-backend/pkg/db"
	"github.com/julienlmr/gameshelf-backend/pkg/db/models"
	"github.com/julienlmr/gameshelf-backend/pkg/enums"
	pkgerrors "github.com/julienlmr/gameshelf-backend/pkg/errors"
	"github.com/julienlmr/gameshelf-backend/pkg/logger"
)

// Service evaluates achievement thresholds and serves the progress page.
// EvaluateUnlocks runs opportunistically on notification reads, so it has to
// be cheap when nothing changed and safe under concurrent calls.
type Service interface {
	EvaluateUnlocks(ctx context.Context, userID uuid.UUID) error
	List(ctx context.Context, userID uuid.UUID) ([]AchievementDTO, error)
}

type collectionCounter interface {
	CountByUser(ctx context.Context, userID uuid.UUID) (int64, error)
	CountByStatus(ctx context.Context, userID uuid.UUID, status enums.ItemStatus) (int64, error)
}

type friendCounter interface {
	CountAcceptedForUser(ctx context.Context, userID uuid.UUID) (int64, error)
}

type countInvalidator interface {
	InvalidateCount(ctx context.Context, userID uuid.UUID)
}

type service struct {
	repo        Repository
	collection  collectionCounter
	friends     friendCounter
	txRunner    db.TxRunner
	invalidator countInvalidator
	logg        *logger.Logger
}

type ServiceParams struct {
	Repo        Repository
	Collection  collectionCounter
	Friends     friendCounter
	TxRunner    db.TxRunner
	Invalidator countInvalidator
	Logger      *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("achievements repository is required")
	}
	if params.Collection == nil {
		return nil, fmt.Errorf("collection counter is required")
	}
	if params.Friends == nil {
		return nil, fmt.Errorf("friends counter is required")
	}
	if params.TxRunner == nil {
		return nil, fmt.Errorf("transaction runner is required")
	}
	return &service{
		repo:        params.Repo,
		collection:  params.Collection,
		friends:     params.Friends,
		txRunner:    params.TxRunner,
		invalidator: params.Invalidator,
		logg:        params.Logger,
	}, nil
}

// EvaluateUnlocks compares the user's counters against every definition they
// have not unlocked yet. Each crossing is recorded in its own transaction
// alongside its notification; the unique constraint on unlocks turns a
// concurrent evaluation into a skip rather than a duplicate.
func (s *service) EvaluateUnlocks(ctx context.Context, userID uuid.UUID) error {
	definitions, err := s.repo.ListDefinitions(ctx)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load achievement definitions")
	}

	unlocked, err := s.repo.UnlockedAt(ctx, userID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load unlocked achievements")
	}

	var candidates []models.Achievement
	for _, definition := range definitions {
		if _, done := unlocked[definition.ID]; !done {
			candidates = append(candidates, definition)
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	counts, err := s.countersFor(ctx, userID, candidates)
	if err != nil {
		return err
	}

	created := false
	for _, definition := range candidates {
		if counts[definition.Kind] < int64(definition.Threshold) {
			continue
		}
		fresh, err := s.unlock(ctx, userID, definition.ID)
		if err != nil {
			return err
		}
		if fresh {
			created = true
		}
	}

	if created && s.invalidator != nil {
		s.invalidator.InvalidateCount(ctx, userID)
	}
	return nil
}

// countersFor computes only the counters the remaining candidates need.
func (s *service) countersFor(ctx context.Context, userID uuid.UUID, candidates []models.Achievement) (map[enums.AchievementKind]int64, error) {
	needed := map[enums.AchievementKind]bool{}
	for _, definition := range candidates {
		needed[definition.Kind] = true
	}

	counts := map[enums.AchievementKind]int64{}
	if needed[enums.AchievementKindGamesCollected] {
		count, err := s.collection.CountByUser(ctx, userID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count collected games")
		}
		counts[enums.AchievementKindGamesCollected] = count
	}
	if needed[enums.AchievementKindGamesCompleted] {
		count, err := s.collection.CountByStatus(ctx, userID, enums.ItemStatusCompleted)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count completed games")
		}
		counts[enums.AchievementKindGamesCompleted] = count
	}
	if needed[enums.AchievementKindFriendsAdded] {
		count, err := s.friends.CountAcceptedForUser(ctx, userID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count friends")
		}
		counts[enums.AchievementKindFriendsAdded] = count
	}
	return counts, nil
}

// unlock records one crossing with its notification. Returns false when a
// concurrent evaluation already recorded it.
func (s *service) unlock(ctx context.Context, userID, achievementID uuid.UUID) (bool, error) {
	fresh := true

	err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		unlock := &models.AchievementUnlock{
			UserID:        userID,
			AchievementID: achievementID,
		}
		created, err := repo.CreateUnlock(ctx, unlock)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record achievement unlock")
		}
		if !created {
			// A concurrent evaluation already recorded this crossing.
			fresh = false
			return nil
		}

		notification := &models.Notification{
			RecipientID:         userID,
			Type:                enums.NotificationTypeAchievement,
			AchievementUnlockID: &unlock.ID,
		}
		if err := repo.CreateNotification(ctx, notification); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create achievement notification")
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return fresh, nil
}

// List returns every definition with the caller's progress, evaluating
// pending unlocks first so the page never shows a crossed threshold as
// locked.
func (s *service) List(ctx context.Context, userID uuid.UUID) ([]AchievementDTO, error) {
	if err := s.EvaluateUnlocks(ctx, userID); err != nil {
		if s.logg != nil {
			s.logg.Error(ctx, "achievement sweep before listing failed", err)
		}
	}

	definitions, err := s.repo.ListDefinitions(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load achievement definitions")
	}
	unlocked, err := s.repo.UnlockedAt(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load unlocked achievements")
	}
	counts, err := s.countersFor(ctx, userID, definitions)
	if err != nil {
		return nil, err
	}

	result := make([]AchievementDTO, 0, len(definitions))
	for _, definition := range definitions {
		dto := AchievementDTO{
			Code:        definition.Code,
			Name:        definition.Name,
			Description: definition.Description,
			Points:      definition.Points,
			Kind:        string(definition.Kind),
			Threshold:   definition.Threshold,
			Progress:    counts[definition.Kind],
		}
		if at, ok := unlocked[definition.ID]; ok {
			unlockTime := at
			dto.UnlockedAt = &unlockTime
		}
		result = append(result, dto)
	}
	return result, nil
}
