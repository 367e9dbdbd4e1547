package prices

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/julienlmr/gameshelf-backend/pkg/db/models"
	pkgerrors "github.com/julienlmr/gameshelf-backend/pkg/errors"
	"github.com/julienlmr/gameshelf-backend/pkg/logger"
)

// PriceDTO is the stored estimate for a game.
type PriceDTO struct {
	GameID        uuid.UUID       `json:"game_id"`
	LoosePrice    decimal.Decimal `json:"loose_price"`
	CompletePrice decimal.Decimal `json:"complete_price"`
	NewPrice      decimal.Decimal `json:"new_price"`
	Currency      string          `json:"currency"`
	FetchedAt     time.Time       `json:"fetched_at"`
}

// Service serves price estimates. Get answers from the local row and only
// calls the provider when the row is missing or older than the max age;
// Refresh always calls the provider and is what the sync job uses.
type Service interface {
	Get(ctx context.Context, gameID uuid.UUID) (*PriceDTO, error)
	Refresh(ctx context.Context, gameID uuid.UUID) (*PriceDTO, error)
}

type gameFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Game, error)
}

type quoteFetcher interface {
	Fetch(ctx context.Context, externalID string) (*Quote, error)
}

type service struct {
	repo   Repository
	games  gameFinder
	client quoteFetcher
	maxAge time.Duration
	logg   *logger.Logger
}

type ServiceParams struct {
	Repo   Repository
	Games  gameFinder
	Client quoteFetcher
	MaxAge time.Duration
	Logger *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("prices repository is required")
	}
	if params.Games == nil {
		return nil, fmt.Errorf("games repository is required")
	}
	if params.Client == nil {
		return nil, fmt.Errorf("price client is required")
	}
	if params.MaxAge <= 0 {
		return nil, fmt.Errorf("price max age must be positive")
	}
	return &service{
		repo:   params.Repo,
		games:  params.Games,
		client: params.Client,
		maxAge: params.MaxAge,
		logg:   params.Logger,
	}, nil
}

func (s *service) Get(ctx context.Context, gameID uuid.UUID) (*PriceDTO, error) {
	stored, err := s.repo.FindByGameID(ctx, gameID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load price estimate")
	}
	if stored != nil && time.Since(stored.FetchedAt) < s.maxAge {
		return toDTO(stored), nil
	}

	refreshed, err := s.Refresh(ctx, gameID)
	if err != nil {
		// A stale row beats an error while the provider is down.
		if stored != nil && pkgerrors.As(err).Code() == pkgerrors.CodeDependency {
			if s.logg != nil {
				s.logg.Error(ctx, "price refresh failed, serving stale estimate", err)
			}
			return toDTO(stored), nil
		}
		return nil, err
	}
	return refreshed, nil
}

func (s *service) Refresh(ctx context.Context, gameID uuid.UUID) (*PriceDTO, error) {
	game, err := s.games.FindByID(ctx, gameID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "game not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load game")
	}

	quote, err := s.client.Fetch(ctx, game.ExternalID)
	if err != nil {
		return nil, err
	}

	estimate := &models.PriceEstimate{
		GameID:        gameID,
		LoosePrice:    quote.LoosePrice,
		CompletePrice: quote.CompletePrice,
		NewPrice:      quote.NewPrice,
		Currency:      quote.Currency,
		FetchedAt:     time.Now().UTC(),
	}
	if err := s.repo.Upsert(ctx, estimate); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store price estimate")
	}
	return toDTO(estimate), nil
}

func toDTO(estimate *models.PriceEstimate) *PriceDTO {
	return &PriceDTO{
		GameID:        estimate.GameID,
		LoosePrice:    estimate.LoosePrice,
		CompletePrice: estimate.CompletePrice,
		NewPrice:      estimate.NewPrice,
		Currency:      estimate.Currency,
		FetchedAt:     estimate.FetchedAt,
	}
}
