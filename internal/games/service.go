package games

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/julienlmr/gameshelf-backend/pkg/db/models"
	pkgerrors "github.com/julienlmr/gameshelf-backend/pkg/errors"
	"github.com/julienlmr/gameshelf-backend/pkg/logger"
)

const defaultSearchLimit = 20

// GameDTO is the transport shape for catalog games.
type GameDTO struct {
	ID          uuid.UUID `json:"id"`
	ExternalID  string    `json:"external_id"`
	Title       string    `json:"title"`
	CoverURL    *string   `json:"cover_url,omitempty"`
	ConsoleName string    `json:"console_name"`
	Genre       *string   `json:"genre,omitempty"`
	ReleaseYear *int      `json:"release_year,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Service defines game catalog behavior for controllers and other services.
type Service interface {
	Search(ctx context.Context, query string, limit int) ([]GameDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*GameDTO, error)
}

type catalogClient interface {
	Search(ctx context.Context, query string, limit int) ([]CatalogGame, error)
}

type gameRepository interface {
	Upsert(ctx context.Context, games []models.Game) ([]models.Game, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Game, error)
}

// ServiceParams bundles the dependencies required to build a games service.
type ServiceParams struct {
	Catalog catalogClient
	Repo    gameRepository
	Logger  *logger.Logger
}

type service struct {
	catalog catalogClient
	repo    gameRepository
	logg    *logger.Logger
}

// NewService constructs a games service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog client is required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("games repository is required")
	}
	return &service{
		catalog: params.Catalog,
		repo:    params.Repo,
		logg:    params.Logger,
	}, nil
}

// Search queries the upstream catalog and caches the hits locally so
// collection rows can reference a stable game id.
func (s *service) Search(ctx context.Context, query string, limit int) ([]GameDTO, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "search query is required")
	}
	if limit <= 0 || limit > 50 {
		limit = defaultSearchLimit
	}

	hits, err := s.catalog.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return []GameDTO{}, nil
	}

	rows := make([]models.Game, 0, len(hits))
	for _, hit := range hits {
		if strings.TrimSpace(hit.ExternalID) == "" {
			continue
		}
		rows = append(rows, catalogToModel(hit))
	}

	persisted, err := s.repo.Upsert(ctx, rows)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "cache catalog games")
	}

	dtos := make([]GameDTO, 0, len(persisted))
	for i := range persisted {
		dtos = append(dtos, FromModel(&persisted[i]))
	}
	return dtos, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*GameDTO, error) {
	game, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "game not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load game")
	}
	dto := FromModel(game)
	return &dto, nil
}

// FromModel converts a persisted game into its transport shape.
func FromModel(g *models.Game) GameDTO {
	return GameDTO{
		ID:          g.ID,
		ExternalID:  g.ExternalID,
		Title:       g.Title,
		CoverURL:    g.CoverURL,
		ConsoleName: g.ConsoleName,
		Genre:       g.Genre,
		ReleaseYear: g.ReleaseYear,
		CreatedAt:   g.CreatedAt,
	}
}

func catalogToModel(hit CatalogGame) models.Game {
	console := ""
	if hit.ConsoleName != nil {
		console = *hit.ConsoleName
	}
	return models.Game{
		ExternalID:  hit.ExternalID,
		Title:       hit.Title,
		CoverURL:    hit.CoverURL,
		ConsoleName: console,
		Genre:       hit.Genre,
		ReleaseYear: hit.ReleaseYear,
	}
}
