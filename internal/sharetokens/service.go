package sharetokens

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/julienlmr/gameshelf-backend/pkg/config"
	"github.com/julienlmr/gameshelf-backend/pkg/db"
	"github.com/julienlmr/gameshelf-backend/pkg/db/models"
	pkgerrors "github.com/julienlmr/gameshelf-backend/pkg/errors"
	"github.com/julienlmr/gameshelf-backend/pkg/logger"
	"github.com/julienlmr/gameshelf-backend/pkg/security"
)

// ShareTokenDTO is the transport shape for a share token.
type ShareTokenDTO struct {
	Token     string    `json:"token"`
	URL       string    `json:"url"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// Service manages the share-token lifecycle for wishlist owners and resolves
// tokens presented by anonymous visitors.
type Service interface {
	IssueOrRotate(ctx context.Context, userID uuid.UUID) (*ShareTokenDTO, error)
	Current(ctx context.Context, userID uuid.UUID) (*ShareTokenDTO, error)
	ToggleActive(ctx context.Context, userID uuid.UUID, isActive bool) (*ShareTokenDTO, error)
	Resolve(ctx context.Context, token string) (uuid.UUID, error)
}

// ServiceParams bundles the dependencies required to build a share-token service.
type ServiceParams struct {
	Repo     Repository
	TxRunner db.TxRunner
	App      config.AppConfig
	Logger   *logger.Logger
}

type service struct {
	repo     Repository
	txRunner db.TxRunner
	app      config.AppConfig
	logg     *logger.Logger
}

// NewService constructs a share-token service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("share token repository is required")
	}
	if params.TxRunner == nil {
		return nil, fmt.Errorf("transaction runner is required")
	}
	return &service{
		repo:     params.Repo,
		txRunner: params.TxRunner,
		app:      params.App,
		logg:     params.Logger,
	}, nil
}

// IssueOrRotate deactivates every previous token for the owner and mints a
// fresh one, atomically, keeping the one-active-token-per-user invariant.
func (s *service) IssueOrRotate(ctx context.Context, userID uuid.UUID) (*ShareTokenDTO, error) {
	value, err := security.MintShareToken()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint share token")
	}

	token := models.ShareToken{
		UserID:   userID,
		Token:    value,
		IsActive: true,
	}

	err = s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.DeactivateAllForUser(ctx, userID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deactivate previous share tokens")
		}
		if err := repo.Create(ctx, &token); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persist share token")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.toDTO(&token), nil
}

// Current returns the owner's newest token, active or not.
func (s *service) Current(ctx context.Context, userID uuid.UUID) (*ShareTokenDTO, error) {
	token, err := s.repo.FindLatestByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no share token issued")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load share token")
	}
	return s.toDTO(token), nil
}

// ToggleActive revokes or re-enables the newest token without changing its
// value, so a previously shared link keeps working after re-enable.
func (s *service) ToggleActive(ctx context.Context, userID uuid.UUID, isActive bool) (*ShareTokenDTO, error) {
	found, err := s.repo.SetActive(ctx, userID, isActive)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "toggle share token")
	}
	if !found {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no share token issued")
	}
	return s.Current(ctx, userID)
}

// Resolve maps an active token to its owner. Unknown and inactive tokens are
// rejected with the same error so callers cannot probe which tokens exist.
func (s *service) Resolve(ctx context.Context, token string) (uuid.UUID, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid share token")
	}

	row, err := s.repo.FindActiveByToken(ctx, token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid share token")
		}
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolve share token")
	}
	return row.UserID, nil
}

func (s *service) toDTO(token *models.ShareToken) *ShareTokenDTO {
	return &ShareTokenDTO{
		Token:     token.Token,
		URL:       s.app.ShareLink(token.Token),
		IsActive:  token.IsActive,
		CreatedAt: token.CreatedAt,
	}
}
