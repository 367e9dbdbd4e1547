package sharetokens

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/julienlmr/gameshelf-backend/pkg/config"
	"github.com/julienlmr/gameshelf-backend/pkg/db/models"
	pkgerrors "github.com/julienlmr/gameshelf-backend/pkg/errors"
)

type stubRepo struct {
	latest      *models.ShareToken
	activeToken *models.ShareToken

	created         *models.ShareToken
	deactivatedFor  uuid.UUID
	setActiveFound  bool
	setActiveCalled bool
	setActiveValue  bool
}

func (s *stubRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubRepo) Create(_ context.Context, token *models.ShareToken) error {
	token.ID = uuid.New()
	s.created = token
	s.latest = token
	return nil
}

func (s *stubRepo) FindActiveByToken(_ context.Context, token string) (*models.ShareToken, error) {
	if s.activeToken == nil || s.activeToken.Token != token || !s.activeToken.IsActive {
		return nil, gorm.ErrRecordNotFound
	}
	return s.activeToken, nil
}

func (s *stubRepo) FindLatestByUser(_ context.Context, userID uuid.UUID) (*models.ShareToken, error) {
	if s.latest == nil || s.latest.UserID != userID {
		return nil, gorm.ErrRecordNotFound
	}
	if s.setActiveCalled {
		s.latest.IsActive = s.setActiveValue
	}
	return s.latest, nil
}

func (s *stubRepo) DeactivateAllForUser(_ context.Context, userID uuid.UUID) error {
	s.deactivatedFor = userID
	if s.latest != nil {
		s.latest.IsActive = false
	}
	return nil
}

func (s *stubRepo) SetActive(_ context.Context, _ uuid.UUID, isActive bool) (bool, error) {
	s.setActiveCalled = true
	s.setActiveValue = isActive
	return s.setActiveFound, nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func newTestService(t *testing.T, repo *stubRepo) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Repo:     repo,
		TxRunner: stubTxRunner{},
		App:      config.AppConfig{BaseURL: "https://gameshelf.app"},
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

func TestIssueOrRotateDeactivatesPreviousTokens(t *testing.T) {
	userID := uuid.New()
	previous := &models.ShareToken{ID: uuid.New(), UserID: userID, Token: "old-token", IsActive: true}
	repo := &stubRepo{latest: previous}
	svc := newTestService(t, repo)

	dto, err := svc.IssueOrRotate(context.Background(), userID)
	if err != nil {
		t.Fatalf("IssueOrRotate: %v", err)
	}
	if repo.deactivatedFor != userID {
		t.Fatal("expected previous tokens deactivated")
	}
	if repo.created == nil || !repo.created.IsActive {
		t.Fatal("expected a fresh active token persisted")
	}
	if dto.Token == "" || dto.Token == "old-token" {
		t.Fatalf("expected a new token value, got %q", dto.Token)
	}
	if len(dto.Token) < 43 {
		t.Fatalf("expected a 256-bit base64url token, got %d chars", len(dto.Token))
	}
	if dto.URL != "https://gameshelf.app/wishlist/"+dto.Token {
		t.Fatalf("unexpected share URL %q", dto.URL)
	}
}

func TestCurrentWithoutTokenReturnsNotFound(t *testing.T) {
	svc := newTestService(t, &stubRepo{})

	_, err := svc.Current(context.Background(), uuid.New())
	assertCode(t, err, pkgerrors.CodeNotFound)
}

func TestToggleActiveKeepsTokenValue(t *testing.T) {
	userID := uuid.New()
	token := &models.ShareToken{ID: uuid.New(), UserID: userID, Token: "shared-link", IsActive: true}
	repo := &stubRepo{latest: token, setActiveFound: true}
	svc := newTestService(t, repo)

	dto, err := svc.ToggleActive(context.Background(), userID, false)
	if err != nil {
		t.Fatalf("ToggleActive: %v", err)
	}
	if dto.Token != "shared-link" {
		t.Fatalf("expected token value preserved, got %q", dto.Token)
	}
	if dto.IsActive {
		t.Fatal("expected token revoked")
	}
}

func TestToggleActiveWithoutTokenReturnsNotFound(t *testing.T) {
	svc := newTestService(t, &stubRepo{setActiveFound: false})

	_, err := svc.ToggleActive(context.Background(), uuid.New(), true)
	assertCode(t, err, pkgerrors.CodeNotFound)
}

func TestResolveReturnsOwner(t *testing.T) {
	ownerID := uuid.New()
	repo := &stubRepo{activeToken: &models.ShareToken{UserID: ownerID, Token: "valid", IsActive: true}}
	svc := newTestService(t, repo)

	resolved, err := svc.Resolve(context.Background(), "valid")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if resolved != ownerID {
		t.Fatal("expected owner id")
	}
}

func TestResolveRejectsUnknownAndInactiveUniformly(t *testing.T) {
	inactive := &models.ShareToken{UserID: uuid.New(), Token: "revoked", IsActive: false}
	repo := &stubRepo{activeToken: inactive}
	svc := newTestService(t, repo)

	_, unknownErr := svc.Resolve(context.Background(), "missing")
	assertCode(t, unknownErr, pkgerrors.CodeUnauthorized)

	_, inactiveErr := svc.Resolve(context.Background(), "revoked")
	assertCode(t, inactiveErr, pkgerrors.CodeUnauthorized)

	if unknownErr.Error() != inactiveErr.Error() {
		t.Fatal("expected identical errors for unknown and inactive tokens")
	}

	_, emptyErr := svc.Resolve(context.Background(), "  ")
	assertCode(t, emptyErr, pkgerrors.CodeUnauthorized)
}
