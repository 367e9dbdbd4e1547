package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/julienlmr/gameshelf-backend/api/middleware"
	wishlistsvc "github.com/julienlmr/gameshelf-backend/internal/wishlist"
	pkgerrors "github.com/julienlmr/gameshelf-backend/pkg/errors"
	"github.com/julienlmr/gameshelf-backend/pkg/logger"
)

type testWishlistService struct {
	sharedViewFn  func(ctx context.Context, token string) (*wishlistsvc.SharedViewDTO, error)
	toggleTokenFn func(ctx context.Context, token string, itemID uuid.UUID, buy bool) error
	toggleOwnerFn func(ctx context.Context, ownerID, itemID uuid.UUID, buy bool) error
	validateFn    func(ctx context.Context, ownerID, notificationID uuid.UUID) (*wishlistsvc.DecisionResultDTO, error)
	refuseFn      func(ctx context.Context, ownerID, notificationID uuid.UUID) (*wishlistsvc.DecisionResultDTO, error)
}

func (s *testWishlistService) SharedView(ctx context.Context, token string) (*wishlistsvc.SharedViewDTO, error) {
	if s.sharedViewFn != nil {
		return s.sharedViewFn(ctx, token)
	}
	return nil, nil
}

func (s *testWishlistService) ToggleBuyWithToken(ctx context.Context, token string, itemID uuid.UUID, buy bool) error {
	if s.toggleTokenFn != nil {
		return s.toggleTokenFn(ctx, token, itemID, buy)
	}
	return nil
}

func (s *testWishlistService) ToggleBuyAsOwner(ctx context.Context, ownerID, itemID uuid.UUID, buy bool) error {
	if s.toggleOwnerFn != nil {
		return s.toggleOwnerFn(ctx, ownerID, itemID, buy)
	}
	return nil
}

func (s *testWishlistService) Validate(ctx context.Context, ownerID, notificationID uuid.UUID) (*wishlistsvc.DecisionResultDTO, error) {
	if s.validateFn != nil {
		return s.validateFn(ctx, ownerID, notificationID)
	}
	return nil, nil
}

func (s *testWishlistService) Refuse(ctx context.Context, ownerID, notificationID uuid.UUID) (*wishlistsvc.DecisionResultDTO, error) {
	if s.refuseFn != nil {
		return s.refuseFn(ctx, ownerID, notificationID)
	}
	return nil, nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func addRouteParam(req *http.Request, key, value string) *http.Request {
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

func asUser(req *http.Request, userID uuid.UUID) *http.Request {
	return req.WithContext(middleware.WithUserID(req.Context(), userID.String()))
}

func TestSharedWishlistReturnsView(t *testing.T) {
	svc := &testWishlistService{
		sharedViewFn: func(ctx context.Context, token string) (*wishlistsvc.SharedViewDTO, error) {
			if token != "tok-123" {
				t.Fatalf("unexpected token %q", token)
			}
			return &wishlistsvc.SharedViewDTO{OwnerDisplayName: "Julien"}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/public/wishlist/tok-123", nil)
	req = addRouteParam(req, "token", "tok-123")
	resp := httptest.NewRecorder()
	SharedWishlist(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	var envelope struct {
		Data wishlistsvc.SharedViewDTO `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if envelope.Data.OwnerDisplayName != "Julien" {
		t.Fatalf("unexpected owner %q", envelope.Data.OwnerDisplayName)
	}
}

func TestSharedWishlistUnknownToken(t *testing.T) {
	svc := &testWishlistService{
		sharedViewFn: func(ctx context.Context, token string) (*wishlistsvc.SharedViewDTO, error) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid share token")
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/public/wishlist/nope", nil)
	req = addRouteParam(req, "token", "nope")
	resp := httptest.NewRecorder()
	SharedWishlist(svc, testLogger())(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestWishlistBuyTogglesIntent(t *testing.T) {
	itemID := uuid.New()
	called := false
	svc := &testWishlistService{
		toggleTokenFn: func(ctx context.Context, token string, id uuid.UUID, buy bool) error {
			called = true
			if token != "tok-123" {
				t.Fatalf("unexpected token %q", token)
			}
			if id != itemID {
				t.Fatalf("unexpected item %s", id)
			}
			if !buy {
				t.Fatal("expected buy=true")
			}
			return nil
		},
	}

	body := `{"item_id":"` + itemID.String() + `","buy":true}`
	req := httptest.NewRequest(http.MethodPost, "/api/public/wishlist/tok-123/buy", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req = addRouteParam(req, "token", "tok-123")
	resp := httptest.NewRecorder()
	WishlistBuy(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", resp.Code, resp.Body.String())
	}
	if !called {
		t.Fatal("expected service called")
	}
}

func TestWishlistBuyMissingBuyFlag(t *testing.T) {
	body := `{"item_id":"` + uuid.NewString() + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/public/wishlist/tok-123/buy", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req = addRouteParam(req, "token", "tok-123")
	resp := httptest.NewRecorder()
	WishlistBuy(&testWishlistService{}, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestPurchaseValidateReturnsResult(t *testing.T) {
	userID := uuid.New()
	notificationID := uuid.New()
	itemID := uuid.New()
	svc := &testWishlistService{
		validateFn: func(ctx context.Context, uid, nid uuid.UUID) (*wishlistsvc.DecisionResultDTO, error) {
			if uid != userID {
				t.Fatalf("unexpected user %s", uid)
			}
			if nid != notificationID {
				t.Fatalf("unexpected notification %s", nid)
			}
			return &wishlistsvc.DecisionResultDTO{ItemID: itemID, Status: "NOT_STARTED", Buy: false}, nil
		},
	}

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/notifications/"+notificationID.String()+"/validate", nil)
	req = asUser(req, userID)
	req = addRouteParam(req, "notificationID", notificationID.String())
	resp := httptest.NewRecorder()
	PurchaseValidate(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	var envelope struct {
		Data wishlistsvc.DecisionResultDTO `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if envelope.Data.Status != "NOT_STARTED" {
		t.Fatalf("unexpected status %q", envelope.Data.Status)
	}
}

func TestPurchaseValidateUnauthenticated(t *testing.T) {
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/notifications/"+uuid.NewString()+"/validate", nil)
	req = addRouteParam(req, "notificationID", uuid.NewString())
	resp := httptest.NewRecorder()
	PurchaseValidate(&testWishlistService{}, testLogger())(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestPurchaseRefuseAlreadyProcessed(t *testing.T) {
	userID := uuid.New()
	notificationID := uuid.New()
	svc := &testWishlistService{
		refuseFn: func(ctx context.Context, uid, nid uuid.UUID) (*wishlistsvc.DecisionResultDTO, error) {
			return nil, pkgerrors.New(pkgerrors.CodeAlreadyProcessed, "purchase already decided")
		},
	}

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/notifications/"+notificationID.String()+"/refuse", nil)
	req = asUser(req, userID)
	req = addRouteParam(req, "notificationID", notificationID.String())
	resp := httptest.NewRecorder()
	PurchaseRefuse(svc, testLogger())(resp, req)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
}
