package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/julienlmr/gameshelf-backend/api/responses"
	"github.com/julienlmr/gameshelf-backend/api/validators"
	wishlistsvc "github.com/julienlmr/gameshelf-backend/internal/wishlist"
	pkgerrors "github.com/julienlmr/gameshelf-backend/pkg/errors"
	"github.com/julienlmr/gameshelf-backend/pkg/logger"
)

// SharedWishlist renders the public share page payload for a token.
func SharedWishlist(svc wishlistsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimSpace(chi.URLParam(r, "token"))
		if token == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid share token"))
			return
		}

		view, err := svc.SharedView(r.Context(), token)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// WishlistBuy lets an anonymous visitor flag or unflag purchase intent on an
// item of the shared wishlist.
func WishlistBuy(svc wishlistsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimSpace(chi.URLParam(r, "token"))
		if token == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid share token"))
			return
		}

		var payload wishlistsvc.ToggleBuyRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.ToggleBuyWithToken(r.Context(), token, payload.ItemID, *payload.Buy); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"item_id": payload.ItemID, "buy": *payload.Buy})
	}
}

// WishlistBuyAsOwner lets the authenticated owner correct the buy flag on
// their own item.
func WishlistBuyAsOwner(svc wishlistsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload wishlistsvc.ToggleBuyRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.ToggleBuyAsOwner(r.Context(), userID, payload.ItemID, *payload.Buy); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"item_id": payload.ItemID, "buy": *payload.Buy})
	}
}

// PurchaseValidate accepts a purchase notification: the item joins the
// collection and the notification is closed.
func PurchaseValidate(svc wishlistsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return purchaseDecision(svc, logg, true)
}

// PurchaseRefuse declines a purchase notification: the item stays on the
// wishlist and the notification is closed.
func PurchaseRefuse(svc wishlistsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return purchaseDecision(svc, logg, false)
}

func purchaseDecision(svc wishlistsvc.Service, logg *logger.Logger, accept bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		notificationID, err := pathUUID(r, "notificationID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var result *wishlistsvc.DecisionResultDTO
		if accept {
			result, err = svc.Validate(r.Context(), userID, notificationID)
		} else {
			result, err = svc.Refuse(r.Context(), userID, notificationID)
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
