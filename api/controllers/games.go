package controllers

import (
	"net/http"
	"strings"

	"github.com/julienlmr/gameshelf-backend/api/responses"
	"github.com/julienlmr/gameshelf-backend/api/validators"
	gamessvc "github.com/julienlmr/gameshelf-backend/internal/games"
	pricessvc "github.com/julienlmr/gameshelf-backend/internal/prices"
	pkgerrors "github.com/julienlmr/gameshelf-backend/pkg/errors"
	"github.com/julienlmr/gameshelf-backend/pkg/logger"
)

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 50
)

// GameSearch proxies a catalog search and caches the hits locally, so later
// collection adds can reference them by id.
func GameSearch(svc gamessvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := strings.TrimSpace(r.URL.Query().Get("q"))
		if query == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "query parameter q is required"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", defaultSearchLimit, 1, maxSearchLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		results, err := svc.Search(r.Context(), query, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"results": results})
	}
}

// GameGet returns one locally cached game.
func GameGet(svc gamessvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gameID, err := pathUUID(r, "gameID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		game, err := svc.Get(r.Context(), gameID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, game)
	}
}

// GamePrice returns the auction price estimate for a game.
func GamePrice(svc pricessvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gameID, err := pathUUID(r, "gameID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		price, err := svc.Get(r.Context(), gameID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, price)
	}
}
