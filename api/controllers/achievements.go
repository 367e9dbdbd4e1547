package controllers

import (
	"net/http"

	"github.com/julienlmr/gameshelf-backend/api/responses"
	achievementsvc "github.com/julienlmr/gameshelf-backend/internal/achievements"
	"github.com/julienlmr/gameshelf-backend/pkg/logger"
)

// AchievementList returns every achievement with the caller's progress.
func AchievementList(svc achievementsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		achievements, err := svc.List(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"achievements": achievements})
	}
}
