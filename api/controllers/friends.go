package controllers

import (
	"net/http"

	"github.com/julienlmr/gameshelf-backend/api/responses"
	"github.com/julienlmr/gameshelf-backend/api/validators"
	friendsvc "github.com/julienlmr/gameshelf-backend/internal/friends"
	"github.com/julienlmr/gameshelf-backend/pkg/logger"
)

// FriendList returns the caller's relations, pending and accepted.
func FriendList(svc friendsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		friends, err := svc.List(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"friends": friends})
	}
}

// FriendRequest sends a friend request to the user behind the email.
func FriendRequest(svc friendsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload friendsvc.SendRequestRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		friend, err := svc.SendRequest(r.Context(), userID, payload.Email)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, friend)
	}
}

// FriendAccept accepts a pending request addressed to the caller.
func FriendAccept(svc friendsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		friendshipID, err := pathUUID(r, "friendshipID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		friend, err := svc.Accept(r.Context(), userID, friendshipID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, friend)
	}
}

// FriendRemove deletes a relation; on a pending request this is a decline.
func FriendRemove(svc friendsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		friendshipID, err := pathUUID(r, "friendshipID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Remove(r.Context(), userID, friendshipID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "removed"})
	}
}
