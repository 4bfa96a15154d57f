package handlers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/linesmerrill/civic-report-api/api"
	"github.com/linesmerrill/civic-report-api/store"
)

// User exported for testing purposes
type User struct {
	Users store.UserDirectory
}

// UserHandler returns a user's trust profile given a userID
func (u User) UserHandler(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["user_id"]

	zap.S().Debugf("user_id: %v", userID)

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	user, err := u.Users.Get(ctx, userID)
	if err != nil {
		engineError("failed to get user", w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// LeaderboardHandler returns users ordered by trust score, highest first
func (u User) LeaderboardHandler(w http.ResponseWriter, r *http.Request) {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = 10
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	users, err := u.Users.List(ctx)
	if err != nil {
		engineError("failed to list users", w, err)
		return
	}
	if len(users) > limit {
		users = users[:limit]
	}
	writeJSON(w, http.StatusOK, users)
}
