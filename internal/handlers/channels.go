package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/streamspot/backend/internal/auth"
	"github.com/streamspot/backend/internal/repositories"
)

// ChannelHandler serves the composite channel views: profile, statistics,
// and the caller's watch history.
type ChannelHandler struct {
	Views ViewService
}

type watchHistoryResponse struct {
	Entries  []repositories.WatchEntry `json:"entries"`
	PageInfo repositories.PageInfo     `json:"pageInfo"`
}

// Profile handles GET /api/v1/channels/{username}. The viewer's identity,
// when present, marks whether they subscribe to the channel.
func (h ChannelHandler) Profile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	username := strings.ToLower(strings.TrimSpace(r.PathValue("username")))
	if username == "" {
		respondError(ctx, w, http.StatusBadRequest, "username is required")
		return
	}

	viewerID := ""
	if viewer, ok := auth.IdentityFromContext(ctx); ok {
		viewerID = viewer.ID
	}

	profile, err := h.Views.ChannelProfile(ctx, username, viewerID)
	if err != nil {
		respondDomainError(ctx, w, err, "channel does not exist")
		return
	}

	respondData(ctx, w, http.StatusOK, profile, "channel profile fetched")
}

// Stats handles GET /api/v1/channels/stats. It reports on the caller's own
// channel.
func (h ChannelHandler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := identity(ctx, w)
	if !ok {
		return
	}

	stats, err := h.Views.ChannelStats(ctx, userID)
	if err != nil {
		respondDomainError(ctx, w, err, "channel does not exist")
		return
	}

	respondData(ctx, w, http.StatusOK, stats, "channel stats fetched")
}

// History handles GET /api/v1/users/history. Entries come back in the order
// the videos were watched.
func (h ChannelHandler) History(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := identity(ctx, w)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	entries, pageInfo, err := h.Views.WatchHistory(ctx, userID, page, limit)
	if err != nil {
		respondDomainError(ctx, w, err, "user not found")
		return
	}
	if entries == nil {
		entries = []repositories.WatchEntry{}
	}

	respondData(ctx, w, http.StatusOK, watchHistoryResponse{Entries: entries, PageInfo: pageInfo}, "watch history fetched")
}
