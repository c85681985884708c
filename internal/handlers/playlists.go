package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/streamspot/backend/internal/models"
	"github.com/streamspot/backend/internal/repositories"
)

// PlaylistHandler implements playlist management endpoints.
type PlaylistHandler struct {
	Playlists repositories.PlaylistRepository
	Videos    repositories.VideoRepository
	NowFunc   func() time.Time
}

type playlistListResponse struct {
	Playlists []models.Playlist     `json:"playlists"`
	PageInfo  repositories.PageInfo `json:"pageInfo"`
}

// Create handles POST /api/v1/playlists.
func (h PlaylistHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := identity(ctx, w)
	if !ok {
		return
	}

	name, description, ok := decodePlaylistBody(w, r, true)
	if !ok {
		return
	}

	now := h.now()
	playlist := models.Playlist{
		ID:          uuid.NewString(),
		OwnerID:     userID,
		Name:        name,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := h.Playlists.Create(ctx, playlist); err != nil {
		respondDomainError(ctx, w, err, "user not found")
		return
	}

	respondData(ctx, w, http.StatusCreated, playlist, "playlist created")
}

// Get handles GET /api/v1/playlists/{playlistId}. The playlist comes back
// with its member videos in the order they were added.
func (h PlaylistHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	detailed, err := h.Playlists.FindDetailed(ctx, r.PathValue("playlistId"))
	if err != nil {
		respondDomainError(ctx, w, err, "playlist not found")
		return
	}
	if detailed.Videos == nil {
		detailed.Videos = []repositories.VideoWithOwner{}
	}

	respondData(ctx, w, http.StatusOK, detailed, "playlist fetched")
}

// ListByUser handles GET /api/v1/playlists/user/{userId}.
func (h PlaylistHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ownerID := strings.TrimSpace(r.PathValue("userId"))
	if ownerID == "" {
		respondError(ctx, w, http.StatusBadRequest, "userId is required")
		return
	}

	playlists, page, err := h.Playlists.ListByOwner(ctx, ownerID, listOptionsFromQuery(r))
	if err != nil {
		respondDomainError(ctx, w, err, "user not found")
		return
	}
	if playlists == nil {
		playlists = []models.Playlist{}
	}

	respondData(ctx, w, http.StatusOK, playlistListResponse{Playlists: playlists, PageInfo: page}, "playlists fetched")
}

// Update handles PATCH /api/v1/playlists/{playlistId}.
func (h PlaylistHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	playlist, ok := h.ownedPlaylist(w, r)
	if !ok {
		return
	}

	name, description, ok := decodePlaylistBody(w, r, false)
	if !ok {
		return
	}
	if name == "" {
		name = playlist.Name
	}
	if description == "" {
		description = playlist.Description
	}

	updated, err := h.Playlists.Update(ctx, playlist.ID, name, description)
	if err != nil {
		respondDomainError(ctx, w, err, "playlist not found")
		return
	}

	respondData(ctx, w, http.StatusOK, updated, "playlist updated")
}

// Delete handles DELETE /api/v1/playlists/{playlistId}.
func (h PlaylistHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	playlist, ok := h.ownedPlaylist(w, r)
	if !ok {
		return
	}

	if err := h.Playlists.Delete(ctx, playlist.ID); err != nil {
		respondDomainError(ctx, w, err, "playlist not found")
		return
	}

	respondData(ctx, w, http.StatusOK, struct{}{}, "playlist deleted")
}

// AddVideo handles PATCH /api/v1/playlists/add/{videoId}/{playlistId}.
func (h PlaylistHandler) AddVideo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	playlist, ok := h.ownedPlaylist(w, r)
	if !ok {
		return
	}

	videoID := r.PathValue("videoId")
	if _, err := h.Videos.FindByID(ctx, videoID); err != nil {
		respondDomainError(ctx, w, err, "video not found")
		return
	}

	if err := h.Playlists.AddVideo(ctx, playlist.ID, videoID); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			respondError(ctx, w, http.StatusConflict, "video already in playlist")
			return
		}
		respondDomainError(ctx, w, err, "playlist not found")
		return
	}

	respondData(ctx, w, http.StatusOK, struct{}{}, "video added to playlist")
}

// RemoveVideo handles PATCH /api/v1/playlists/remove/{videoId}/{playlistId}.
func (h PlaylistHandler) RemoveVideo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	playlist, ok := h.ownedPlaylist(w, r)
	if !ok {
		return
	}

	if err := h.Playlists.RemoveVideo(ctx, playlist.ID, r.PathValue("videoId")); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "video not in playlist")
			return
		}
		respondDomainError(ctx, w, err, "playlist not found")
		return
	}

	respondData(ctx, w, http.StatusOK, struct{}{}, "video removed from playlist")
}

func (h PlaylistHandler) ownedPlaylist(w http.ResponseWriter, r *http.Request) (models.Playlist, bool) {
	ctx := r.Context()

	userID, ok := identity(ctx, w)
	if !ok {
		return models.Playlist{}, false
	}

	playlist, err := h.Playlists.FindByID(ctx, r.PathValue("playlistId"))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "playlist not found")
			return models.Playlist{}, false
		}
		respondDomainError(ctx, w, err, "playlist not found")
		return models.Playlist{}, false
	}

	if playlist.OwnerID != userID {
		respondError(ctx, w, http.StatusForbidden, "only the owner can modify this playlist")
		return models.Playlist{}, false
	}

	return playlist, true
}

func (h PlaylistHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}

func decodePlaylistBody(w http.ResponseWriter, r *http.Request, nameRequired bool) (string, string, bool) {
	ctx := r.Context()

	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return "", "", false
	}

	name := strings.TrimSpace(req.Name)
	if nameRequired && name == "" {
		respondError(ctx, w, http.StatusBadRequest, "name is required")
		return "", "", false
	}

	return name, strings.TrimSpace(req.Description), true
}
