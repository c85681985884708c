package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/streamspot/backend/internal/logging"
	"github.com/streamspot/backend/internal/models"
	"github.com/streamspot/backend/internal/repositories"
)

// VideoHandler implements upload, playback, and lifecycle endpoints for
// videos.
type VideoHandler struct {
	Videos    repositories.VideoRepository
	Likes     repositories.LikeRepository
	Comments  repositories.CommentRepository
	History   repositories.HistoryRepository
	Playlists repositories.PlaylistRepository
	Media     MediaLibrary
	NowFunc   func() time.Time
}

type videoListResponse struct {
	Videos   []models.Video        `json:"videos"`
	PageInfo repositories.PageInfo `json:"pageInfo"`
}

// Publish handles POST /api/v1/videos. The request is multipart: title and
// description fields plus videoFile and thumbnail uploads.
func (h VideoHandler) Publish(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	userID, ok := identity(ctx, w)
	if !ok {
		return
	}

	ctx, span := logging.StartSpan(ctx, "video.publish", slog.String("owner_id", userID))
	defer span.End()
	logger = logging.FromContext(ctx)

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid multipart body")
		return
	}

	title := strings.TrimSpace(r.FormValue("title"))
	description := strings.TrimSpace(r.FormValue("description"))
	if title == "" {
		respondError(ctx, w, http.StatusBadRequest, "title is required")
		return
	}

	videoFile, videoHeader, err := r.FormFile("videoFile")
	if err != nil {
		respondError(ctx, w, http.StatusBadRequest, "videoFile is required")
		return
	}
	defer videoFile.Close()

	thumbFile, thumbHeader, err := r.FormFile("thumbnail")
	if err != nil {
		respondError(ctx, w, http.StatusBadRequest, "thumbnail is required")
		return
	}
	defer thumbFile.Close()

	videoAsset, duration, err := h.Media.UploadVideo(ctx, "videos", videoHeader.Filename, videoFile)
	if err != nil {
		logger.Error("video upload failed", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to store video")
		return
	}

	thumbAsset, err := h.Media.UploadImage(ctx, "thumbnails", thumbHeader.Filename, thumbFile)
	if err != nil {
		logger.Error("thumbnail upload failed", "error", err)
		if removeErr := h.Media.Remove(ctx, videoAsset.Key); removeErr != nil {
			logger.Warn("orphaned video not removed", "key", videoAsset.Key, "error", removeErr)
		}
		respondError(ctx, w, http.StatusInternalServerError, "failed to store thumbnail")
		return
	}

	now := h.now()
	video := models.Video{
		ID:           uuid.NewString(),
		OwnerID:      userID,
		Title:        title,
		Description:  description,
		VideoURL:     videoAsset.URL,
		VideoKey:     videoAsset.Key,
		ThumbnailURL: thumbAsset.URL,
		ThumbnailKey: thumbAsset.Key,
		Duration:     duration,
		IsPublished:  true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := h.Videos.Create(ctx, video); err != nil {
		for _, key := range []string{videoAsset.Key, thumbAsset.Key} {
			if removeErr := h.Media.Remove(ctx, key); removeErr != nil {
				logger.Warn("orphaned asset not removed", "key", key, "error", removeErr)
			}
		}
		respondDomainError(ctx, w, err, "owner not found")
		return
	}

	respondData(ctx, w, http.StatusCreated, video, "video published")
}

// List handles GET /api/v1/videos. The userId parameter scopes the listing
// to one channel; query filters by title or description.
func (h VideoHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ownerID := strings.TrimSpace(r.URL.Query().Get("userId"))
	if ownerID == "" {
		respondError(ctx, w, http.StatusBadRequest, "userId is required")
		return
	}

	videos, page, err := h.Videos.ListByOwner(ctx, ownerID, r.URL.Query().Get("query"), listOptionsFromQuery(r))
	if err != nil {
		respondDomainError(ctx, w, err, "channel not found")
		return
	}
	if videos == nil {
		videos = []models.Video{}
	}

	respondData(ctx, w, http.StatusOK, videoListResponse{Videos: videos, PageInfo: page}, "videos fetched")
}

// Get handles GET /api/v1/videos/{videoId}. Fetching counts as a watch: the
// view counter is bumped and the video is appended to the caller's history.
func (h VideoHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	userID, ok := identity(ctx, w)
	if !ok {
		return
	}

	videoID := r.PathValue("videoId")
	video, err := h.Videos.FindWithOwner(ctx, videoID)
	if err != nil {
		respondDomainError(ctx, w, err, "video not found")
		return
	}

	if err := h.Videos.IncrementViews(ctx, videoID); err != nil {
		logger.Warn("view count not incremented", "video_id", videoID, "error", err)
	} else {
		video.Views++
	}

	if err := h.History.Append(ctx, userID, videoID); err != nil {
		logger.Warn("watch history not recorded", "video_id", videoID, "error", err)
	}

	respondData(ctx, w, http.StatusOK, video, "video fetched")
}

// Update handles PATCH /api/v1/videos/{videoId}. Title, description, and
// the thumbnail can change; the thumbnail upload is optional.
func (h VideoHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	video, ok := h.ownedVideo(w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid multipart body")
		return
	}

	if title := strings.TrimSpace(r.FormValue("title")); title != "" {
		video.Title = title
	}
	if description := strings.TrimSpace(r.FormValue("description")); description != "" {
		video.Description = description
	}

	staleThumbKey := ""
	if file, header, err := r.FormFile("thumbnail"); err == nil {
		defer file.Close()
		asset, err := h.Media.UploadImage(ctx, "thumbnails", header.Filename, file)
		if err != nil {
			logger.Error("thumbnail upload failed", "error", err)
			respondError(ctx, w, http.StatusInternalServerError, "failed to store thumbnail")
			return
		}
		staleThumbKey = video.ThumbnailKey
		video.ThumbnailURL = asset.URL
		video.ThumbnailKey = asset.Key
	}

	if err := h.Videos.Update(ctx, video); err != nil {
		respondDomainError(ctx, w, err, "video not found")
		return
	}

	if staleThumbKey != "" {
		if err := h.Media.Remove(ctx, staleThumbKey); err != nil {
			logger.Warn("stale thumbnail not removed", "key", staleThumbKey, "error", err)
		}
	}

	respondData(ctx, w, http.StatusOK, video, "video updated")
}

// Delete handles DELETE /api/v1/videos/{videoId}. Every row referencing the
// video goes first so no foreign key blocks the delete: likes on the video
// and its comments, the comments themselves, watch history entries, and
// playlist memberships. The stored assets go last.
func (h VideoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	video, ok := h.ownedVideo(w, r)
	if !ok {
		return
	}

	if err := h.Likes.DeleteForVideoCascade(ctx, video.ID); err != nil {
		respondDomainError(ctx, w, err, "video not found")
		return
	}
	if err := h.Comments.DeleteForVideo(ctx, video.ID); err != nil {
		respondDomainError(ctx, w, err, "video not found")
		return
	}
	if err := h.History.DeleteForVideo(ctx, video.ID); err != nil {
		respondDomainError(ctx, w, err, "video not found")
		return
	}
	if err := h.Playlists.RemoveVideoFromAll(ctx, video.ID); err != nil {
		respondDomainError(ctx, w, err, "video not found")
		return
	}
	if err := h.Videos.Delete(ctx, video.ID); err != nil {
		respondDomainError(ctx, w, err, "video not found")
		return
	}

	for _, key := range []string{video.VideoKey, video.ThumbnailKey} {
		if err := h.Media.Remove(ctx, key); err != nil {
			logger.Warn("stored asset not removed", "key", key, "error", err)
		}
	}

	respondData(ctx, w, http.StatusOK, struct{}{}, "video deleted")
}

// TogglePublish handles PATCH /api/v1/videos/toggle/publish/{videoId}.
func (h VideoHandler) TogglePublish(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	video, ok := h.ownedVideo(w, r)
	if !ok {
		return
	}

	video.IsPublished = !video.IsPublished
	if err := h.Videos.SetPublished(ctx, video.ID, video.IsPublished); err != nil {
		respondDomainError(ctx, w, err, "video not found")
		return
	}

	respondData(ctx, w, http.StatusOK, video, "publish state toggled")
}

// ownedVideo loads the addressed video and enforces that the caller owns
// it. It writes the error response itself when the check fails.
func (h VideoHandler) ownedVideo(w http.ResponseWriter, r *http.Request) (models.Video, bool) {
	ctx := r.Context()

	userID, ok := identity(ctx, w)
	if !ok {
		return models.Video{}, false
	}

	video, err := h.Videos.FindByID(ctx, r.PathValue("videoId"))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "video not found")
			return models.Video{}, false
		}
		respondDomainError(ctx, w, err, "video not found")
		return models.Video{}, false
	}

	if video.OwnerID != userID {
		respondError(ctx, w, http.StatusForbidden, "only the owner can modify this video")
		return models.Video{}, false
	}

	return video, true
}

func (h VideoHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}
