package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/streamspot/backend/internal/models"
	"github.com/streamspot/backend/internal/repositories"
)

// LikeHandler implements the like toggles for videos, comments, and tweets
// plus the liked videos listing.
type LikeHandler struct {
	Likes    repositories.LikeRepository
	Videos   repositories.VideoRepository
	Comments repositories.CommentRepository
	Tweets   repositories.TweetRepository
	Views    ViewService
	NowFunc  func() time.Time
}

// likeToggleResponse tags the outcome with the resulting state; Like carries
// the created edge and is absent after an unlike.
type likeToggleResponse struct {
	Liked bool         `json:"liked"`
	Like  *models.Like `json:"like,omitempty"`
}

type likedVideosResponse struct {
	Videos      []repositories.VideoWithOwner `json:"videos"`
	VideosCount int                           `json:"videosCount"`
}

// ToggleVideo handles POST /api/v1/likes/toggle/video/{videoId}.
func (h LikeHandler) ToggleVideo(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, repositories.LikeTargetVideo, r.PathValue("videoId"), "video not found",
		func(ctx context.Context, id string) error {
			_, err := h.Videos.FindByID(ctx, id)
			return err
		})
}

// ToggleComment handles POST /api/v1/likes/toggle/comment/{commentId}.
func (h LikeHandler) ToggleComment(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, repositories.LikeTargetComment, r.PathValue("commentId"), "comment not found",
		func(ctx context.Context, id string) error {
			_, err := h.Comments.FindByID(ctx, id)
			return err
		})
}

// ToggleTweet handles POST /api/v1/likes/toggle/tweet/{tweetId}.
func (h LikeHandler) ToggleTweet(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, repositories.LikeTargetTweet, r.PathValue("tweetId"), "tweet not found",
		func(ctx context.Context, id string) error {
			_, err := h.Tweets.FindByID(ctx, id)
			return err
		})
}

// LikedVideos handles GET /api/v1/likes/videos.
func (h LikeHandler) LikedVideos(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := identity(ctx, w)
	if !ok {
		return
	}

	videos, err := h.Views.LikedVideos(ctx, userID)
	if err != nil {
		respondDomainError(ctx, w, err, "user not found")
		return
	}
	if videos == nil {
		videos = []repositories.VideoWithOwner{}
	}

	respondData(ctx, w, http.StatusOK, likedVideosResponse{Videos: videos, VideosCount: len(videos)}, "liked videos fetched")
}

func (h LikeHandler) toggle(
	w http.ResponseWriter,
	r *http.Request,
	target repositories.LikeTarget,
	targetID, notFoundMessage string,
	exists func(ctx context.Context, id string) error,
) {
	ctx := r.Context()

	userID, ok := identity(ctx, w)
	if !ok {
		return
	}

	targetID = strings.TrimSpace(targetID)
	if targetID == "" {
		respondError(ctx, w, http.StatusBadRequest, "target id is required")
		return
	}

	if err := exists(ctx, targetID); err != nil {
		respondDomainError(ctx, w, err, notFoundMessage)
		return
	}

	_, err := h.Likes.Find(ctx, userID, target, targetID)
	switch {
	case err == nil:
		if err := h.Likes.Delete(ctx, userID, target, targetID); err != nil && !errors.Is(err, repositories.ErrNotFound) {
			respondDomainError(ctx, w, err, notFoundMessage)
			return
		}
		respondData(ctx, w, http.StatusOK, likeToggleResponse{Liked: false}, "like removed")

	case errors.Is(err, repositories.ErrNotFound):
		like := models.Like{
			ID:        uuid.NewString(),
			LikedBy:   userID,
			CreatedAt: h.now(),
		}
		switch target {
		case repositories.LikeTargetVideo:
			like.VideoID = targetID
		case repositories.LikeTargetComment:
			like.CommentID = targetID
		case repositories.LikeTargetTweet:
			like.TweetID = targetID
		}
		if err := h.Likes.Create(ctx, like); err != nil && !errors.Is(err, repositories.ErrConflict) {
			respondDomainError(ctx, w, err, notFoundMessage)
			return
		}
		respondData(ctx, w, http.StatusOK, likeToggleResponse{Liked: true, Like: &like}, "like added")

	default:
		respondDomainError(ctx, w, err, notFoundMessage)
	}
}

func (h LikeHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}
