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

// CommentHandler implements the comment endpoints for videos.
type CommentHandler struct {
	Comments repositories.CommentRepository
	Videos   repositories.VideoRepository
	Likes    repositories.LikeRepository
	NowFunc  func() time.Time
}

type commentListResponse struct {
	Comments []models.Comment      `json:"comments"`
	PageInfo repositories.PageInfo `json:"pageInfo"`
}

// List handles GET /api/v1/comments/{videoId}.
func (h CommentHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	videoID := strings.TrimSpace(r.PathValue("videoId"))
	if _, err := h.Videos.FindByID(ctx, videoID); err != nil {
		respondDomainError(ctx, w, err, "video not found")
		return
	}

	comments, page, err := h.Comments.ListForVideo(ctx, videoID, listOptionsFromQuery(r))
	if err != nil {
		respondDomainError(ctx, w, err, "video not found")
		return
	}
	if comments == nil {
		comments = []models.Comment{}
	}

	respondData(ctx, w, http.StatusOK, commentListResponse{Comments: comments, PageInfo: page}, "comments fetched")
}

// Create handles POST /api/v1/comments/{videoId}.
func (h CommentHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := identity(ctx, w)
	if !ok {
		return
	}

	videoID := strings.TrimSpace(r.PathValue("videoId"))
	if _, err := h.Videos.FindByID(ctx, videoID); err != nil {
		respondDomainError(ctx, w, err, "video not found")
		return
	}

	content, ok := decodeContent(w, r)
	if !ok {
		return
	}

	now := h.now()
	comment := models.Comment{
		ID:        uuid.NewString(),
		VideoID:   videoID,
		OwnerID:   userID,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := h.Comments.Create(ctx, comment); err != nil {
		respondDomainError(ctx, w, err, "video not found")
		return
	}

	respondData(ctx, w, http.StatusCreated, comment, "comment added")
}

// Update handles PATCH /api/v1/comments/c/{commentId}.
func (h CommentHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	comment, ok := h.ownedComment(w, r)
	if !ok {
		return
	}

	content, ok := decodeContent(w, r)
	if !ok {
		return
	}

	updated, err := h.Comments.Update(ctx, comment.ID, content)
	if err != nil {
		respondDomainError(ctx, w, err, "comment not found")
		return
	}

	respondData(ctx, w, http.StatusOK, updated, "comment updated")
}

// Delete handles DELETE /api/v1/comments/c/{commentId}. Likes on the
// comment go with it.
func (h CommentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	comment, ok := h.ownedComment(w, r)
	if !ok {
		return
	}

	if err := h.Likes.DeleteForComment(ctx, comment.ID); err != nil {
		respondDomainError(ctx, w, err, "comment not found")
		return
	}
	if err := h.Comments.Delete(ctx, comment.ID); err != nil {
		respondDomainError(ctx, w, err, "comment not found")
		return
	}

	respondData(ctx, w, http.StatusOK, struct{}{}, "comment deleted")
}

func (h CommentHandler) ownedComment(w http.ResponseWriter, r *http.Request) (models.Comment, bool) {
	ctx := r.Context()

	userID, ok := identity(ctx, w)
	if !ok {
		return models.Comment{}, false
	}

	comment, err := h.Comments.FindByID(ctx, r.PathValue("commentId"))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "comment not found")
			return models.Comment{}, false
		}
		respondDomainError(ctx, w, err, "comment not found")
		return models.Comment{}, false
	}

	if comment.OwnerID != userID {
		respondError(ctx, w, http.StatusForbidden, "only the author can modify this comment")
		return models.Comment{}, false
	}

	return comment, true
}

func (h CommentHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}

// decodeContent reads the {"content": ...} body shared by the comment and
// tweet endpoints.
func decodeContent(w http.ResponseWriter, r *http.Request) (string, bool) {
	ctx := r.Context()

	var req struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return "", false
	}

	content := strings.TrimSpace(req.Content)
	if content == "" {
		respondError(ctx, w, http.StatusBadRequest, "content is required")
		return "", false
	}

	return content, true
}
