package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/streamspot/backend/internal/models"
	"github.com/streamspot/backend/internal/repositories"
)

// TweetHandler implements the community post endpoints.
type TweetHandler struct {
	Tweets  repositories.TweetRepository
	Likes   repositories.LikeRepository
	NowFunc func() time.Time
}

type tweetListResponse struct {
	Tweets []models.Tweet `json:"tweets"`
}

// Create handles POST /api/v1/tweets.
func (h TweetHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := identity(ctx, w)
	if !ok {
		return
	}

	content, ok := decodeContent(w, r)
	if !ok {
		return
	}

	now := h.now()
	tweet := models.Tweet{
		ID:        uuid.NewString(),
		OwnerID:   userID,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := h.Tweets.Create(ctx, tweet); err != nil {
		respondDomainError(ctx, w, err, "user not found")
		return
	}

	respondData(ctx, w, http.StatusCreated, tweet, "tweet created")
}

// ListByUser handles GET /api/v1/tweets/user/{userId}.
func (h TweetHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ownerID := strings.TrimSpace(r.PathValue("userId"))
	if ownerID == "" {
		respondError(ctx, w, http.StatusBadRequest, "userId is required")
		return
	}

	tweets, err := h.Tweets.ListByOwner(ctx, ownerID)
	if err != nil {
		respondDomainError(ctx, w, err, "user not found")
		return
	}
	if tweets == nil {
		tweets = []models.Tweet{}
	}

	respondData(ctx, w, http.StatusOK, tweetListResponse{Tweets: tweets}, "tweets fetched")
}

// Update handles PATCH /api/v1/tweets/{tweetId}.
func (h TweetHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tweet, ok := h.ownedTweet(w, r)
	if !ok {
		return
	}

	content, ok := decodeContent(w, r)
	if !ok {
		return
	}

	updated, err := h.Tweets.Update(ctx, tweet.ID, content)
	if err != nil {
		respondDomainError(ctx, w, err, "tweet not found")
		return
	}

	respondData(ctx, w, http.StatusOK, updated, "tweet updated")
}

// Delete handles DELETE /api/v1/tweets/{tweetId}. Likes on the tweet go
// with it.
func (h TweetHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tweet, ok := h.ownedTweet(w, r)
	if !ok {
		return
	}

	if err := h.Likes.DeleteForTweet(ctx, tweet.ID); err != nil {
		respondDomainError(ctx, w, err, "tweet not found")
		return
	}
	if err := h.Tweets.Delete(ctx, tweet.ID); err != nil {
		respondDomainError(ctx, w, err, "tweet not found")
		return
	}

	respondData(ctx, w, http.StatusOK, struct{}{}, "tweet deleted")
}

func (h TweetHandler) ownedTweet(w http.ResponseWriter, r *http.Request) (models.Tweet, bool) {
	ctx := r.Context()

	userID, ok := identity(ctx, w)
	if !ok {
		return models.Tweet{}, false
	}

	tweet, err := h.Tweets.FindByID(ctx, r.PathValue("tweetId"))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "tweet not found")
			return models.Tweet{}, false
		}
		respondDomainError(ctx, w, err, "tweet not found")
		return models.Tweet{}, false
	}

	if tweet.OwnerID != userID {
		respondError(ctx, w, http.StatusForbidden, "only the author can modify this tweet")
		return models.Tweet{}, false
	}

	return tweet, true
}

func (h TweetHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}
