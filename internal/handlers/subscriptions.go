package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/streamspot/backend/internal/models"
	"github.com/streamspot/backend/internal/repositories"
)

// SubscriptionHandler implements the subscribe toggle and audience
// listings.
type SubscriptionHandler struct {
	Subscriptions repositories.SubscriptionRepository
	Users         repositories.UserRepository
}

// toggleResponse tags the outcome with the resulting state; Subscription
// carries the created edge and is absent after an unsubscribe.
type toggleResponse struct {
	Subscribed   bool                 `json:"subscribed"`
	Subscription *models.Subscription `json:"subscription,omitempty"`
}

type channelListResponse struct {
	Channels []repositories.OwnerCard `json:"channels"`
}

// Toggle handles POST /api/v1/subscriptions/{channelId}. Subscribing twice
// unsubscribes; the response reports the resulting state.
func (h SubscriptionHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := identity(ctx, w)
	if !ok {
		return
	}

	channelID := strings.TrimSpace(r.PathValue("channelId"))
	if channelID == "" {
		respondError(ctx, w, http.StatusBadRequest, "channelId is required")
		return
	}
	if channelID == userID {
		respondError(ctx, w, http.StatusBadRequest, "cannot subscribe to your own channel")
		return
	}

	if _, err := h.Users.FindByID(ctx, channelID); err != nil {
		respondDomainError(ctx, w, err, "channel does not exist")
		return
	}

	subscribed, err := h.Subscriptions.Exists(ctx, userID, channelID)
	if err != nil {
		respondDomainError(ctx, w, err, "channel does not exist")
		return
	}

	var edge *models.Subscription
	if subscribed {
		err = h.Subscriptions.Delete(ctx, userID, channelID)
	} else {
		var created models.Subscription
		created, err = h.Subscriptions.Create(ctx, userID, channelID)
		edge = &created
	}
	if err != nil {
		// Concurrent toggles can race; conflicts and missing rows mean the
		// other request already landed.
		if errors.Is(err, repositories.ErrConflict) || errors.Is(err, repositories.ErrNotFound) {
			respondData(ctx, w, http.StatusOK, toggleResponse{Subscribed: subscribed}, "subscription unchanged")
			return
		}
		respondDomainError(ctx, w, err, "channel does not exist")
		return
	}

	respondData(ctx, w, http.StatusOK, toggleResponse{Subscribed: !subscribed, Subscription: edge}, "subscription toggled")
}

// Subscribers handles GET /api/v1/subscriptions/{channelId}/subscribers.
func (h SubscriptionHandler) Subscribers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	channelID := strings.TrimSpace(r.PathValue("channelId"))
	if channelID == "" {
		respondError(ctx, w, http.StatusBadRequest, "channelId is required")
		return
	}

	cards, err := h.Subscriptions.ListSubscribers(ctx, channelID)
	if err != nil {
		respondDomainError(ctx, w, err, "channel does not exist")
		return
	}
	if cards == nil {
		cards = []repositories.OwnerCard{}
	}

	respondData(ctx, w, http.StatusOK, channelListResponse{Channels: cards}, "subscribers fetched")
}

// Subscribed handles GET /api/v1/subscriptions/subscribed. It lists the
// channels the caller follows.
func (h SubscriptionHandler) Subscribed(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := identity(ctx, w)
	if !ok {
		return
	}

	cards, err := h.Subscriptions.ListSubscribedChannels(ctx, userID)
	if err != nil {
		respondDomainError(ctx, w, err, "user not found")
		return
	}
	if cards == nil {
		cards = []repositories.OwnerCard{}
	}

	respondData(ctx, w, http.StatusOK, channelListResponse{Channels: cards}, "subscribed channels fetched")
}
