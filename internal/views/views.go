// Package views assembles the composite read models the API exposes:
// channel profiles, channel statistics, liked videos, and watch history.
// Each view is a fixed composition over the repositories; callers never
// influence which joins run.
package views

import (
	"context"
	"fmt"

	"github.com/streamspot/backend/internal/models"
	"github.com/streamspot/backend/internal/repositories"
)

// ChannelProfile is a user seen as a channel, annotated with subscription
// counts and whether the viewer follows it.
type ChannelProfile struct {
	models.PublicUser
	SubscriberCount   int64 `json:"subscribersCount"`
	SubscribedToCount int64 `json:"channelsSubscribedToCount"`
	IsSubscribed      bool  `json:"isSubscribed"`
}

// ChannelStats folds a channel's uploads and audience into totals. A channel
// with no uploads reports zeroes.
type ChannelStats struct {
	TotalViews       int64 `json:"totalViews"`
	TotalVideos      int64 `json:"totalVideos"`
	TotalLikes       int64 `json:"totalLikes"`
	TotalSubscribers int64 `json:"totalSubscribers"`
}

// Service executes the composite views.
type Service struct {
	users         repositories.UserRepository
	videos        repositories.VideoRepository
	subscriptions repositories.SubscriptionRepository
	likes         repositories.LikeRepository
	history       repositories.HistoryRepository
}

// NewService wires the repositories the views read from.
func NewService(
	users repositories.UserRepository,
	videos repositories.VideoRepository,
	subscriptions repositories.SubscriptionRepository,
	likes repositories.LikeRepository,
	history repositories.HistoryRepository,
) *Service {
	if users == nil || videos == nil || subscriptions == nil || likes == nil || history == nil {
		panic("views: all repositories are required")
	}
	return &Service{
		users:         users,
		videos:        videos,
		subscriptions: subscriptions,
		likes:         likes,
		history:       history,
	}
}

// ChannelProfile resolves a channel by username and annotates it with
// subscriber counts. viewerID may be empty, in which case IsSubscribed is
// false.
func (s *Service) ChannelProfile(ctx context.Context, username, viewerID string) (ChannelProfile, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return ChannelProfile{}, err
	}

	subscribers, err := s.subscriptions.CountForChannel(ctx, user.ID)
	if err != nil {
		return ChannelProfile{}, fmt.Errorf("count subscribers: %w", err)
	}

	subscribedTo, err := s.subscriptions.CountForSubscriber(ctx, user.ID)
	if err != nil {
		return ChannelProfile{}, fmt.Errorf("count subscribed channels: %w", err)
	}

	profile := ChannelProfile{
		PublicUser:        user.Public(),
		SubscriberCount:   subscribers,
		SubscribedToCount: subscribedTo,
	}

	if viewerID != "" {
		subscribed, err := s.subscriptions.Exists(ctx, viewerID, user.ID)
		if err != nil {
			return ChannelProfile{}, fmt.Errorf("check subscription: %w", err)
		}
		profile.IsSubscribed = subscribed
	}

	return profile, nil
}

// ChannelStats aggregates a channel's uploads and audience.
func (s *Service) ChannelStats(ctx context.Context, channelID string) (ChannelStats, error) {
	videoStats, err := s.videos.Stats(ctx, channelID)
	if err != nil {
		return ChannelStats{}, fmt.Errorf("aggregate videos: %w", err)
	}

	subscribers, err := s.subscriptions.CountForChannel(ctx, channelID)
	if err != nil {
		return ChannelStats{}, fmt.Errorf("count subscribers: %w", err)
	}

	return ChannelStats{
		TotalViews:       videoStats.TotalViews,
		TotalVideos:      videoStats.TotalVideos,
		TotalLikes:       videoStats.TotalLikes,
		TotalSubscribers: subscribers,
	}, nil
}

// LikedVideos lists the videos a user has liked with owner details folded
// in.
func (s *Service) LikedVideos(ctx context.Context, userID string) ([]repositories.VideoWithOwner, error) {
	return s.likes.ListLikedVideos(ctx, userID)
}

// WatchHistory lists a page of the user's watch history in the order the
// videos were watched.
func (s *Service) WatchHistory(ctx context.Context, userID string, page, limit int) ([]repositories.WatchEntry, repositories.PageInfo, error) {
	return s.history.List(ctx, userID, page, limit)
}
