package handlers

import (
	"context"
	"io"

	"github.com/streamspot/backend/internal/media"
	"github.com/streamspot/backend/internal/models"
	"github.com/streamspot/backend/internal/repositories"
	"github.com/streamspot/backend/internal/views"
)

// SessionService issues, rotates, and revokes authentication tokens.
type SessionService interface {
	Login(ctx context.Context, identifier, password string) (models.User, models.SessionTokens, error)
	Refresh(ctx context.Context, refreshToken string) (models.SessionTokens, error)
	Logout(ctx context.Context, userID string) error
	ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error
}

// MediaLibrary moves uploads into blob storage and removes stale assets.
type MediaLibrary interface {
	UploadImage(ctx context.Context, folder, filename string, r io.Reader) (media.Asset, error)
	UploadVideo(ctx context.Context, folder, filename string, r io.Reader) (media.Asset, float64, error)
	Remove(ctx context.Context, key string) error
}

// ViewService executes the composite read models.
type ViewService interface {
	ChannelProfile(ctx context.Context, username, viewerID string) (views.ChannelProfile, error)
	ChannelStats(ctx context.Context, channelID string) (views.ChannelStats, error)
	LikedVideos(ctx context.Context, userID string) ([]repositories.VideoWithOwner, error)
	WatchHistory(ctx context.Context, userID string, page, limit int) ([]repositories.WatchEntry, repositories.PageInfo, error)
}
