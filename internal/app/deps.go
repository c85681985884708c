package app

import (
	"context"
	"fmt"

	"github.com/streamspot/backend/internal/auth"
	"github.com/streamspot/backend/internal/config"
	"github.com/streamspot/backend/internal/db"
	"github.com/streamspot/backend/internal/handlers"
	"github.com/streamspot/backend/internal/media"
	"github.com/streamspot/backend/internal/middleware"
	"github.com/streamspot/backend/internal/repositories"
	"github.com/streamspot/backend/internal/storage"
	"github.com/streamspot/backend/internal/views"
)

// buildDependencies wires together concrete implementations used by the HTTP handlers.
func buildDependencies(ctx context.Context, pool db.Pool, cfg config.Config) (handlers.Dependencies, error) {
	codec, err := auth.NewTokenCodec(auth.CodecConfig{
		AccessSecret:  []byte(cfg.AccessTokenSecret),
		RefreshSecret: []byte(cfg.RefreshTokenSecret),
		AccessTTL:     cfg.AccessTokenTTL,
		RefreshTTL:    cfg.RefreshTokenTTL,
	})
	if err != nil {
		return handlers.Dependencies{}, fmt.Errorf("configure token codec: %w", err)
	}

	blobStore, err := storage.NewS3Storage(ctx, cfg.ObjectStore)
	if err != nil {
		return handlers.Dependencies{}, fmt.Errorf("configure object storage: %w", err)
	}

	users := repositories.NewPostgresUserRepository(pool)
	videos := repositories.NewPostgresVideoRepository(pool)
	subscriptions := repositories.NewPostgresSubscriptionRepository(pool)
	likes := repositories.NewPostgresLikeRepository(pool)
	comments := repositories.NewPostgresCommentRepository(pool)
	tweets := repositories.NewPostgresTweetRepository(pool)
	playlists := repositories.NewPostgresPlaylistRepository(pool)
	history := repositories.NewPostgresHistoryRepository(pool)

	return handlers.Dependencies{
		Users:         users,
		Videos:        videos,
		Subscriptions: subscriptions,
		Likes:         likes,
		Comments:      comments,
		Tweets:        tweets,
		Playlists:     playlists,
		History:       history,
		Sessions:      auth.NewSessionManager(codec, users),
		Media:         media.NewLibrary(blobStore, media.NewFFProbe(cfg.FFProbePath, cfg.FFProbeTimeout)),
		Views:         views.NewService(users, videos, subscriptions, likes, history),
		Verifier:      codec,
		AuthLimiter: middleware.NewIPRateLimiter(
			cfg.AuthRateRequests, cfg.AuthRateWindow, cfg.AuthRateBurst, 10*cfg.AuthRateWindow),
	}, nil
}
