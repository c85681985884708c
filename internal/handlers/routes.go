package handlers

import (
	"net/http"

	"github.com/streamspot/backend/internal/middleware"
	"github.com/streamspot/backend/internal/repositories"
)

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Users         repositories.UserRepository
	Videos        repositories.VideoRepository
	Subscriptions repositories.SubscriptionRepository
	Likes         repositories.LikeRepository
	Comments      repositories.CommentRepository
	Tweets        repositories.TweetRepository
	Playlists     repositories.PlaylistRepository
	History       repositories.HistoryRepository
	Sessions      SessionService
	Media         MediaLibrary
	Views         ViewService
	Verifier      middleware.AccessVerifier
	AuthLimiter   RateLimiter
}

// RegisterRoutes wires HTTP handlers into the provided ServeMux. Routes
// behind the authentication gate require a valid access token; the
// registration and session routes are rate limited per client.
func RegisterRoutes(mux *http.ServeMux, deps Dependencies) {
	gate := middleware.Authenticate(deps.Verifier, deps.Users)
	protected := func(h http.HandlerFunc) http.HandlerFunc {
		return gate(h).ServeHTTP
	}

	health := HealthHandler{}
	authH := AuthHandler{Users: deps.Users, Sessions: deps.Sessions, Media: deps.Media}
	channels := ChannelHandler{Views: deps.Views}
	videos := VideoHandler{
		Videos:    deps.Videos,
		Likes:     deps.Likes,
		Comments:  deps.Comments,
		History:   deps.History,
		Playlists: deps.Playlists,
		Media:     deps.Media,
	}
	subscriptions := SubscriptionHandler{Subscriptions: deps.Subscriptions, Users: deps.Users}
	likes := LikeHandler{
		Likes:    deps.Likes,
		Videos:   deps.Videos,
		Comments: deps.Comments,
		Tweets:   deps.Tweets,
		Views:    deps.Views,
	}
	comments := CommentHandler{Comments: deps.Comments, Videos: deps.Videos, Likes: deps.Likes}
	tweets := TweetHandler{Tweets: deps.Tweets, Likes: deps.Likes}
	playlists := PlaylistHandler{Playlists: deps.Playlists, Videos: deps.Videos}

	mux.HandleFunc("GET /healthz", health.Handle)

	mux.HandleFunc("POST /api/v1/users/register", rateLimited(deps.AuthLimiter, "register", authH.Register))
	mux.HandleFunc("POST /api/v1/users/login", rateLimited(deps.AuthLimiter, "login", authH.Login))
	mux.HandleFunc("POST /api/v1/users/refresh-token", rateLimited(deps.AuthLimiter, "refresh", authH.Refresh))
	mux.HandleFunc("POST /api/v1/users/logout", protected(authH.Logout))
	mux.HandleFunc("POST /api/v1/users/change-password", protected(authH.ChangePassword))
	mux.HandleFunc("GET /api/v1/users/current-user", protected(authH.CurrentUser))
	mux.HandleFunc("PATCH /api/v1/users/update-account", protected(authH.UpdateAccount))
	mux.HandleFunc("PATCH /api/v1/users/avatar", protected(authH.UpdateAvatar))
	mux.HandleFunc("PATCH /api/v1/users/cover-image", protected(authH.UpdateCoverImage))
	mux.HandleFunc("GET /api/v1/users/history", protected(channels.History))

	mux.HandleFunc("GET /api/v1/channels/stats", protected(channels.Stats))
	mux.HandleFunc("GET /api/v1/channels/{username}", protected(channels.Profile))

	mux.HandleFunc("POST /api/v1/videos", protected(videos.Publish))
	mux.HandleFunc("GET /api/v1/videos", protected(videos.List))
	mux.HandleFunc("GET /api/v1/videos/{videoId}", protected(videos.Get))
	mux.HandleFunc("PATCH /api/v1/videos/{videoId}", protected(videos.Update))
	mux.HandleFunc("DELETE /api/v1/videos/{videoId}", protected(videos.Delete))
	mux.HandleFunc("PATCH /api/v1/videos/toggle/publish/{videoId}", protected(videos.TogglePublish))

	mux.HandleFunc("POST /api/v1/subscriptions/{channelId}", protected(subscriptions.Toggle))
	mux.HandleFunc("GET /api/v1/subscriptions/{channelId}/subscribers", protected(subscriptions.Subscribers))
	mux.HandleFunc("GET /api/v1/subscriptions/subscribed", protected(subscriptions.Subscribed))

	mux.HandleFunc("POST /api/v1/likes/toggle/video/{videoId}", protected(likes.ToggleVideo))
	mux.HandleFunc("POST /api/v1/likes/toggle/comment/{commentId}", protected(likes.ToggleComment))
	mux.HandleFunc("POST /api/v1/likes/toggle/tweet/{tweetId}", protected(likes.ToggleTweet))
	mux.HandleFunc("GET /api/v1/likes/videos", protected(likes.LikedVideos))

	mux.HandleFunc("GET /api/v1/comments/{videoId}", protected(comments.List))
	mux.HandleFunc("POST /api/v1/comments/{videoId}", protected(comments.Create))
	mux.HandleFunc("PATCH /api/v1/comments/c/{commentId}", protected(comments.Update))
	mux.HandleFunc("DELETE /api/v1/comments/c/{commentId}", protected(comments.Delete))

	mux.HandleFunc("POST /api/v1/tweets", protected(tweets.Create))
	mux.HandleFunc("GET /api/v1/tweets/user/{userId}", protected(tweets.ListByUser))
	mux.HandleFunc("PATCH /api/v1/tweets/{tweetId}", protected(tweets.Update))
	mux.HandleFunc("DELETE /api/v1/tweets/{tweetId}", protected(tweets.Delete))

	mux.HandleFunc("POST /api/v1/playlists", protected(playlists.Create))
	mux.HandleFunc("GET /api/v1/playlists/{playlistId}", protected(playlists.Get))
	mux.HandleFunc("GET /api/v1/playlists/user/{userId}", protected(playlists.ListByUser))
	mux.HandleFunc("PATCH /api/v1/playlists/{playlistId}", protected(playlists.Update))
	mux.HandleFunc("DELETE /api/v1/playlists/{playlistId}", protected(playlists.Delete))
	mux.HandleFunc("PATCH /api/v1/playlists/add/{videoId}/{playlistId}", protected(playlists.AddVideo))
	mux.HandleFunc("PATCH /api/v1/playlists/remove/{videoId}/{playlistId}", protected(playlists.RemoveVideo))
}
