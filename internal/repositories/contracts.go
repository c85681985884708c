package repositories

import (
	"context"
	"time"

	"github.com/streamspot/backend/internal/models"
)

// OwnerCard is the reduced user projection folded into joined results.
type OwnerCard struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	FullName  string `json:"fullName"`
	AvatarURL string `json:"avatar"`
}

// VideoWithOwner pairs a video with its folded owner card and like count.
// Owner is nil when the to-one join produced no match; the join never fails
// on that account.
type VideoWithOwner struct {
	models.Video
	Owner     *OwnerCard `json:"ownerDetails"`
	LikeCount int64      `json:"likes"`
}

// WatchEntry is one row of a user's watch history, ordered by when it was
// appended.
type WatchEntry struct {
	VideoWithOwner
	WatchedAt time.Time `json:"watchedAt"`
}

// VideoStats aggregates a channel's uploads. Zero uploads fold to zeroes,
// not to an absent row.
type VideoStats struct {
	TotalViews  int64 `json:"totalViews"`
	TotalVideos int64 `json:"totalVideos"`
	TotalLikes  int64 `json:"totalLikes"`
}

// PlaylistWithVideos is a playlist joined to its videos and their owners.
type PlaylistWithVideos struct {
	models.Playlist
	Owner  *OwnerCard       `json:"ownerDetails"`
	Videos []VideoWithOwner `json:"videos"`
}

// LikeTarget selects which of the three mutually exclusive like targets an
// operation addresses.
type LikeTarget string

const (
	LikeTargetVideo   LikeTarget = "video"
	LikeTargetComment LikeTarget = "comment"
	LikeTargetTweet   LikeTarget = "tweet"
)

// UserRepository defines the data access contract for user records,
// including the refresh-token column owned by the session manager.
type UserRepository interface {
	Create(ctx context.Context, user models.User) error
	FindByID(ctx context.Context, id string) (models.User, error)
	FindByIdentifier(ctx context.Context, identifier string) (models.User, error)
	FindByUsername(ctx context.Context, username string) (models.User, error)
	SetRefreshToken(ctx context.Context, userID, token string) error
	RotateRefreshToken(ctx context.Context, userID, previous, next string) error
	ClearRefreshToken(ctx context.Context, userID string) error
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
	UpdateAccount(ctx context.Context, userID, fullName, email string) (models.User, error)
	UpdateAvatar(ctx context.Context, userID, url, key string) (models.User, error)
	UpdateCoverImage(ctx context.Context, userID, url, key string) (models.User, error)
}

// VideoRepository exposes persistence and listing for uploaded videos.
type VideoRepository interface {
	Create(ctx context.Context, video models.Video) error
	FindByID(ctx context.Context, id string) (models.Video, error)
	FindWithOwner(ctx context.Context, id string) (VideoWithOwner, error)
	IncrementViews(ctx context.Context, id string) error
	Update(ctx context.Context, video models.Video) error
	SetPublished(ctx context.Context, id string, published bool) error
	Delete(ctx context.Context, id string) error
	ListByOwner(ctx context.Context, ownerID, query string, opts ListOptions) ([]models.Video, PageInfo, error)
	Stats(ctx context.Context, ownerID string) (VideoStats, error)
}

// SubscriptionRepository manages subscriber to channel edges. Create returns
// the stored edge so toggles can echo it back.
type SubscriptionRepository interface {
	Create(ctx context.Context, subscriberID, channelID string) (models.Subscription, error)
	Delete(ctx context.Context, subscriberID, channelID string) error
	Exists(ctx context.Context, subscriberID, channelID string) (bool, error)
	CountForChannel(ctx context.Context, channelID string) (int64, error)
	CountForSubscriber(ctx context.Context, subscriberID string) (int64, error)
	ListSubscribers(ctx context.Context, channelID string) ([]OwnerCard, error)
	ListSubscribedChannels(ctx context.Context, subscriberID string) ([]OwnerCard, error)
}

// LikeRepository manages like edges, unique per (user, target).
type LikeRepository interface {
	Find(ctx context.Context, userID string, target LikeTarget, targetID string) (models.Like, error)
	Create(ctx context.Context, like models.Like) error
	Delete(ctx context.Context, userID string, target LikeTarget, targetID string) error
	ListLikedVideos(ctx context.Context, userID string) ([]VideoWithOwner, error)
	DeleteForVideoCascade(ctx context.Context, videoID string) error
	DeleteForTweet(ctx context.Context, tweetID string) error
	DeleteForComment(ctx context.Context, commentID string) error
}

// CommentRepository manages video comments.
type CommentRepository interface {
	Create(ctx context.Context, comment models.Comment) error
	FindByID(ctx context.Context, id string) (models.Comment, error)
	Update(ctx context.Context, id, content string) (models.Comment, error)
	Delete(ctx context.Context, id string) error
	ListForVideo(ctx context.Context, videoID string, opts ListOptions) ([]models.Comment, PageInfo, error)
	DeleteForVideo(ctx context.Context, videoID string) error
}

// TweetRepository manages community posts.
type TweetRepository interface {
	Create(ctx context.Context, tweet models.Tweet) error
	FindByID(ctx context.Context, id string) (models.Tweet, error)
	Update(ctx context.Context, id, content string) (models.Tweet, error)
	Delete(ctx context.Context, id string) error
	ListByOwner(ctx context.Context, ownerID string) ([]models.Tweet, error)
}

// PlaylistRepository manages playlists and their membership edges.
type PlaylistRepository interface {
	Create(ctx context.Context, playlist models.Playlist) error
	FindByID(ctx context.Context, id string) (models.Playlist, error)
	FindDetailed(ctx context.Context, id string) (PlaylistWithVideos, error)
	Update(ctx context.Context, id, name, description string) (models.Playlist, error)
	Delete(ctx context.Context, id string) error
	ListByOwner(ctx context.Context, ownerID string, opts ListOptions) ([]models.Playlist, PageInfo, error)
	AddVideo(ctx context.Context, playlistID, videoID string) error
	RemoveVideo(ctx context.Context, playlistID, videoID string) error
	RemoveVideoFromAll(ctx context.Context, videoID string) error
}

// HistoryRepository records and lists watched videos. The list is
// append-only; duplicates are allowed and ordering is insertion order.
type HistoryRepository interface {
	Append(ctx context.Context, userID, videoID string) error
	List(ctx context.Context, userID string, page, limit int) ([]WatchEntry, PageInfo, error)
	DeleteForVideo(ctx context.Context, videoID string) error
}
