package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/streamspot/backend/internal/db"
	"github.com/streamspot/backend/internal/models"
)

// likeTargetColumns maps a like target onto its foreign key column. Targets
// outside this map never reach SQL.
var likeTargetColumns = map[LikeTarget]string{
	LikeTargetVideo:   "video_id",
	LikeTargetComment: "comment_id",
	LikeTargetTweet:   "tweet_id",
}

// PostgresLikeRepository provides PostgreSQL-backed persistence for like
// edges across videos, comments, and tweets.
type PostgresLikeRepository struct {
	pool db.Pool
}

// NewPostgresLikeRepository constructs a like repository backed by
// PostgreSQL.
func NewPostgresLikeRepository(pool db.Pool) *PostgresLikeRepository {
	return &PostgresLikeRepository{pool: pool}
}

// Find fetches the like a user holds on a target, if any.
func (r *PostgresLikeRepository) Find(ctx context.Context, userID string, target LikeTarget, targetID string) (models.Like, error) {
	column, ok := likeTargetColumns[target]
	if !ok {
		return models.Like{}, fmt.Errorf("unknown like target %q", target)
	}

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Like{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT id, liked_by, video_id, comment_id, tweet_id, created_at
        FROM likes
        WHERE liked_by = $1 AND `+column+` = $2
    `, userID, targetID)

	like, err := scanLike(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Like{}, ErrNotFound
		}
		return models.Like{}, fmt.Errorf("select like: %w", err)
	}

	return like, nil
}

// Create stores a like edge. Exactly one target reference must be set; the
// schema enforces that and uniqueness per (user, target).
func (r *PostgresLikeRepository) Create(ctx context.Context, like models.Like) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO likes (id, liked_by, video_id, comment_id, tweet_id, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)
    `, like.ID, like.LikedBy, optional(like.VideoID), optional(like.CommentID), optional(like.TweetID), like.CreatedAt)
	if err != nil {
		if mapped := constraintError(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("insert like: %w", err)
	}

	return nil
}

// Delete removes the like a user holds on a target.
func (r *PostgresLikeRepository) Delete(ctx context.Context, userID string, target LikeTarget, targetID string) error {
	column, ok := likeTargetColumns[target]
	if !ok {
		return fmt.Errorf("unknown like target %q", target)
	}

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `DELETE FROM likes WHERE liked_by = $1 AND `+column+` = $2`, userID, targetID)
	if err != nil {
		return fmt.Errorf("delete like: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// ListLikedVideos returns the videos a user has liked, newest like first,
// each joined to its owner card and like count.
func (r *PostgresLikeRepository) ListLikedVideos(ctx context.Context, userID string) ([]VideoWithOwner, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT v.id, v.owner_id, v.title, v.description, v.video_url, v.video_key,
               v.thumbnail_url, v.thumbnail_key, v.duration, v.views, v.is_published,
               v.created_at, v.updated_at,
               u.id, u.username, u.full_name, u.avatar_url,
               (SELECT COUNT(*) FROM likes lc WHERE lc.video_id = v.id)
        FROM likes l
        JOIN videos v ON v.id = l.video_id
        LEFT JOIN users u ON u.id = v.owner_id
        WHERE l.liked_by = $1 AND l.video_id IS NOT NULL
        ORDER BY l.created_at DESC
    `, userID)
	if err != nil {
		return nil, fmt.Errorf("query liked videos: %w", err)
	}
	defer rows.Close()

	var videos []VideoWithOwner
	for rows.Next() {
		var (
			result  VideoWithOwner
			ownerID sql.NullString
			card    OwnerCard
		)
		if err := rows.Scan(&result.ID, &result.OwnerID, &result.Title, &result.Description,
			&result.VideoURL, &result.VideoKey, &result.ThumbnailURL, &result.ThumbnailKey,
			&result.Duration, &result.Views, &result.IsPublished, &result.CreatedAt, &result.UpdatedAt,
			&ownerID, nullString(&card.Username), nullString(&card.FullName), nullString(&card.AvatarURL),
			&result.LikeCount); err != nil {
			return nil, fmt.Errorf("scan liked video: %w", err)
		}
		if ownerID.Valid {
			card.ID = ownerID.String
			result.Owner = &card
		}
		videos = append(videos, result)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate liked videos: %w", err)
	}

	return videos, nil
}

// DeleteForVideoCascade removes every like on a video and on the video's
// comments. Used when the video itself is deleted; zero rows is not an
// error. Comment-likes must go here because the comments are deleted next
// and likes still reference them.
func (r *PostgresLikeRepository) DeleteForVideoCascade(ctx context.Context, videoID string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        DELETE FROM likes
        WHERE video_id = $1
           OR comment_id IN (SELECT id FROM comments WHERE video_id = $1)
    `, videoID)
	if err != nil {
		return fmt.Errorf("delete likes: %w", err)
	}

	return nil
}

// DeleteForTweet removes every like on a tweet.
func (r *PostgresLikeRepository) DeleteForTweet(ctx context.Context, tweetID string) error {
	return r.deleteBy(ctx, "tweet_id", tweetID)
}

// DeleteForComment removes every like on a comment.
func (r *PostgresLikeRepository) DeleteForComment(ctx context.Context, commentID string) error {
	return r.deleteBy(ctx, "comment_id", commentID)
}

func (r *PostgresLikeRepository) deleteBy(ctx context.Context, column, id string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, `DELETE FROM likes WHERE `+column+` = $1`, id); err != nil {
		return fmt.Errorf("delete likes: %w", err)
	}

	return nil
}

func scanLike(row pgx.Row) (models.Like, error) {
	var (
		like                  models.Like
		video, comment, tweet sql.NullString
	)
	err := row.Scan(&like.ID, &like.LikedBy, &video, &comment, &tweet, &like.CreatedAt)
	if err != nil {
		return models.Like{}, err
	}
	like.VideoID = video.String
	like.CommentID = comment.String
	like.TweetID = tweet.String
	return like, nil
}

// optional maps an empty string onto NULL for nullable foreign keys.
func optional(value string) any {
	if value == "" {
		return nil
	}
	return value
}

var _ LikeRepository = (*PostgresLikeRepository)(nil)
