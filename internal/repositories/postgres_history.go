package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/streamspot/backend/internal/db"
)

// PostgresHistoryRepository provides PostgreSQL-backed persistence for
// watch history. Entries are append-only and carry a monotonically
// increasing position so listing reproduces insertion order exactly.
type PostgresHistoryRepository struct {
	pool db.Pool
}

// NewPostgresHistoryRepository constructs a watch history repository backed
// by PostgreSQL.
func NewPostgresHistoryRepository(pool db.Pool) *PostgresHistoryRepository {
	return &PostgresHistoryRepository{pool: pool}
}

// Append records that a user watched a video. Repeat watches append new
// rows rather than touching earlier ones.
func (r *PostgresHistoryRepository) Append(ctx context.Context, userID, videoID string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO watch_history (user_id, video_id, watched_at)
        VALUES ($1, $2, $3)
    `, userID, videoID, time.Now().UTC())
	if err != nil {
		if mapped := constraintError(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("insert watch history: %w", err)
	}

	return nil
}

// List returns a page of the user's watch history in insertion order, each
// entry joined to the video's owner card and like count.
func (r *PostgresHistoryRepository) List(ctx context.Context, userID string, page, limit int) ([]WatchEntry, PageInfo, error) {
	n := normalizeListOptions(ListOptions{Page: page, Limit: limit}, nil)

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, PageInfo{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT v.id, v.owner_id, v.title, v.description, v.video_url, v.video_key,
               v.thumbnail_url, v.thumbnail_key, v.duration, v.views, v.is_published,
               v.created_at, v.updated_at,
               u.id, u.username, u.full_name, u.avatar_url,
               (SELECT COUNT(*) FROM likes l WHERE l.video_id = v.id),
               h.watched_at
        FROM watch_history h
        JOIN videos v ON v.id = h.video_id
        LEFT JOIN users u ON u.id = v.owner_id
        WHERE h.user_id = $1
        ORDER BY h.position ASC
        OFFSET $2 LIMIT $3
    `, userID, n.offset, n.limit)
	if err != nil {
		return nil, PageInfo{}, fmt.Errorf("query watch history: %w", err)
	}
	defer rows.Close()

	var entries []WatchEntry
	for rows.Next() {
		var (
			entry   WatchEntry
			ownerID sql.NullString
			card    OwnerCard
		)
		if err := rows.Scan(&entry.ID, &entry.OwnerID, &entry.Title, &entry.Description,
			&entry.VideoURL, &entry.VideoKey, &entry.ThumbnailURL, &entry.ThumbnailKey,
			&entry.Duration, &entry.Views, &entry.IsPublished, &entry.CreatedAt, &entry.UpdatedAt,
			&ownerID, nullString(&card.Username), nullString(&card.FullName), nullString(&card.AvatarURL),
			&entry.LikeCount, &entry.WatchedAt); err != nil {
			return nil, PageInfo{}, fmt.Errorf("scan watch history row: %w", err)
		}
		if ownerID.Valid {
			card.ID = ownerID.String
			entry.Owner = &card
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, PageInfo{}, fmt.Errorf("iterate watch history: %w", err)
	}

	return entries, n.pageInfo(), nil
}

// DeleteForVideo removes every watch entry referencing a video. Used when
// the video itself is deleted; zero rows is not an error.
func (r *PostgresHistoryRepository) DeleteForVideo(ctx context.Context, videoID string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, `DELETE FROM watch_history WHERE video_id = $1`, videoID); err != nil {
		return fmt.Errorf("delete watch history: %w", err)
	}

	return nil
}

var _ HistoryRepository = (*PostgresHistoryRepository)(nil)
