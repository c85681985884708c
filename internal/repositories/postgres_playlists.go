package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/streamspot/backend/internal/db"
	"github.com/streamspot/backend/internal/models"
)

var playlistSortFields = map[string]string{
	"createdAt": "created_at",
	"updatedAt": "updated_at",
	"name":      "name",
}

// PostgresPlaylistRepository provides PostgreSQL-backed persistence for
// playlists and their membership edges.
type PostgresPlaylistRepository struct {
	pool db.Pool
}

// NewPostgresPlaylistRepository constructs a playlist repository backed by
// PostgreSQL.
func NewPostgresPlaylistRepository(pool db.Pool) *PostgresPlaylistRepository {
	return &PostgresPlaylistRepository{pool: pool}
}

// Create stores a new playlist.
func (r *PostgresPlaylistRepository) Create(ctx context.Context, playlist models.Playlist) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO playlists (id, owner_id, name, description, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6)
    `, playlist.ID, playlist.OwnerID, playlist.Name, playlist.Description, playlist.CreatedAt, playlist.UpdatedAt)
	if err != nil {
		if mapped := constraintError(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("insert playlist: %w", err)
	}

	return nil
}

// FindByID fetches a playlist by primary key.
func (r *PostgresPlaylistRepository) FindByID(ctx context.Context, id string) (models.Playlist, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Playlist{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT id, owner_id, name, description, created_at, updated_at
        FROM playlists WHERE id = $1
    `, id)

	playlist, err := scanPlaylist(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Playlist{}, ErrNotFound
		}
		return models.Playlist{}, fmt.Errorf("select playlist: %w", err)
	}

	return playlist, nil
}

// FindDetailed fetches a playlist joined to its owner card and member
// videos in the order they were added.
func (r *PostgresPlaylistRepository) FindDetailed(ctx context.Context, id string) (PlaylistWithVideos, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return PlaylistWithVideos{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT p.id, p.owner_id, p.name, p.description, p.created_at, p.updated_at,
               u.id, u.username, u.full_name, u.avatar_url
        FROM playlists p
        LEFT JOIN users u ON u.id = p.owner_id
        WHERE p.id = $1
    `, id)

	var (
		result  PlaylistWithVideos
		ownerID sql.NullString
		card    OwnerCard
	)
	if err := row.Scan(&result.ID, &result.OwnerID, &result.Name, &result.Description,
		&result.CreatedAt, &result.UpdatedAt,
		&ownerID, nullString(&card.Username), nullString(&card.FullName), nullString(&card.AvatarURL)); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PlaylistWithVideos{}, ErrNotFound
		}
		return PlaylistWithVideos{}, fmt.Errorf("select playlist: %w", err)
	}
	if ownerID.Valid {
		card.ID = ownerID.String
		result.Owner = &card
	}

	rows, err := conn.Query(ctx, `
        SELECT v.id, v.owner_id, v.title, v.description, v.video_url, v.video_key,
               v.thumbnail_url, v.thumbnail_key, v.duration, v.views, v.is_published,
               v.created_at, v.updated_at,
               vu.id, vu.username, vu.full_name, vu.avatar_url,
               (SELECT COUNT(*) FROM likes l WHERE l.video_id = v.id)
        FROM playlist_videos pv
        JOIN videos v ON v.id = pv.video_id
        LEFT JOIN users vu ON vu.id = v.owner_id
        WHERE pv.playlist_id = $1
        ORDER BY pv.position ASC
    `, id)
	if err != nil {
		return PlaylistWithVideos{}, fmt.Errorf("query playlist videos: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			video        VideoWithOwner
			videoOwnerID sql.NullString
			videoCard    OwnerCard
		)
		if err := rows.Scan(&video.ID, &video.OwnerID, &video.Title, &video.Description,
			&video.VideoURL, &video.VideoKey, &video.ThumbnailURL, &video.ThumbnailKey,
			&video.Duration, &video.Views, &video.IsPublished, &video.CreatedAt, &video.UpdatedAt,
			&videoOwnerID, nullString(&videoCard.Username), nullString(&videoCard.FullName), nullString(&videoCard.AvatarURL),
			&video.LikeCount); err != nil {
			return PlaylistWithVideos{}, fmt.Errorf("scan playlist video: %w", err)
		}
		if videoOwnerID.Valid {
			videoCard.ID = videoOwnerID.String
			video.Owner = &videoCard
		}
		result.Videos = append(result.Videos, video)
	}
	if err := rows.Err(); err != nil {
		return PlaylistWithVideos{}, fmt.Errorf("iterate playlist videos: %w", err)
	}

	return result, nil
}

// Update replaces a playlist's name and description and returns the updated
// record.
func (r *PostgresPlaylistRepository) Update(ctx context.Context, id, name, description string) (models.Playlist, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Playlist{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        UPDATE playlists SET name = $2, description = $3, updated_at = $4
        WHERE id = $1
        RETURNING id, owner_id, name, description, created_at, updated_at
    `, id, name, description, time.Now().UTC())

	playlist, err := scanPlaylist(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Playlist{}, ErrNotFound
		}
		return models.Playlist{}, fmt.Errorf("update playlist: %w", err)
	}

	return playlist, nil
}

// Delete removes a playlist and its membership edges.
func (r *PostgresPlaylistRepository) Delete(ctx context.Context, id string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, `DELETE FROM playlist_videos WHERE playlist_id = $1`, id); err != nil {
		return fmt.Errorf("delete playlist videos: %w", err)
	}

	tag, err := conn.Exec(ctx, `DELETE FROM playlists WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete playlist: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// ListByOwner returns a user's playlists, paginated.
func (r *PostgresPlaylistRepository) ListByOwner(ctx context.Context, ownerID string, opts ListOptions) ([]models.Playlist, PageInfo, error) {
	n := normalizeListOptions(opts, playlistSortFields)

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, PageInfo{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT id, owner_id, name, description, created_at, updated_at
        FROM playlists
        WHERE owner_id = $1
        `+n.orderClause()+`
        OFFSET $2 LIMIT $3
    `, ownerID, n.offset, n.limit)
	if err != nil {
		return nil, PageInfo{}, fmt.Errorf("query playlists: %w", err)
	}
	defer rows.Close()

	var playlists []models.Playlist
	for rows.Next() {
		playlist, err := scanPlaylist(rows)
		if err != nil {
			return nil, PageInfo{}, fmt.Errorf("scan playlist: %w", err)
		}
		playlists = append(playlists, playlist)
	}
	if err := rows.Err(); err != nil {
		return nil, PageInfo{}, fmt.Errorf("iterate playlists: %w", err)
	}

	return playlists, n.pageInfo(), nil
}

// AddVideo appends a video to a playlist. Re-adding the same video yields
// ErrConflict, a missing playlist or video yields ErrNotFound.
func (r *PostgresPlaylistRepository) AddVideo(ctx context.Context, playlistID, videoID string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO playlist_videos (playlist_id, video_id, added_at)
        VALUES ($1, $2, $3)
    `, playlistID, videoID, time.Now().UTC())
	if err != nil {
		if mapped := constraintError(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("insert playlist video: %w", err)
	}

	return nil
}

// RemoveVideo detaches a video from a playlist.
func (r *PostgresPlaylistRepository) RemoveVideo(ctx context.Context, playlistID, videoID string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        DELETE FROM playlist_videos WHERE playlist_id = $1 AND video_id = $2
    `, playlistID, videoID)
	if err != nil {
		return fmt.Errorf("delete playlist video: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// RemoveVideoFromAll detaches a video from every playlist holding it. Used
// when the video itself is deleted; zero rows is not an error.
func (r *PostgresPlaylistRepository) RemoveVideoFromAll(ctx context.Context, videoID string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, `DELETE FROM playlist_videos WHERE video_id = $1`, videoID); err != nil {
		return fmt.Errorf("delete playlist videos: %w", err)
	}

	return nil
}

func scanPlaylist(row pgx.Row) (models.Playlist, error) {
	var playlist models.Playlist
	err := row.Scan(&playlist.ID, &playlist.OwnerID, &playlist.Name, &playlist.Description,
		&playlist.CreatedAt, &playlist.UpdatedAt)
	return playlist, err
}

var _ PlaylistRepository = (*PostgresPlaylistRepository)(nil)
