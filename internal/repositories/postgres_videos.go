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

const videoColumns = `id, owner_id, title, description, video_url, video_key,
        thumbnail_url, thumbnail_key, duration, views, is_published, created_at, updated_at`

// videoSortFields maps caller-facing sort names onto columns. Request input
// never reaches the ORDER BY clause directly.
var videoSortFields = map[string]string{
	"createdAt": "created_at",
	"updatedAt": "updated_at",
	"title":     "title",
	"views":     "views",
	"duration":  "duration",
}

// PostgresVideoRepository provides PostgreSQL-backed persistence for videos.
type PostgresVideoRepository struct {
	pool db.Pool
}

// NewPostgresVideoRepository constructs a video repository backed by PostgreSQL.
func NewPostgresVideoRepository(pool db.Pool) *PostgresVideoRepository {
	return &PostgresVideoRepository{pool: pool}
}

// Create stores a new video record.
func (r *PostgresVideoRepository) Create(ctx context.Context, video models.Video) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO videos (id, owner_id, title, description, video_url, video_key,
                thumbnail_url, thumbnail_key, duration, views, is_published, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 0, $10, $11, $12)
    `, video.ID, video.OwnerID, video.Title, video.Description, video.VideoURL, video.VideoKey,
		video.ThumbnailURL, video.ThumbnailKey, video.Duration, video.IsPublished,
		video.CreatedAt, video.UpdatedAt)
	if err != nil {
		if mapped := constraintError(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("insert video: %w", err)
	}

	return nil
}

// FindByID fetches a video by primary key.
func (r *PostgresVideoRepository) FindByID(ctx context.Context, id string) (models.Video, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Video{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `SELECT `+videoColumns+` FROM videos WHERE id = $1`, id)

	video, err := scanVideo(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Video{}, ErrNotFound
		}
		return models.Video{}, fmt.Errorf("select video: %w", err)
	}

	return video, nil
}

// FindWithOwner fetches a video joined to its owner card and like count. The
// owner join folds to the first match and tolerates zero matches.
func (r *PostgresVideoRepository) FindWithOwner(ctx context.Context, id string) (VideoWithOwner, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return VideoWithOwner{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT v.id, v.owner_id, v.title, v.description, v.video_url, v.video_key,
               v.thumbnail_url, v.thumbnail_key, v.duration, v.views, v.is_published,
               v.created_at, v.updated_at,
               u.id, u.username, u.full_name, u.avatar_url,
               (SELECT COUNT(*) FROM likes l WHERE l.video_id = v.id)
        FROM videos v
        LEFT JOIN users u ON u.id = v.owner_id
        WHERE v.id = $1
    `, id)

	var (
		result  VideoWithOwner
		ownerID sql.NullString
		card    OwnerCard
	)
	if err := row.Scan(&result.ID, &result.OwnerID, &result.Title, &result.Description,
		&result.VideoURL, &result.VideoKey, &result.ThumbnailURL, &result.ThumbnailKey,
		&result.Duration, &result.Views, &result.IsPublished, &result.CreatedAt, &result.UpdatedAt,
		&ownerID, nullString(&card.Username), nullString(&card.FullName), nullString(&card.AvatarURL),
		&result.LikeCount); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return VideoWithOwner{}, ErrNotFound
		}
		return VideoWithOwner{}, fmt.Errorf("select video with owner: %w", err)
	}

	if ownerID.Valid {
		card.ID = ownerID.String
		result.Owner = &card
	}

	return result, nil
}

// IncrementViews bumps the view counter atomically.
func (r *PostgresVideoRepository) IncrementViews(ctx context.Context, id string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `UPDATE videos SET views = views + 1 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("increment views: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// Update modifies title, description, and thumbnail references.
func (r *PostgresVideoRepository) Update(ctx context.Context, video models.Video) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE videos
        SET title = $2, description = $3, thumbnail_url = $4, thumbnail_key = $5, updated_at = $6
        WHERE id = $1
    `, video.ID, video.Title, video.Description, video.ThumbnailURL, video.ThumbnailKey, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update video: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// SetPublished flips the publish flag.
func (r *PostgresVideoRepository) SetPublished(ctx context.Context, id string, published bool) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `UPDATE videos SET is_published = $2, updated_at = $3 WHERE id = $1`,
		id, published, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set published: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// Delete removes the video record.
func (r *PostgresVideoRepository) Delete(ctx context.Context, id string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `DELETE FROM videos WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete video: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// ListByOwner returns an owner's videos filtered by a case-insensitive
// title/description search, sorted and paginated.
func (r *PostgresVideoRepository) ListByOwner(ctx context.Context, ownerID, query string, opts ListOptions) ([]models.Video, PageInfo, error) {
	n := normalizeListOptions(opts, videoSortFields)

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, PageInfo{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT `+videoColumns+`
        FROM videos
        WHERE owner_id = $1
          AND (title ILIKE '%' || $2 || '%' OR description ILIKE '%' || $2 || '%')
        `+n.orderClause()+`
        OFFSET $3 LIMIT $4
    `, ownerID, query, n.offset, n.limit)
	if err != nil {
		return nil, PageInfo{}, fmt.Errorf("query videos: %w", err)
	}
	defer rows.Close()

	var videos []models.Video
	for rows.Next() {
		video, err := scanVideo(rows)
		if err != nil {
			return nil, PageInfo{}, fmt.Errorf("scan video: %w", err)
		}
		videos = append(videos, video)
	}
	if err := rows.Err(); err != nil {
		return nil, PageInfo{}, fmt.Errorf("iterate videos: %w", err)
	}

	return videos, n.pageInfo(), nil
}

// Stats folds an owner's uploads into totals. Zero uploads yield zero sums.
func (r *PostgresVideoRepository) Stats(ctx context.Context, ownerID string) (VideoStats, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return VideoStats{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT COALESCE(SUM(v.views), 0)::BIGINT,
               COUNT(v.id)::BIGINT,
               COALESCE(SUM(l.like_count), 0)::BIGINT
        FROM videos v
        LEFT JOIN (
            SELECT video_id, COUNT(*) AS like_count
            FROM likes
            WHERE video_id IS NOT NULL
            GROUP BY video_id
        ) l ON l.video_id = v.id
        WHERE v.owner_id = $1
    `, ownerID)

	var stats VideoStats
	if err := row.Scan(&stats.TotalViews, &stats.TotalVideos, &stats.TotalLikes); err != nil {
		return VideoStats{}, fmt.Errorf("select video stats: %w", err)
	}

	return stats, nil
}

func scanVideo(row pgx.Row) (models.Video, error) {
	var video models.Video
	err := row.Scan(&video.ID, &video.OwnerID, &video.Title, &video.Description,
		&video.VideoURL, &video.VideoKey, &video.ThumbnailURL, &video.ThumbnailKey,
		&video.Duration, &video.Views, &video.IsPublished, &video.CreatedAt, &video.UpdatedAt)
	return video, err
}

// nullString adapts a plain string destination to a nullable column, leaving
// the destination empty on NULL.
func nullString(dst *string) *nullStringScanner {
	return &nullStringScanner{dst: dst}
}

type nullStringScanner struct {
	dst *string
}

func (s *nullStringScanner) Scan(value any) error {
	if value == nil {
		*s.dst = ""
		return nil
	}
	str, ok := value.(string)
	if !ok {
		return fmt.Errorf("expected string, got %T", value)
	}
	*s.dst = str
	return nil
}

var _ VideoRepository = (*PostgresVideoRepository)(nil)
