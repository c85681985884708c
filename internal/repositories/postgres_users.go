package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/streamspot/backend/internal/auth"
	"github.com/streamspot/backend/internal/db"
	"github.com/streamspot/backend/internal/models"
)

const userColumns = `id, username, email, full_name, avatar_url, avatar_key,
        cover_image_url, cover_image_key, password_hash, refresh_token, created_at, updated_at`

// PostgresUserRepository provides PostgreSQL-backed persistence for users.
type PostgresUserRepository struct {
	pool db.Pool
}

// NewPostgresUserRepository constructs a user repository backed by PostgreSQL.
func NewPostgresUserRepository(pool db.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

// Create persists a new user record.
func (r *PostgresUserRepository) Create(ctx context.Context, user models.User) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO users (id, username, email, full_name, avatar_url, avatar_key,
                cover_image_url, cover_image_key, password_hash, refresh_token, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, '', $10, $11)
    `, user.ID, user.Username, user.Email, user.FullName, user.AvatarURL, user.AvatarKey,
		user.CoverImageURL, user.CoverImageKey, user.Password, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		if errors.Is(constraintError(err), ErrConflict) {
			return ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// FindByID fetches a user by primary key.
func (r *PostgresUserRepository) FindByID(ctx context.Context, id string) (models.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// FindByIdentifier fetches a user by username or email.
func (r *PostgresUserRepository) FindByIdentifier(ctx context.Context, identifier string) (models.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1 OR email = $1`, identifier)
}

// FindByUsername fetches a user by username.
func (r *PostgresUserRepository) FindByUsername(ctx context.Context, username string) (models.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
}

func (r *PostgresUserRepository) findOne(ctx context.Context, query, arg string) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, query, arg)

	var user models.User
	if err := row.Scan(&user.ID, &user.Username, &user.Email, &user.FullName,
		&user.AvatarURL, &user.AvatarKey, &user.CoverImageURL, &user.CoverImageKey,
		&user.Password, &user.RefreshToken, &user.CreatedAt, &user.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, auth.ErrUserNotFound
		}
		return models.User{}, fmt.Errorf("select user: %w", err)
	}

	return user, nil
}

// SetRefreshToken overwrites the stored refresh token, invalidating any prior
// value by replacement.
func (r *PostgresUserRepository) SetRefreshToken(ctx context.Context, userID, token string) error {
	return r.exec(ctx, `UPDATE users SET refresh_token = $2, updated_at = $3 WHERE id = $1`,
		auth.ErrUserNotFound, userID, token, time.Now().UTC())
}

// RotateRefreshToken replaces the stored refresh token only when the
// presented value still matches. The conditional single-row update is the
// only coordination the rotation invariant needs.
func (r *PostgresUserRepository) RotateRefreshToken(ctx context.Context, userID, previous, next string) error {
	return r.exec(ctx, `UPDATE users SET refresh_token = $3, updated_at = $4 WHERE id = $1 AND refresh_token = $2`,
		auth.ErrRefreshMismatch, userID, previous, next, time.Now().UTC())
}

// ClearRefreshToken removes the stored refresh token. Clearing an already
// empty value is not an error.
func (r *PostgresUserRepository) ClearRefreshToken(ctx context.Context, userID string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, `UPDATE users SET refresh_token = '', updated_at = $2 WHERE id = $1`,
		userID, time.Now().UTC()); err != nil {
		return fmt.Errorf("clear refresh token: %w", err)
	}

	return nil
}

// UpdatePassword stores a new password hash.
func (r *PostgresUserRepository) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	return r.exec(ctx, `UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1`,
		auth.ErrUserNotFound, userID, passwordHash, time.Now().UTC())
}

// UpdateAccount modifies the mutable profile fields and returns the fresh record.
func (r *PostgresUserRepository) UpdateAccount(ctx context.Context, userID, fullName, email string) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `UPDATE users SET full_name = $2, email = $3, updated_at = $4 WHERE id = $1`,
		userID, fullName, email, time.Now().UTC())
	if err != nil {
		if errors.Is(constraintError(err), ErrConflict) {
			return models.User{}, ErrConflict
		}
		return models.User{}, fmt.Errorf("update account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.User{}, auth.ErrUserNotFound
	}

	return r.FindByID(ctx, userID)
}

// UpdateAvatar swaps the avatar blob references.
func (r *PostgresUserRepository) UpdateAvatar(ctx context.Context, userID, url, key string) (models.User, error) {
	if err := r.exec(ctx, `UPDATE users SET avatar_url = $2, avatar_key = $3, updated_at = $4 WHERE id = $1`,
		auth.ErrUserNotFound, userID, url, key, time.Now().UTC()); err != nil {
		return models.User{}, err
	}
	return r.FindByID(ctx, userID)
}

// UpdateCoverImage swaps the cover image blob references.
func (r *PostgresUserRepository) UpdateCoverImage(ctx context.Context, userID, url, key string) (models.User, error) {
	if err := r.exec(ctx, `UPDATE users SET cover_image_url = $2, cover_image_key = $3, updated_at = $4 WHERE id = $1`,
		auth.ErrUserNotFound, userID, url, key, time.Now().UTC()); err != nil {
		return models.User{}, err
	}
	return r.FindByID(ctx, userID)
}

func (r *PostgresUserRepository) exec(ctx context.Context, query string, missing error, args ...any) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return missing
	}

	return nil
}

var _ UserRepository = (*PostgresUserRepository)(nil)
var _ auth.UserStore = (*PostgresUserRepository)(nil)
