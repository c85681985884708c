package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/streamspot/backend/internal/models"
)

var (
	// ErrUserNotFound indicates the referenced account does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidCredentials indicates a password check failed.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthorized covers every refresh failure: bad signature, expiry,
	// a superseded token, or a missing subject. Callers cannot distinguish
	// the cases from the error alone.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrRefreshMismatch is returned by UserStore implementations when the
	// presented refresh token no longer equals the stored one.
	ErrRefreshMismatch = errors.New("refresh token mismatch")
)

// UserStore is the persistence contract the session manager depends on.
// Find methods return ErrUserNotFound for absent accounts.
type UserStore interface {
	FindByIdentifier(ctx context.Context, identifier string) (models.User, error)
	FindByID(ctx context.Context, id string) (models.User, error)
	// SetRefreshToken overwrites the stored refresh token unconditionally.
	SetRefreshToken(ctx context.Context, userID, token string) error
	// RotateRefreshToken replaces previous with next in a single conditional
	// write and returns ErrRefreshMismatch when the stored value differs.
	RotateRefreshToken(ctx context.Context, userID, previous, next string) error
	ClearRefreshToken(ctx context.Context, userID string) error
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
}

// SessionManager orchestrates login, refresh, logout, and password changes.
// It owns the single-refresh-token-per-user invariant: issuing a new refresh
// token overwrites the prior one, which is the sole revocation mechanism.
type SessionManager struct {
	codec *TokenCodec
	users UserStore
}

// NewSessionManager wires the codec to the user store.
func NewSessionManager(codec *TokenCodec, users UserStore) *SessionManager {
	if codec == nil || users == nil {
		panic("auth: session manager requires a codec and a user store")
	}
	return &SessionManager{codec: codec, users: users}
}

// Login authenticates by username or email and mints a fresh token pair,
// replacing any previously stored refresh token.
func (m *SessionManager) Login(ctx context.Context, identifier, password string) (models.User, models.SessionTokens, error) {
	user, err := m.users.FindByIdentifier(ctx, identifier)
	if err != nil {
		return models.User{}, models.SessionTokens{}, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return models.User{}, models.SessionTokens{}, ErrInvalidCredentials
	}

	tokens, err := m.issuePair(user)
	if err != nil {
		return models.User{}, models.SessionTokens{}, err
	}

	if err := m.users.SetRefreshToken(ctx, user.ID, tokens.RefreshToken); err != nil {
		return models.User{}, models.SessionTokens{}, fmt.Errorf("persist refresh token: %w", err)
	}

	user.RefreshToken = tokens.RefreshToken
	return user, tokens, nil
}

// Refresh exchanges a refresh token for a new pair. The presented token must
// byte-equal the stored one: a cryptographically valid but superseded token
// is rejected, which closes the rotation replay window.
func (m *SessionManager) Refresh(ctx context.Context, presented string) (models.SessionTokens, error) {
	subject, err := m.codec.VerifyRefresh(presented)
	if err != nil {
		return models.SessionTokens{}, ErrUnauthorized
	}

	user, err := m.users.FindByID(ctx, subject)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return models.SessionTokens{}, ErrUnauthorized
		}
		return models.SessionTokens{}, err
	}

	tokens, err := m.issuePair(user)
	if err != nil {
		return models.SessionTokens{}, err
	}

	if err := m.users.RotateRefreshToken(ctx, user.ID, presented, tokens.RefreshToken); err != nil {
		if errors.Is(err, ErrRefreshMismatch) || errors.Is(err, ErrUserNotFound) {
			return models.SessionTokens{}, ErrUnauthorized
		}
		return models.SessionTokens{}, fmt.Errorf("rotate refresh token: %w", err)
	}

	return tokens, nil
}

// Logout clears the stored refresh token. Calling it for an already
// logged-out user is a no-op, not an error.
func (m *SessionManager) Logout(ctx context.Context, userID string) error {
	return m.users.ClearRefreshToken(ctx, userID)
}

// ChangePassword verifies the old password and stores a new hash. The stored
// refresh token is deliberately left intact: existing sessions survive a
// password change.
func (m *SessionManager) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	user, err := m.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(oldPassword)) != nil {
		return ErrInvalidCredentials
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	return m.users.UpdatePassword(ctx, userID, string(hashed))
}

func (m *SessionManager) issuePair(user models.User) (models.SessionTokens, error) {
	access, accessExpiry, err := m.codec.IssueAccess(user)
	if err != nil {
		return models.SessionTokens{}, fmt.Errorf("issue access token: %w", err)
	}

	refresh, refreshExpiry, err := m.codec.IssueRefresh(user.ID)
	if err != nil {
		return models.SessionTokens{}, fmt.Errorf("issue refresh token: %w", err)
	}

	return models.SessionTokens{
		AccessToken:      access,
		AccessExpiresAt:  accessExpiry,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExpiry,
	}, nil
}
