package auth

import (
	"bytes"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/streamspot/backend/internal/models"
)

// ErrTokenInvalid indicates a token failed verification: bad signature,
// malformed structure, wrong signing method, or expiry in the past.
var ErrTokenInvalid = errors.New("token invalid")

// CodecConfig holds the signing material for both token kinds. The two kinds
// use distinct secrets so a refresh token can never be replayed as an access
// token.
type CodecConfig struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// AccessClaims is the claim set embedded in access tokens. Subject carries
// the user id.
type AccessClaims struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
	jwt.RegisteredClaims
}

// TokenCodec signs and verifies the session token pair. It holds no state
// beyond configuration and is safe for concurrent use.
type TokenCodec struct {
	cfg CodecConfig

	// NowFunc overrides the clock in tests.
	NowFunc func() time.Time
}

// NewTokenCodec validates the signing configuration. Missing secrets or
// non-positive TTLs are startup errors, not per-request ones.
func NewTokenCodec(cfg CodecConfig) (*TokenCodec, error) {
	if len(cfg.AccessSecret) == 0 {
		return nil, errors.New("token codec: access secret is required")
	}
	if len(cfg.RefreshSecret) == 0 {
		return nil, errors.New("token codec: refresh secret is required")
	}
	if bytes.Equal(cfg.AccessSecret, cfg.RefreshSecret) {
		return nil, errors.New("token codec: access and refresh secrets must differ")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("token codec: token TTLs must be positive")
	}
	return &TokenCodec{cfg: cfg}, nil
}

// IssueAccess mints a short-lived access token embedding the user's identity
// claims and returns it with its expiry.
func (c *TokenCodec) IssueAccess(user models.User) (string, time.Time, error) {
	now := c.now()
	expiresAt := now.Add(c.cfg.AccessTTL)

	claims := AccessClaims{
		Username: user.Username,
		Email:    user.Email,
		FullName: user.FullName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.cfg.AccessSecret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// IssueRefresh mints a long-lived refresh token carrying only the subject id.
func (c *TokenCodec) IssueRefresh(userID string) (string, time.Time, error) {
	now := c.now()
	expiresAt := now.Add(c.cfg.RefreshTTL)

	// The token id makes every refresh token unique even within the same
	// second, so rotation always invalidates the previous token.
	claims := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.cfg.RefreshSecret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// VerifyAccess checks signature and expiry against the access secret and
// returns the embedded claims.
func (c *TokenCodec) VerifyAccess(raw string) (AccessClaims, error) {
	var claims AccessClaims
	if err := c.parse(raw, &claims, c.cfg.AccessSecret); err != nil {
		return AccessClaims{}, err
	}
	if claims.Subject == "" {
		return AccessClaims{}, ErrTokenInvalid
	}
	return claims, nil
}

// VerifyRefresh checks signature and expiry against the refresh secret and
// returns the subject id.
func (c *TokenCodec) VerifyRefresh(raw string) (string, error) {
	var claims jwt.RegisteredClaims
	if err := c.parse(raw, &claims, c.cfg.RefreshSecret); err != nil {
		return "", err
	}
	if claims.Subject == "" {
		return "", ErrTokenInvalid
	}
	return claims.Subject, nil
}

func (c *TokenCodec) parse(raw string, claims jwt.Claims, secret []byte) error {
	token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil || !token.Valid {
		return ErrTokenInvalid
	}
	return nil
}

func (c *TokenCodec) now() time.Time {
	if c.NowFunc != nil {
		return c.NowFunc()
	}
	return time.Now().UTC()
}
