package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/streamspot/backend/internal/models"
)

func testCodec(t *testing.T) *TokenCodec {
	t.Helper()
	codec, err := NewTokenCodec(CodecConfig{
		AccessSecret:  []byte("access-secret-for-tests"),
		RefreshSecret: []byte("refresh-secret-for-tests"),
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}
	return codec
}

func TestNewTokenCodecRejectsBadConfig(t *testing.T) {
	cases := []struct {
		name string
		cfg  CodecConfig
	}{
		{"missing access secret", CodecConfig{RefreshSecret: []byte("r"), AccessTTL: time.Minute, RefreshTTL: time.Hour}},
		{"missing refresh secret", CodecConfig{AccessSecret: []byte("a"), AccessTTL: time.Minute, RefreshTTL: time.Hour}},
		{"identical secrets", CodecConfig{AccessSecret: []byte("same"), RefreshSecret: []byte("same"), AccessTTL: time.Minute, RefreshTTL: time.Hour}},
		{"zero access ttl", CodecConfig{AccessSecret: []byte("a"), RefreshSecret: []byte("r"), RefreshTTL: time.Hour}},
		{"zero refresh ttl", CodecConfig{AccessSecret: []byte("a"), RefreshSecret: []byte("r"), AccessTTL: time.Minute}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewTokenCodec(tc.cfg); err == nil {
				t.Fatal("expected config error")
			}
		})
	}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	codec := testCodec(t)
	user := models.User{ID: "user-1", Username: "alice", Email: "alice@example.com", FullName: "Alice Example"}

	token, expiresAt, err := codec.IssueAccess(user)
	if err != nil {
		t.Fatalf("issue access: %v", err)
	}
	if !expiresAt.After(time.Now()) {
		t.Fatalf("expected future expiry, got %v", expiresAt)
	}

	claims, err := codec.VerifyAccess(token)
	if err != nil {
		t.Fatalf("verify access: %v", err)
	}
	if claims.Subject != user.ID || claims.Username != user.Username || claims.Email != user.Email {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	codec := testCodec(t)

	token, _, err := codec.IssueRefresh("user-7")
	if err != nil {
		t.Fatalf("issue refresh: %v", err)
	}

	subject, err := codec.VerifyRefresh(token)
	if err != nil {
		t.Fatalf("verify refresh: %v", err)
	}
	if subject != "user-7" {
		t.Fatalf("expected subject user-7, got %q", subject)
	}
}

func TestTokenKindsAreNotInterchangeable(t *testing.T) {
	codec := testCodec(t)

	access, _, err := codec.IssueAccess(models.User{ID: "user-1"})
	if err != nil {
		t.Fatalf("issue access: %v", err)
	}
	refresh, _, err := codec.IssueRefresh("user-1")
	if err != nil {
		t.Fatalf("issue refresh: %v", err)
	}

	if _, err := codec.VerifyRefresh(access); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected access token to fail refresh verification, got %v", err)
	}
	if _, err := codec.VerifyAccess(refresh); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected refresh token to fail access verification, got %v", err)
	}
}

func TestTamperedTokenRejected(t *testing.T) {
	codec := testCodec(t)

	token, _, err := codec.IssueAccess(models.User{ID: "user-1"})
	if err != nil {
		t.Fatalf("issue access: %v", err)
	}

	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		t.Fatalf("expected three token segments, got %d", len(parts))
	}
	tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))

	if _, err := codec.VerifyAccess(tampered); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected tampered token to be rejected, got %v", err)
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	codec := testCodec(t)

	issuedAt := time.Now().UTC()
	codec.NowFunc = func() time.Time { return issuedAt }

	token, _, err := codec.IssueAccess(models.User{ID: "user-1"})
	if err != nil {
		t.Fatalf("issue access: %v", err)
	}

	codec.NowFunc = func() time.Time { return issuedAt.Add(16 * time.Minute) }

	if _, err := codec.VerifyAccess(token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected expired token to be rejected, got %v", err)
	}
}

func TestEmptySubjectRejected(t *testing.T) {
	codec := testCodec(t)

	token, _, err := codec.IssueAccess(models.User{})
	if err != nil {
		t.Fatalf("issue access: %v", err)
	}

	if _, err := codec.VerifyAccess(token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected empty subject to be rejected, got %v", err)
	}
}
