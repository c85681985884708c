package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/streamspot/backend/internal/models"
)

type fakeUserStore struct {
	users map[string]models.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[string]models.User)}
}

func (s *fakeUserStore) add(user models.User) {
	s.users[user.ID] = user
}

func (s *fakeUserStore) FindByIdentifier(_ context.Context, identifier string) (models.User, error) {
	for _, user := range s.users {
		if user.Username == identifier || user.Email == identifier {
			return user, nil
		}
	}
	return models.User{}, ErrUserNotFound
}

func (s *fakeUserStore) FindByID(_ context.Context, id string) (models.User, error) {
	user, ok := s.users[id]
	if !ok {
		return models.User{}, ErrUserNotFound
	}
	return user, nil
}

func (s *fakeUserStore) SetRefreshToken(_ context.Context, userID, token string) error {
	user, ok := s.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	user.RefreshToken = token
	s.users[userID] = user
	return nil
}

func (s *fakeUserStore) RotateRefreshToken(_ context.Context, userID, previous, next string) error {
	user, ok := s.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	if user.RefreshToken != previous {
		return ErrRefreshMismatch
	}
	user.RefreshToken = next
	s.users[userID] = user
	return nil
}

func (s *fakeUserStore) ClearRefreshToken(_ context.Context, userID string) error {
	user, ok := s.users[userID]
	if !ok {
		return nil
	}
	user.RefreshToken = ""
	s.users[userID] = user
	return nil
}

func (s *fakeUserStore) UpdatePassword(_ context.Context, userID, passwordHash string) error {
	user, ok := s.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	user.Password = passwordHash
	s.users[userID] = user
	return nil
}

func newTestManager(t *testing.T) (*SessionManager, *fakeUserStore) {
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
	store := newFakeUserStore()
	return NewSessionManager(codec, store), store
}

func seedUser(t *testing.T, store *fakeUserStore, password string) models.User {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user := models.User{
		ID:       "user-1",
		Username: "alice",
		Email:    "alice@example.com",
		FullName: "Alice Example",
		Password: string(hashed),
	}
	store.add(user)
	return user
}

func TestLoginStoresRefreshToken(t *testing.T) {
	manager, store := newTestManager(t)
	seedUser(t, store, "correct-horse")

	user, tokens, err := manager.Login(context.Background(), "alice", "correct-horse")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if tokens.AccessToken == "" || tokens.RefreshToken == "" {
		t.Fatalf("expected both tokens, got %+v", tokens)
	}
	if stored := store.users[user.ID].RefreshToken; stored != tokens.RefreshToken {
		t.Fatalf("stored refresh token %q does not match issued %q", stored, tokens.RefreshToken)
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	manager, store := newTestManager(t)
	seedUser(t, store, "correct-horse")

	if _, _, err := manager.Login(context.Background(), "alice", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLoginUnknownUser(t *testing.T) {
	manager, _ := newTestManager(t)

	if _, _, err := manager.Login(context.Background(), "nobody", "whatever"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestRefreshRotatesAndRejectsReplay(t *testing.T) {
	manager, store := newTestManager(t)
	seedUser(t, store, "correct-horse")

	_, tokens, err := manager.Login(context.Background(), "alice", "correct-horse")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	rotated, err := manager.Refresh(context.Background(), tokens.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if rotated.RefreshToken == tokens.RefreshToken {
		t.Fatal("expected refresh to mint a new refresh token")
	}

	// The superseded token verifies cryptographically but must be refused.
	if _, err := manager.Refresh(context.Background(), tokens.RefreshToken); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected replay to be rejected with ErrUnauthorized, got %v", err)
	}

	// The current token still works.
	if _, err := manager.Refresh(context.Background(), rotated.RefreshToken); err != nil {
		t.Fatalf("refresh with current token: %v", err)
	}
}

func TestRefreshGarbageTokenRejected(t *testing.T) {
	manager, _ := newTestManager(t)

	if _, err := manager.Refresh(context.Background(), "not-a-jwt"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestLogoutInvalidatesRefresh(t *testing.T) {
	manager, store := newTestManager(t)
	user := seedUser(t, store, "correct-horse")

	_, tokens, err := manager.Login(context.Background(), "alice", "correct-horse")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	if err := manager.Logout(context.Background(), user.ID); err != nil {
		t.Fatalf("logout: %v", err)
	}

	if _, err := manager.Refresh(context.Background(), tokens.RefreshToken); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected refresh after logout to fail, got %v", err)
	}

	// Logging out twice is a no-op.
	if err := manager.Logout(context.Background(), user.ID); err != nil {
		t.Fatalf("second logout: %v", err)
	}
}

func TestChangePasswordKeepsSession(t *testing.T) {
	manager, store := newTestManager(t)
	user := seedUser(t, store, "old-password")

	_, tokens, err := manager.Login(context.Background(), "alice", "old-password")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	if err := manager.ChangePassword(context.Background(), user.ID, "old-password", "new-password"); err != nil {
		t.Fatalf("change password: %v", err)
	}

	// The stored refresh token survives the password change.
	if _, err := manager.Refresh(context.Background(), tokens.RefreshToken); err != nil {
		t.Fatalf("refresh after password change: %v", err)
	}

	if _, _, err := manager.Login(context.Background(), "alice", "old-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected old password to stop working, got %v", err)
	}
	if _, _, err := manager.Login(context.Background(), "alice", "new-password"); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
}

func TestChangePasswordWrongOld(t *testing.T) {
	manager, store := newTestManager(t)
	user := seedUser(t, store, "old-password")

	if err := manager.ChangePassword(context.Background(), user.ID, "not-the-old-one", "new-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}
