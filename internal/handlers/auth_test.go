package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/streamspot/backend/internal/auth"
	"github.com/streamspot/backend/internal/media"
	"github.com/streamspot/backend/internal/models"
	"github.com/streamspot/backend/internal/repositories"
)

type fakeUserRepo struct {
	users map[string]models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]models.User)}
}

func (s *fakeUserRepo) Create(_ context.Context, user models.User) error {
	for _, existing := range s.users {
		if existing.Username == user.Username || existing.Email == user.Email {
			return repositories.ErrConflict
		}
	}
	s.users[user.ID] = user
	return nil
}

func (s *fakeUserRepo) FindByID(_ context.Context, id string) (models.User, error) {
	user, ok := s.users[id]
	if !ok {
		return models.User{}, auth.ErrUserNotFound
	}
	return user, nil
}

func (s *fakeUserRepo) FindByIdentifier(_ context.Context, identifier string) (models.User, error) {
	for _, user := range s.users {
		if user.Username == identifier || user.Email == identifier {
			return user, nil
		}
	}
	return models.User{}, auth.ErrUserNotFound
}

func (s *fakeUserRepo) FindByUsername(_ context.Context, username string) (models.User, error) {
	for _, user := range s.users {
		if user.Username == username {
			return user, nil
		}
	}
	return models.User{}, auth.ErrUserNotFound
}

func (s *fakeUserRepo) SetRefreshToken(_ context.Context, userID, token string) error {
	user, ok := s.users[userID]
	if !ok {
		return auth.ErrUserNotFound
	}
	user.RefreshToken = token
	s.users[userID] = user
	return nil
}

func (s *fakeUserRepo) RotateRefreshToken(_ context.Context, userID, previous, next string) error {
	user, ok := s.users[userID]
	if !ok {
		return auth.ErrUserNotFound
	}
	if user.RefreshToken != previous {
		return auth.ErrRefreshMismatch
	}
	user.RefreshToken = next
	s.users[userID] = user
	return nil
}

func (s *fakeUserRepo) ClearRefreshToken(_ context.Context, userID string) error {
	if user, ok := s.users[userID]; ok {
		user.RefreshToken = ""
		s.users[userID] = user
	}
	return nil
}

func (s *fakeUserRepo) UpdatePassword(_ context.Context, userID, passwordHash string) error {
	user, ok := s.users[userID]
	if !ok {
		return auth.ErrUserNotFound
	}
	user.Password = passwordHash
	s.users[userID] = user
	return nil
}

func (s *fakeUserRepo) UpdateAccount(_ context.Context, userID, fullName, email string) (models.User, error) {
	user, ok := s.users[userID]
	if !ok {
		return models.User{}, auth.ErrUserNotFound
	}
	user.FullName = fullName
	user.Email = email
	s.users[userID] = user
	return user, nil
}

func (s *fakeUserRepo) UpdateAvatar(_ context.Context, userID, url, key string) (models.User, error) {
	user, ok := s.users[userID]
	if !ok {
		return models.User{}, auth.ErrUserNotFound
	}
	user.AvatarURL = url
	user.AvatarKey = key
	s.users[userID] = user
	return user, nil
}

func (s *fakeUserRepo) UpdateCoverImage(_ context.Context, userID, url, key string) (models.User, error) {
	user, ok := s.users[userID]
	if !ok {
		return models.User{}, auth.ErrUserNotFound
	}
	user.CoverImageURL = url
	user.CoverImageKey = key
	s.users[userID] = user
	return user, nil
}

type fakeMedia struct {
	uploads int
	removed []string
}

func (m *fakeMedia) UploadImage(_ context.Context, folder, filename string, _ io.Reader) (media.Asset, error) {
	m.uploads++
	key := fmt.Sprintf("%s/upload-%d-%s", folder, m.uploads, filename)
	return media.Asset{URL: "https://cdn.test/" + key, Key: key}, nil
}

func (m *fakeMedia) UploadVideo(_ context.Context, folder, filename string, _ io.Reader) (media.Asset, float64, error) {
	m.uploads++
	key := fmt.Sprintf("%s/upload-%d-%s", folder, m.uploads, filename)
	return media.Asset{URL: "https://cdn.test/" + key, Key: key}, 42.5, nil
}

func (m *fakeMedia) Remove(_ context.Context, key string) error {
	m.removed = append(m.removed, key)
	return nil
}

func newAuthHandler(t *testing.T) (AuthHandler, *fakeUserRepo, *fakeMedia) {
	t.Helper()
	codec, err := auth.NewTokenCodec(auth.CodecConfig{
		AccessSecret:  []byte("access-secret-for-tests"),
		RefreshSecret: []byte("refresh-secret-for-tests"),
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}
	users := newFakeUserRepo()
	mediaLib := &fakeMedia{}
	handler := AuthHandler{
		Users:    users,
		Sessions: auth.NewSessionManager(codec, users),
		Media:    mediaLib,
	}
	return handler, users, mediaLib
}

func registerForm(t *testing.T, fields map[string]string, withAvatar bool) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			t.Fatalf("write field %s: %v", key, err)
		}
	}
	if withAvatar {
		part, err := writer.CreateFormFile("avatar", "avatar.png")
		if err != nil {
			t.Fatalf("create avatar part: %v", err)
		}
		if _, err := part.Write([]byte("fake-png-bytes")); err != nil {
			t.Fatalf("write avatar part: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return body, writer.FormDataContentType()
}

func seedAccount(t *testing.T, users *fakeUserRepo, password string) models.User {
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
	users.users[user.ID] = user
	return user
}

func TestRegisterCreatesUser(t *testing.T) {
	handler, users, mediaLib := newAuthHandler(t)

	body, contentType := registerForm(t, map[string]string{
		"username": "Alice",
		"email":    "alice@example.com",
		"fullName": "Alice Example",
		"password": "supersafe1",
	}, true)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/register", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	handler.Register(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		StatusCode int `json:"statusCode"`
		Data       struct {
			User models.PublicUser `json:"user"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected envelope statusCode 201, got %d", resp.StatusCode)
	}
	if resp.Data.User.Username != "alice" {
		t.Fatalf("expected lowercased username, got %q", resp.Data.User.Username)
	}

	stored, err := users.FindByUsername(context.Background(), "alice")
	if err != nil {
		t.Fatalf("expected user to be stored: %v", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("supersafe1")) != nil {
		t.Fatal("stored password is not hashed")
	}
	if stored.AvatarKey == "" || mediaLib.uploads != 1 {
		t.Fatalf("expected one avatar upload, got %d (key %q)", mediaLib.uploads, stored.AvatarKey)
	}
	if strings.Contains(rec.Body.String(), stored.Password) {
		t.Fatal("password hash leaked into response")
	}
}

func TestRegisterMissingAvatar(t *testing.T) {
	handler, _, _ := newAuthHandler(t)

	body, contentType := registerForm(t, map[string]string{
		"username": "alice",
		"email":    "alice@example.com",
		"fullName": "Alice Example",
		"password": "supersafe1",
	}, false)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/register", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	handler.Register(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	handler, users, _ := newAuthHandler(t)
	seedAccount(t, users, "whatever1")

	body, contentType := registerForm(t, map[string]string{
		"username": "alice",
		"email":    "other@example.com",
		"fullName": "Other Alice",
		"password": "supersafe1",
	}, true)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/register", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	handler.Register(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestLoginSetsSessionCookies(t *testing.T) {
	handler, users, _ := newAuthHandler(t)
	seedAccount(t, users, "correct-horse")

	body, _ := json.Marshal(map[string]string{"username": "alice", "password": "correct-horse"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	handler.Login(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	cookies := rec.Result().Cookies()
	var haveAccess, haveRefresh bool
	for _, cookie := range cookies {
		switch cookie.Name {
		case "accessToken":
			haveAccess = cookie.Value != "" && cookie.HttpOnly
		case "refreshToken":
			haveRefresh = cookie.Value != "" && cookie.HttpOnly
		}
	}
	if !haveAccess || !haveRefresh {
		t.Fatalf("expected both session cookies, got %+v", cookies)
	}

	var resp struct {
		Data sessionResponse `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Data.AccessToken == "" || resp.Data.RefreshToken == "" {
		t.Fatalf("expected tokens in body, got %+v", resp.Data)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	handler, users, _ := newAuthHandler(t)
	seedAccount(t, users, "correct-horse")

	body, _ := json.Marshal(map[string]string{"username": "alice", "password": "wrong"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	handler.Login(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestLoginUnknownUserIs404(t *testing.T) {
	handler, _, _ := newAuthHandler(t)

	body, _ := json.Marshal(map[string]string{"username": "nobody", "password": "whatever"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	handler.Login(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestRefreshFromCookieRotates(t *testing.T) {
	handler, users, _ := newAuthHandler(t)
	seedAccount(t, users, "correct-horse")

	_, tokens, err := handler.Sessions.Login(context.Background(), "alice", "correct-horse")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/refresh-token", nil)
	req.AddCookie(&http.Cookie{Name: "refreshToken", Value: tokens.RefreshToken})
	rec := httptest.NewRecorder()

	handler.Refresh(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	// The original token is now superseded.
	replay := httptest.NewRequest(http.MethodPost, "/api/v1/users/refresh-token", nil)
	replay.AddCookie(&http.Cookie{Name: "refreshToken", Value: tokens.RefreshToken})
	replayRec := httptest.NewRecorder()

	handler.Refresh(replayRec, replay)

	if replayRec.Code != http.StatusUnauthorized {
		t.Fatalf("expected replay to get 401, got %d", replayRec.Code)
	}
}

func TestLogoutClearsCookies(t *testing.T) {
	handler, users, _ := newAuthHandler(t)
	user := seedAccount(t, users, "correct-horse")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/logout", nil)
	req = req.WithContext(auth.WithIdentity(req.Context(), user))
	rec := httptest.NewRecorder()

	handler.Logout(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Value != "" || cookie.MaxAge != -1 {
			t.Fatalf("expected cookie %s to be cleared, got %+v", cookie.Name, cookie)
		}
	}
}

func TestCurrentUserHidesSecrets(t *testing.T) {
	handler, users, _ := newAuthHandler(t)
	user := seedAccount(t, users, "correct-horse")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/current-user", nil)
	req = req.WithContext(auth.WithIdentity(req.Context(), user))
	rec := httptest.NewRecorder()

	handler.CurrentUser(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), user.Password) {
		t.Fatal("password hash leaked into response")
	}
}

func TestUpdateAvatarReplacesOldAsset(t *testing.T) {
	handler, users, mediaLib := newAuthHandler(t)
	user := seedAccount(t, users, "correct-horse")
	user.AvatarKey = "avatars/old-key"
	users.users[user.ID] = user

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("avatar", "new.png")
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	if _, err := part.Write([]byte("new-bytes")); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/users/avatar", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req = req.WithContext(auth.WithIdentity(req.Context(), user))
	rec := httptest.NewRecorder()

	handler.UpdateAvatar(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(mediaLib.removed) != 1 || mediaLib.removed[0] != "avatars/old-key" {
		t.Fatalf("expected old avatar to be removed, got %v", mediaLib.removed)
	}
	if users.users[user.ID].AvatarKey == "avatars/old-key" {
		t.Fatal("expected avatar key to change")
	}
}
