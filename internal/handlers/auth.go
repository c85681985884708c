package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/streamspot/backend/internal/auth"
	"github.com/streamspot/backend/internal/logging"
	"github.com/streamspot/backend/internal/models"
	"github.com/streamspot/backend/internal/repositories"
)

const maxUploadMemory = 32 << 20

// AuthHandler implements account registration, session, and profile
// endpoints.
type AuthHandler struct {
	Users    repositories.UserRepository
	Sessions SessionService
	Media    MediaLibrary
	NowFunc  func() time.Time
}

type registerResponse struct {
	User models.PublicUser `json:"user"`
}

type sessionResponse struct {
	User         models.PublicUser `json:"user,omitempty"`
	AccessToken  string            `json:"accessToken"`
	RefreshToken string            `json:"refreshToken"`
}

// Register handles POST /api/v1/users/register. The request is multipart:
// account fields plus a required avatar image and an optional cover image.
func (h AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx, span := logging.StartSpan(r.Context(), "user.register")
	defer span.End()
	logger := logging.FromContext(ctx)

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		logger.Warn("invalid register payload", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "invalid multipart body")
		return
	}

	username := strings.ToLower(strings.TrimSpace(r.FormValue("username")))
	email := strings.ToLower(strings.TrimSpace(r.FormValue("email")))
	fullName := strings.TrimSpace(r.FormValue("fullName"))
	password := r.FormValue("password")

	if username == "" || email == "" || fullName == "" || password == "" {
		respondError(ctx, w, http.StatusBadRequest, "username, email, fullName, and password are required")
		return
	}
	if _, err := mail.ParseAddress(email); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid email address")
		return
	}
	if len(password) < 8 {
		respondError(ctx, w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	for _, identifier := range []string{username, email} {
		if _, err := h.Users.FindByIdentifier(ctx, identifier); err == nil {
			respondError(ctx, w, http.StatusConflict, "user with email or username already exists")
			return
		} else if !errors.Is(err, auth.ErrUserNotFound) {
			respondDomainError(ctx, w, err, "user not found")
			return
		}
	}

	avatarFile, avatarHeader, err := r.FormFile("avatar")
	if err != nil {
		respondError(ctx, w, http.StatusBadRequest, "avatar image is required")
		return
	}
	defer avatarFile.Close()

	avatar, err := h.Media.UploadImage(ctx, "avatars", avatarHeader.Filename, avatarFile)
	if err != nil {
		logger.Error("avatar upload failed", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to store avatar")
		return
	}

	var cover struct {
		url, key string
	}
	if coverFile, coverHeader, err := r.FormFile("coverImage"); err == nil {
		defer coverFile.Close()
		asset, err := h.Media.UploadImage(ctx, "covers", coverHeader.Filename, coverFile)
		if err != nil {
			logger.Error("cover upload failed", "error", err)
			respondError(ctx, w, http.StatusInternalServerError, "failed to store cover image")
			return
		}
		cover.url, cover.key = asset.URL, asset.Key
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		logger.Error("failed to hash password", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to secure password")
		return
	}

	now := h.now()
	user := models.User{
		ID:            uuid.NewString(),
		Username:      username,
		Email:         email,
		FullName:      fullName,
		AvatarURL:     avatar.URL,
		AvatarKey:     avatar.Key,
		CoverImageURL: cover.url,
		CoverImageKey: cover.key,
		Password:      string(hashed),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := h.Users.Create(ctx, user); err != nil {
		if removeErr := h.Media.Remove(ctx, avatar.Key); removeErr != nil {
			logger.Warn("orphaned avatar not removed", "key", avatar.Key, "error", removeErr)
		}
		if errors.Is(err, repositories.ErrConflict) {
			respondError(ctx, w, http.StatusConflict, "user with email or username already exists")
			return
		}
		logger.Error("failed to create user", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to create account")
		return
	}

	respondData(ctx, w, http.StatusCreated, registerResponse{User: user.Public()}, "user registered")
}

// Login handles POST /api/v1/users/login. Either username or email works as
// the identifier.
func (h AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	identifier := strings.ToLower(strings.TrimSpace(req.Username))
	if identifier == "" {
		identifier = strings.ToLower(strings.TrimSpace(req.Email))
	}
	if identifier == "" || req.Password == "" {
		respondError(ctx, w, http.StatusBadRequest, "username or email and password are required")
		return
	}

	user, tokens, err := h.Sessions.Login(ctx, identifier, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			respondError(ctx, w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		respondDomainError(ctx, w, err, "user does not exist")
		return
	}

	setSessionCookies(w, tokens)
	respondData(ctx, w, http.StatusOK, sessionResponse{
		User:         user.Public(),
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	}, "user logged in")
}

// Refresh handles POST /api/v1/users/refresh-token. The refresh token is
// read from the cookie first, then from the request body.
func (h AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	token := ""
	if cookie, err := r.Cookie("refreshToken"); err == nil {
		token = cookie.Value
	}
	if token == "" {
		var req struct {
			RefreshToken string `json:"refreshToken"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
			token = strings.TrimSpace(req.RefreshToken)
		}
	}
	if token == "" {
		respondError(ctx, w, http.StatusUnauthorized, "refresh token is required")
		return
	}

	tokens, err := h.Sessions.Refresh(ctx, token)
	if err != nil {
		if errors.Is(err, auth.ErrUnauthorized) {
			respondError(ctx, w, http.StatusUnauthorized, "invalid refresh token")
			return
		}
		respondDomainError(ctx, w, err, "user not found")
		return
	}

	setSessionCookies(w, tokens)
	respondData(ctx, w, http.StatusOK, sessionResponse{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	}, "session refreshed")
}

// Logout handles POST /api/v1/users/logout.
func (h AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := identity(ctx, w)
	if !ok {
		return
	}

	if err := h.Sessions.Logout(ctx, userID); err != nil {
		respondDomainError(ctx, w, err, "user not found")
		return
	}

	clearSessionCookies(w)
	respondData(ctx, w, http.StatusOK, struct{}{}, "user logged out")
}

// ChangePassword handles POST /api/v1/users/change-password.
func (h AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := identity(ctx, w)
	if !ok {
		return
	}

	var req struct {
		OldPassword string `json:"oldPassword"`
		NewPassword string `json:"newPassword"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.OldPassword == "" || req.NewPassword == "" {
		respondError(ctx, w, http.StatusBadRequest, "oldPassword and newPassword are required")
		return
	}
	if len(req.NewPassword) < 8 {
		respondError(ctx, w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	if err := h.Sessions.ChangePassword(ctx, userID, req.OldPassword, req.NewPassword); err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			respondError(ctx, w, http.StatusBadRequest, "old password is incorrect")
			return
		}
		respondDomainError(ctx, w, err, "user not found")
		return
	}

	respondData(ctx, w, http.StatusOK, struct{}{}, "password changed")
}

// CurrentUser handles GET /api/v1/users/current-user.
func (h AuthHandler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, ok := auth.IdentityFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "unauthorized request")
		return
	}

	respondData(ctx, w, http.StatusOK, user.Public(), "current user")
}

// UpdateAccount handles PATCH /api/v1/users/update-account.
func (h AuthHandler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := identity(ctx, w)
	if !ok {
		return
	}

	var req struct {
		FullName string `json:"fullName"`
		Email    string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.FullName = strings.TrimSpace(req.FullName)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.FullName == "" || req.Email == "" {
		respondError(ctx, w, http.StatusBadRequest, "fullName and email are required")
		return
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid email address")
		return
	}

	user, err := h.Users.UpdateAccount(ctx, userID, req.FullName, req.Email)
	if err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			respondError(ctx, w, http.StatusConflict, "email already in use")
			return
		}
		respondDomainError(ctx, w, err, "user not found")
		return
	}

	respondData(ctx, w, http.StatusOK, user.Public(), "account updated")
}

// UpdateAvatar handles PATCH /api/v1/users/avatar.
func (h AuthHandler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	h.replaceImage(w, r, "avatar", "avatars",
		func(u models.User) string { return u.AvatarKey },
		h.Users.UpdateAvatar, "avatar updated")
}

// UpdateCoverImage handles PATCH /api/v1/users/cover-image.
func (h AuthHandler) UpdateCoverImage(w http.ResponseWriter, r *http.Request) {
	h.replaceImage(w, r, "coverImage", "covers",
		func(u models.User) string { return u.CoverImageKey },
		h.Users.UpdateCoverImage, "cover image updated")
}

// replaceImage uploads the new image first and deletes the old object only
// after the database points at the replacement, so a failure can never leave
// the account without an image.
func (h AuthHandler) replaceImage(
	w http.ResponseWriter,
	r *http.Request,
	field, folder string,
	oldKey func(models.User) string,
	update func(ctx context.Context, userID, url, key string) (models.User, error),
	message string,
) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	current, ok := auth.IdentityFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "unauthorized request")
		return
	}

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid multipart body")
		return
	}

	file, header, err := r.FormFile(field)
	if err != nil {
		respondError(ctx, w, http.StatusBadRequest, field+" image is required")
		return
	}
	defer file.Close()

	asset, err := h.Media.UploadImage(ctx, folder, header.Filename, file)
	if err != nil {
		logger.Error("image upload failed", "field", field, "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to store image")
		return
	}

	user, err := update(ctx, current.ID, asset.URL, asset.Key)
	if err != nil {
		if removeErr := h.Media.Remove(ctx, asset.Key); removeErr != nil {
			logger.Warn("orphaned image not removed", "key", asset.Key, "error", removeErr)
		}
		respondDomainError(ctx, w, err, "user not found")
		return
	}

	if previous := oldKey(current); previous != "" {
		if err := h.Media.Remove(ctx, previous); err != nil {
			logger.Warn("stale image not removed", "key", previous, "error", err)
		}
	}

	respondData(ctx, w, http.StatusOK, user.Public(), message)
}

func (h AuthHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}

func setSessionCookies(w http.ResponseWriter, tokens models.SessionTokens) {
	http.SetCookie(w, &http.Cookie{
		Name:     "accessToken",
		Value:    tokens.AccessToken,
		Path:     "/",
		Expires:  tokens.AccessExpiresAt,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     "refreshToken",
		Value:    tokens.RefreshToken,
		Path:     "/",
		Expires:  tokens.RefreshExpiresAt,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})
}

func clearSessionCookies(w http.ResponseWriter) {
	for _, name := range []string{"accessToken", "refreshToken"} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   true,
			SameSite: http.SameSiteStrictMode,
		})
	}
}
