package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/streamspot/backend/internal/auth"
	"github.com/streamspot/backend/internal/logging"
	"github.com/streamspot/backend/internal/models"
)

// AccessVerifier checks a bearer access token and returns its claims.
type AccessVerifier interface {
	VerifyAccess(token string) (auth.AccessClaims, error)
}

// IdentityStore resolves the user a verified token refers to.
type IdentityStore interface {
	FindByID(ctx context.Context, id string) (models.User, error)
}

// Authenticate gates requests on a valid access token. The token is read
// from the accessToken cookie first, then from the Authorization header.
// Every failure mode gets the same response so callers cannot probe which
// check rejected them.
func Authenticate(verifier AccessVerifier, users IdentityStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := tokenFromRequest(r)
			if token == "" {
				unauthorized(w)
				return
			}

			claims, err := verifier.VerifyAccess(token)
			if err != nil {
				unauthorized(w)
				return
			}

			user, err := users.FindByID(r.Context(), claims.Subject)
			if err != nil {
				logging.FromContext(r.Context()).Debug("token subject not found", "user_id", claims.Subject)
				unauthorized(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), user)))
		})
	}
}

func tokenFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie("accessToken"); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	header := r.Header.Get("Authorization")
	if rest, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(rest)
	}

	return ""
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(struct {
		StatusCode int    `json:"statusCode"`
		Message    string `json:"message"`
	}{StatusCode: http.StatusUnauthorized, Message: "unauthorized request"})
}
