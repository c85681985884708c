package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/streamspot/backend/internal/auth"
	"github.com/streamspot/backend/internal/logging"
	"github.com/streamspot/backend/internal/repositories"
)

// envelope is the uniform success body. Data is always present, even when
// it is an empty list.
type envelope struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data"`
	Message    string `json:"message"`
}

// errorEnvelope is the uniform failure body.
type errorEnvelope struct {
	StatusCode int      `json:"statusCode"`
	Message    string   `json:"message"`
	Errors     []string `json:"errors,omitempty"`
}

func respondJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.FromContext(ctx).Error("encode response body", "status", status, "error", err)
		return
	}

	logger := logging.FromContext(ctx)
	switch {
	case status >= http.StatusInternalServerError:
		logger.Error("request failed", "status", status, "response", payload)
	case status >= http.StatusBadRequest:
		logger.Warn("request returned client error", "status", status, "response", payload)
	}
}

func respondData(ctx context.Context, w http.ResponseWriter, status int, data any, message string) {
	respondJSON(ctx, w, status, envelope{StatusCode: status, Data: data, Message: message})
}

func respondError(ctx context.Context, w http.ResponseWriter, status int, message string, details ...string) {
	respondJSON(ctx, w, status, errorEnvelope{StatusCode: status, Message: message, Errors: details})
}

// respondDomainError maps the shared sentinel errors onto HTTP statuses. Any
// unrecognized error becomes a 500 with a generic message so internals never
// leak.
func respondDomainError(ctx context.Context, w http.ResponseWriter, err error, notFoundMessage string) {
	switch {
	case errors.Is(err, repositories.ErrNotFound), errors.Is(err, auth.ErrUserNotFound):
		respondError(ctx, w, http.StatusNotFound, notFoundMessage)
	case errors.Is(err, repositories.ErrConflict):
		respondError(ctx, w, http.StatusConflict, "resource already exists")
	case errors.Is(err, auth.ErrUnauthorized), errors.Is(err, auth.ErrInvalidCredentials):
		respondError(ctx, w, http.StatusUnauthorized, "unauthorized request")
	default:
		logging.FromContext(ctx).Error("request failed", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "internal server error")
	}
}

// listOptionsFromQuery parses page, limit, sortBy, and sortType query
// parameters. Malformed numbers fall back to the defaults rather than
// erroring.
func listOptionsFromQuery(r *http.Request) repositories.ListOptions {
	q := r.URL.Query()

	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	return repositories.ListOptions{
		Page:     page,
		Limit:    limit,
		SortBy:   q.Get("sortBy"),
		SortDesc: q.Get("sortType") == "desc",
	}
}

// identity pulls the authenticated user off the context. Handlers behind the
// authentication gate treat absence as a server error since the middleware
// should have rejected the request already.
func identity(ctx context.Context, w http.ResponseWriter) (string, bool) {
	user, ok := auth.IdentityFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "unauthorized request")
		return "", false
	}
	return user.ID, true
}
