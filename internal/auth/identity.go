package auth

import (
	"context"

	"github.com/streamspot/backend/internal/models"
)

type ctxKey string

const identityKey ctxKey = "identity"

// WithIdentity stores the authenticated user on the context. The identity
// travels explicitly through the call chain; there is no global request
// state.
func WithIdentity(ctx context.Context, user models.User) context.Context {
	return context.WithValue(ctx, identityKey, user)
}

// IdentityFromContext returns the authenticated user, if any.
func IdentityFromContext(ctx context.Context) (models.User, bool) {
	if ctx == nil {
		return models.User{}, false
	}
	user, ok := ctx.Value(identityKey).(models.User)
	return user, ok
}
