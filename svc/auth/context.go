package auth

import (
	"context"
	"log/slog"

	"github.com/dmitrymomot/authstarter/pkg/identity"
	"github.com/dmitrymomot/authstarter/pkg/logger"
)

type userContextKey struct{}

// SetUserToContext stores the signed in user for handlers behind the
// session middleware.
func SetUserToContext(ctx context.Context, user *identity.User) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// GetUserFromContext returns nil for anonymous requests.
func GetUserFromContext(ctx context.Context) *identity.User {
	user, _ := ctx.Value(userContextKey{}).(*identity.User)
	return user
}

// LoggerExtractor adds user_id to records logged with a signed in context.
func LoggerExtractor() logger.ContextExtractor {
	return func(ctx context.Context) (slog.Attr, bool) {
		if u := GetUserFromContext(ctx); u != nil {
			return logger.UserID(u.ID), true
		}
		return slog.Attr{}, false
	}
}
