package auth

import (
	"context"

	"github.com/Clark-Hu/store-ratings/internal/domain"
)

// IsAllowed reports whether user may use a surface restricted to roles. A nil
// user is never allowed; an empty role set admits any authenticated user.
func IsAllowed(user *domain.User, roles ...domain.Role) bool {
	if user == nil {
		return false
	}
	if len(roles) == 0 {
		return true
	}
	for _, r := range roles {
		if user.Role == r {
			return true
		}
	}
	return false
}

type userKey struct{}

// WithUser returns a context carrying the authenticated user.
func WithUser(ctx context.Context, user domain.User) context.Context {
	return context.WithValue(ctx, userKey{}, &user)
}

// UserFrom returns the authenticated user, or nil for anonymous requests.
func UserFrom(ctx context.Context) *domain.User {
	u, _ := ctx.Value(userKey{}).(*domain.User)
	return u
}
