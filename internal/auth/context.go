package auth

import (
	"context"

	"github.com/gatherly/apiserver/internal/user"
)

type userIDContextKey struct{}
type roleContextKey struct{}

// ContextWithUser stores the authenticated user identity in the context.
func ContextWithUser(ctx context.Context, userID string, role user.Role) context.Context {
	ctx = context.WithValue(ctx, userIDContextKey{}, userID)
	return context.WithValue(ctx, roleContextKey{}, role)
}

// UserIDFromContext extracts the authenticated user id from the context.
func UserIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	v, ok := ctx.Value(userIDContextKey{}).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// RoleFromContext extracts the authenticated user's role from the context.
func RoleFromContext(ctx context.Context) (user.Role, bool) {
	if ctx == nil {
		return "", false
	}
	v, ok := ctx.Value(roleContextKey{}).(user.Role)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}
