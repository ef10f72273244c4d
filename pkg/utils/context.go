package utils

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const authKey contextKey = "auth"

// AuthInfo is what AuthSession resolves from a bearer token.
type AuthInfo struct {
	UserID uuid.UUID
	Role   string
	Token  string
}

func SetAuthContext(ctx context.Context, info AuthInfo) context.Context {
	return context.WithValue(ctx, authKey, info)
}

func GetAuthFromContext(ctx context.Context) (AuthInfo, bool) {
	info, ok := ctx.Value(authKey).(AuthInfo)
	if !ok || info.UserID == uuid.Nil {
		return AuthInfo{}, false
	}
	return info, true
}

func GetUserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	info, ok := GetAuthFromContext(ctx)
	return info.UserID, ok
}

func GetRoleFromContext(ctx context.Context) (string, bool) {
	info, ok := GetAuthFromContext(ctx)
	return info.Role, ok
}

func GetTokenFromContext(ctx context.Context) (string, bool) {
	info, ok := GetAuthFromContext(ctx)
	return info.Token, ok
}
