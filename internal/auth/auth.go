package auth

import (
	"context"
)

type contextKey string

const sessionIDKey contextKey = "sessionID"

// GetSessionIDFromContext retrieves the authenticated session ID from the context
func GetSessionIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(sessionIDKey).(string); ok {
		return id
	}
	return ""
}

// SetSessionIDInContext sets the authenticated session ID in the context
func SetSessionIDInContext(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDKey, sessionID)
}
