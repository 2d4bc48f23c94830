package utils

import "context"

type ctxKey int

const userIDKey ctxKey = 0

// WithUserID stamps the authenticated user id onto the request context.
func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext reports the authenticated user id, if any. Every
// mutating engine operation that records a creator depends on it.
func UserIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userIDKey).(int64)
	return id, ok
}
