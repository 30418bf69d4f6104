package autologin

import "context"

type clientIPContextKey struct{}
type sessionUserContextKey struct{}

// WithClientIP attaches the caller’s source IP address to ctx. The Engine
// uses it for per-IP lockout checks and audit logging. Callers should pass a
// normalized address string (no port).
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

// WithSessionUserID attaches the currently authenticated user id, if any, to
// ctx. When the presented token resolves to the same user, Verify
// short-circuits to an already-authenticated denial without consuming the
// code or counting a failure.
func WithSessionUserID(ctx context.Context, userID uint64) context.Context {
	return context.WithValue(ctx, sessionUserContextKey{}, userID)
}

func clientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	return ip
}

func sessionUserIDFromContext(ctx context.Context) (uint64, bool) {
	if ctx == nil {
		return 0, false
	}

	userID, ok := ctx.Value(sessionUserContextKey{}).(uint64)
	return userID, ok
}
