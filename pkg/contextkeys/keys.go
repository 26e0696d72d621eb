// Package contextkeys holds every request-scoped context key used by carebase.
//
// Values stored under these keys:
//
//	IdentityKey   *auth.Identity         set by middleware.AuthMiddleware
//	RequestIDKey  string                 set by httputil.RequestIDMiddleware
//	UserIDKey     string (decimal id)    set by middleware.AuthMiddleware
//	LoggerKey     *observability.Logger  set by observability.WithLogger
//
// Packages that would otherwise import each other (auth, httputil,
// observability) share keys through here.
package contextkeys

import "context"

// Key is the type of all carebase context keys.
type Key string

const (
	IdentityKey  Key = "carebase.identity"
	RequestIDKey Key = "carebase.request_id"
	UserIDKey    Key = "carebase.user_id"
	LoggerKey    Key = "carebase.logger"
)

// WithIdentity stores the authenticated identity. The value is untyped so
// this package does not depend on auth.
func WithIdentity(ctx context.Context, identity interface{}) context.Context {
	return context.WithValue(ctx, IdentityKey, identity)
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

func WithLogger(ctx context.Context, logger interface{}) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// GetRequestID returns the request id, or "" outside a request.
func GetRequestID(ctx context.Context) string {
	return stringValue(ctx, RequestIDKey)
}

// GetUserID returns the authenticated user id, or "" before the gate ran.
func GetUserID(ctx context.Context) string {
	return stringValue(ctx, UserIDKey)
}

func stringValue(ctx context.Context, key Key) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(key).(string)
	return v
}
