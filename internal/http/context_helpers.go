package httpx

import (
	"context"
	"time"

	"github.com/telewell/miniapp-api/internal/domain/telegram"
)

// requestInfoKey is an unexported context key type to avoid collisions across packages.
// Centralized in this file so all handlers/middleware use the same key.
type requestInfoKey struct{}

// RequestInfo travels with a request through the middleware chain. It is a
// pointer so later middleware (auth) can fill in the user after the request id
// and logging middleware have already captured it.
type RequestInfo struct {
	Route     string
	RequestID string
	Start     time.Time
	// UserID is the platform user id, set after Telegram auth succeeds.
	UserID string
	// TelegramID is the verified Telegram user id, set after auth succeeds.
	TelegramID int64
}

// SetRequestInfo returns a child context carrying info. If info is nil, the
// original ctx is returned unchanged.
func SetRequestInfo(ctx context.Context, info *RequestInfo) context.Context {
	if info == nil {
		return ctx
	}
	return context.WithValue(ctx, requestInfoKey{}, info)
}

// GetRequestInfo returns the request info from context and a boolean
// indicating presence.
func GetRequestInfo(ctx context.Context) (*RequestInfo, bool) {
	if info, ok := ctx.Value(requestInfoKey{}).(*RequestInfo); ok && info != nil {
		return info, true
	}
	return nil, false
}

// RequestIDFromContext returns the request id, or empty string when no
// middleware has set one.
func RequestIDFromContext(ctx context.Context) string {
	if info, ok := GetRequestInfo(ctx); ok {
		return info.RequestID
	}
	return ""
}

// sessionKey carries the authenticated caller.
type sessionKey struct{}

// Caller is the authenticated identity of a request: the verified Telegram
// user plus the platform session minted for it.
type Caller struct {
	TelegramUser telegram.User
	// UserID is the platform user id that owns the caller's stored data.
	UserID string
	// AccessToken is the platform access token. It stays server-side; no
	// handler may include it in a response body.
	AccessToken string
}

// SetCallerInContext returns a child context that carries the given caller.
func SetCallerInContext(ctx context.Context, caller *Caller) context.Context {
	if caller == nil {
		return ctx
	}
	return context.WithValue(ctx, sessionKey{}, caller)
}

// GetCallerFromContext returns the authenticated caller and a boolean
// indicating presence.
func GetCallerFromContext(ctx context.Context) (*Caller, bool) {
	if caller, ok := ctx.Value(sessionKey{}).(*Caller); ok && caller != nil {
		return caller, true
	}
	return nil, false
}
