package ports

// Package ports defines interfaces (hexagonal ports) for platform behavior.
// Implementations live in internal/adapters; orchestration in internal/service.

import (
	"context"
)

// CreateUserInput carries the fields for provisioning a platform account.
type CreateUserInput struct {
	Email    string
	Password string
	// Metadata is attached as user metadata on the created account.
	Metadata map[string]any
}

// PlatformSession is an authenticated platform session: the user-scoped
// access token plus the platform user id that owns stored data.
type PlatformSession struct {
	AccessToken string
	UserID      string
}

// AuthPlatform signs users in and provisions accounts on the auth platform.
type AuthPlatform interface {
	// SignIn exchanges email/password credentials for a session.
	SignIn(ctx context.Context, email, password string) (PlatformSession, error)

	// CreateUser provisions a confirmed account using admin privileges.
	CreateUser(ctx context.Context, in CreateUserInput) error

	// IsAlreadyRegistered reports whether err indicates the account exists,
	// which turns a failed create into a sign-in retry.
	IsAlreadyRegistered(err error) bool
}
