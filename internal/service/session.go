package service

// Package service orchestrates domain logic across ports; it owns no
// transport or storage details.

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/telewell/miniapp-api/internal/domain/identity"
	"github.com/telewell/miniapp-api/internal/domain/telegram"
	apperrors "github.com/telewell/miniapp-api/internal/errors"
	"github.com/telewell/miniapp-api/internal/ports"
)

// SessionServiceOptions groups dependencies for SessionService.
type SessionServiceOptions struct {
	Platform ports.AuthPlatform
	BotToken string
	Logger   *slog.Logger
}

// SessionService turns a verified Telegram user into an authenticated
// platform session, provisioning the account on first contact.
type SessionService struct {
	platform ports.AuthPlatform
	botToken string
	logger   *slog.Logger
}

// NewSessionService constructs a new SessionService.
func NewSessionService(opts SessionServiceOptions) *SessionService {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionService{
		platform: opts.Platform,
		botToken: opts.BotToken,
		logger:   logger,
	}
}

// EnsureSession signs the Telegram user into the platform with derived
// credentials. Sign-in is tried first; on failure the account is provisioned
// and sign-in retried once. A create that fails because the account already
// exists (a concurrent first request won the race) also falls through to the
// retry. Anything else is fatal for this request.
func (s *SessionService) EnsureSession(ctx context.Context, user telegram.User) (ports.PlatformSession, error) {
	creds := identity.Derive(s.botToken, user.ID)

	sess, signInErr := s.platform.SignIn(ctx, creds.Email, creds.Password)
	if signInErr == nil {
		return sess, nil
	}

	createErr := s.platform.CreateUser(ctx, ports.CreateUserInput{
		Email:    creds.Email,
		Password: creds.Password,
		Metadata: userMetadata(user),
	})
	if createErr != nil && !s.platform.IsAlreadyRegistered(createErr) {
		s.logger.Error("platform account provisioning failed",
			slog.Int64("telegram_id", user.ID),
			slog.String("error", createErr.Error()))
		return ports.PlatformSession{}, apperrors.Upstream("account provisioning failed", createErr)
	}

	sess, retryErr := s.platform.SignIn(ctx, creds.Email, creds.Password)
	if retryErr != nil {
		s.logger.Error("platform sign-in failed after provisioning",
			slog.Int64("telegram_id", user.ID),
			slog.String("error", retryErr.Error()))
		return ports.PlatformSession{}, apperrors.Upstream("platform sign-in failed", retryErr)
	}
	return sess, nil
}

// userMetadata is attached to newly provisioned accounts so support tooling
// can tie them back to Telegram.
func userMetadata(user telegram.User) map[string]any {
	meta := map[string]any{
		"telegram_id": strconv.FormatInt(user.ID, 10),
		"first_name":  user.FirstName,
	}
	if user.Username != "" {
		meta["username"] = user.Username
	}
	if user.LastName != "" {
		meta["last_name"] = user.LastName
	}
	return meta
}
