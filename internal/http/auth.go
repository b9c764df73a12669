package httpx

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/telewell/miniapp-api/internal/domain/telegram"
	"github.com/telewell/miniapp-api/internal/ports"
)

// SessionEnsurer mints a platform session for a verified Telegram user.
type SessionEnsurer interface {
	EnsureSession(ctx context.Context, user telegram.User) (ports.PlatformSession, error)
}

// TelegramAuthOptions configures the Telegram auth middleware.
type TelegramAuthOptions struct {
	BotToken string
	MaxAge   time.Duration
	Sessions SessionEnsurer
	Logger   *slog.Logger
	// Now is injectable for tests; when nil, time.Now is used.
	Now func() time.Time
}

// TelegramAuth returns a middleware that verifies the initData credential on
// every request and attaches the authenticated Caller to the context. The
// credential is re-verified per request; nothing about it is cached.
func TelegramAuth(opts TelegramAuthOptions) func(http.Handler) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, err := telegram.ExtractRaw(r.Header.Get("Authorization"), r.Header.Get(telegram.InitDataHeader))
			if err != nil {
				WriteAppError(w, r, logger, err)
				return
			}

			initData, err := telegram.Verify(raw, telegram.VerifyOptions{
				BotToken: opts.BotToken,
				MaxAge:   opts.MaxAge,
				Now:      opts.Now,
			})
			if err != nil {
				WriteAppError(w, r, logger, err)
				return
			}

			sess, err := opts.Sessions.EnsureSession(r.Context(), initData.User)
			if err != nil {
				WriteAppError(w, r, logger, err)
				return
			}

			if info, ok := GetRequestInfo(r.Context()); ok {
				info.UserID = sess.UserID
				info.TelegramID = initData.User.ID
			}
			caller := &Caller{
				TelegramUser: initData.User,
				UserID:       sess.UserID,
				AccessToken:  sess.AccessToken,
			}
			next.ServeHTTP(w, r.WithContext(SetCallerInContext(r.Context(), caller)))
		})
	}
}
