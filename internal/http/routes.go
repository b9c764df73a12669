package httpx

// Package httpx is the HTTP boundary: routing, middleware, request/response
// shaping. All domain behavior lives in internal/service.

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/telewell/miniapp-api/internal/observability/statsd"
	"github.com/telewell/miniapp-api/internal/ratelimit"
	"github.com/telewell/miniapp-api/internal/service"
)

// RouteLimiters holds the per-route-group rate limiters.
type RouteLimiters struct {
	Validate *ratelimit.Limiter
	Embed    *ratelimit.Limiter
	Complete *ratelimit.Limiter
	Memory   *ratelimit.Limiter
	Storage  *ratelimit.Limiter
}

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Sessions    *service.SessionService
	Completions *service.CompletionService
	Memories    *service.MemoryService
	Storage     *service.StorageService
	Limiters    RouteLimiters

	BotToken          string
	InitDataMaxAge    time.Duration
	TrustForwardedFor bool
	// Metrics receives per-request counters and timings; nil disables emission.
	Metrics statsd.Sink
	Logger  *slog.Logger
}

// NewRouter creates and configures the HTTP router. Every /api route runs
// rate limiting before Telegram auth, so over-limit callers are rejected
// before any verification or platform traffic happens on their behalf.
func NewRouter(services RouterServices) http.Handler {
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()

	telegramHandlers := &TelegramHandlers{Logger: logger}
	aiHandlers := &AIHandlers{
		Completions: services.Completions,
		Memories:    services.Memories,
		Logger:      logger,
	}
	storageHandlers := &StorageHandlers{Storage: services.Storage, Logger: logger}

	auth := TelegramAuth(TelegramAuthOptions{
		BotToken: services.BotToken,
		MaxAge:   services.InitDataMaxAge,
		Sessions: services.Sessions,
		Logger:   logger,
	})
	protected := func(scope string, limiter *ratelimit.Limiter, handler http.HandlerFunc) http.Handler {
		rl := RateLimit(RateLimitOptions{
			Limiter:           limiter,
			Scope:             scope,
			TrustForwardedFor: services.TrustForwardedFor,
			Logger:            logger,
		})
		return rl(auth(handler))
	}

	mux.Handle("POST /api/telegram/validate", protected("validate", services.Limiters.Validate, telegramHandlers.Validate))
	mux.Handle("POST /api/ai/embed", protected("embed", services.Limiters.Embed, aiHandlers.Embed))
	mux.Handle("POST /api/ai/complete", protected("complete", services.Limiters.Complete, aiHandlers.Complete))
	mux.Handle("GET /api/ai/memory", protected("memory", services.Limiters.Memory, aiHandlers.MemoryList))
	mux.Handle("DELETE /api/ai/memory", protected("memory", services.Limiters.Memory, aiHandlers.MemoryDelete))
	mux.Handle("POST /api/storage/upload-url", protected("storage", services.Limiters.Storage, storageHandlers.UploadURL))
	mux.Handle("POST /api/storage/verify-upload", protected("storage", services.Limiters.Storage, storageHandlers.VerifyUpload))

	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))

	var handler http.Handler = mux
	handler = Recover(logger)(handler)
	handler = Metrics(services.Metrics)(handler)
	handler = Logging(logger)(handler)
	handler = RequestID()(handler)
	return handler
}
