package bootstrap

import (
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"

	"github.com/telewell/miniapp-api/config"
	"github.com/telewell/miniapp-api/internal/adapters/openai"
	redisadapter "github.com/telewell/miniapp-api/internal/adapters/redis"
	"github.com/telewell/miniapp-api/internal/adapters/supabase"
	"github.com/telewell/miniapp-api/internal/data"
	httpx "github.com/telewell/miniapp-api/internal/http"
	"github.com/telewell/miniapp-api/internal/ratelimit"
	"github.com/telewell/miniapp-api/internal/service"
)

// ServiceContainer holds all initialized services.
type ServiceContainer struct {
	Sessions    *service.SessionService
	Completions *service.CompletionService
	Memories    *service.MemoryService
	Storage     *service.StorageService
	Limiters    httpx.RouteLimiters
}

// ServicesConfig contains dependencies for service initialization.
type ServicesConfig struct {
	Config *config.AppConfig
	Pool   *pgxpool.Pool
	// Redis may be nil when the rate limit backend is memory.
	Redis  goredis.UniversalClient
	Logger *slog.Logger
}

// InitServices wires adapters into services. It owns the decision of which
// rate limit store backs the per-route limiters.
func InitServices(cfg ServicesConfig) ServiceContainer {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	appCfg := cfg.Config

	authClient := supabase.NewAuthClient(appCfg.Supabase)
	storageClient := supabase.NewStorageClient(appCfg.Supabase)
	aiClient := openai.NewClient(appCfg.OpenAI)
	memories := data.NewMemoryRepo(cfg.Pool)

	return ServiceContainer{
		Sessions: service.NewSessionService(service.SessionServiceOptions{
			Platform: authClient,
			BotToken: appCfg.Telegram.BotToken,
			Logger:   logger,
		}),
		Completions: service.NewCompletionService(service.CompletionServiceOptions{
			Streamer:   aiClient,
			Embedder:   aiClient,
			Memories:   memories,
			ChatModel:  appCfg.OpenAI.ChatModel,
			Timeout:    appCfg.OpenAI.Timeout,
			MaxRetries: appCfg.OpenAI.MaxRetries,
			Logger:     logger,
		}),
		Memories: service.NewMemoryService(service.MemoryServiceOptions{
			Memories:   memories,
			Embedder:   aiClient,
			Timeout:    appCfg.OpenAI.Timeout,
			MaxRetries: appCfg.OpenAI.MaxRetries,
			Logger:     logger,
		}),
		Storage: service.NewStorageService(service.StorageServiceOptions{
			Signer: storageClient,
			Bucket: appCfg.Supabase.StorageBucket,
			Logger: logger,
		}),
		Limiters: initLimiters(appCfg.RateLimit, cfg.Redis, logger),
	}
}

// initLimiters builds the per-route limiters on the configured store. A redis
// backend without a redis client falls back to memory rather than failing.
func initLimiters(cfg config.RateLimitConfig, redisClient goredis.UniversalClient, logger *slog.Logger) httpx.RouteLimiters {
	var store ratelimit.Store
	switch {
	case cfg.Backend == config.RateLimitBackendRedis && redisClient != nil:
		store = redisadapter.NewRateStore(redisClient)
		logger.Info("rate limiting backed by redis")
	case cfg.Backend == config.RateLimitBackendRedis:
		store = ratelimit.NewMemoryStore()
		logger.Warn("redis rate limit backend configured without a redis connection, using in-memory store")
	default:
		store = ratelimit.NewMemoryStore()
		logger.Info("rate limiting backed by in-memory store")
	}

	return httpx.RouteLimiters{
		Validate: ratelimit.NewLimiter(store, cfg.ValidateLimit, cfg.Window),
		Embed:    ratelimit.NewLimiter(store, cfg.EmbedLimit, cfg.Window),
		Complete: ratelimit.NewLimiter(store, cfg.CompleteLimit, cfg.Window),
		Memory:   ratelimit.NewLimiter(store, cfg.MemoryLimit, cfg.Window),
		Storage:  ratelimit.NewLimiter(store, cfg.StorageLimit, cfg.Window),
	}
}
