package config

// AppConfig is the main application configuration struct that composes
// domain-specific configuration from separate files.
//
// Configuration is loaded from environment variables using the
// github.com/caarlos0/env library. See individual domain config
// files for details on available environment variables:
//   - telegram.go: Telegram Mini App authentication configuration
//   - supabase.go: managed auth/database/storage platform configuration
//   - openai.go: LLM provider configuration
//   - ratelimit.go: per-route rate limiting configuration
//   - database.go: Postgres and Redis configuration
//   - http.go: HTTP server configuration
type AppConfig struct {
	// IsDev controls development mode behavior (looser logging, etc.)
	IsDev bool `env:"DEV" envDefault:"false"`

	// Telegram initData verification configuration
	Telegram TelegramConfig

	// Supabase platform configuration
	Supabase SupabaseConfig `envPrefix:"SUPABASE_"`

	// OpenAI-compatible LLM provider configuration
	OpenAI OpenAIConfig `envPrefix:"OPENAI_"`

	// Rate limiting configuration
	RateLimit RateLimitConfig `envPrefix:"RATE_LIMIT_"`

	// Database configuration
	Postgres DBConfig    `envPrefix:"DB_"`
	Redis    RedisConfig `envPrefix:"REDIS_"`

	// HTTP server configuration
	HTTP HTTPConfig

	// Observability configuration
	Observability ObservabilityConfig
}

// Sanitize applies guardrails to configuration values loaded from env.
// This should be called after loading configuration from environment variables.
func (c *AppConfig) Sanitize() {
	c.Telegram.Sanitize()
	c.OpenAI.Sanitize()
	c.RateLimit.Sanitize()
	c.HTTP.Sanitize()
	c.Observability.Sanitize()
}
