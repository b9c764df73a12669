package config

import "time"

// TelegramConfig contains Telegram Mini App authentication configuration.
type TelegramConfig struct {
	// BotToken is the shared secret issued by BotFather. Every initData
	// payload is verified against a key derived from this token.
	BotToken string `env:"TELEGRAM_BOT_TOKEN,required"`

	// InitDataMaxAge is the maximum acceptable age of a signed initData
	// payload. Payloads whose auth_date is older than this are rejected.
	InitDataMaxAge time.Duration `env:"TELEGRAM_INITDATA_MAX_AGE" envDefault:"24h"`
}

// Sanitize applies guardrails to Telegram configuration values.
func (t *TelegramConfig) Sanitize() {
	if t.InitDataMaxAge <= 0 {
		t.InitDataMaxAge = 24 * time.Hour
	}
}
