package config

import (
	"strings"
	"time"
)

// OpenAIConfig contains configuration for the OpenAI-compatible LLM provider.
type OpenAIConfig struct {
	APIKey     string `env:"API_KEY,required"`
	BaseURL    string `env:"BASE_URL"    envDefault:"https://api.openai.com"`
	ChatModel  string `env:"CHAT_MODEL"  envDefault:"gpt-4o-mini"`
	EmbedModel string `env:"EMBED_MODEL" envDefault:"text-embedding-3-small"`

	// Timeout bounds each individual outbound call; retries get a fresh budget.
	Timeout time.Duration `env:"TIMEOUT" envDefault:"30s"`

	// MaxRetries is the number of additional attempts after the first failure.
	MaxRetries int `env:"MAX_RETRIES" envDefault:"2"`
}

// Sanitize applies guardrails to LLM provider configuration values.
func (o *OpenAIConfig) Sanitize() {
	o.BaseURL = strings.TrimRight(strings.TrimSpace(o.BaseURL), "/")
	if o.BaseURL == "" {
		o.BaseURL = "https://api.openai.com"
	}
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
}
