package config

import (
	"fmt"
	"strings"
	"time"
)

// RateLimitBackend selects where fixed-window counters live.
type RateLimitBackend string

const (
	// RateLimitBackendMemory keeps counters in process memory. Suitable for
	// single-instance deployments only.
	RateLimitBackendMemory RateLimitBackend = "memory"
	// RateLimitBackendRedis keeps counters in Redis so multiple instances
	// share one window per client.
	RateLimitBackendRedis RateLimitBackend = "redis"
)

// UnmarshalText implements encoding.TextUnmarshaler for RateLimitBackend.
func (b *RateLimitBackend) UnmarshalText(text []byte) error {
	v := strings.ToLower(string(text))
	switch v {
	case "memory", "redis":
		*b = RateLimitBackend(v)
		return nil
	default:
		return fmt.Errorf("invalid RateLimitBackend: %q (valid options: memory, redis)", v)
	}
}

// RateLimitConfig groups fixed-window rate limiting configuration.
// Limits are per (route, client) within one window.
type RateLimitConfig struct {
	Backend RateLimitBackend `env:"BACKEND" envDefault:"memory"`
	Window  time.Duration    `env:"WINDOW"  envDefault:"1m"`

	ValidateLimit int `env:"VALIDATE" envDefault:"30"`
	EmbedLimit    int `env:"EMBED"    envDefault:"20"`
	CompleteLimit int `env:"COMPLETE" envDefault:"10"`
	MemoryLimit   int `env:"MEMORY"   envDefault:"30"`
	StorageLimit  int `env:"STORAGE"  envDefault:"20"`
}

// Sanitize applies guardrails to rate limit configuration values.
// A limit below 1 or a window below one second is a misconfiguration the
// limiter treats as a programming error, so both are clamped here.
func (r *RateLimitConfig) Sanitize() {
	if r.Window < time.Second {
		r.Window = time.Minute
	}
	for _, limit := range []*int{&r.ValidateLimit, &r.EmbedLimit, &r.CompleteLimit, &r.MemoryLimit, &r.StorageLimit} {
		if *limit < 1 {
			*limit = 1
		}
	}
	if r.Backend == "" {
		r.Backend = RateLimitBackendMemory
	}
}
