package config

// HTTPConfig contains HTTP server configuration.
type HTTPConfig struct {
	// Addr is the address to bind the HTTP server to.
	Addr string `env:"HTTP_ADDR" envDefault:":8080"`

	// TrustForwardedFor controls whether the first X-Forwarded-For entry is
	// used as the client address for rate limit keys. Enable only behind a
	// trusted proxy.
	TrustForwardedFor bool `env:"HTTP_TRUST_FORWARDED_FOR" envDefault:"true"`
}

// Sanitize applies guardrails to HTTP configuration values.
func (h *HTTPConfig) Sanitize() {
	if h.Addr == "" {
		h.Addr = ":8080"
	}
}
