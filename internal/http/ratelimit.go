package httpx

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/telewell/miniapp-api/internal/errors"
	"github.com/telewell/miniapp-api/internal/ratelimit"
)

// RateLimitOptions configures the rate limit middleware for one route group.
type RateLimitOptions struct {
	Limiter *ratelimit.Limiter
	// Scope separates counters between route groups sharing one store.
	Scope string
	// TrustForwardedFor enables X-Forwarded-For as the client address; only
	// safe behind a proxy that overwrites the header.
	TrustForwardedFor bool
	Logger            *slog.Logger
}

// RateLimit returns a middleware that applies a fixed-window limit per
// client. It runs before authentication, so the key is derived from the
// network address and the raw credential rather than a verified identity;
// a limiter outage fails open.
func RateLimit(opts RateLimitOptions) func(http.Handler) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := opts.Scope + ":" + clientKey(r, opts.TrustForwardedFor)

			res, err := opts.Limiter.Consume(r.Context(), key)
			if err != nil {
				logger.Error("rate limiter unavailable", slog.String("error", err.Error()))
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))

			if !res.Allowed {
				retryAfter := int64(time.Until(res.ResetAt).Seconds())
				if retryAfter < 1 {
					retryAfter = 1
				}
				w.Header().Set("Retry-After", strconv.FormatInt(retryAfter, 10))
				WriteAppError(w, r, logger, apperrors.RateLimited("rate limit exceeded"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientKey identifies a caller before authentication has run: the client
// address plus a digest of the raw credential, so distinct users behind one
// NAT do not share a window.
func clientKey(r *http.Request, trustForwardedFor bool) string {
	addr := "unknown"
	if trustForwardedFor {
		if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
			first, _, _ := strings.Cut(fwd, ",")
			if first = strings.TrimSpace(first); first != "" {
				addr = first
			}
		}
	}
	if addr == "unknown" && r.RemoteAddr != "" {
		addr = r.RemoteAddr
		if idx := strings.LastIndex(addr, ":"); idx > 0 {
			addr = addr[:idx]
		}
	}

	credential := "no-auth"
	if auth := r.Header.Get("Authorization"); auth != "" {
		sum := sha256.Sum256([]byte(auth))
		credential = hex.EncodeToString(sum[:])[:16]
	}
	return addr + ":" + credential
}
