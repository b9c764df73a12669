package telegram

import (
	"strings"

	apperrors "github.com/telewell/miniapp-api/internal/errors"
)

// InitDataHeader is the dedicated fallback header for clients that cannot set
// an Authorization scheme.
const InitDataHeader = "X-Telegram-Init-Data"

// ExtractRaw pulls the raw initData payload out of request headers. The
// Authorization header is accepted with scheme "tma" (Telegram's convention)
// or "Bearer", case-insensitive; the dedicated header is the fallback.
func ExtractRaw(authorization, fallback string) (string, error) {
	if authorization != "" {
		scheme, rest, found := strings.Cut(authorization, " ")
		if found {
			switch strings.ToLower(scheme) {
			case "tma", "bearer":
				if raw := strings.TrimSpace(rest); raw != "" {
					return raw, nil
				}
			}
		}
	}
	if raw := strings.TrimSpace(fallback); raw != "" {
		return raw, nil
	}
	return "", apperrors.Auth("initData required")
}
