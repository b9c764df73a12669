package httpx

import (
	"log/slog"
	"net/http"

	apperrors "github.com/telewell/miniapp-api/internal/errors"
)

// errorBody is the JSON error envelope every failure renders to.
type errorBody struct {
	Error     string            `json:"error"`
	Code      string            `json:"code"`
	Details   map[string]string `json:"details,omitempty"`
	RequestID string            `json:"requestId,omitempty"`
}

// WriteAppError renders err through the error taxonomy and logs it once.
// Unrecognized errors collapse to a generic 500 so upstream text never
// reaches clients; the original error still lands in the log.
func WriteAppError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	appErr := apperrors.Resolve(err)

	requestID := RequestIDFromContext(r.Context())
	attrs := []any{
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Int("status", appErr.Status),
		slog.String("code", string(appErr.Code)),
		slog.String("message", appErr.Message),
	}
	if requestID != "" {
		attrs = append(attrs, slog.String("request_id", requestID))
	}
	if appErr.Cause != nil {
		attrs = append(attrs, slog.String("cause", appErr.Cause.Error()))
	}
	if appErr.Status >= http.StatusInternalServerError {
		logger.Error("request failed", attrs...)
	} else {
		logger.Warn("request rejected", attrs...)
	}

	WriteJSON(w, appErr.Status, errorBody{
		Error:     appErr.Message,
		Code:      string(appErr.Code),
		Details:   appErr.Fields,
		RequestID: requestID,
	})
}
