package service

import (
	"context"
	"errors"
	"net/http"

	apperrors "github.com/telewell/miniapp-api/internal/errors"
	"github.com/telewell/miniapp-api/internal/retry"
)

// mapUpstreamErr translates an exhausted LLM provider call into the error
// taxonomy: timeouts become 504 upstream_timeout, everything else 502
// upstream_error. AppErrors pass through untouched.
func mapUpstreamErr(operation string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	if retry.IsTimeout(err) || errors.Is(err, context.DeadlineExceeded) {
		return apperrors.Timeout(operation+" timed out", err)
	}
	return apperrors.UpstreamWithStatus(http.StatusBadGateway, operation+" failed", err)
}
