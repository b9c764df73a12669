package errors

import (
	"context"
	"errors"
	"net/http"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// MapDBError maps database errors to AppError instances:
//   - pgx.ErrNoRows → 404 not_found
//   - constraint violations → 400 invalid_request (bad data reached SQL)
//   - context deadline → upstream_timeout
//   - anything else → 500 upstream_error
//
// Platform database failures are never retried by this service; per the
// failure-handling policy they indicate configuration or outage, not load.
func MapDBError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return Timeout("database call timed out", err)
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return &AppError{Status: http.StatusNotFound, Code: CodeNotFound, Message: "resource not found", Cause: err}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation, pgerrcode.ForeignKeyViolation,
			pgerrcode.CheckViolation, pgerrcode.NotNullViolation:
			return Wrap(err, http.StatusBadRequest, CodeInvalidRequest, "invalid data")
		default:
			return Upstream("database error", err)
		}
	}

	return Upstream("database error", err)
}
