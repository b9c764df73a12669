package httpx

import (
	"bytes"
	"encoding/json"
	"net/http"

	apperrors "github.com/telewell/miniapp-api/internal/errors"
)

// maxBodyBytes bounds request bodies; the largest legitimate payload is an
// embed request, well under this.
const maxBodyBytes = 64 * 1024

// DecodeJSON decodes JSON from the request body into the destination.
// Unknown fields and oversized bodies are rejected as invalid_request.
func DecodeJSON(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, maxBodyBytes)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return apperrors.Wrap(err, http.StatusBadRequest, apperrors.CodeInvalidRequest, "invalid JSON body")
	}
	return nil
}

// WriteJSON writes a JSON response with the given status code and data.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := buf.WriteTo(w); err != nil {
		// Response writer errors (e.g., client disconnect) can't be recovered from here.
		return
	}
}
