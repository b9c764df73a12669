package httpx

import (
	"log/slog"
	"net/http"
	"strings"

	apperrors "github.com/telewell/miniapp-api/internal/errors"
	"github.com/telewell/miniapp-api/internal/service"
)

// maxFileNameLen bounds the client-supplied file name before sanitization.
const maxFileNameLen = 120

// StorageHandlers serves the signed upload endpoints.
type StorageHandlers struct {
	Storage *service.StorageService
	Logger  *slog.Logger
}

type uploadURLRequest struct {
	FileName string `json:"fileName"`
}

type uploadURLResponse struct {
	Bucket    string `json:"bucket"`
	Path      string `json:"path"`
	Method    string `json:"method"`
	Token     string `json:"token"`
	SignedURL string `json:"signedUrl"`
}

// UploadURL signs an upload slot under the caller's folder.
func (h *StorageHandlers) UploadURL(w http.ResponseWriter, r *http.Request) {
	caller, ok := GetCallerFromContext(r.Context())
	if !ok {
		WriteAppError(w, r, h.Logger, apperrors.Auth("authentication required"))
		return
	}

	var req uploadURLRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteAppError(w, r, h.Logger, err)
		return
	}
	if len(req.FileName) > maxFileNameLen {
		WriteAppError(w, r, h.Logger, apperrors.ValidationField("fileName", "fileName is too long"))
		return
	}

	signed, err := h.Storage.CreateUploadURL(r.Context(), caller.UserID, req.FileName)
	if err != nil {
		WriteAppError(w, r, h.Logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, uploadURLResponse{
		Bucket:    h.Storage.Bucket(),
		Path:      signed.Path,
		Method:    http.MethodPut,
		Token:     signed.Token,
		SignedURL: signed.URL,
	})
}

type verifyUploadRequest struct {
	Path string `json:"path"`
}

type verifyUploadResponse struct {
	Path   string      `json:"path"`
	Exists bool        `json:"exists"`
	File   *objectInfo `json:"file,omitempty"`
}

type objectInfo struct {
	Path        string `json:"path"`
	Size        int64  `json:"size"`
	ContentType string `json:"contentType,omitempty"`
}

// VerifyUpload reports whether an object exists at the given path inside the
// caller's folder.
func (h *StorageHandlers) VerifyUpload(w http.ResponseWriter, r *http.Request) {
	caller, ok := GetCallerFromContext(r.Context())
	if !ok {
		WriteAppError(w, r, h.Logger, apperrors.Auth("authentication required"))
		return
	}

	var req verifyUploadRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteAppError(w, r, h.Logger, err)
		return
	}
	path := strings.TrimSpace(req.Path)

	info, err := h.Storage.VerifyUpload(r.Context(), caller.UserID, path)
	if err != nil {
		WriteAppError(w, r, h.Logger, err)
		return
	}

	resp := verifyUploadResponse{Path: path, Exists: info != nil}
	if info != nil {
		resp.File = &objectInfo{Path: info.Path, Size: info.Size, ContentType: info.ContentType}
	}
	WriteJSON(w, http.StatusOK, resp)
}
