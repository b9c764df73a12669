package service

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/telewell/miniapp-api/internal/data"
	apperrors "github.com/telewell/miniapp-api/internal/errors"
	"github.com/telewell/miniapp-api/internal/ports"
)

// maxFilenameLen bounds the sanitized filename portion of an object path.
const maxFilenameLen = 100

// unsafeFilenameChars matches everything outside the filename whitelist.
var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// StorageServiceOptions groups dependencies for StorageService.
type StorageServiceOptions struct {
	Signer       ports.StorageSigner
	Bucket       string
	TimeProvider data.TimeProvider
	Logger       *slog.Logger
}

// StorageService issues signed upload URLs inside the caller's folder and
// verifies completed uploads.
type StorageService struct {
	signer       ports.StorageSigner
	bucket       string
	timeProvider data.TimeProvider
	logger       *slog.Logger
}

// NewStorageService constructs a new StorageService.
func NewStorageService(opts StorageServiceOptions) *StorageService {
	tp := opts.TimeProvider
	if tp == nil {
		tp = &data.RealTimeProvider{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &StorageService{
		signer:       opts.Signer,
		bucket:       opts.Bucket,
		timeProvider: tp,
		logger:       logger,
	}
}

// Bucket returns the storage bucket uploads land in.
func (s *StorageService) Bucket() string { return s.bucket }

// CreateUploadURL signs an upload slot under the owner's folder. The object
// path is always derived server-side from the owner id, a timestamp and the
// sanitized filename, so a caller can never choose another owner's folder.
func (s *StorageService) CreateUploadURL(ctx context.Context, ownerID, filename string) (ports.SignedUpload, error) {
	sanitized, err := SanitizeFilename(filename)
	if err != nil {
		return ports.SignedUpload{}, err
	}

	path := fmt.Sprintf("%s/%d_%s", ownerID, s.timeProvider.Now().Unix(), sanitized)
	signed, err := s.signer.SignUpload(ctx, path)
	if err != nil {
		return ports.SignedUpload{}, mapUpstreamErr("storage signing", err)
	}
	return signed, nil
}

// VerifyUpload checks whether an object exists at path, which must sit inside
// the owner's folder. A path outside the folder is a 403 before any storage
// call is made; a missing object is reported as (nil, nil), not an error.
func (s *StorageService) VerifyUpload(ctx context.Context, ownerID, path string) (*ports.ObjectInfo, error) {
	if err := checkOwnedPath(ownerID, path); err != nil {
		return nil, err
	}

	info, err := s.signer.Stat(ctx, path)
	if err != nil {
		return nil, mapUpstreamErr("storage lookup", err)
	}
	return info, nil
}

// checkOwnedPath rejects paths outside ownerID's folder, including traversal
// attempts that would normalize back into it.
func checkOwnedPath(ownerID, path string) error {
	if strings.TrimSpace(path) == "" {
		return apperrors.ValidationField("path", "path is required")
	}
	if strings.Contains(path, "..") {
		return apperrors.Forbidden("path is outside your folder")
	}
	if !strings.HasPrefix(path, ownerID+"/") {
		return apperrors.Forbidden("path is outside your folder")
	}
	return nil
}

// SanitizeFilename strips directory components and replaces unsafe characters
// so the name is a single safe path segment.
func SanitizeFilename(filename string) (string, error) {
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return "", apperrors.ValidationField("filename", "filename is required")
	}

	// Keep only the final segment of any client-supplied path.
	if idx := strings.LastIndexAny(filename, "/\\"); idx >= 0 {
		filename = filename[idx+1:]
	}
	filename = unsafeFilenameChars.ReplaceAllString(filename, "_")
	filename = strings.Trim(filename, "._")
	if filename == "" {
		return "", apperrors.ValidationField("filename", "filename has no usable characters")
	}
	if len(filename) > maxFilenameLen {
		filename = filename[len(filename)-maxFilenameLen:]
	}
	return filename, nil
}
