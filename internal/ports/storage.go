package ports

import (
	"context"
)

// SignedUpload is a pre-authorized upload slot in object storage.
type SignedUpload struct {
	// URL is the absolute upload endpoint the client PUTs to.
	URL string
	// Token authorizes that single upload.
	Token string
	// Path is the object key the upload lands at.
	Path string
}

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Path        string
	Size        int64
	ContentType string
}

// StorageSigner issues signed upload URLs and inspects uploaded objects.
type StorageSigner interface {
	// SignUpload creates a signed upload slot for the given object path.
	SignUpload(ctx context.Context, path string) (SignedUpload, error)

	// Stat returns object metadata, or (nil, nil) when the object does not exist.
	Stat(ctx context.Context, path string) (*ObjectInfo, error)
}
