package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/telewell/miniapp-api/config"
	"github.com/telewell/miniapp-api/internal/ports"
)

// StorageClient implements ports.StorageSigner against the storage API using
// the service role key.
type StorageClient struct {
	httpClient     *http.Client
	baseURL        string
	serviceRoleKey string
	bucket         string
}

var _ ports.StorageSigner = (*StorageClient)(nil)

// NewStorageClient creates a storage client from config.
func NewStorageClient(cfg config.SupabaseConfig) *StorageClient {
	return &StorageClient{
		httpClient:     &http.Client{},
		baseURL:        cfg.BaseURL(),
		serviceRoleKey: cfg.ServiceRoleKey,
		bucket:         cfg.StorageBucket,
	}
}

type signUploadResponse struct {
	URL   string `json:"url"`
	Token string `json:"token"`
}

// SignUpload requests a signed upload slot for path. The platform returns a
// relative URL which is resolved against the storage base before handing it
// to clients.
func (c *StorageClient) SignUpload(ctx context.Context, path string) (ports.SignedUpload, error) {
	endpoint := fmt.Sprintf("%s/storage/v1/object/upload/sign/%s/%s", c.baseURL, c.bucket, escapePath(path))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader("{}"))
	if err != nil {
		return ports.SignedUpload{}, fmt.Errorf("build request: %w", err)
	}
	c.authorize(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ports.SignedUpload{}, fmt.Errorf("supabase request: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return ports.SignedUpload{}, err
	}

	var parsed signUploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return ports.SignedUpload{}, fmt.Errorf("decode sign response: %w", err)
	}
	if parsed.URL == "" {
		return ports.SignedUpload{}, fmt.Errorf("sign response missing url")
	}

	uploadURL := parsed.URL
	if strings.HasPrefix(uploadURL, "/") {
		uploadURL = c.baseURL + "/storage/v1" + uploadURL
	}
	return ports.SignedUpload{URL: uploadURL, Token: parsed.Token, Path: path}, nil
}

type objectInfoResponse struct {
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	ContentType string `json:"contentType"`
	Metadata    struct {
		Size     int64  `json:"size"`
		MimeType string `json:"mimetype"`
	} `json:"metadata"`
}

// Stat fetches object metadata. A missing object is (nil, nil), not an error;
// callers decide whether absence is a failure.
func (c *StorageClient) Stat(ctx context.Context, path string) (*ports.ObjectInfo, error) {
	endpoint := fmt.Sprintf("%s/storage/v1/object/info/%s/%s", c.baseURL, c.bucket, escapePath(path))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("supabase request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, nil
	}
	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	var parsed objectInfoResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode object info: %w", err)
	}

	info := &ports.ObjectInfo{
		Path:        path,
		Size:        parsed.Size,
		ContentType: parsed.ContentType,
	}
	if info.Size == 0 {
		info.Size = parsed.Metadata.Size
	}
	if info.ContentType == "" {
		info.ContentType = parsed.Metadata.MimeType
	}
	return info, nil
}

func (c *StorageClient) authorize(req *http.Request) {
	req.Header.Set("apikey", c.serviceRoleKey)
	req.Header.Set("Authorization", "Bearer "+c.serviceRoleKey)
}

// escapePath escapes each path segment while keeping the separators.
func escapePath(path string) string {
	segments := strings.Split(path, "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return strings.Join(segments, "/")
}
