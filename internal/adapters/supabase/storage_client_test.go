package supabase

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telewell/miniapp-api/config"
)

func newTestStorageClient(t *testing.T, handler http.HandlerFunc) *StorageClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewStorageClient(config.SupabaseConfig{
		URL:            srv.URL,
		AnonKey:        "anon-key",
		ServiceRoleKey: "service-key",
		StorageBucket:  "uploads",
	})
}

func TestSignUpload(t *testing.T) {
	client := newTestStorageClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/storage/v1/object/upload/sign/uploads/uuid-1/1717243200_report.pdf", r.URL.Path)
		assert.Equal(t, "Bearer service-key", r.Header.Get("Authorization"))

		_, _ = w.Write([]byte(`{"url":"/object/upload/sign/uploads/uuid-1/1717243200_report.pdf?token=abc","token":"abc"}`))
	})

	signed, err := client.SignUpload(context.Background(), "uuid-1/1717243200_report.pdf")
	require.NoError(t, err)
	assert.Equal(t, "abc", signed.Token)
	assert.Equal(t, "uuid-1/1717243200_report.pdf", signed.Path)
	assert.Contains(t, signed.URL, "/storage/v1/object/upload/sign/uploads/uuid-1/1717243200_report.pdf")
	assert.True(t, len(signed.URL) > len("/storage/v1"), "relative URL should be resolved to absolute")
	assert.Contains(t, signed.URL, "http")
}

func TestSignUpload_EscapesSegments(t *testing.T) {
	var gotPath string
	client := newTestStorageClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		_, _ = w.Write([]byte(`{"url":"/object/upload/sign/x","token":"t"}`))
	})

	_, err := client.SignUpload(context.Background(), "uuid-1/file name.pdf")
	require.NoError(t, err)
	assert.Contains(t, gotPath, "file%20name.pdf")
}

func TestSignUpload_Error(t *testing.T) {
	client := newTestStorageClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"message":"bucket not found"}`))
	})

	_, err := client.SignUpload(context.Background(), "uuid-1/file.pdf")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.Status)
}

func TestStat(t *testing.T) {
	client := newTestStorageClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/storage/v1/object/info/uploads/uuid-1/file.pdf", r.URL.Path)

		_, _ = w.Write([]byte(`{"name":"file.pdf","metadata":{"size":1024,"mimetype":"application/pdf"}}`))
	})

	info, err := client.Stat(context.Background(), "uuid-1/file.pdf")
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, "uuid-1/file.pdf", info.Path)
	assert.Equal(t, int64(1024), info.Size)
	assert.Equal(t, "application/pdf", info.ContentType)
}

func TestStat_NotFoundIsNil(t *testing.T) {
	client := newTestStorageClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Object not found"}`))
	})

	info, err := client.Stat(context.Background(), "uuid-1/missing.pdf")
	require.NoError(t, err)
	assert.Nil(t, info)
}

func TestStat_OtherErrorSurfaces(t *testing.T) {
	client := newTestStorageClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"message":"storage backend down"}`))
	})

	_, err := client.Stat(context.Background(), "uuid-1/file.pdf")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
}
