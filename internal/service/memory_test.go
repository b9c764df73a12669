package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telewell/miniapp-api/internal/data"
	domainmemory "github.com/telewell/miniapp-api/internal/domain/memory"
	apperrors "github.com/telewell/miniapp-api/internal/errors"
)

type upstreamStatusErr struct {
	status int
}

func (e *upstreamStatusErr) Error() string   { return fmt.Sprintf("upstream status %d", e.status) }
func (e *upstreamStatusErr) StatusCode() int { return e.status }

func newMemoryService(repo *fakeMemoryRepo, embedder *fakeEmbedder) *MemoryService {
	return NewMemoryService(MemoryServiceOptions{
		Memories:   repo,
		Embedder:   embedder,
		Timeout:    time.Second,
		MaxRetries: 2,
	})
}

func TestRemember(t *testing.T) {
	repo := &fakeMemoryRepo{}
	embedder := &fakeEmbedder{vec: []float32{0.1, 0.2}}
	svc := newMemoryService(repo, embedder)

	doc, err := svc.Remember(context.Background(), "uuid-1", "  likes green tea  ", map[string]any{"source": "chat"})
	require.NoError(t, err)
	assert.NotEmpty(t, doc.ID)
	assert.Equal(t, "likes green tea", doc.Content)
	assert.Equal(t, "likes green tea", embedder.lastText)
	assert.Equal(t, []float32{0.1, 0.2}, doc.Embedding)
	assert.Equal(t, "uuid-1", doc.OwnerID)
}

func TestRemember_ValidatesText(t *testing.T) {
	svc := newMemoryService(&fakeMemoryRepo{}, &fakeEmbedder{vec: []float32{1}})

	_, err := svc.Remember(context.Background(), "uuid-1", "   ", nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))

	_, err = svc.Remember(context.Background(), "uuid-1", strings.Repeat("a", maxMemoryContent+1), nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestRemember_RetriesTransientEmbedFailure(t *testing.T) {
	repo := &fakeMemoryRepo{}
	embedder := &fakeEmbedder{vec: []float32{1}, err: &upstreamStatusErr{status: 503}, failN: 2}
	svc := newMemoryService(repo, embedder)

	doc, err := svc.Remember(context.Background(), "uuid-1", "note", nil)
	require.NoError(t, err)
	assert.NotEmpty(t, doc.ID)
	assert.Equal(t, 3, embedder.calls)
}

func TestRemember_ExhaustedEmbedIsBadGateway(t *testing.T) {
	embedder := &fakeEmbedder{err: &upstreamStatusErr{status: 503}}
	svc := newMemoryService(&fakeMemoryRepo{}, embedder)

	_, err := svc.Remember(context.Background(), "uuid-1", "note", nil)
	require.Error(t, err)

	appErr := apperrors.Resolve(err)
	assert.Equal(t, 502, appErr.Status)
	assert.Equal(t, apperrors.CodeUpstream, appErr.Code)
	assert.Equal(t, 3, embedder.calls)
}

func TestRemember_NonRetryableEmbedFailsFast(t *testing.T) {
	embedder := &fakeEmbedder{err: &upstreamStatusErr{status: 401}}
	svc := newMemoryService(&fakeMemoryRepo{}, embedder)

	_, err := svc.Remember(context.Background(), "uuid-1", "note", nil)
	require.Error(t, err)
	assert.Equal(t, 1, embedder.calls)
}

func TestList_ClampsPaging(t *testing.T) {
	repo := &fakeMemoryRepo{page: domainmemory.Page{Total: 0, Documents: []domainmemory.Document{}}}
	svc := newMemoryService(repo, &fakeEmbedder{})

	_, err := svc.List(context.Background(), "uuid-1", domainmemory.ListFilter{Limit: 10_000, Offset: -5})
	require.NoError(t, err)
}

func TestForget(t *testing.T) {
	repo := &fakeMemoryRepo{}
	svc := newMemoryService(repo, &fakeEmbedder{})

	require.NoError(t, svc.Forget(context.Background(), "uuid-1", "doc-1"))
	assert.Equal(t, []string{"uuid-1/doc-1"}, repo.deleted)
}

func TestForget_MissingDocumentIs404(t *testing.T) {
	repo := &fakeMemoryRepo{deleteErr: data.ErrMemoryNotFound}
	svc := newMemoryService(repo, &fakeEmbedder{})

	err := svc.Forget(context.Background(), "uuid-1", "doc-unknown")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestForget_RequiresID(t *testing.T) {
	svc := newMemoryService(&fakeMemoryRepo{}, &fakeEmbedder{})

	err := svc.Forget(context.Background(), "uuid-1", "  ")
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}
