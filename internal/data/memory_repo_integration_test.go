package data

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainmemory "github.com/telewell/miniapp-api/internal/domain/memory"
	"github.com/telewell/miniapp-api/internal/testutil"
)

func unitVector(dim, hot int) []float32 {
	v := make([]float32, dim)
	v[hot] = 1
	return v
}

func TestMemoryRepo_InsertAndList(t *testing.T) {
	pool := testutil.SetupTestPool(t)
	repo := NewMemoryRepo(pool)
	ctx := context.Background()

	doc, err := repo.Insert(ctx, domainmemory.Document{
		OwnerID:   "owner-1",
		Content:   "remember the milk",
		Metadata:  map[string]any{"source": "chat"},
		Embedding: unitVector(1536, 0),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, doc.ID)
	assert.WithinDuration(t, time.Now(), doc.CreatedAt, 5*time.Second)

	page, err := repo.List(ctx, "owner-1", domainmemory.ListFilter{})
	require.NoError(t, err)
	require.Len(t, page.Documents, 1)
	assert.Equal(t, 1, page.Total)
	assert.Equal(t, "remember the milk", page.Documents[0].Content)
	assert.Equal(t, "chat", page.Documents[0].Metadata["source"])
	assert.Equal(t, []string{"chat"}, page.Sources)
}

func TestMemoryRepo_InsertWithoutEmbedding(t *testing.T) {
	pool := testutil.SetupTestPool(t)
	repo := NewMemoryRepo(pool)
	ctx := context.Background()

	doc, err := repo.Insert(ctx, domainmemory.Document{
		OwnerID: "owner-1",
		Content: "plain note",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, doc.ID)
}

func TestMemoryRepo_SearchOrdersBySimilarity(t *testing.T) {
	pool := testutil.SetupTestPool(t)
	repo := NewMemoryRepo(pool)
	ctx := context.Background()

	near := unitVector(1536, 0)
	far := unitVector(1536, 1)

	_, err := repo.Insert(ctx, domainmemory.Document{OwnerID: "owner-1", Content: "near", Embedding: near})
	require.NoError(t, err)
	_, err = repo.Insert(ctx, domainmemory.Document{OwnerID: "owner-1", Content: "far", Embedding: far})
	require.NoError(t, err)
	// Another owner's document must never show up.
	_, err = repo.Insert(ctx, domainmemory.Document{OwnerID: "owner-2", Content: "other", Embedding: near})
	require.NoError(t, err)

	matches, err := repo.Search(ctx, "owner-1", near, 5)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "near", matches[0].Content)
	assert.InDelta(t, 1.0, matches[0].Similarity, 0.001)
	assert.Equal(t, "far", matches[1].Content)
	assert.Greater(t, matches[0].Similarity, matches[1].Similarity)
}

func TestMemoryRepo_ListFilters(t *testing.T) {
	pool := testutil.SetupTestPool(t)
	repo := NewMemoryRepo(pool)
	ctx := context.Background()

	seed := []domainmemory.Document{
		{OwnerID: "owner-1", Content: "grocery list", Metadata: map[string]any{"source": "chat"}},
		{OwnerID: "owner-1", Content: "meeting notes", Metadata: map[string]any{"source": "upload"}},
		{OwnerID: "owner-1", Content: "grocery receipt", Metadata: map[string]any{"source": "upload"}},
	}
	for _, doc := range seed {
		_, err := repo.Insert(ctx, doc)
		require.NoError(t, err)
	}

	bySource, err := repo.List(ctx, "owner-1", domainmemory.ListFilter{Source: "upload"})
	require.NoError(t, err)
	assert.Equal(t, 2, bySource.Total)
	assert.Len(t, bySource.Documents, 2)

	bySearch, err := repo.List(ctx, "owner-1", domainmemory.ListFilter{Search: "GROCERY"})
	require.NoError(t, err)
	assert.Equal(t, 2, bySearch.Total)

	both, err := repo.List(ctx, "owner-1", domainmemory.ListFilter{Source: "upload", Search: "grocery"})
	require.NoError(t, err)
	require.Len(t, both.Documents, 1)
	assert.Equal(t, "grocery receipt", both.Documents[0].Content)

	assert.ElementsMatch(t, []string{"chat", "upload"}, both.Sources)
}

func TestMemoryRepo_ListPagination(t *testing.T) {
	pool := testutil.SetupTestPool(t)
	tp := NewFixedTimeProvider(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	repo := NewMemoryRepoWithTimeProvider(pool, tp)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := repo.Insert(ctx, domainmemory.Document{OwnerID: "owner-1", Content: "note"})
		require.NoError(t, err)
		tp.AddTime(time.Minute)
	}

	page, err := repo.List(ctx, "owner-1", domainmemory.ListFilter{Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, page.Total)
	assert.Len(t, page.Documents, 2)
}

func TestMemoryRepo_Delete(t *testing.T) {
	pool := testutil.SetupTestPool(t)
	repo := NewMemoryRepo(pool)
	ctx := context.Background()

	doc, err := repo.Insert(ctx, domainmemory.Document{OwnerID: "owner-1", Content: "to delete"})
	require.NoError(t, err)

	// Another owner cannot delete it.
	err = repo.Delete(ctx, "owner-2", doc.ID)
	assert.ErrorIs(t, err, ErrMemoryNotFound)

	require.NoError(t, repo.Delete(ctx, "owner-1", doc.ID))

	err = repo.Delete(ctx, "owner-1", doc.ID)
	assert.ErrorIs(t, err, ErrMemoryNotFound)
}

func TestVectorLiteral(t *testing.T) {
	assert.Equal(t, "[0.1,0.2,0.3]", VectorLiteral([]float32{0.1, 0.2, 0.3}))
	assert.Equal(t, "[1,0,-1]", VectorLiteral([]float32{1, 0, -1}))
	assert.Equal(t, "[]", VectorLiteral(nil))
}
