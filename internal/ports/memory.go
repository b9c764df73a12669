package ports

import (
	"context"

	domainmemory "github.com/telewell/miniapp-api/internal/domain/memory"
)

// MemoryRepository persists memory documents and their embeddings. Every
// operation is owner-scoped; a repository must never return or touch rows
// belonging to another owner.
type MemoryRepository interface {
	Insert(ctx context.Context, doc domainmemory.Document) (domainmemory.Document, error)
	Search(ctx context.Context, ownerID string, embedding []float32, limit int) ([]domainmemory.Match, error)
	List(ctx context.Context, ownerID string, filter domainmemory.ListFilter) (domainmemory.Page, error)
	Delete(ctx context.Context, ownerID, id string) error
}
