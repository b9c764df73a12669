package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	domainmemory "github.com/telewell/miniapp-api/internal/domain/memory"
	"github.com/telewell/miniapp-api/internal/ports"
)

// ErrMemoryNotFound is returned when a memory document is not found for the owner.
var ErrMemoryNotFound = errors.New("memory document not found")

// MemoryRepo provides database operations for memory documents. The service
// runs with service-role database access, so owner scoping is enforced here
// in every query rather than by row-level policies.
type MemoryRepo struct {
	pool         *pgxpool.Pool
	timeProvider TimeProvider
}

var _ ports.MemoryRepository = (*MemoryRepo)(nil)

// NewMemoryRepo creates a new MemoryRepo with real time provider.
func NewMemoryRepo(pool *pgxpool.Pool) *MemoryRepo {
	return &MemoryRepo{pool: pool, timeProvider: &RealTimeProvider{}}
}

// NewMemoryRepoWithTimeProvider creates a new MemoryRepo with a custom time provider (useful for tests).
func NewMemoryRepoWithTimeProvider(pool *pgxpool.Pool, tp TimeProvider) *MemoryRepo {
	return &MemoryRepo{pool: pool, timeProvider: tp}
}

const (
	memoryInsertQuery = `
		INSERT INTO memory_documents (owner_id, content, metadata, embedding, created_at)
		VALUES ($1, $2, $3, $4::vector, $5)
		RETURNING id, created_at`

	memorySearchQuery = `
		SELECT id, content, metadata, created_at,
		       1 - (embedding <=> $2::vector) AS similarity
		FROM memory_documents
		WHERE owner_id = $1 AND embedding IS NOT NULL
		ORDER BY embedding <=> $2::vector
		LIMIT $3`

	memorySourcesQuery = `
		SELECT DISTINCT metadata->>'source'
		FROM memory_documents
		WHERE owner_id = $1 AND metadata->>'source' IS NOT NULL
		ORDER BY 1`

	memoryDeleteQuery = `
		DELETE FROM memory_documents
		WHERE owner_id = $1 AND id = $2`
)

// Insert stores a document and returns it with its generated id and timestamp.
func (r *MemoryRepo) Insert(ctx context.Context, doc domainmemory.Document) (domainmemory.Document, error) {
	metadata := doc.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return domainmemory.Document{}, fmt.Errorf("marshal metadata: %w", err)
	}

	var embedding *string
	if len(doc.Embedding) > 0 {
		lit := VectorLiteral(doc.Embedding)
		embedding = &lit
	}

	createdAt := r.timeProvider.Now().UTC()
	out := doc
	out.Metadata = metadata
	out.CreatedAt = createdAt

	err = r.pool.QueryRow(ctx, memoryInsertQuery,
		doc.OwnerID,
		doc.Content,
		metadataJSON,
		embedding,
		createdAt,
	).Scan(&out.ID, &out.CreatedAt)
	if err != nil {
		return domainmemory.Document{}, fmt.Errorf("insert memory document: %w", err)
	}
	return out, nil
}

// Search returns the owner's documents ordered by cosine distance to the
// query embedding.
func (r *MemoryRepo) Search(ctx context.Context, ownerID string, embedding []float32, limit int) ([]domainmemory.Match, error) {
	if limit <= 0 {
		limit = 5
	}

	rows, err := r.pool.Query(ctx, memorySearchQuery, ownerID, VectorLiteral(embedding), limit)
	if err != nil {
		return nil, fmt.Errorf("search memory documents: %w", err)
	}
	defer rows.Close()

	matches := make([]domainmemory.Match, 0, limit)
	for rows.Next() {
		var (
			match        domainmemory.Match
			metadataJSON []byte
		)
		if err := rows.Scan(&match.ID, &match.Content, &metadataJSON, &match.CreatedAt, &match.Similarity); err != nil {
			return nil, fmt.Errorf("scan memory match: %w", err)
		}
		if err := json.Unmarshal(metadataJSON, &match.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
		match.OwnerID = ownerID
		matches = append(matches, match)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("search memory documents: %w", err)
	}
	return matches, nil
}

// List returns one page of the owner's documents, newest first, plus the
// total count for that filter and the owner's distinct metadata sources.
func (r *MemoryRepo) List(ctx context.Context, ownerID string, filter domainmemory.ListFilter) (domainmemory.Page, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := max(filter.Offset, 0)

	where, args := buildMemoryFilter(ownerID, filter)

	countQuery := "SELECT count(*) FROM memory_documents WHERE " + where
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return domainmemory.Page{}, fmt.Errorf("count memory documents: %w", err)
	}

	listQuery := fmt.Sprintf(`
		SELECT id, content, metadata, created_at
		FROM memory_documents
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`, where, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, listQuery, args...)
	if err != nil {
		return domainmemory.Page{}, fmt.Errorf("list memory documents: %w", err)
	}
	defer rows.Close()

	docs := make([]domainmemory.Document, 0, limit)
	for rows.Next() {
		var (
			doc          domainmemory.Document
			metadataJSON []byte
		)
		if err := rows.Scan(&doc.ID, &doc.Content, &metadataJSON, &doc.CreatedAt); err != nil {
			return domainmemory.Page{}, fmt.Errorf("scan memory document: %w", err)
		}
		if err := json.Unmarshal(metadataJSON, &doc.Metadata); err != nil {
			return domainmemory.Page{}, fmt.Errorf("unmarshal metadata: %w", err)
		}
		doc.OwnerID = ownerID
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return domainmemory.Page{}, fmt.Errorf("list memory documents: %w", err)
	}

	sources, err := r.listSources(ctx, ownerID)
	if err != nil {
		return domainmemory.Page{}, err
	}

	return domainmemory.Page{Documents: docs, Total: total, Sources: sources}, nil
}

// Delete removes one document. Deleting a document that does not exist, or
// that belongs to another owner, returns ErrMemoryNotFound.
func (r *MemoryRepo) Delete(ctx context.Context, ownerID, id string) error {
	ct, err := r.pool.Exec(ctx, memoryDeleteQuery, ownerID, id)
	if err != nil {
		return fmt.Errorf("delete memory document: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrMemoryNotFound
	}
	return nil
}

func (r *MemoryRepo) listSources(ctx context.Context, ownerID string) ([]string, error) {
	rows, err := r.pool.Query(ctx, memorySourcesQuery, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list memory sources: %w", err)
	}
	defer rows.Close()

	sources := []string{}
	for rows.Next() {
		var source string
		if err := rows.Scan(&source); err != nil {
			return nil, fmt.Errorf("scan memory source: %w", err)
		}
		sources = append(sources, source)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list memory sources: %w", err)
	}
	return sources, nil
}

// buildMemoryFilter builds the WHERE clause and args shared by the count and
// list queries.
func buildMemoryFilter(ownerID string, filter domainmemory.ListFilter) (string, []any) {
	parts := []string{"owner_id = $1"}
	args := []any{ownerID}

	if source := strings.TrimSpace(filter.Source); source != "" {
		args = append(args, source)
		parts = append(parts, fmt.Sprintf("metadata->>'source' = $%d", len(args)))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+search+"%")
		parts = append(parts, fmt.Sprintf("content ILIKE $%d", len(args)))
	}
	return strings.Join(parts, " AND "), args
}

// VectorLiteral renders an embedding as a pgvector text literal, e.g.
// "[0.1,0.2,0.3]".
func VectorLiteral(embedding []float32) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range embedding {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(v), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}
