package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/telewell/miniapp-api/internal/data"
	domainmemory "github.com/telewell/miniapp-api/internal/domain/memory"
	apperrors "github.com/telewell/miniapp-api/internal/errors"
	"github.com/telewell/miniapp-api/internal/ports"
	"github.com/telewell/miniapp-api/internal/retry"
)

const (
	// maxMemoryContent bounds stored text; anything longer should be chunked
	// by the client before embedding.
	maxMemoryContent = 12000

	maxListLimit     = 50
	defaultListLimit = 50
)

// MemoryServiceOptions groups dependencies for MemoryService.
type MemoryServiceOptions struct {
	Memories   ports.MemoryRepository
	Embedder   ports.Embedder
	Timeout    time.Duration
	MaxRetries int
	Logger     *slog.Logger
}

// MemoryService embeds and stores memory documents and serves reads over them.
type MemoryService struct {
	memories   ports.MemoryRepository
	embedder   ports.Embedder
	timeout    time.Duration
	maxRetries int
	logger     *slog.Logger
}

// NewMemoryService constructs a new MemoryService.
func NewMemoryService(opts MemoryServiceOptions) *MemoryService {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &MemoryService{
		memories:   opts.Memories,
		embedder:   opts.Embedder,
		timeout:    opts.Timeout,
		maxRetries: opts.MaxRetries,
		logger:     logger,
	}
}

// Remember embeds content and stores it as a memory document for the owner.
// The embedding call is retried on transient failures; an exhausted call
// fails the request, nothing is stored without its vector.
func (s *MemoryService) Remember(ctx context.Context, ownerID, content string, metadata map[string]any) (domainmemory.Document, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return domainmemory.Document{}, apperrors.ValidationField("content", "content is required")
	}
	if len(content) > maxMemoryContent {
		return domainmemory.Document{}, apperrors.ValidationField("content", "content is too long")
	}

	embedding, err := s.embed(ctx, content)
	if err != nil {
		return domainmemory.Document{}, mapUpstreamErr("embedding", err)
	}

	doc, err := s.memories.Insert(ctx, domainmemory.Document{
		OwnerID:   ownerID,
		Content:   content,
		Metadata:  metadata,
		Embedding: embedding,
	})
	if err != nil {
		return domainmemory.Document{}, apperrors.MapDBError(err)
	}
	return doc, nil
}

// List returns one page of the owner's documents.
func (s *MemoryService) List(ctx context.Context, ownerID string, filter domainmemory.ListFilter) (domainmemory.Page, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	page, err := s.memories.List(ctx, ownerID, filter)
	if err != nil {
		return domainmemory.Page{}, apperrors.MapDBError(err)
	}
	return page, nil
}

// Forget deletes one of the owner's documents.
func (s *MemoryService) Forget(ctx context.Context, ownerID, id string) error {
	if strings.TrimSpace(id) == "" {
		return apperrors.ValidationField("id", "id is required")
	}
	if err := s.memories.Delete(ctx, ownerID, id); err != nil {
		if errors.Is(err, data.ErrMemoryNotFound) {
			return apperrors.NotFound(apperrors.CodeMemoryNotFound, "memory not found")
		}
		return apperrors.MapDBError(err)
	}
	return nil
}

func (s *MemoryService) embed(ctx context.Context, text string) ([]float32, error) {
	opts := retry.Options{
		Name:       "embed",
		Timeout:    s.timeout,
		MaxRetries: s.maxRetries,
		OnRetry: func(attempt int, err error) {
			s.logger.Warn("retrying embedding call",
				slog.Int("attempt", attempt),
				slog.String("error", err.Error()))
		},
	}
	return retry.Do(ctx, opts, func(ctx context.Context) ([]float32, error) {
		return s.embedder.Embed(ctx, text)
	})
}
