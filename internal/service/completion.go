package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	domainmemory "github.com/telewell/miniapp-api/internal/domain/memory"
	apperrors "github.com/telewell/miniapp-api/internal/errors"
	"github.com/telewell/miniapp-api/internal/ports"
	"github.com/telewell/miniapp-api/internal/retry"
)

const (
	maxChatMessages = 50
	recallLimit     = 5
)

// StreamSink receives the frames of one streamed completion in order: Meta
// first, then zero or more Delta calls, then exactly one of Done or Error.
type StreamSink interface {
	Meta(meta StreamMeta) error
	Delta(text string) error
	Done() error
	Error(err error) error
}

// StreamMeta is the first frame of a completion stream.
type StreamMeta struct {
	// Model is the chat model serving this completion.
	Model string
	// Matches references the recalled memories injected as context.
	Matches []MatchRef
}

// MatchRef identifies one recalled memory and how similar it was to the prompt.
type MatchRef struct {
	ID         string  `json:"id"`
	Similarity float64 `json:"similarity"`
}

// CompletionServiceOptions groups dependencies for CompletionService.
type CompletionServiceOptions struct {
	Streamer   ports.ChatStreamer
	Embedder   ports.Embedder
	Memories   ports.MemoryRepository
	ChatModel  string
	Timeout    time.Duration
	MaxRetries int
	Logger     *slog.Logger
}

// CompletionService streams chat completions enriched with recalled memories.
type CompletionService struct {
	streamer   ports.ChatStreamer
	embedder   ports.Embedder
	memories   ports.MemoryRepository
	chatModel  string
	timeout    time.Duration
	maxRetries int
	logger     *slog.Logger
}

// NewCompletionService constructs a new CompletionService.
func NewCompletionService(opts CompletionServiceOptions) *CompletionService {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &CompletionService{
		streamer:   opts.Streamer,
		embedder:   opts.Embedder,
		memories:   opts.Memories,
		chatModel:  opts.ChatModel,
		timeout:    opts.Timeout,
		maxRetries: opts.MaxRetries,
		logger:     logger,
	}
}

// Complete streams a completion for the conversation into sink.
//
// Validation errors are returned before any frame is written, so the handler
// can still render a plain error response. Once streaming starts, failures
// are delivered as an Error frame instead; the stream is never retried
// because deltas may already have reached the client.
func (s *CompletionService) Complete(ctx context.Context, ownerID string, messages []ports.ChatMessage, sink StreamSink) error {
	if err := validateMessages(messages); err != nil {
		return err
	}

	recalled := s.recall(ctx, ownerID, messages)

	refs := make([]MatchRef, 0, len(recalled))
	for _, match := range recalled {
		refs = append(refs, MatchRef{ID: match.ID, Similarity: match.Similarity})
	}
	if err := sink.Meta(StreamMeta{Model: s.chatModel, Matches: refs}); err != nil {
		return err
	}

	streamErr := s.streamer.CompleteStream(ctx, withContext(messages, recalled), sink.Delta)
	if streamErr != nil {
		appErr := apperrors.Resolve(mapUpstreamErr("completion", streamErr))
		s.logger.Error("completion stream failed",
			slog.String("owner_id", ownerID),
			slog.String("error", streamErr.Error()))
		if sinkErr := sink.Error(appErr); sinkErr != nil {
			return sinkErr
		}
		return appErr
	}
	return sink.Done()
}

func validateMessages(messages []ports.ChatMessage) error {
	if len(messages) == 0 {
		return apperrors.ValidationField("messages", "messages are required")
	}
	if len(messages) > maxChatMessages {
		return apperrors.ValidationField("messages", "too many messages")
	}
	for _, msg := range messages {
		switch msg.Role {
		case "system", "user", "assistant":
		default:
			return apperrors.ValidationField("messages", "role must be system, user or assistant")
		}
		if strings.TrimSpace(msg.Content) == "" {
			return apperrors.ValidationField("messages", "message content is required")
		}
	}
	return nil
}

// recall fetches the owner's memories most similar to the latest user
// message. Recall is best effort: on any failure the completion proceeds
// without injected context.
func (s *CompletionService) recall(ctx context.Context, ownerID string, messages []ports.ChatMessage) []domainmemory.Match {
	query := lastUserMessage(messages)
	if query == "" {
		return nil
	}

	opts := retry.Options{
		Name:       "recall-embed",
		Timeout:    s.timeout,
		MaxRetries: s.maxRetries,
	}
	embedding, err := retry.Do(ctx, opts, func(ctx context.Context) ([]float32, error) {
		return s.embedder.Embed(ctx, query)
	})
	if err != nil {
		s.logger.Warn("memory recall embedding failed", slog.String("error", err.Error()))
		return nil
	}

	matches, err := s.memories.Search(ctx, ownerID, embedding, recallLimit)
	if err != nil {
		s.logger.Warn("memory recall search failed", slog.String("error", err.Error()))
		return nil
	}
	return matches
}

func lastUserMessage(messages []ports.ChatMessage) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			return messages[i].Content
		}
	}
	return ""
}

// withContext prepends a system message carrying the recalled memories. The
// caller's own system message, if any, stays first.
func withContext(messages []ports.ChatMessage, recalled []domainmemory.Match) []ports.ChatMessage {
	if len(recalled) == 0 {
		return messages
	}

	var b strings.Builder
	b.WriteString("Relevant information about the user from previous conversations:\n")
	for _, match := range recalled {
		b.WriteString("- ")
		b.WriteString(match.Content)
		b.WriteString("\n")
	}
	contextMsg := ports.ChatMessage{Role: "system", Content: b.String()}

	out := make([]ports.ChatMessage, 0, len(messages)+1)
	if len(messages) > 0 && messages[0].Role == "system" {
		out = append(out, messages[0], contextMsg)
		out = append(out, messages[1:]...)
		return out
	}
	out = append(out, contextMsg)
	out = append(out, messages...)
	return out
}
