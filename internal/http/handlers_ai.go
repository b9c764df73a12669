package httpx

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	domainmemory "github.com/telewell/miniapp-api/internal/domain/memory"
	apperrors "github.com/telewell/miniapp-api/internal/errors"
	"github.com/telewell/miniapp-api/internal/ports"
	"github.com/telewell/miniapp-api/internal/service"
)

// maxPromptLen bounds a completion prompt.
const maxPromptLen = 4000

// AIHandlers serves the embedding, completion and memory endpoints.
type AIHandlers struct {
	Completions *service.CompletionService
	Memories    *service.MemoryService
	Logger      *slog.Logger
}

type embedRequest struct {
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type embedResponse struct {
	DocumentID string `json:"documentId"`
}

// Embed embeds the content and stores it as a memory document for the caller.
func (h *AIHandlers) Embed(w http.ResponseWriter, r *http.Request) {
	caller, ok := GetCallerFromContext(r.Context())
	if !ok {
		WriteAppError(w, r, h.Logger, apperrors.Auth("authentication required"))
		return
	}

	var req embedRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteAppError(w, r, h.Logger, err)
		return
	}

	doc, err := h.Memories.Remember(r.Context(), caller.UserID, req.Content, req.Metadata)
	if err != nil {
		WriteAppError(w, r, h.Logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, embedResponse{DocumentID: doc.ID})
}

type completeRequest struct {
	Prompt string `json:"prompt"`
}

// Complete streams a completion as NDJSON frames. Validation failures are
// plain JSON errors; once the first frame is out, failures become an error
// frame because the status line is already committed.
func (h *AIHandlers) Complete(w http.ResponseWriter, r *http.Request) {
	caller, ok := GetCallerFromContext(r.Context())
	if !ok {
		WriteAppError(w, r, h.Logger, apperrors.Auth("authentication required"))
		return
	}

	var req completeRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteAppError(w, r, h.Logger, err)
		return
	}
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		WriteAppError(w, r, h.Logger, apperrors.ValidationField("prompt", "prompt is required"))
		return
	}
	if len(prompt) > maxPromptLen {
		WriteAppError(w, r, h.Logger, apperrors.ValidationField("prompt", "prompt is too long"))
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		WriteAppError(w, r, h.Logger, apperrors.Internal("streaming unsupported"))
		return
	}

	sink := &ndjsonSink{w: w, flusher: flusher}
	messages := []ports.ChatMessage{{Role: "user", Content: prompt}}
	if err := h.Completions.Complete(r.Context(), caller.UserID, messages, sink); err != nil {
		if !sink.started {
			WriteAppError(w, r, h.Logger, err)
			return
		}
		// The error frame is already on the wire; just record it.
		h.Logger.Error("completion stream ended with error",
			slog.String("request_id", RequestIDFromContext(r.Context())),
			slog.String("error", err.Error()))
	}
}

// ndjsonSink writes stream frames as newline-delimited JSON, flushing after
// each frame so deltas reach the client immediately. It accumulates deltas to
// include the full text in the done frame.
type ndjsonSink struct {
	w       http.ResponseWriter
	flusher http.Flusher
	started bool
	text    strings.Builder
}

func (s *ndjsonSink) Meta(meta service.StreamMeta) error {
	s.w.Header().Set("Content-Type", "application/x-ndjson")
	s.w.Header().Set("Cache-Control", "no-cache")
	s.w.WriteHeader(http.StatusOK)
	s.started = true

	matches := meta.Matches
	if matches == nil {
		matches = []service.MatchRef{}
	}
	return s.writeFrame(map[string]any{"type": "meta", "matches": matches})
}

func (s *ndjsonSink) Delta(text string) error {
	s.text.WriteString(text)
	return s.writeFrame(map[string]any{"type": "text-delta", "delta": text})
}

func (s *ndjsonSink) Done() error {
	return s.writeFrame(map[string]any{"type": "done", "text": s.text.String()})
}

func (s *ndjsonSink) Error(err error) error {
	appErr := apperrors.Resolve(err)
	return s.writeFrame(map[string]any{"type": "error", "error": appErr.Message, "code": string(appErr.Code)})
}

func (s *ndjsonSink) writeFrame(frame map[string]any) error {
	payload, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	if _, err := s.w.Write(append(payload, '\n')); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

type memoryListResponse struct {
	Items   []memoryItem `json:"items"`
	Total   int          `json:"total"`
	Sources []string     `json:"sources"`
}

type memoryItem struct {
	ID        string         `json:"id"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata"`
	CreatedAt string         `json:"createdAt"`
}

// MemoryList returns one page of the caller's memory documents.
func (h *AIHandlers) MemoryList(w http.ResponseWriter, r *http.Request) {
	caller, ok := GetCallerFromContext(r.Context())
	if !ok {
		WriteAppError(w, r, h.Logger, apperrors.Auth("authentication required"))
		return
	}

	filter, err := parseListFilter(r)
	if err != nil {
		WriteAppError(w, r, h.Logger, err)
		return
	}

	page, err := h.Memories.List(r.Context(), caller.UserID, filter)
	if err != nil {
		WriteAppError(w, r, h.Logger, err)
		return
	}

	items := make([]memoryItem, 0, len(page.Documents))
	for _, doc := range page.Documents {
		items = append(items, memoryItem{
			ID:        doc.ID,
			Content:   doc.Content,
			Metadata:  doc.Metadata,
			CreatedAt: doc.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	sources := page.Sources
	if sources == nil {
		sources = []string{}
	}
	WriteJSON(w, http.StatusOK, memoryListResponse{Items: items, Total: page.Total, Sources: sources})
}

func parseListFilter(r *http.Request) (domainmemory.ListFilter, error) {
	query := r.URL.Query()
	filter := domainmemory.ListFilter{
		Source: query.Get("source"),
		Search: query.Get("search"),
	}

	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return domainmemory.ListFilter{}, apperrors.ValidationField("limit", "limit must be a positive integer")
		}
		filter.Limit = limit
	}
	if raw := query.Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return domainmemory.ListFilter{}, apperrors.ValidationField("offset", "offset must be a non-negative integer")
		}
		filter.Offset = offset
	}
	return filter, nil
}

type memoryDeleteRequest struct {
	ID string `json:"id"`
}

type memoryDeleteResponse struct {
	Deleted bool   `json:"deleted"`
	ID      string `json:"id"`
}

// MemoryDelete removes one of the caller's memory documents.
func (h *AIHandlers) MemoryDelete(w http.ResponseWriter, r *http.Request) {
	caller, ok := GetCallerFromContext(r.Context())
	if !ok {
		WriteAppError(w, r, h.Logger, apperrors.Auth("authentication required"))
		return
	}

	var req memoryDeleteRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteAppError(w, r, h.Logger, err)
		return
	}

	if err := h.Memories.Forget(r.Context(), caller.UserID, req.ID); err != nil {
		WriteAppError(w, r, h.Logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, memoryDeleteResponse{Deleted: true, ID: req.ID})
}
