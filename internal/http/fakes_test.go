package httpx

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/telewell/miniapp-api/internal/data"
	domainmemory "github.com/telewell/miniapp-api/internal/domain/memory"
	"github.com/telewell/miniapp-api/internal/domain/telegram"
	"github.com/telewell/miniapp-api/internal/ports"
)

// Shared stubs for handler and middleware tests. Each stub implements just
// enough of its port to drive the HTTP layer; behavior is scripted per test.

type stubSessions struct {
	session ports.PlatformSession
	err     error

	mu    sync.Mutex
	calls []telegram.User
}

func (s *stubSessions) EnsureSession(_ context.Context, user telegram.User) (ports.PlatformSession, error) {
	s.mu.Lock()
	s.calls = append(s.calls, user)
	s.mu.Unlock()
	if s.err != nil {
		return ports.PlatformSession{}, s.err
	}
	return s.session, nil
}

type stubEmbedder struct {
	vector []float32
	err    error
}

func (e *stubEmbedder) Embed(context.Context, string) ([]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	return e.vector, nil
}

type stubStreamer struct {
	deltas       []string
	err          error
	lastMessages []ports.ChatMessage
}

func (s *stubStreamer) CompleteStream(_ context.Context, messages []ports.ChatMessage, onDelta func(string) error) error {
	s.lastMessages = messages
	for _, d := range s.deltas {
		if err := onDelta(d); err != nil {
			return err
		}
	}
	return s.err
}

type stubMemoryRepo struct {
	docs      map[string]domainmemory.Document
	matches   []domainmemory.Match
	page      domainmemory.Page
	insertErr error
	deleteErr error
	nextID    int
}

func newStubMemoryRepo() *stubMemoryRepo {
	return &stubMemoryRepo{docs: map[string]domainmemory.Document{}}
}

func (r *stubMemoryRepo) Insert(_ context.Context, doc domainmemory.Document) (domainmemory.Document, error) {
	if r.insertErr != nil {
		return domainmemory.Document{}, r.insertErr
	}
	r.nextID++
	doc.ID = fmt.Sprintf("doc-%d", r.nextID)
	doc.CreatedAt = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	r.docs[doc.ID] = doc
	return doc, nil
}

func (r *stubMemoryRepo) Search(context.Context, string, []float32, int) ([]domainmemory.Match, error) {
	return r.matches, nil
}

func (r *stubMemoryRepo) List(context.Context, string, domainmemory.ListFilter) (domainmemory.Page, error) {
	return r.page, nil
}

func (r *stubMemoryRepo) Delete(_ context.Context, _ string, id string) error {
	if r.deleteErr != nil {
		return r.deleteErr
	}
	if _, ok := r.docs[id]; !ok {
		return data.ErrMemoryNotFound
	}
	delete(r.docs, id)
	return nil
}

type stubSigner struct {
	signErr error
	statErr error
	info    *ports.ObjectInfo
}

func (s *stubSigner) SignUpload(_ context.Context, path string) (ports.SignedUpload, error) {
	if s.signErr != nil {
		return ports.SignedUpload{}, s.signErr
	}
	return ports.SignedUpload{
		URL:   "https://platform.test/storage/v1/upload/sign/" + path,
		Token: "signed-token",
		Path:  path,
	}, nil
}

func (s *stubSigner) Stat(context.Context, string) (*ports.ObjectInfo, error) {
	if s.statErr != nil {
		return nil, s.statErr
	}
	return s.info, nil
}

// withCaller attaches an authenticated caller to the request context,
// standing in for the auth middleware in handler-level tests.
func withCaller(ctx context.Context, userID string, telegramID int64) context.Context {
	return SetCallerInContext(ctx, &Caller{
		TelegramUser: telegram.User{ID: telegramID, FirstName: "Ada"},
		UserID:       userID,
		AccessToken:  "server-side-access-token",
	})
}

// ndjsonFrames splits an NDJSON body into its raw lines.
func ndjsonFrames(body string) []string {
	return strings.Split(strings.TrimRight(body, "\n"), "\n")
}
