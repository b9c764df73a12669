package service

import (
	"context"
	"errors"
	"strings"

	domainmemory "github.com/telewell/miniapp-api/internal/domain/memory"
	"github.com/telewell/miniapp-api/internal/ports"
)

// fakeAuthPlatform scripts sign-in outcomes per call and records activity.
type fakeAuthPlatform struct {
	signInErrs  []error
	signInCalls int
	createErr   error
	createCalls int
	lastCreate  ports.CreateUserInput
	session     ports.PlatformSession
}

func (f *fakeAuthPlatform) SignIn(ctx context.Context, email, password string) (ports.PlatformSession, error) {
	idx := f.signInCalls
	f.signInCalls++
	if idx < len(f.signInErrs) && f.signInErrs[idx] != nil {
		return ports.PlatformSession{}, f.signInErrs[idx]
	}
	return f.session, nil
}

func (f *fakeAuthPlatform) CreateUser(ctx context.Context, in ports.CreateUserInput) error {
	f.createCalls++
	f.lastCreate = in
	return f.createErr
}

func (f *fakeAuthPlatform) IsAlreadyRegistered(err error) bool {
	return err != nil && strings.Contains(err.Error(), "already registered")
}

// fakeEmbedder returns a fixed vector, optionally failing the first N calls.
type fakeEmbedder struct {
	vec      []float32
	err      error
	failN    int
	calls    int
	lastText string
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	f.lastText = text
	if f.err != nil && (f.failN == 0 || f.calls <= f.failN) {
		return nil, f.err
	}
	return f.vec, nil
}

// fakeStreamer emits scripted deltas, optionally failing before or after them.
type fakeStreamer struct {
	deltas       []string
	errBefore    error
	errAfter     error
	lastMessages []ports.ChatMessage
}

func (f *fakeStreamer) CompleteStream(ctx context.Context, messages []ports.ChatMessage, onDelta func(string) error) error {
	f.lastMessages = messages
	if f.errBefore != nil {
		return f.errBefore
	}
	for _, delta := range f.deltas {
		if err := onDelta(delta); err != nil {
			return err
		}
	}
	return f.errAfter
}

// fakeMemoryRepo is an in-memory ports.MemoryRepository.
type fakeMemoryRepo struct {
	docs      []domainmemory.Document
	insertErr error
	searchErr error
	matches   []domainmemory.Match
	deleted   []string
	deleteErr error
	listErr   error
	page      domainmemory.Page
}

func (f *fakeMemoryRepo) Insert(ctx context.Context, doc domainmemory.Document) (domainmemory.Document, error) {
	if f.insertErr != nil {
		return domainmemory.Document{}, f.insertErr
	}
	doc.ID = "doc-" + strings.Repeat("x", len(f.docs)+1)
	f.docs = append(f.docs, doc)
	return doc, nil
}

func (f *fakeMemoryRepo) Search(ctx context.Context, ownerID string, embedding []float32, limit int) ([]domainmemory.Match, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.matches, nil
}

func (f *fakeMemoryRepo) List(ctx context.Context, ownerID string, filter domainmemory.ListFilter) (domainmemory.Page, error) {
	if f.listErr != nil {
		return domainmemory.Page{}, f.listErr
	}
	return f.page, nil
}

func (f *fakeMemoryRepo) Delete(ctx context.Context, ownerID, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, ownerID+"/"+id)
	return nil
}

// fakeSigner is a scripted ports.StorageSigner.
type fakeSigner struct {
	signedPath string
	signErr    error
	info       *ports.ObjectInfo
	statErr    error
	statPath   string
}

func (f *fakeSigner) SignUpload(ctx context.Context, path string) (ports.SignedUpload, error) {
	if f.signErr != nil {
		return ports.SignedUpload{}, f.signErr
	}
	f.signedPath = path
	return ports.SignedUpload{
		URL:   "https://storage.example/upload/" + path,
		Token: "token-abc",
		Path:  path,
	}, nil
}

func (f *fakeSigner) Stat(ctx context.Context, path string) (*ports.ObjectInfo, error) {
	f.statPath = path
	if f.statErr != nil {
		return nil, f.statErr
	}
	return f.info, nil
}

// frame records one sink event for assertions.
type frame struct {
	kind string
	text string
	meta StreamMeta
	err  error
}

// recordingSink captures the frame sequence of a stream.
type recordingSink struct {
	frames   []frame
	deltaErr error
}

func (s *recordingSink) Meta(meta StreamMeta) error {
	s.frames = append(s.frames, frame{kind: "meta", meta: meta})
	return nil
}

func (s *recordingSink) Delta(text string) error {
	if s.deltaErr != nil {
		return s.deltaErr
	}
	s.frames = append(s.frames, frame{kind: "delta", text: text})
	return nil
}

func (s *recordingSink) Done() error {
	s.frames = append(s.frames, frame{kind: "done"})
	return nil
}

func (s *recordingSink) Error(err error) error {
	s.frames = append(s.frames, frame{kind: "error", err: err})
	return nil
}

var errAlreadyRegistered = errors.New("a user with this email address is already registered")
