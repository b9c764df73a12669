package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a process-local fixed-window store. Expired windows are
// swept opportunistically on writes so an idle key set does not grow forever.
type MemoryStore struct {
	mu      sync.Mutex
	windows map[string]*window
	// now is injectable for tests.
	now       func() time.Time
	lastSweep time.Time
}

type window struct {
	count   int64
	resetAt time.Time
}

const sweepInterval = time.Minute

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

// Incr implements Store.
func (s *MemoryStore) Incr(_ context.Context, key string, windowLen time.Duration) (int64, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.maybeSweep(now)

	w, ok := s.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Add(windowLen)}
		s.windows[key] = w
	}
	w.count++
	return w.count, w.resetAt, nil
}

// maybeSweep drops expired windows at most once per sweepInterval. Caller
// holds the lock.
func (s *MemoryStore) maybeSweep(now time.Time) {
	if now.Sub(s.lastSweep) < sweepInterval {
		return
	}
	s.lastSweep = now
	for key, w := range s.windows {
		if !now.Before(w.resetAt) {
			delete(s.windows, key)
		}
	}
}
