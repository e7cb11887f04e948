package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tracelens/tracelens/internal/analysis"
)

// Session is one registered analysis: a name, a loaded trace and usage
// timestamps for idle pruning.
type Session struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	CreatedAt  int64  `json:"created_at"`
	LastUsedAt int64  `json:"last_used_at"`
	EventCount int    `json:"event_count"`

	Trace *analysis.Trace `json:"-"`
}

// Store holds live analysis sessions. Sessions are independent of each
// other: dropping one never touches another's events.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*Session),
	}
}

// Create registers a new session around tr and returns a snapshot of it.
func (s *Store) Create(name string, tr *analysis.Trace) Session {
	now := time.Now().Unix()
	sess := &Session{
		ID:         uuid.NewString(),
		Name:       name,
		CreatedAt:  now,
		LastUsedAt: now,
		EventCount: tr.Len(),
		Trace:      tr,
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
	return *sess
}

// Get marks the session used and returns a snapshot of it. Callers never
// see the live struct: Get keeps writing LastUsedAt under the store lock,
// so handing out the pointer would let handlers read it unlocked. The
// Trace pointer is shared, which is safe because a Trace never mutates
// after loading.
func (s *Store) Get(id string) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return Session{}, false
	}
	sess.LastUsedAt = time.Now().Unix()
	return *sess, true
}

// List returns a snapshot of all sessions.
func (s *Store) List() []Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := make([]Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		list = append(list, *sess)
	}
	return list
}

// Delete removes a session. It reports whether the ID was present.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return false
	}
	delete(s.sessions, id)
	return true
}

// PruneIdle removes sessions unused for longer than timeout and returns
// how many were dropped.
func (s *Store) PruneIdle(timeout time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().Unix()
	timeoutSec := int64(timeout.Seconds())

	count := 0
	for id, sess := range s.sessions {
		if now-sess.LastUsedAt > timeoutSec {
			delete(s.sessions, id)
			count++
		}
	}
	return count
}

// StartCleanupLoop prunes idle sessions in the background until ctx is
// done.
func (s *Store) StartCleanupLoop(ctx context.Context, interval, timeout time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.PruneIdle(timeout)
			case <-ctx.Done():
				return
			}
		}
	}()
}
