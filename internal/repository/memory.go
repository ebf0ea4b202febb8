package repository

import (
	"context"
	"sync"
	"time"

	"people-partner/internal/domain"
)

// MemoryStore keeps sessions in process memory. Each session has its own
// lock, so appends to different sessions do not contend.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*memorySession
	now      func() time.Time
}

type memorySession struct {
	mu         sync.Mutex
	turns      []domain.Turn
	lastActive time.Time
	removed    bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*memorySession),
		now:      time.Now,
	}
}

func (s *MemoryStore) lookup(id string) *memorySession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[id]
}

func (s *MemoryStore) lookupOrCreate(id string) *memorySession {
	if sess := s.lookup(id); sess != nil {
		return sess
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[id]; ok {
		return sess
	}
	sess := &memorySession{lastActive: s.now()}
	s.sessions[id] = sess
	return sess
}

func (s *MemoryStore) History(_ context.Context, sessionID string, limit int) ([]domain.Turn, error) {
	sess := s.lookup(sessionID)
	if sess == nil {
		return nil, nil
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return tail(sess.turns, limit), nil
}

func (s *MemoryStore) Append(_ context.Context, sessionID string, turns ...domain.Turn) error {
	if len(turns) == 0 {
		return nil
	}
	for {
		sess := s.lookupOrCreate(sessionID)
		sess.mu.Lock()
		// Prune may have dropped the session between lookup and lock.
		if sess.removed {
			sess.mu.Unlock()
			continue
		}
		sess.turns = append(sess.turns, turns...)
		sess.lastActive = s.now()
		sess.mu.Unlock()
		return nil
	}
}

func (s *MemoryStore) Prune(_ context.Context, idleFor time.Duration) (int, error) {
	if idleFor <= 0 {
		return 0, nil
	}
	cutoff := s.now().Add(-idleFor)

	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, sess := range s.sessions {
		sess.mu.Lock()
		if sess.lastActive.Before(cutoff) {
			sess.removed = true
			delete(s.sessions, id)
			removed++
		}
		sess.mu.Unlock()
	}
	return removed, nil
}

// Len reports the number of live sessions.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *MemoryStore) Close() error {
	return nil
}
