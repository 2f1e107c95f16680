package chat

import (
	"context"
	"sync"
)

// Compile-time assertion that MemStore satisfies the Store interface.
var _ Store = (*MemStore)(nil)

// MemStore is a thread-safe, in-memory implementation of [Store].
// Sessions live for the lifetime of the process; there is no eviction.
// The zero value is ready to use.
type MemStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

// NewMemStore returns an initialised [MemStore].
func NewMemStore() *MemStore {
	return &MemStore{
		sessions: make(map[string]Session),
	}
}

// Get implements [Store.Get].
func (s *MemStore) Get(ctx context.Context, id string) (Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	return sess.clone(), nil
}

// Put implements [Store.Put].
func (s *MemStore) Put(ctx context.Context, session Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sessions == nil {
		s.sessions = make(map[string]Session)
	}
	s.sessions[session.ID] = session.clone()
	return nil
}

// Delete implements [Store.Delete].
func (s *MemStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(s.sessions, id)
	return nil
}
