package memory

import (
	"sync"

	"trivia-service/internal/game"
)

// SessionStore is an in-memory implementation of game.SessionStore.
type SessionStore struct {
	factory  game.Factory
	mu       sync.RWMutex
	sessions map[string]*game.Session
}

func NewSessionStore(factory game.Factory) *SessionStore {
	return &SessionStore{
		factory:  factory,
		sessions: make(map[string]*game.Session),
	}
}

func (s *SessionStore) GetOrCreate(roomID string) *game.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.sessions[roomID]; ok {
		return session
	}
	session := s.factory(roomID)
	s.sessions[roomID] = session
	return session
}

func (s *SessionStore) Get(roomID string) (*game.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[roomID]
	return session, ok
}

func (s *SessionStore) DeleteIfEmpty(roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[roomID]
	if !ok {
		return
	}
	if session.IsEmpty() {
		delete(s.sessions, roomID)
	}
}
