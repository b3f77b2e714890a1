package redis

import (
	"context"
	"sync"
	"time"

	"trivia-service/internal/game"
	"github.com/redis/go-redis/v9"
)

// SessionStore is a Redis-aware implementation of game.SessionStore.
// Notes:
//   - Sessions themselves stay in-process; the round state machine relies on
//     a single mutex per session and cannot span instances.
//   - Redis marks room liveness so operators can see which rooms are running
//     (and it could be extended to route cross-instance pub/sub).
type SessionStore struct {
	client   *redis.Client
	ttl      time.Duration
	factory  game.Factory
	mu       sync.RWMutex
	sessions map[string]*game.Session
}

func NewSessionStore(client *redis.Client, ttl time.Duration, factory game.Factory) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
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
	// best-effort liveness marker
	_ = s.client.Set(context.Background(), s.key(roomID), "1", s.ttl).Err()
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
		_ = s.client.Del(context.Background(), s.key(roomID)).Err()
	}
}

func (s *SessionStore) key(roomID string) string {
	return "trivia:room:" + roomID
}
