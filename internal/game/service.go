package game

import "context"

// SessionStore abstracts how room sessions are kept (in-memory, Redis-backed).
type SessionStore interface {
	GetOrCreate(roomID string) *Session
	Get(roomID string) (*Session, bool)
	DeleteIfEmpty(roomID string)
}

// Factory builds a session for a room; stores call it on first use.
type Factory func(roomID string) *Session

// Service translates inbound intents into session transitions. Out-of-precondition
// intents are silently ignored: no state change, no notification.
type Service struct {
	sessions SessionStore
}

func NewService(sessions SessionStore) *Service {
	return &Service{sessions: sessions}
}

// Join adds a connection to a room, creating the session on first join.
func (s *Service) Join(ctx context.Context, roomID, connID, name string) {
	s.sessions.GetOrCreate(roomID).Join(connID, name)
}

// Start begins a game if the caller hosts an idle session.
func (s *Service) Start(ctx context.Context, roomID, connID string) {
	if session, ok := s.sessions.Get(roomID); ok {
		session.Start(ctx, connID)
	}
}

// Submit records an answer for the current round.
func (s *Service) Submit(ctx context.Context, roomID, connID, answer string, timeLeft float64) {
	if session, ok := s.sessions.Get(roomID); ok {
		session.Submit(ctx, connID, answer, timeLeft)
	}
}

// Chat rebroadcasts a participant's message to the room.
func (s *Service) Chat(roomID, connID, message string) {
	if session, ok := s.sessions.Get(roomID); ok {
		session.Chat(connID, message)
	}
}

// Disconnect removes a connection from its room and drops the session once
// the last participant is gone.
func (s *Service) Disconnect(roomID, connID string) {
	session, ok := s.sessions.Get(roomID)
	if !ok {
		return
	}
	session.Leave(connID)
	if session.IsEmpty() {
		s.sessions.DeleteIfEmpty(roomID)
	}
}
