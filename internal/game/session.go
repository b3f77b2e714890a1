package game

import (
	"sort"
	"sync"
	"time"

	"trivia-service/internal/domain"
)

// Config carries the session timing constants. All of them are overridable
// from the YAML config.
type Config struct {
	RoundDuration time.Duration
	TotalRounds   int
	SettleDelay   time.Duration
	ResetDelay    time.Duration
}

// DefaultConfig returns the standard game timings.
func DefaultConfig() Config {
	return Config{
		RoundDuration: 15 * time.Second,
		TotalRounds:   10,
		SettleDelay:   2 * time.Second,
		ResetDelay:    10 * time.Second,
	}
}

// Session is the authoritative in-memory model of one trivia room: who is
// playing, who hosts, which round is live and what each participant has been
// asked. Every transition runs to completion under a single mutex, so no two
// mutations ever interleave.
type Session struct {
	id        string
	cfg       Config
	questions QuestionSource
	notify    Notifier
	now       func() time.Time

	mu      sync.Mutex
	phase   domain.Phase
	round   int
	hostID  string
	roster  map[string]*domain.Participant
	order   []string // insertion order, drives host promotion and tie-breaks
	waiting []string // joined mid-game, deferred to the next round boundary

	// Generation counters make superseded timer callbacks inert: a callback
	// only acts if its captured generation still matches.
	roundGen, settleGen, resetGen       uint64
	roundTimer, settleTimer, resetTimer *time.Timer
}

// NewSession builds an idle session for one room.
func NewSession(id string, cfg Config, questions QuestionSource, notify Notifier) *Session {
	return NewSessionWithClock(id, cfg, questions, notify, time.Now)
}

// NewSessionWithClock allows deterministic timestamps in tests.
func NewSessionWithClock(id string, cfg Config, questions QuestionSource, notify Notifier, now func() time.Time) *Session {
	if cfg.TotalRounds <= 0 {
		cfg = DefaultConfig()
	}
	return &Session{
		id:        id,
		cfg:       cfg,
		questions: questions,
		notify:    notify,
		now:       now,
		phase:     domain.PhaseIdle,
		roster:    make(map[string]*domain.Participant),
	}
}

// Join registers a participant. The first joiner becomes host. Joining while a
// game is in progress parks the connection in the waiting queue until the next
// round boundary. A duplicate join from the same id replaces the prior
// participant but keeps its roster position.
func (s *Session) Join(connID, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wasEmpty := len(s.roster) == 0
	if _, ok := s.roster[connID]; !ok {
		s.order = append(s.order, connID)
	}
	s.roster[connID] = &domain.Participant{ID: connID, Name: name}

	if wasEmpty {
		s.hostID = connID
		s.notify.Unicast(connID, EventSetAsHost, nil)
	}

	inProgress := s.inProgressLocked()
	s.notify.Broadcast(s.id, EventPlayerJoined, PlayerJoinedPayload{ID: connID, Name: name})
	s.notify.Unicast(connID, EventGameStatus, GameStatusPayload{
		IsActive:     inProgress,
		CurrentRound: s.round,
		TotalRounds:  s.cfg.TotalRounds,
		CanJoin:      !inProgress,
	})

	if inProgress && !s.isWaitingLocked(connID) {
		s.waiting = append(s.waiting, connID)
		s.notify.Unicast(connID, EventWaitForNext, nil)
	}
}

// Leave removes a participant. The oldest remaining participant inherits the
// host role; when the roster empties the session snaps back to idle
// immediately, cancelling any outstanding timers.
func (s *Session) Leave(connID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.roster[connID]; !ok {
		return
	}
	delete(s.roster, connID)
	s.order = removeID(s.order, connID)
	s.waiting = removeID(s.waiting, connID)

	s.notify.Broadcast(s.id, EventPlayerLeft, PlayerLeftPayload{ID: connID})

	if len(s.roster) == 0 {
		s.resetLocked()
		return
	}
	if s.hostID == connID {
		s.hostID = s.order[0]
		s.notify.Unicast(s.hostID, EventSetAsHost, nil)
	}
}

// IsEmpty reports whether the session has no participants.
func (s *Session) IsEmpty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.roster) == 0
}

// Chat rebroadcasts a message from a known participant with the sender's name
// and a server timestamp. Unknown senders are ignored.
func (s *Session) Chat(connID, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.roster[connID]
	if !ok {
		return
	}
	s.notify.Broadcast(s.id, EventChatMessage, ChatMessagePayload{
		Sender:    p.Name,
		Message:   message,
		Timestamp: s.now(),
	})
}

// resetLocked returns the session to idle: round zero, no pending timers, host
// re-derived from roster order (or none).
func (s *Session) resetLocked() {
	s.cancelRoundTimerLocked()
	s.cancelSettleTimerLocked()
	s.cancelResetTimerLocked()
	s.phase = domain.PhaseIdle
	s.round = 0
	s.waiting = nil
	for _, p := range s.roster {
		p.Assignment = nil
	}
	if len(s.order) > 0 {
		s.hostID = s.order[0]
	} else {
		s.hostID = ""
	}
}

// promoteWaitingLocked flushes the waiting queue into active play. Called only
// at a round boundary. Liveness is checked defensively; a dead connection has
// already been or is about to be removed by its disconnect intent.
func (s *Session) promoteWaitingLocked() {
	for _, id := range s.waiting {
		if s.notify.IsLive(id) {
			s.notify.Unicast(id, EventJoinCurrentGame, nil)
		}
	}
	s.waiting = nil
}

func (s *Session) isWaitingLocked(connID string) bool {
	for _, id := range s.waiting {
		if id == connID {
			return true
		}
	}
	return false
}

// inProgressLocked reports whether a game is running (rounds live or
// settling). The ended phase counts as not in progress: late joiners simply
// wait out the reset delay as regular roster members.
func (s *Session) inProgressLocked() bool {
	return s.phase == domain.PhaseRoundActive || s.phase == domain.PhaseRoundSettling
}

// activeLocked returns the round participants in roster order, skipping the
// waiting queue.
func (s *Session) activeLocked() []*domain.Participant {
	out := make([]*domain.Participant, 0, len(s.order))
	for _, id := range s.order {
		if s.isWaitingLocked(id) {
			continue
		}
		if p, ok := s.roster[id]; ok {
			out = append(out, p)
		}
	}
	return out
}

// leaderboardLocked snapshots all participants sorted by score descending;
// ties keep roster order, so earlier joiners rank higher.
func (s *Session) leaderboardLocked() []domain.LeaderboardEntry {
	entries := make([]domain.LeaderboardEntry, 0, len(s.order))
	for _, id := range s.order {
		if p, ok := s.roster[id]; ok {
			entries = append(entries, domain.LeaderboardEntry{ID: p.ID, Name: p.Name, Score: p.Score})
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score > entries[j].Score
	})
	return entries
}

func removeID(ids []string, id string) []string {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
