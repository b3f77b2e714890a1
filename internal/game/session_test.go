package game

import (
	"context"
	"sync"
	"testing"
	"time"

	"trivia-service/internal/domain"
)

type recordedEvent struct {
	conn    string // empty for broadcasts
	room    string
	name    string
	payload any
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []recordedEvent
	dead   map[string]bool
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{dead: make(map[string]bool)}
}

func (n *recordingNotifier) Broadcast(room, event string, payload any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, recordedEvent{room: room, name: event, payload: payload})
}

func (n *recordingNotifier) Unicast(conn, event string, payload any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, recordedEvent{conn: conn, name: event, payload: payload})
}

func (n *recordingNotifier) IsLive(conn string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return !n.dead[conn]
}

func (n *recordingNotifier) count(event string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, e := range n.events {
		if e.name == event {
			c++
		}
	}
	return c
}

func (n *recordingNotifier) countTo(conn, event string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, e := range n.events {
		if e.conn == conn && e.name == event {
			c++
		}
	}
	return c
}

func (n *recordingNotifier) last(event string) (recordedEvent, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i := len(n.events) - 1; i >= 0; i-- {
		if n.events[i].name == event {
			return n.events[i], true
		}
	}
	return recordedEvent{}, false
}

type fixedSource struct {
	q domain.Question
}

func (f fixedSource) Random(_ context.Context) (domain.Question, error) {
	return f.q, nil
}

func sampleQuestion() domain.Question {
	return domain.Question{
		Question: "What is 2 + 2?",
		Answer:   "4",
		Options:  []string{"3", "4", "5"},
	}
}

func testConfig() Config {
	return Config{
		RoundDuration: 60 * time.Millisecond,
		TotalRounds:   2,
		SettleDelay:   15 * time.Millisecond,
		ResetDelay:    25 * time.Millisecond,
	}
}

func newTestSession(cfg Config) (*Session, *recordingNotifier) {
	notify := newRecordingNotifier()
	s := NewSession("room-1", cfg, fixedSource{q: sampleQuestion()}, notify)
	return s, notify
}

// waitFor polls until cond holds or the deadline lapses.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("condition not met before deadline")
}

func TestFirstJoinerBecomesHost(t *testing.T) {
	s, notify := newTestSession(testConfig())

	s.Join("c1", "Alice")
	s.Join("c2", "Bob")

	if s.hostID != "c1" {
		t.Fatalf("expected c1 as host, got %q", s.hostID)
	}
	if notify.countTo("c1", EventSetAsHost) != 1 {
		t.Fatalf("expected exactly one set-as-host for c1")
	}
	if notify.countTo("c2", EventSetAsHost) != 0 {
		t.Fatalf("c2 must not receive set-as-host")
	}
	if notify.count(EventPlayerJoined) != 2 {
		t.Fatalf("expected 2 player-joined broadcasts, got %d", notify.count(EventPlayerJoined))
	}
}

func TestDuplicateJoinReplacesParticipant(t *testing.T) {
	s, _ := newTestSession(testConfig())

	s.Join("c1", "Alice")
	s.roster["c1"].Score = 40
	s.Join("c1", "Alicia")

	if len(s.order) != 1 {
		t.Fatalf("duplicate join must not grow the roster order, got %d entries", len(s.order))
	}
	p := s.roster["c1"]
	if p.Name != "Alicia" || p.Score != 0 {
		t.Fatalf("expected fresh participant after rejoin, got %+v", p)
	}
	if s.hostID != "c1" {
		t.Fatalf("rejoining host must keep the host role")
	}
}

func TestHostLeavePromotesOldestRemaining(t *testing.T) {
	s, notify := newTestSession(testConfig())

	s.Join("c1", "Alice")
	s.Join("c2", "Bob")
	s.Join("c3", "Cara")

	s.Leave("c1")

	if s.hostID != "c2" {
		t.Fatalf("expected c2 promoted to host, got %q", s.hostID)
	}
	if notify.countTo("c2", EventSetAsHost) != 1 {
		t.Fatalf("expected exactly one set-as-host for c2, got %d", notify.countTo("c2", EventSetAsHost))
	}
	if notify.count(EventPlayerLeft) != 1 {
		t.Fatalf("expected player-left broadcast")
	}
}

func TestLastLeaveResetsToIdle(t *testing.T) {
	s, _ := newTestSession(testConfig())

	s.Join("c1", "Alice")
	s.Start(context.Background(), "c1")
	s.Leave("c1")

	if !s.IsEmpty() {
		t.Fatalf("expected empty session")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != domain.PhaseIdle || s.round != 0 || s.hostID != "" {
		t.Fatalf("expected idle round-0 hostless session, got phase=%s round=%d host=%q", s.phase, s.round, s.hostID)
	}
}

func TestLeaderboardTieBreakKeepsJoinOrder(t *testing.T) {
	s, _ := newTestSession(testConfig())

	s.Join("c1", "Alice")
	s.Join("c2", "Bob")
	s.Join("c3", "Cara")
	s.roster["c1"].Score = 50
	s.roster["c2"].Score = 100
	s.roster["c3"].Score = 50

	s.mu.Lock()
	entries := s.leaderboardLocked()
	s.mu.Unlock()

	want := []string{"c2", "c1", "c3"}
	for i, id := range want {
		if entries[i].ID != id {
			t.Fatalf("expected order %v, got %+v", want, entries)
		}
	}
}

func TestChatRebroadcastsWithSenderAndTimestamp(t *testing.T) {
	ts := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	notify := newRecordingNotifier()
	s := NewSessionWithClock("room-1", testConfig(), fixedSource{q: sampleQuestion()}, notify, func() time.Time { return ts })

	s.Join("c1", "Alice")
	s.Chat("c1", "hello")
	s.Chat("ghost", "boo") // unknown sender, ignored

	if notify.count(EventChatMessage) != 1 {
		t.Fatalf("expected one chat broadcast, got %d", notify.count(EventChatMessage))
	}
	e, _ := notify.last(EventChatMessage)
	msg := e.payload.(ChatMessagePayload)
	if msg.Sender != "Alice" || msg.Message != "hello" || !msg.Timestamp.Equal(ts) {
		t.Fatalf("unexpected chat payload: %+v", msg)
	}
}

func TestJoinDuringGameIsQueued(t *testing.T) {
	s, notify := newTestSession(Config{
		RoundDuration: time.Hour, // round never times out during the test
		TotalRounds:   2,
		SettleDelay:   time.Hour,
		ResetDelay:    time.Hour,
	})

	s.Join("c1", "Alice")
	s.Start(context.Background(), "c1")
	s.Join("c2", "Bob")

	if notify.countTo("c2", EventWaitForNext) != 1 {
		t.Fatalf("expected wait-for-next-round for mid-game joiner")
	}
	if s.roster["c2"].Assignment != nil {
		t.Fatalf("queued participant must not hold an assignment")
	}
	e, ok := notify.last(EventGameStatus)
	if !ok {
		t.Fatalf("expected game-status unicast")
	}
	status := e.payload.(GameStatusPayload)
	if !status.IsActive || status.CanJoin {
		t.Fatalf("expected active/cannot-join status, got %+v", status)
	}
}
