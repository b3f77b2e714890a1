package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"trivia-service/internal/domain"
	"trivia-service/internal/game"
	"trivia-service/internal/infra/memory"
	"github.com/gorilla/websocket"
)

func newTestServer(t *testing.T) (*httptest.Server, *Hub) {
	t.Helper()

	bank := memory.NewQuestionBank(memory.NewStaticBankLoader([]domain.Question{
		{
			Question: "What is 2 + 2?",
			Answer:   "4",
			Options:  []string{"3", "4", "5"},
		},
	}), time.Minute)

	hub := NewHub()
	cfg := game.Config{
		RoundDuration: time.Hour, // rounds advance only through submissions here
		TotalRounds:   2,
		SettleDelay:   time.Hour,
		ResetDelay:    time.Hour,
	}
	factory := func(roomID string) *game.Session {
		return game.NewSession(roomID, cfg, bank, hub)
	}
	store := memory.NewSessionStore(factory)
	service := game.NewService(store)
	wsHandler := NewWSHandler(service, hub)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, hub
}

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	u := "ws" + server.URL[len("http"):] + "/ws?room=room-1"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestWebSocketJoinFlow(t *testing.T) {
	server, _ := newTestServer(t)
	conn := dial(t, server)

	send(conn, t, "join", map[string]any{"name": "Alice"})

	// First joiner: set-as-host, then the join broadcast and status unicast.
	readNext(conn, t, "set-as-host")
	_, joined := readNext(conn, t, "player-joined")
	if joined["name"] != "Alice" {
		t.Fatalf("expected join broadcast for Alice, got %v", joined)
	}
	_, status := readNext(conn, t, "game-status")
	if status["isActive"] != false || status["canJoin"] != true {
		t.Fatalf("expected joinable idle status, got %v", status)
	}
}

func TestWebSocketGameFlow(t *testing.T) {
	server, _ := newTestServer(t)
	conn := dial(t, server)

	send(conn, t, "join", map[string]any{"name": "Alice"})
	readNext(conn, t, "set-as-host")
	readNext(conn, t, "player-joined")
	readNext(conn, t, "game-status")

	send(conn, t, "start", nil)
	readNext(conn, t, "game-started")
	_, question := readNext(conn, t, "new-question")
	if question["question"] != "What is 2 + 2?" {
		t.Fatalf("expected the bank question, got %v", question)
	}
	if _, leaked := question["answer"]; leaked {
		t.Fatalf("question payload must not reveal the answer")
	}
	readNext(conn, t, "round-timer-start")

	send(conn, t, "submit-answer", map[string]any{"answer": "4", "timeLeft": 3600})
	_, result := readNext(conn, t, "answer-result")
	if result["correct"] != true || result["points"] != float64(200) {
		t.Fatalf("expected a 200-point correct result, got %v", result)
	}
	readNext(conn, t, "leaderboard-update")
}

func TestWebSocketChat(t *testing.T) {
	server, _ := newTestServer(t)
	conn := dial(t, server)

	send(conn, t, "join", map[string]any{"name": "Alice"})
	readNext(conn, t, "set-as-host")
	readNext(conn, t, "player-joined")
	readNext(conn, t, "game-status")

	send(conn, t, "chat", map[string]any{"message": "hello"})
	_, chat := readNext(conn, t, "new-chat-message")
	if chat["sender"] != "Alice" || chat["message"] != "hello" {
		t.Fatalf("unexpected chat payload: %v", chat)
	}
	if chat["timestamp"] == nil {
		t.Fatalf("expected server timestamp on chat message")
	}
}

func TestWebSocketDisconnectBroadcastsPlayerLeft(t *testing.T) {
	server, _ := newTestServer(t)

	host := dial(t, server)
	send(host, t, "join", map[string]any{"name": "Alice"})
	readNext(host, t, "set-as-host")
	readNext(host, t, "player-joined")
	readNext(host, t, "game-status")

	other := dial(t, server)
	send(other, t, "join", map[string]any{"name": "Bob"})
	readNext(host, t, "player-joined")

	other.Close()
	_, left := readNext(host, t, "player-left")
	if left["id"] == "" {
		t.Fatalf("expected player-left with the connection id, got %v", left)
	}
}

func send(conn *websocket.Conn, t *testing.T, msgType string, payload map[string]any) {
	t.Helper()
	msg := map[string]any{"type": msgType}
	if payload != nil {
		msg["payload"] = payload
	}
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write %s: %v", msgType, err)
	}
}

// readNext reads one message; object payloads are decoded into a map, array
// and null payloads yield an empty one.
func readNext(conn *websocket.Conn, t *testing.T, expect string) (string, map[string]any) {
	t.Helper()
	var msg struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if expect != "" && msg.Type != expect {
		t.Fatalf("expected type %s, got %s", expect, msg.Type)
	}
	payload := map[string]any{}
	if len(msg.Payload) > 0 && msg.Payload[0] == '{' {
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
	}
	return msg.Type, payload
}
