package game

import (
	"context"
	"time"

	"trivia-service/internal/domain"
)

// Notifier is how the session emits events to connected clients. Delivery is
// fire-and-forget; the state machine never blocks on it.
type Notifier interface {
	Broadcast(room, event string, payload any)
	Unicast(connID, event string, payload any)
	IsLive(connID string) bool
}

// QuestionSource hands out random question records from the bank.
type QuestionSource interface {
	Random(ctx context.Context) (domain.Question, error)
}

// Event names on the wire.
const (
	EventSetAsHost       = "set-as-host"
	EventPlayerJoined    = "player-joined"
	EventGameStatus      = "game-status"
	EventLeaderboard     = "leaderboard-update"
	EventWaitForNext     = "wait-for-next-round"
	EventGameStarted     = "game-started"
	EventJoinCurrentGame = "join-current-game"
	EventNewQuestion     = "new-question"
	EventRoundTimerStart = "round-timer-start"
	EventAnswerResult    = "answer-result"
	EventChatMessage     = "new-chat-message"
	EventPlayerLeft      = "player-left"
	EventGameEnded       = "game-ended"
	EventGameReset       = "game-reset"
)

// Outbound payloads.

type PlayerJoinedPayload struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type PlayerLeftPayload struct {
	ID string `json:"id"`
}

type GameStatusPayload struct {
	IsActive     bool `json:"isActive"`
	CurrentRound int  `json:"currentRound"`
	TotalRounds  int  `json:"totalRounds"`
	CanJoin      bool `json:"canJoin"`
}

type GameStartedPayload struct {
	TotalRounds  int `json:"totalRounds"`
	CurrentRound int `json:"currentRound"`
}

// QuestionPayload deliberately excludes the correct answer.
type QuestionPayload struct {
	Question    string   `json:"question"`
	Image       string   `json:"image,omitempty"`
	Options     []string `json:"options"`
	Round       int      `json:"round"`
	TotalRounds int      `json:"totalRounds"`
}

type RoundTimerPayload struct {
	Duration float64 `json:"duration"` // seconds
}

type AnswerResultPayload struct {
	Correct       bool   `json:"correct"`
	Points        int    `json:"points"`
	CorrectAnswer string `json:"correctAnswer"`
	TimedOut      bool   `json:"timedOut,omitempty"`
}

type ChatMessagePayload struct {
	Sender    string    `json:"sender"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

type GameEndedPayload struct {
	Results []domain.LeaderboardEntry `json:"results"`
}
