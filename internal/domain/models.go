package domain

import "time"

// Phase is the coarse lifecycle state of a trivia session.
type Phase string

const (
	PhaseIdle          Phase = "idle"
	PhaseRoundActive   Phase = "round-active"
	PhaseRoundSettling Phase = "round-settling"
	PhaseEnded         Phase = "ended"
)

// Question is an immutable question-bank record.
type Question struct {
	Question string   `json:"question"`
	Answer   string   `json:"answer"`
	Options  []string `json:"options"`
	Image    string   `json:"image,omitempty"`
}

// Assignment is a participant's per-round question instance. Each participant
// owns an independent copy; Answered flips false->true exactly once, either on
// submission or on round timeout.
type Assignment struct {
	Question string
	Answer   string
	Options  []string
	Image    string
	IssuedAt time.Time
	Answered bool
}

// Participant represents a connected player and their accumulated score.
// Identity is the connection id, stable for the connection's lifetime.
type Participant struct {
	ID         string
	Name       string
	Score      int
	Assignment *Assignment
}

// LeaderboardEntry is a snapshot-friendly view of a participant.
type LeaderboardEntry struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Score int    `json:"score"`
}
