package game

import (
	"context"
	"log"
	"time"

	"trivia-service/internal/domain"
)

// Round lifecycle. All transitions run under the session mutex; the
// "all answered" early completion and the round timer expiry are mutually
// exclusive outcomes of the same race, resolved by timer cancellation rather
// than after-the-fact state checks.

// Start begins a game. Silently ignored unless the caller is the host and the
// session is idle.
func (s *Session) Start(ctx context.Context, connID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if connID != s.hostID || s.phase != domain.PhaseIdle {
		return
	}
	for _, p := range s.roster {
		p.Score = 0
	}
	s.promoteWaitingLocked()
	s.notify.Broadcast(s.id, EventGameStarted, GameStartedPayload{
		TotalRounds:  s.cfg.TotalRounds,
		CurrentRound: 1,
	})
	s.beginRoundLocked(ctx, 1)
}

// Submit records an answer for the current round. Ignored when no round is
// live, the submitter has no assignment, or the assignment was already
// answered. timeLeft is the client-reported remaining time in seconds; it is
// clamped server-side so scores stay within bounds.
func (s *Session) Submit(ctx context.Context, connID, answer string, timeLeft float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != domain.PhaseRoundActive {
		return
	}
	p, ok := s.roster[connID]
	if !ok || p.Assignment == nil || p.Assignment.Answered {
		return
	}
	p.Assignment.Answered = true

	correct := answer == p.Assignment.Answer
	left := time.Duration(timeLeft * float64(time.Second))
	if left < 0 {
		left = 0
	}
	if left > s.cfg.RoundDuration {
		left = s.cfg.RoundDuration
	}
	points := Score(correct, left, s.cfg.RoundDuration)
	p.Score += points

	s.notify.Unicast(connID, EventAnswerResult, AnswerResultPayload{
		Correct:       correct,
		Points:        points,
		CorrectAnswer: p.Assignment.Answer,
	})
	s.notify.Broadcast(s.id, EventLeaderboard, s.leaderboardLocked())

	if s.allAnsweredLocked() {
		s.cancelRoundTimerLocked()
		s.enterSettlingLocked()
	}
}

// beginRoundLocked applies the round entry actions: fresh assignments for
// every active participant, the round timer, and the start broadcasts.
func (s *Session) beginRoundLocked(ctx context.Context, round int) {
	s.phase = domain.PhaseRoundActive
	s.round = round

	now := s.now()
	for _, p := range s.activeLocked() {
		q, err := s.questions.Random(ctx)
		if err != nil {
			log.Printf("session %s: drawing question: %v", s.id, err)
			p.Assignment = nil
			continue
		}
		// Each participant gets an independently owned copy; bank records are
		// never aliased or mutated.
		p.Assignment = &domain.Assignment{
			Question: q.Question,
			Answer:   q.Answer,
			Options:  append([]string(nil), q.Options...),
			Image:    q.Image,
			IssuedAt: now,
		}
		s.notify.Unicast(p.ID, EventNewQuestion, QuestionPayload{
			Question:    q.Question,
			Image:       q.Image,
			Options:     p.Assignment.Options,
			Round:       round,
			TotalRounds: s.cfg.TotalRounds,
		})
	}

	s.notify.Broadcast(s.id, EventRoundTimerStart, RoundTimerPayload{
		Duration: s.cfg.RoundDuration.Seconds(),
	})
	s.scheduleRoundTimerLocked()
}

// roundTimerFired marks every unanswered assignment as timed out and moves the
// round into settling. A stale generation means the round already advanced via
// early completion and this callback is a no-op.
func (s *Session) roundTimerFired(ctx context.Context, gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.roundGen || s.phase != domain.PhaseRoundActive {
		return
	}
	for _, p := range s.activeLocked() {
		if p.Assignment == nil || p.Assignment.Answered {
			continue
		}
		p.Assignment.Answered = true
		s.notify.Unicast(p.ID, EventAnswerResult, AnswerResultPayload{
			Correct:       false,
			Points:        0,
			CorrectAnswer: p.Assignment.Answer,
			TimedOut:      true,
		})
	}
	s.enterSettlingLocked()
}

func (s *Session) enterSettlingLocked() {
	s.phase = domain.PhaseRoundSettling
	s.scheduleSettleTimerLocked()
}

// settleElapsed advances to the next round or, after the final round, to the
// ended phase with the final scoreboard.
func (s *Session) settleElapsed(ctx context.Context, gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.settleGen || s.phase != domain.PhaseRoundSettling {
		return
	}
	if s.round < s.cfg.TotalRounds {
		s.promoteWaitingLocked()
		s.beginRoundLocked(ctx, s.round+1)
		return
	}

	s.phase = domain.PhaseEnded
	s.waiting = nil
	for _, p := range s.roster {
		p.Assignment = nil
	}
	s.notify.Broadcast(s.id, EventGameEnded, GameEndedPayload{Results: s.leaderboardLocked()})
	s.scheduleResetTimerLocked()
}

// resetElapsed returns an ended session to idle and re-derives the host.
func (s *Session) resetElapsed(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.resetGen || s.phase != domain.PhaseEnded {
		return
	}
	prevHost := s.hostID
	s.resetLocked()
	if s.hostID != "" && s.hostID != prevHost {
		s.notify.Unicast(s.hostID, EventSetAsHost, nil)
	}
	s.notify.Broadcast(s.id, EventGameReset, nil)
}

// allAnsweredLocked reports whether every active participant holding an
// assignment has answered it.
func (s *Session) allAnsweredLocked() bool {
	for _, p := range s.activeLocked() {
		if p.Assignment != nil && !p.Assignment.Answered {
			return false
		}
	}
	return true
}

// Timer plumbing. Scheduling a timer first cancels any prior instance of the
// same kind; cancellation bumps the generation so a callback that already
// fired but has not yet acquired the mutex becomes inert. Callbacks run on a
// background context: the intent that armed the timer may be long gone by the
// time it fires.

func (s *Session) scheduleRoundTimerLocked() {
	s.cancelRoundTimerLocked()
	gen := s.roundGen
	s.roundTimer = time.AfterFunc(s.cfg.RoundDuration, func() {
		s.roundTimerFired(context.Background(), gen)
	})
}

func (s *Session) cancelRoundTimerLocked() {
	s.roundGen++
	if s.roundTimer != nil {
		s.roundTimer.Stop()
		s.roundTimer = nil
	}
}

func (s *Session) scheduleSettleTimerLocked() {
	s.cancelSettleTimerLocked()
	gen := s.settleGen
	s.settleTimer = time.AfterFunc(s.cfg.SettleDelay, func() {
		s.settleElapsed(context.Background(), gen)
	})
}

func (s *Session) cancelSettleTimerLocked() {
	s.settleGen++
	if s.settleTimer != nil {
		s.settleTimer.Stop()
		s.settleTimer = nil
	}
}

func (s *Session) scheduleResetTimerLocked() {
	s.cancelResetTimerLocked()
	gen := s.resetGen
	s.resetTimer = time.AfterFunc(s.cfg.ResetDelay, func() {
		s.resetElapsed(gen)
	})
}

func (s *Session) cancelResetTimerLocked() {
	s.resetGen++
	if s.resetTimer != nil {
		s.resetTimer.Stop()
		s.resetTimer = nil
	}
}
