package app

import (
	"time"

	"quizsync/internal/domain"
)

// DefaultQuestionDuration is how long each question stays open.
const DefaultQuestionDuration = 20 * time.Second

// SessionClock computes remaining time for the active question from the
// shared QuestionStartedAt timestamp. It holds no mutable state; host and
// player views share one definition of "time's up" instead of drifting
// locally seeded countdowns.
type SessionClock struct {
	QuestionDuration time.Duration
}

func NewSessionClock(questionDuration time.Duration) SessionClock {
	if questionDuration <= 0 {
		questionDuration = DefaultQuestionDuration
	}
	return SessionClock{QuestionDuration: questionDuration}
}

// Remaining returns how much answer time is left at now, floored at zero.
func (c SessionClock) Remaining(state domain.QuizState, now time.Time) time.Duration {
	remaining := c.QuestionDuration - now.Sub(state.QuestionStartedAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// AdvanceDue reports whether the active question's time is up and an
// automatic advance should fire.
func (c SessionClock) AdvanceDue(state domain.QuizState, now time.Time) bool {
	return state.Phase == domain.PhaseInProgress && c.Remaining(state, now) == 0
}
