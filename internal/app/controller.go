package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"quizsync/internal/domain"
)

// StateStore abstracts durable storage for the single shared QuizState
// (in-memory, file, Redis, etc). Read returns the default lobby state when
// nothing usable is persisted; Write publishes all-or-nothing.
type StateStore interface {
	Read(ctx context.Context) (domain.QuizState, error)
	Write(ctx context.Context, state domain.QuizState) error
}

// AtomicStore is an optional StateStore upgrade for backends that can run the
// whole read-modify-write cycle under a lock or compare-and-swap. apply
// returns the next state and whether anything changed; returning an error
// aborts without writing.
type AtomicStore interface {
	StateStore
	Update(ctx context.Context, apply func(domain.QuizState) (domain.QuizState, bool, error)) (domain.QuizState, error)
}

// DefaultPointValue is awarded per correct answer unless configured otherwise.
const DefaultPointValue = 5

// QuizController is the only component that mutates QuizState. Every mutation
// is expressed against a freshly read state, never a client-cached copy, so
// concurrent clients converge instead of clobbering each other.
type QuizController struct {
	store      StateStore
	source     QuestionSource
	clock      SessionClock
	pointValue int
	now        func() time.Time
}

func NewQuizController(store StateStore, source QuestionSource, clock SessionClock, pointValue int) *QuizController {
	return NewQuizControllerWithClock(store, source, clock, pointValue, time.Now)
}

// NewQuizControllerWithClock is test-only for deterministic timestamps.
func NewQuizControllerWithClock(store StateStore, source QuestionSource, clock SessionClock, pointValue int, now func() time.Time) *QuizController {
	if pointValue <= 0 {
		pointValue = DefaultPointValue
	}
	return &QuizController{
		store:      store,
		source:     source,
		clock:      clock,
		pointValue: pointValue,
		now:        now,
	}
}

// Clock exposes the timing rules shared by host and player views.
func (c *QuizController) Clock() SessionClock {
	return c.clock
}

// Start pulls a question batch from the source, validates it, and moves the
// session from lobby to in_progress at question zero. Players who joined in
// the lobby keep their records with scores reset.
func (c *QuizController) Start(ctx context.Context) (domain.QuizState, error) {
	questions, err := c.source.Questions(ctx)
	if err != nil {
		return domain.QuizState{}, fmt.Errorf("%w: %v", domain.ErrInvalidTransition, err)
	}
	if err := domain.ValidateBatch(questions); err != nil {
		return domain.QuizState{}, fmt.Errorf("%w: %v", domain.ErrInvalidTransition, err)
	}

	return c.mutate(ctx, func(state domain.QuizState) (domain.QuizState, bool, error) {
		if state.Phase != domain.PhaseLobby {
			return state, false, domain.ErrInvalidPhase
		}
		next := state.Clone()
		next.Phase = domain.PhaseInProgress
		next.QuestionIndex = 0
		next.Questions = copyQuestions(questions)
		next.QuestionStartedAt = c.now().UTC()
		for name := range next.Players {
			next.Players[name] = domain.PlayerRecord{Score: 0, AnsweredQuestion: domain.NoAnswer}
		}
		return next, true, nil
	})
}

// SubmitAnswer folds one answer into the shared state. Scoring is a delta on
// the freshly read record. A stale index is rejected; a duplicate submission
// for the current question is a safe no-op so flaky clients can retry.
func (c *QuizController) SubmitAnswer(ctx context.Context, sub domain.AnswerSubmission) (domain.QuizState, domain.AnswerResult, error) {
	if sub.PlayerName == "" {
		return domain.QuizState{}, domain.AnswerResult{}, errors.New("player name required")
	}

	var result domain.AnswerResult
	state, err := c.mutate(ctx, func(state domain.QuizState) (domain.QuizState, bool, error) {
		result = domain.AnswerResult{QuestionIndex: sub.QuestionIndex}
		if state.Phase != domain.PhaseInProgress {
			return state, false, domain.ErrInvalidPhase
		}
		if sub.QuestionIndex != state.QuestionIndex {
			return state, false, domain.ErrStaleSubmission
		}
		question, ok := state.CurrentQuestion()
		if !ok {
			return state, false, domain.ErrInvalidPhase
		}

		next := state.Clone()
		rec, joined := next.Players[sub.PlayerName]
		if !joined {
			// Lazy registration: players may join in any phase.
			rec = domain.PlayerRecord{AnsweredQuestion: domain.NoAnswer}
		}
		if rec.AnsweredQuestion == next.QuestionIndex {
			result.TotalScore = rec.Score
			return state, false, nil
		}

		if sub.ChosenOption == question.CorrectAnswer {
			rec.Score += c.pointValue
			result.Correct = true
			result.Awarded = c.pointValue
		}
		rec.AnsweredQuestion = next.QuestionIndex
		next.Players[sub.PlayerName] = rec
		result.TotalScore = rec.Score
		return next, true, nil
	})
	return state, result, err
}

// Advance moves past fromIndex: to the next question, or to over when
// fromIndex was the last question. It is idempotent up to the target index —
// if another client already advanced (state index != fromIndex) or the game
// is over, nothing changes and no error is reported, so redundant timer
// triggers from many clients collapse into one transition.
func (c *QuizController) Advance(ctx context.Context, fromIndex int) (domain.QuizState, error) {
	return c.mutate(ctx, func(state domain.QuizState) (domain.QuizState, bool, error) {
		switch state.Phase {
		case domain.PhaseOver:
			return state, false, nil
		case domain.PhaseInProgress:
		default:
			return state, false, domain.ErrInvalidPhase
		}
		if fromIndex != state.QuestionIndex {
			return state, false, nil
		}

		next := state.Clone()
		if next.QuestionIndex+1 >= len(next.Questions) {
			next.Phase = domain.PhaseOver
			return next, true, nil
		}
		next.QuestionIndex++
		next.QuestionStartedAt = c.now().UTC()
		for name, rec := range next.Players {
			rec.AnsweredQuestion = domain.NoAnswer
			next.Players[name] = rec
		}
		return next, true, nil
	})
}

// AdvanceIfDue advances only when the question timer has expired. The bool
// reports whether this call performed the transition.
func (c *QuizController) AdvanceIfDue(ctx context.Context, now time.Time) (domain.QuizState, bool, error) {
	state, err := c.store.Read(ctx)
	if err != nil {
		return domain.QuizState{}, false, err
	}
	if !c.clock.AdvanceDue(state, now) {
		return state, false, nil
	}
	next, err := c.Advance(ctx, state.QuestionIndex)
	if err != nil {
		return state, false, err
	}
	advanced := next.Phase != state.Phase || next.QuestionIndex != state.QuestionIndex
	return next, advanced, nil
}

// Reset discards a finished game and returns to a fresh lobby.
func (c *QuizController) Reset(ctx context.Context) (domain.QuizState, error) {
	return c.mutate(ctx, func(state domain.QuizState) (domain.QuizState, bool, error) {
		if state.Phase != domain.PhaseOver {
			return state, false, domain.ErrInvalidPhase
		}
		return domain.NewQuizState(), true, nil
	})
}

// Join lazily registers a player with score zero. Joining is permitted in any
// phase and is idempotent.
func (c *QuizController) Join(ctx context.Context, playerName string) (domain.QuizState, error) {
	if playerName == "" {
		return domain.QuizState{}, errors.New("player name required")
	}
	return c.mutate(ctx, func(state domain.QuizState) (domain.QuizState, bool, error) {
		if _, ok := state.Players[playerName]; ok {
			return state, false, nil
		}
		next := state.Clone()
		next.Players[playerName] = domain.PlayerRecord{AnsweredQuestion: domain.NoAnswer}
		return next, true, nil
	})
}

// State returns the latest committed state.
func (c *QuizController) State(ctx context.Context) (domain.QuizState, error) {
	return c.store.Read(ctx)
}

// Leaderboard returns the current scoreboard snapshot.
func (c *QuizController) Leaderboard(ctx context.Context) (domain.Leaderboard, error) {
	state, err := c.store.Read(ctx)
	if err != nil {
		return domain.Leaderboard{}, err
	}
	return LeaderboardFrom(state, c.now().UTC()), nil
}

// LeaderboardFrom orders players by score descending, then name, so every
// client renders the same ranking from the same state.
func LeaderboardFrom(state domain.QuizState, now time.Time) domain.Leaderboard {
	entries := make([]domain.LeaderboardEntry, 0, len(state.Players))
	for name, rec := range state.Players {
		entries = append(entries, domain.LeaderboardEntry{
			PlayerName: name,
			Score:      rec.Score,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].PlayerName < entries[j].PlayerName
	})
	return domain.Leaderboard{Entries: entries, UpdatedAt: now}
}

// mutate runs one read-compute-write cycle. Stores that support atomic
// updates execute the whole cycle under their own concurrency control;
// otherwise the freshly read state is transformed and written back.
func (c *QuizController) mutate(ctx context.Context, apply func(domain.QuizState) (domain.QuizState, bool, error)) (domain.QuizState, error) {
	if atomic, ok := c.store.(AtomicStore); ok {
		return atomic.Update(ctx, apply)
	}
	state, err := c.store.Read(ctx)
	if err != nil {
		return domain.QuizState{}, err
	}
	next, changed, err := apply(state)
	if err != nil {
		return state, err
	}
	if !changed {
		return next, nil
	}
	if err := c.store.Write(ctx, next); err != nil {
		return state, err
	}
	return next, nil
}

func copyQuestions(questions []domain.Question) []domain.Question {
	out := make([]domain.Question, len(questions))
	for i, q := range questions {
		out[i] = q
		out[i].Options = append([]string(nil), q.Options...)
	}
	return out
}
