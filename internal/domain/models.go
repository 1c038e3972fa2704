package domain

import (
	"errors"
	"fmt"
	"time"
)

// Phase is the coarse lifecycle stage of a quiz session.
type Phase string

const (
	// PhaseLobby means the session exists but no game is running.
	PhaseLobby Phase = "lobby"
	// PhaseInProgress means a question deck is active.
	PhaseInProgress Phase = "in_progress"
	// PhaseOver means the deck has been exhausted.
	PhaseOver Phase = "over"
)

// OptionsPerQuestion is the required number of answer options.
const OptionsPerQuestion = 4

// NoAnswer marks a player with no outstanding answer for the current question.
const NoAnswer = -1

// Question models a multiple-choice question with exactly one correct option.
type Question struct {
	Text          string   `json:"text"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer"`
}

// Validate checks the shape invariants: exactly four unique options and the
// correct answer present among them.
func (q Question) Validate() error {
	if q.Text == "" {
		return errors.New("question text is empty")
	}
	if len(q.Options) != OptionsPerQuestion {
		return fmt.Errorf("expected %d options, got %d", OptionsPerQuestion, len(q.Options))
	}
	seen := make(map[string]struct{}, len(q.Options))
	for _, opt := range q.Options {
		if _, dup := seen[opt]; dup {
			return fmt.Errorf("duplicate option %q", opt)
		}
		seen[opt] = struct{}{}
	}
	if _, ok := seen[q.CorrectAnswer]; !ok {
		return fmt.Errorf("correct answer %q not among options", q.CorrectAnswer)
	}
	return nil
}

// ValidateBatch checks a whole question deck before it is allowed into a game.
func ValidateBatch(questions []Question) error {
	if len(questions) == 0 {
		return errors.New("question batch is empty")
	}
	for i, q := range questions {
		if err := q.Validate(); err != nil {
			return fmt.Errorf("question %d: %w", i, err)
		}
	}
	return nil
}

// PlayerRecord tracks one player's accumulated score and whether they have
// already answered the current question.
type PlayerRecord struct {
	Score            int `json:"score"`
	AnsweredQuestion int `json:"answeredQuestion"`
}

// QuizState is the single shared record every client reads and the controller
// rewrites. It is a value type; stores hand out independent copies.
type QuizState struct {
	Phase             Phase                   `json:"phase"`
	QuestionIndex     int                     `json:"questionIndex"`
	Questions         []Question              `json:"questions"`
	QuestionStartedAt time.Time               `json:"questionStartedAt"`
	Players           map[string]PlayerRecord `json:"players"`
}

// NewQuizState returns the default lobby state: no questions, no players.
func NewQuizState() QuizState {
	return QuizState{
		Phase:   PhaseLobby,
		Players: make(map[string]PlayerRecord),
	}
}

// Clone deep-copies the state so callers and stores never alias each other's
// maps or slices.
func (s QuizState) Clone() QuizState {
	out := s
	if s.Questions != nil {
		out.Questions = make([]Question, len(s.Questions))
		for i, q := range s.Questions {
			out.Questions[i] = q
			out.Questions[i].Options = append([]string(nil), q.Options...)
		}
	}
	out.Players = make(map[string]PlayerRecord, len(s.Players))
	for name, rec := range s.Players {
		out.Players[name] = rec
	}
	return out
}

// CurrentQuestion returns the active question while a game is in progress.
func (s QuizState) CurrentQuestion() (Question, bool) {
	if s.Phase != PhaseInProgress {
		return Question{}, false
	}
	if s.QuestionIndex < 0 || s.QuestionIndex >= len(s.Questions) {
		return Question{}, false
	}
	return s.Questions[s.QuestionIndex], true
}

// AnswerSubmission is the ephemeral scoring signal from a player. It is folded
// into QuizState by the controller and never persisted on its own.
type AnswerSubmission struct {
	PlayerName    string
	QuestionIndex int
	ChosenOption  string
	SubmittedAt   time.Time
}

// AnswerResult summarizes the outcome of a submission for one player.
type AnswerResult struct {
	QuestionIndex int  `json:"questionIndex"`
	Correct       bool `json:"correct"`
	Awarded       int  `json:"awarded"`
	TotalScore    int  `json:"totalScore"`
}

// LeaderboardEntry is a snapshot-friendly view of a player.
type LeaderboardEntry struct {
	PlayerName string `json:"playerName"`
	Score      int    `json:"score"`
}

// Leaderboard captures the ordered scoreboard derived from a QuizState.
type Leaderboard struct {
	Entries   []LeaderboardEntry `json:"entries"`
	UpdatedAt time.Time          `json:"updatedAt"`
}
