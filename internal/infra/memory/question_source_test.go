package memory

import (
	"context"
	"testing"
	"time"

	"quizsync/internal/domain"
)

func sampleSet() []domain.Question {
	return []domain.Question{{
		Text:          "What is 2 + 2?",
		Options:       []string{"3", "4", "5", "6"},
		CorrectAnswer: "4",
	}}
}

func TestDefaultQuestionsAreWellFormed(t *testing.T) {
	if err := domain.ValidateBatch(DefaultQuestions()); err != nil {
		t.Fatalf("built-in deck invalid: %v", err)
	}
}

func TestStaticSourceCopies(t *testing.T) {
	source := NewStaticQuestionSource(sampleSet())
	questions, err := source.Questions(context.Background())
	if err != nil {
		t.Fatalf("questions: %v", err)
	}
	questions[0].Options[0] = "changed"

	again, _ := source.Questions(context.Background())
	if again[0].Options[0] != "3" {
		t.Fatalf("static source aliased its deck")
	}
}

func TestCachedQuestionSourceCaches(t *testing.T) {
	loader := &countingLoader{
		QuestionLoader: NewStaticQuestionLoader(map[string][]domain.Question{
			"set-1": sampleSet(),
		}),
	}
	source := NewCachedQuestionSource(loader, "set-1", time.Minute)

	if _, err := source.Questions(context.Background()); err != nil {
		t.Fatalf("questions: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls)
	}

	if _, err := source.Questions(context.Background()); err != nil {
		t.Fatalf("questions 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}
}

func TestStaticLoaderUnknownSet(t *testing.T) {
	loader := NewStaticQuestionLoader(nil)
	if _, err := loader.LoadQuestionSet(context.Background(), "missing"); err != domain.ErrQuestionSetNotFound {
		t.Fatalf("expected ErrQuestionSetNotFound, got %v", err)
	}
}

type countingLoader struct {
	QuestionLoader
	calls int
}

func (l *countingLoader) LoadQuestionSet(ctx context.Context, setID string) ([]domain.Question, error) {
	l.calls++
	return l.QuestionLoader.LoadQuestionSet(ctx, setID)
}
