package app

import (
	"context"
	"errors"
	"testing"

	"quizsync/internal/domain"
)

type fixedSource struct {
	questions []domain.Question
	err       error
}

func (s *fixedSource) Questions(context.Context) ([]domain.Question, error) {
	return s.questions, s.err
}

func fallbackDeck() []domain.Question {
	return []domain.Question{{
		Text:          "Fallback?",
		Options:       []string{"a", "b", "c", "d"},
		CorrectAnswer: "a",
	}}
}

func TestFallbackSourcePassesValidBatch(t *testing.T) {
	primary := []domain.Question{{
		Text:          "Primary?",
		Options:       []string{"w", "x", "y", "z"},
		CorrectAnswer: "x",
	}}
	source := NewFallbackSource(&fixedSource{questions: primary}, fallbackDeck())

	questions, err := source.Questions(context.Background())
	if err != nil {
		t.Fatalf("questions: %v", err)
	}
	if len(questions) != 1 || questions[0].Text != "Primary?" {
		t.Fatalf("expected primary batch, got %+v", questions)
	}
}

func TestFallbackSourceOnError(t *testing.T) {
	source := NewFallbackSource(&fixedSource{err: errors.New("backend down")}, fallbackDeck())

	questions, err := source.Questions(context.Background())
	if err != nil {
		t.Fatalf("questions: %v", err)
	}
	if len(questions) != 1 || questions[0].Text != "Fallback?" {
		t.Fatalf("expected fallback batch, got %+v", questions)
	}
}

func TestFallbackSourceOnMalformedBatch(t *testing.T) {
	malformed := []domain.Question{{
		Text:          "Only three options",
		Options:       []string{"a", "b", "c"},
		CorrectAnswer: "a",
	}}
	source := NewFallbackSource(&fixedSource{questions: malformed}, fallbackDeck())

	questions, err := source.Questions(context.Background())
	if err != nil {
		t.Fatalf("questions: %v", err)
	}
	if len(questions) != 1 || questions[0].Text != "Fallback?" {
		t.Fatalf("expected fallback batch, got %+v", questions)
	}
}
