package app

import (
	"context"

	"quizsync/internal/domain"
)

// QuestionSource supplies the question batch for a game start. Providers are
// external (static lists, databases, caches); the controller only sees data.
type QuestionSource interface {
	Questions(ctx context.Context) ([]domain.Question, error)
}

// FallbackSource wraps a primary source and substitutes a caller-supplied
// static deck whenever the primary fails or returns a malformed batch. Any
// question-source adapter in front of the controller must keep this policy.
type FallbackSource struct {
	primary  QuestionSource
	fallback []domain.Question
}

func NewFallbackSource(primary QuestionSource, fallback []domain.Question) *FallbackSource {
	return &FallbackSource{primary: primary, fallback: fallback}
}

func (s *FallbackSource) Questions(ctx context.Context) ([]domain.Question, error) {
	questions, err := s.primary.Questions(ctx)
	if err == nil && domain.ValidateBatch(questions) == nil {
		return questions, nil
	}
	return copyQuestions(s.fallback), nil
}
