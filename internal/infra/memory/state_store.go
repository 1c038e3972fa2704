package memory

import (
	"context"
	"sync"

	"quizsync/internal/domain"
)

// StateStore keeps the shared QuizState in process memory. It is the store
// tests inject; Update runs whole read-modify-write cycles under the mutex.
type StateStore struct {
	mu    sync.RWMutex
	state domain.QuizState
	set   bool
}

func NewStateStore() *StateStore {
	return &StateStore{}
}

func (s *StateStore) Read(_ context.Context) (domain.QuizState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.set {
		return domain.NewQuizState(), nil
	}
	return s.state.Clone(), nil
}

func (s *StateStore) Write(_ context.Context, state domain.QuizState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state.Clone()
	s.set = true
	return nil
}

func (s *StateStore) Update(_ context.Context, apply func(domain.QuizState) (domain.QuizState, bool, error)) (domain.QuizState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current := domain.NewQuizState()
	if s.set {
		current = s.state.Clone()
	}
	next, changed, err := apply(current)
	if err != nil {
		return current, err
	}
	if !changed {
		return next, nil
	}
	s.state = next.Clone()
	s.set = true
	return next, nil
}
