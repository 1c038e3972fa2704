package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sync"

	"quizsync/internal/domain"
)

// StateStore persists the shared QuizState as a single JSON file. Writes are
// staged to a temp file in the same directory and published with an atomic
// rename, so a concurrent reader observes either the old or the new record,
// never a partial one.
type StateStore struct {
	path string
	mu   sync.Mutex
}

func NewStateStore(path string) *StateStore {
	return &StateStore{path: path}
}

// Read returns the latest committed state. A missing file means no game yet
// (default lobby). A corrupt file is recovered locally: the default lobby
// state is returned and written back so later readers see a clean record.
func (s *StateStore) Read(ctx context.Context) (domain.QuizState, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.NewQuizState(), nil
	}
	if err != nil {
		return domain.QuizState{}, err
	}

	state, err := domain.DecodeState(data)
	if err != nil {
		log.Printf("state file %s unreadable, resetting to lobby: %v", s.path, err)
		fresh := domain.NewQuizState()
		if werr := s.Write(ctx, fresh); werr != nil {
			log.Printf("corrective rewrite of %s failed: %v", s.path, werr)
		}
		return fresh, nil
	}
	return state, nil
}

func (s *StateStore) Write(_ context.Context, state domain.QuizState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := domain.EncodeState(state)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrWriteFailed, err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".quizstate-*.json")
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrWriteFailed, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", domain.ErrWriteFailed, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", domain.ErrWriteFailed, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", domain.ErrWriteFailed, err)
	}
	return nil
}
