package redis

import (
	"context"
	"testing"

	"quizsync/internal/domain"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T) (*StateStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewStateStore(client, ""), mr
}

func TestReadMissingKeyReturnsLobby(t *testing.T) {
	store, _ := newTestStore(t)
	state, err := store.Read(context.Background())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if state.Phase != domain.PhaseLobby {
		t.Fatalf("expected lobby default, got %+v", state)
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t)

	state := domain.NewQuizState()
	state.Phase = domain.PhaseInProgress
	state.QuestionIndex = 3
	state.Players["ana"] = domain.PlayerRecord{Score: 15, AnsweredQuestion: 3}

	if err := store.Write(ctx, state); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !mr.Exists(DefaultStateKey) {
		t.Fatalf("expected state key to be set")
	}

	got, err := store.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.Phase != domain.PhaseInProgress || got.QuestionIndex != 3 || got.Players["ana"].Score != 15 {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestCorruptValueRecoversToLobby(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t)

	mr.Set(DefaultStateKey, "{broken")

	state, err := store.Read(ctx)
	if err != nil {
		t.Fatalf("read of corrupt value should not fail: %v", err)
	}
	if state.Phase != domain.PhaseLobby {
		t.Fatalf("expected lobby fallback, got %+v", state)
	}

	// The corrective rewrite leaves a clean record behind.
	raw, err := mr.Get(DefaultStateKey)
	if err != nil {
		t.Fatalf("get after recovery: %v", err)
	}
	if _, err := domain.DecodeState([]byte(raw)); err != nil {
		t.Fatalf("key still corrupt after recovery: %v", err)
	}
}

func TestUpdateAppliesUnderWatch(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	state, err := store.Update(ctx, func(s domain.QuizState) (domain.QuizState, bool, error) {
		s.Phase = domain.PhaseInProgress
		s.Players["ana"] = domain.PlayerRecord{Score: 5, AnsweredQuestion: 0}
		return s, true, nil
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if state.Phase != domain.PhaseInProgress {
		t.Fatalf("update result mismatch: %+v", state)
	}

	got, err := store.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.Players["ana"].Score != 5 {
		t.Fatalf("update not persisted: %+v", got)
	}
}

func TestUpdateErrorWritesNothing(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	_, err := store.Update(ctx, func(s domain.QuizState) (domain.QuizState, bool, error) {
		return s, false, domain.ErrInvalidPhase
	})
	if err != domain.ErrInvalidPhase {
		t.Fatalf("expected apply error surfaced, got %v", err)
	}

	got, _ := store.Read(ctx)
	if got.Phase != domain.PhaseLobby {
		t.Fatalf("aborted update persisted something: %+v", got)
	}
}
