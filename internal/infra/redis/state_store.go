package redis

import (
	"context"
	"fmt"
	"log"

	"quizsync/internal/domain"
	"github.com/redis/go-redis/v9"
)

// DefaultStateKey is where the shared QuizState lives unless configured.
const DefaultStateKey = "quiz:state"

// maxUpdateRetries bounds optimistic-transaction retries under contention.
const maxUpdateRetries = 10

// StateStore keeps the shared QuizState as one JSON value under a single
// Redis key. SET publishes the whole record atomically; Update runs the
// read-modify-write cycle inside a WATCH transaction so concurrent writers
// retry instead of losing updates.
type StateStore struct {
	client *redis.Client
	key    string
}

func NewStateStore(client *redis.Client, key string) *StateStore {
	if key == "" {
		key = DefaultStateKey
	}
	return &StateStore{client: client, key: key}
}

// Read returns the committed state, the default lobby state when the key is
// absent, and recovers locally from a corrupt payload by rewriting the
// default record.
func (s *StateStore) Read(ctx context.Context) (domain.QuizState, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if err == redis.Nil {
		return domain.NewQuizState(), nil
	}
	if err != nil {
		return domain.QuizState{}, err
	}

	state, err := domain.DecodeState(data)
	if err != nil {
		log.Printf("state key %s unreadable, resetting to lobby: %v", s.key, err)
		fresh := domain.NewQuizState()
		if werr := s.Write(ctx, fresh); werr != nil {
			log.Printf("corrective rewrite of %s failed: %v", s.key, werr)
		}
		return fresh, nil
	}
	return state, nil
}

func (s *StateStore) Write(ctx context.Context, state domain.QuizState) error {
	data, err := domain.EncodeState(state)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrWriteFailed, err)
	}
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrWriteFailed, err)
	}
	return nil
}

// Update applies fn to the freshly read state under WATCH. If another client
// writes the key between read and publish the transaction fails and the whole
// cycle retries against the newer state.
func (s *StateStore) Update(ctx context.Context, apply func(domain.QuizState) (domain.QuizState, bool, error)) (domain.QuizState, error) {
	var out domain.QuizState

	txf := func(tx *redis.Tx) error {
		current := domain.NewQuizState()
		data, err := tx.Get(ctx, s.key).Bytes()
		switch {
		case err == redis.Nil:
		case err != nil:
			return err
		default:
			if decoded, derr := domain.DecodeState(data); derr == nil {
				current = decoded
			}
		}

		next, changed, err := apply(current)
		if err != nil {
			out = current
			return err
		}
		out = next
		if !changed {
			return nil
		}

		payload, err := domain.EncodeState(next)
		if err != nil {
			return fmt.Errorf("%w: %v", domain.ErrWriteFailed, err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, s.key, payload, 0)
			return nil
		})
		return err
	}

	for i := 0; i < maxUpdateRetries; i++ {
		err := s.client.Watch(ctx, txf, s.key)
		if err == nil {
			return out, nil
		}
		if err == redis.TxFailedErr {
			continue
		}
		return out, err
	}
	return out, fmt.Errorf("%w: too many concurrent updates", domain.ErrWriteFailed)
}
