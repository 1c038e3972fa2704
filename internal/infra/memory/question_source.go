package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"quizsync/internal/domain"
	"golang.org/x/sync/singleflight"
)

// QuestionLoader fetches a named question set from a backing store.
type QuestionLoader interface {
	LoadQuestionSet(ctx context.Context, setID string) ([]domain.Question, error)
}

// StaticQuestionSource serves a fixed deck (useful for tests/demos and as the
// fallback when a configured loader misbehaves).
type StaticQuestionSource struct {
	questions []domain.Question
}

func NewStaticQuestionSource(questions []domain.Question) *StaticQuestionSource {
	return &StaticQuestionSource{questions: questions}
}

func (s *StaticQuestionSource) Questions(_ context.Context) ([]domain.Question, error) {
	out := make([]domain.Question, len(s.questions))
	for i, q := range s.questions {
		out[i] = q
		out[i].Options = append([]string(nil), q.Options...)
	}
	return out, nil
}

// DefaultQuestions is the built-in five-question deck used when no external
// question set is configured or the configured one cannot be loaded.
func DefaultQuestions() []domain.Question {
	return []domain.Question{
		{
			Text:          "Which planet is known as the Red Planet?",
			Options:       []string{"Venus", "Mars", "Jupiter", "Mercury"},
			CorrectAnswer: "Mars",
		},
		{
			Text:          "What is the largest ocean on Earth?",
			Options:       []string{"Atlantic", "Indian", "Arctic", "Pacific"},
			CorrectAnswer: "Pacific",
		},
		{
			Text:          "Which element has the chemical symbol O?",
			Options:       []string{"Gold", "Oxygen", "Osmium", "Silver"},
			CorrectAnswer: "Oxygen",
		},
		{
			Text:          "How many continents are there?",
			Options:       []string{"Five", "Six", "Seven", "Eight"},
			CorrectAnswer: "Seven",
		},
		{
			Text:          "What is the capital of Japan?",
			Options:       []string{"Kyoto", "Osaka", "Tokyo", "Nagoya"},
			CorrectAnswer: "Tokyo",
		},
	}
}

// CachedQuestionSource caches a loaded question set with TTL to avoid
// repeated backing-store hits; concurrent misses collapse via singleflight.
type CachedQuestionSource struct {
	loader QuestionLoader
	setID  string
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu        sync.RWMutex
	questions []domain.Question
	expiresAt time.Time
}

func NewCachedQuestionSource(loader QuestionLoader, setID string, ttl time.Duration) *CachedQuestionSource {
	return &CachedQuestionSource{
		loader: loader,
		setID:  setID,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *CachedQuestionSource) Questions(ctx context.Context) ([]domain.Question, error) {
	now := s.clock()

	s.mu.RLock()
	if s.questions != nil && s.expiresAt.After(now) {
		cached := s.questions
		s.mu.RUnlock()
		return cached, nil
	}
	s.mu.RUnlock()

	result, err, _ := s.sf.Do(s.setID, func() (interface{}, error) {
		now := s.clock()
		s.mu.RLock()
		if s.questions != nil && s.expiresAt.After(now) {
			cached := s.questions
			s.mu.RUnlock()
			return cached, nil
		}
		s.mu.RUnlock()

		questions, err := s.loader.LoadQuestionSet(ctx, s.setID)
		if err != nil {
			return nil, err
		}

		s.mu.Lock()
		s.questions = questions
		s.expiresAt = now.Add(s.ttlWithJitter())
		s.mu.Unlock()
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

func (s *CachedQuestionSource) ttlWithJitter() time.Duration {
	if s.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(s.ttl) / 10
	return s.ttl + time.Duration(s.rnd.Int63n(jitterMax+1))
}

// StaticQuestionLoader is a loader backed by an in-memory map of sets.
type StaticQuestionLoader struct {
	sets map[string][]domain.Question
}

func NewStaticQuestionLoader(sets map[string][]domain.Question) *StaticQuestionLoader {
	return &StaticQuestionLoader{sets: sets}
}

func (l *StaticQuestionLoader) LoadQuestionSet(_ context.Context, setID string) ([]domain.Question, error) {
	if questions, ok := l.sets[setID]; ok {
		return questions, nil
	}
	return nil, domain.ErrQuestionSetNotFound
}
