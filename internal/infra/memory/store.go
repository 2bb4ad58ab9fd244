package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"exam-bot-service/internal/domain"
)

// QuestionStore is an in-memory question bank (useful for tests/demos).
type QuestionStore struct {
	mu        sync.RWMutex
	questions map[string]domain.Question
	rnd       *rand.Rand
}

func NewQuestionStore(questions []domain.Question) *QuestionStore {
	s := &QuestionStore{
		questions: make(map[string]domain.Question, len(questions)),
		rnd:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, q := range questions {
		if q.ID == "" {
			q.ID = uuid.NewString()
		}
		s.questions[q.ID] = q
	}
	return s
}

// Add inserts questions, assigning uuids to entries without an id.
func (s *QuestionStore) Add(questions ...domain.Question) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, q := range questions {
		if q.ID == "" {
			q.ID = uuid.NewString()
		}
		s.questions[q.ID] = q
	}
}

func (s *QuestionStore) RandomUnseen(_ context.Context, category string, seenIDs []string) (domain.Question, error) {
	seen := make(map[string]struct{}, len(seenIDs))
	for _, id := range seenIDs {
		seen[id] = struct{}{}
	}

	// Full lock: rnd is not safe for concurrent use.
	s.mu.Lock()
	defer s.mu.Unlock()
	candidates := make([]domain.Question, 0, len(s.questions))
	for _, q := range s.questions {
		if q.ExamName != category {
			continue
		}
		if _, ok := seen[q.ID]; ok {
			continue
		}
		candidates = append(candidates, q)
	}
	if len(candidates) == 0 {
		return domain.Question{}, domain.ErrNoUnseenQuestions
	}
	return candidates[s.rnd.Intn(len(candidates))], nil
}

func (s *QuestionStore) GetByID(_ context.Context, id string) (domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if q, ok := s.questions[id]; ok {
		return q, nil
	}
	return domain.Question{}, domain.ErrQuestionNotFound
}

// ProgressStore is an in-memory implementation of app.ProgressStore.
type ProgressStore struct {
	mu   sync.RWMutex
	seen map[string][]string
}

func NewProgressStore() *ProgressStore {
	return &ProgressStore{seen: make(map[string][]string)}
}

func (s *ProgressStore) SeenIDs(_ context.Context, userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.seen[userID]
	out := make([]string, len(ids))
	copy(out, ids)
	return out, nil
}

func (s *ProgressStore) MarkSeen(_ context.Context, userID, questionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen[userID] = append(s.seen[userID], questionID)
	return nil
}
