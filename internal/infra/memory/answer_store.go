package memory

import (
	"context"
	"sort"
	"sync"

	"lesson-progress-service/internal/domain"
)

// AnswerStore is an in-memory implementation of app.AnswerStore.
type AnswerStore struct {
	mu     sync.RWMutex
	byID   map[string]domain.Answer
	byPair map[answerKey]string
	writes int
}

type answerKey struct {
	userID     string
	questionID string
}

func NewAnswerStore() *AnswerStore {
	return &AnswerStore{
		byID:   make(map[string]domain.Answer),
		byPair: make(map[answerKey]string),
	}
}

func (s *AnswerStore) Get(_ context.Context, answerID string) (domain.Answer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if a, ok := s.byID[answerID]; ok {
		return a, nil
	}
	return domain.Answer{}, domain.ErrAnswerNotFound
}

func (s *AnswerStore) FindByUserQuestion(_ context.Context, userID, questionID string) (domain.Answer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id, ok := s.byPair[answerKey{userID, questionID}]; ok {
		return s.byID[id], nil
	}
	return domain.Answer{}, domain.ErrAnswerNotFound
}

// Create rejects a second answer for the same (user, question) pair.
func (s *AnswerStore) Create(_ context.Context, answer domain.Answer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := answerKey{answer.UserID, answer.QuestionID}
	if _, ok := s.byPair[key]; ok {
		return &domain.StorageError{Op: "create answer", Err: errDuplicateAnswer}
	}
	s.byID[answer.ID] = answer
	s.byPair[key] = answer.ID
	s.writes++
	return nil
}

func (s *AnswerStore) Update(_ context.Context, answerID string, update domain.AnswerUpdate) (domain.Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.byID[answerID]
	if !ok {
		return domain.Answer{}, domain.ErrAnswerNotFound
	}
	a = update.Apply(a)
	s.byID[answerID] = a
	s.writes++
	return a, nil
}

func (s *AnswerStore) ListByUserLesson(_ context.Context, userID, lessonID string) ([]domain.Answer, error) {
	return s.filter(func(a domain.Answer) bool {
		return a.UserID == userID && a.LessonID == lessonID
	}), nil
}

func (s *AnswerStore) CountByUser(_ context.Context, userID string) (int, error) {
	return len(s.filter(func(a domain.Answer) bool { return a.UserID == userID })), nil
}

func (s *AnswerStore) CountByScore(_ context.Context, userID string, score int) (int, error) {
	return len(s.filter(func(a domain.Answer) bool {
		return a.UserID == userID && a.Score == score
	})), nil
}

func (s *AnswerStore) SumScoreByUser(_ context.Context, userID string) (int, error) {
	sum := 0
	for _, a := range s.filter(func(a domain.Answer) bool { return a.UserID == userID }) {
		sum += a.Score
	}
	return sum, nil
}

func (s *AnswerStore) UserIDs(_ context.Context) ([]string, error) {
	s.mu.RLock()
	seen := make(map[string]struct{})
	for _, a := range s.byID {
		seen[a.UserID] = struct{}{}
	}
	s.mu.RUnlock()

	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

// Writes counts successful creates and updates.
func (s *AnswerStore) Writes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}

func (s *AnswerStore) filter(keep func(domain.Answer) bool) []domain.Answer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Answer, 0)
	for _, a := range s.byID {
		if keep(a) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QuestionID < out[j].QuestionID })
	return out
}
