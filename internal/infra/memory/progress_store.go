package memory

import (
	"context"
	"sort"
	"sync"

	"lesson-progress-service/internal/domain"
)

// ProgressStore is an in-memory implementation of app.ProgressStore.
type ProgressStore struct {
	mu     sync.RWMutex
	byID   map[string]domain.ProgressRecord
	byPair map[progressKey]string
	writes int
}

type progressKey struct {
	userID   string
	lessonID string
}

func NewProgressStore() *ProgressStore {
	return &ProgressStore{
		byID:   make(map[string]domain.ProgressRecord),
		byPair: make(map[progressKey]string),
	}
}

func (s *ProgressStore) Find(_ context.Context, userID, lessonID string) (domain.ProgressRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id, ok := s.byPair[progressKey{userID, lessonID}]; ok {
		return s.byID[id], nil
	}
	return domain.ProgressRecord{}, domain.ErrProgressNotFound
}

func (s *ProgressStore) Create(_ context.Context, record domain.ProgressRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := progressKey{record.UserID, record.LessonID}
	if _, ok := s.byPair[key]; ok {
		return &domain.StorageError{Op: "create progress", Err: errDuplicateProgress}
	}
	s.byID[record.ID] = record
	s.byPair[key] = record.ID
	s.writes++
	return nil
}

func (s *ProgressStore) Update(_ context.Context, recordID string, update domain.ProgressUpdate) (domain.ProgressRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.byID[recordID]
	if !ok {
		return domain.ProgressRecord{}, domain.ErrProgressNotFound
	}
	record = update.Apply(record)
	s.byID[recordID] = record
	s.writes++
	return record, nil
}

func (s *ProgressStore) ListByRange(_ context.Context, userID string, min, max float64) ([]domain.ProgressRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.ProgressRecord, 0)
	for _, r := range s.byID {
		if r.UserID == userID && r.Progress >= min && r.Progress <= max {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LessonID < out[j].LessonID })
	return out, nil
}

// Writes counts successful creates and updates.
func (s *ProgressStore) Writes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}
