package memory

import (
	"context"
	"sort"
	"sync"

	"lesson-progress-service/internal/domain"
)

// LeaderboardStore is an in-memory implementation of app.LeaderboardStore.
// Read-modify-write happens under the store lock, which makes ApplyDelta atomic.
type LeaderboardStore struct {
	mu      sync.RWMutex
	entries map[string]domain.LeaderboardEntry
	writes  int
}

func NewLeaderboardStore() *LeaderboardStore {
	return &LeaderboardStore{entries: make(map[string]domain.LeaderboardEntry)}
}

func (s *LeaderboardStore) ApplyDelta(_ context.Context, seed domain.LeaderboardEntry, delta int) (domain.LeaderboardEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
	entry, ok := s.entries[seed.UserID]
	if !ok {
		s.entries[seed.UserID] = seed
		return seed, nil
	}
	entry.TotalScore += delta
	if entry.TotalScore < 0 {
		entry.TotalScore = 0
	}
	entry.UpdatedAt = seed.UpdatedAt
	s.entries[seed.UserID] = entry
	return entry, nil
}

func (s *LeaderboardStore) SetTotal(_ context.Context, seed domain.LeaderboardEntry) (domain.LeaderboardEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
	entry, ok := s.entries[seed.UserID]
	if !ok {
		s.entries[seed.UserID] = seed
		return seed, nil
	}
	entry.TotalScore = seed.TotalScore
	entry.UpdatedAt = seed.UpdatedAt
	s.entries[seed.UserID] = entry
	return entry, nil
}

func (s *LeaderboardStore) Get(_ context.Context, userID string) (domain.LeaderboardEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e, ok := s.entries[userID]; ok {
		return e, nil
	}
	return domain.LeaderboardEntry{}, domain.ErrLeaderboardEntryNotFound
}

// Top orders by score desc, then who reached the score earlier, then user id.
func (s *LeaderboardStore) Top(_ context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	s.mu.RLock()
	entries := make([]domain.LeaderboardEntry, 0, len(s.entries))
	for _, e := range s.entries {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].TotalScore != entries[j].TotalScore {
			return entries[i].TotalScore > entries[j].TotalScore
		}
		if !entries[i].UpdatedAt.Equal(entries[j].UpdatedAt) {
			return entries[i].UpdatedAt.Before(entries[j].UpdatedAt)
		}
		return entries[i].UserID < entries[j].UserID
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// Writes counts ApplyDelta and SetTotal calls.
func (s *LeaderboardStore) Writes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}
