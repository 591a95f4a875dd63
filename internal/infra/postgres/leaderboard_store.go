package postgres

import (
	"context"

	"github.com/uptrace/bun"
	"lesson-progress-service/internal/domain"
)

// LeaderboardStore implements app.LeaderboardStore. Both writes are single
// INSERT ... ON CONFLICT statements keyed on user_id.
type LeaderboardStore struct {
	db bun.IDB
}

func NewLeaderboardStore(db bun.IDB) *LeaderboardStore {
	return &LeaderboardStore{db: db}
}

func (s *LeaderboardStore) ApplyDelta(ctx context.Context, seed domain.LeaderboardEntry, delta int) (domain.LeaderboardEntry, error) {
	row := newLeaderboardRow(seed)
	_, err := s.db.NewInsert().Model(&row).
		On("CONFLICT (user_id) DO UPDATE").
		Set("total_score = GREATEST(le.total_score + ?, 0)", delta).
		Set("updated_at = EXCLUDED.updated_at").
		Returning("*").
		Exec(ctx)
	if err != nil {
		return domain.LeaderboardEntry{}, storageErr("apply leaderboard delta", err, nil)
	}
	return row.toDomain(), nil
}

func (s *LeaderboardStore) SetTotal(ctx context.Context, seed domain.LeaderboardEntry) (domain.LeaderboardEntry, error) {
	row := newLeaderboardRow(seed)
	_, err := s.db.NewInsert().Model(&row).
		On("CONFLICT (user_id) DO UPDATE").
		Set("total_score = EXCLUDED.total_score").
		Set("updated_at = EXCLUDED.updated_at").
		Returning("*").
		Exec(ctx)
	if err != nil {
		return domain.LeaderboardEntry{}, storageErr("set leaderboard total", err, nil)
	}
	return row.toDomain(), nil
}

func (s *LeaderboardStore) Get(ctx context.Context, userID string) (domain.LeaderboardEntry, error) {
	var row leaderboardRow
	err := s.db.NewSelect().Model(&row).Where("le.user_id = ?", userID).Scan(ctx)
	if err != nil {
		return domain.LeaderboardEntry{}, storageErr("get leaderboard entry", err, domain.ErrLeaderboardEntryNotFound)
	}
	return row.toDomain(), nil
}

// Top orders by score desc, then who reached the score earlier, then user id.
func (s *LeaderboardStore) Top(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	var rows []leaderboardRow
	q := s.db.NewSelect().Model(&rows).
		Order("le.total_score DESC", "le.updated_at ASC", "le.user_id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, storageErr("top leaderboard", err, nil)
	}
	out := make([]domain.LeaderboardEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}
