package app

import (
	"context"
	"time"

	"lesson-progress-service/internal/domain"
)

// ScoreAggregator keeps each user's leaderboard total equal to the sum of their answer scores.
type ScoreAggregator struct {
	entries LeaderboardStore
	answers AnswerStore
	now     func() time.Time
	newID   func() string
}

func NewScoreAggregator(entries LeaderboardStore, answers AnswerStore, now func() time.Time, newID func() string) *ScoreAggregator {
	return &ScoreAggregator{entries: entries, answers: answers, now: now, newID: newID}
}

// ApplyDelta adds newScore-oldScore to the user's total, creating the entry with
// newScore when the user has none yet.
func (a *ScoreAggregator) ApplyDelta(ctx context.Context, userID string, oldScore, newScore int) (domain.LeaderboardEntry, error) {
	return a.entries.ApplyDelta(ctx, a.seed(userID, newScore), newScore-oldScore)
}

// Reconcile overwrites the user's total with the sum of their current answer scores.
func (a *ScoreAggregator) Reconcile(ctx context.Context, userID string) (domain.LeaderboardEntry, error) {
	sum, err := a.answers.SumScoreByUser(ctx, userID)
	if err != nil {
		return domain.LeaderboardEntry{}, err
	}
	return a.entries.SetTotal(ctx, a.seed(userID, sum))
}

// ReconcileAll runs Reconcile for every user that has at least one answer.
func (a *ScoreAggregator) ReconcileAll(ctx context.Context) ([]domain.LeaderboardEntry, error) {
	userIDs, err := a.answers.UserIDs(ctx)
	if err != nil {
		return nil, err
	}
	entries := make([]domain.LeaderboardEntry, 0, len(userIDs))
	for _, userID := range userIDs {
		entry, err := a.Reconcile(ctx, userID)
		if err != nil {
			return entries, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (a *ScoreAggregator) seed(userID string, total int) domain.LeaderboardEntry {
	now := a.now()
	if total < 0 {
		total = 0
	}
	return domain.LeaderboardEntry{
		ID:         a.newID(),
		UserID:     userID,
		TotalScore: total,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}
