package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"lesson-progress-service/internal/domain"
)

func TestLeaderboardStoreApplyDelta(t *testing.T) {
	ctx := context.Background()
	store := NewLeaderboardStore()
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	entry, err := store.ApplyDelta(ctx, domain.LeaderboardEntry{ID: "e1", UserID: "u1", TotalScore: 1, CreatedAt: t0, UpdatedAt: t0}, 1)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if entry.TotalScore != 1 || entry.ID != "e1" {
		t.Fatalf("expected seeded entry, got %+v", entry)
	}

	t1 := t0.Add(time.Minute)
	entry, _ = store.ApplyDelta(ctx, domain.LeaderboardEntry{ID: "ignored", UserID: "u1", TotalScore: 0, UpdatedAt: t1}, -1)
	if entry.TotalScore != 0 || entry.ID != "e1" || !entry.UpdatedAt.Equal(t1) {
		t.Fatalf("expected decremented entry keeping id, got %+v", entry)
	}

	entry, _ = store.ApplyDelta(ctx, domain.LeaderboardEntry{UserID: "u1", UpdatedAt: t1}, -1)
	if entry.TotalScore != 0 {
		t.Fatalf("expected total clamped at zero, got %d", entry.TotalScore)
	}
}

func TestLeaderboardStoreTopOrdering(t *testing.T) {
	ctx := context.Background()
	store := NewLeaderboardStore()
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	_, _ = store.SetTotal(ctx, domain.LeaderboardEntry{UserID: "late", TotalScore: 3, UpdatedAt: t0.Add(time.Hour)})
	_, _ = store.SetTotal(ctx, domain.LeaderboardEntry{UserID: "early", TotalScore: 3, UpdatedAt: t0})
	_, _ = store.SetTotal(ctx, domain.LeaderboardEntry{UserID: "low", TotalScore: 1, UpdatedAt: t0})

	top, err := store.Top(ctx, 2)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	if len(top) != 2 || top[0].UserID != "early" || top[1].UserID != "late" {
		t.Fatalf("unexpected order: %+v", top)
	}
}

func TestAnswerStoreRejectsDuplicatePair(t *testing.T) {
	ctx := context.Background()
	store := NewAnswerStore()

	if err := store.Create(ctx, domain.Answer{ID: "a1", UserID: "u1", QuestionID: "q1", Score: 1}); err != nil {
		t.Fatalf("create: %v", err)
	}
	err := store.Create(ctx, domain.Answer{ID: "a2", UserID: "u1", QuestionID: "q1"})
	if !errors.Is(err, domain.ErrStorage) {
		t.Fatalf("expected storage error for duplicate, got %v", err)
	}

	score := 0
	updated, err := store.Update(ctx, "a1", domain.AnswerUpdate{Score: &score})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Score != 0 {
		t.Fatalf("expected explicit zero applied, got %d", updated.Score)
	}
	if _, err := store.Update(ctx, "missing", domain.AnswerUpdate{}); !errors.Is(err, domain.ErrAnswerNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestProgressStoreListByRange(t *testing.T) {
	ctx := context.Background()
	store := NewProgressStore()
	for i, p := range []float64{0, 50, 100} {
		lesson := []string{"l0", "l50", "l100"}[i]
		if err := store.Create(ctx, domain.ProgressRecord{ID: lesson, UserID: "u1", LessonID: lesson, Progress: p}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	done, _ := store.ListByRange(ctx, "u1", 100, 100)
	if len(done) != 1 || done[0].LessonID != "l100" {
		t.Fatalf("expected only completed lesson, got %+v", done)
	}
	started, _ := store.ListByRange(ctx, "u1", 1, 99)
	if len(started) != 1 || started[0].LessonID != "l50" {
		t.Fatalf("expected only in-progress lesson, got %+v", started)
	}
}
