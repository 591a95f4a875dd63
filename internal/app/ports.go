package app

import (
	"context"

	"lesson-progress-service/internal/domain"
)

// Catalog is the read-only reference data (users, lessons, questions) owned elsewhere.
type Catalog interface {
	GetUser(ctx context.Context, userID string) (domain.User, error)
	GetLesson(ctx context.Context, lessonID string) (domain.Lesson, error)
	GetQuestion(ctx context.Context, questionID string) (domain.Question, error)
	QuestionsByLesson(ctx context.Context, lessonID string) ([]domain.Question, error)
}

// AnswerStore persists Answer records, at most one per (user, question).
type AnswerStore interface {
	Get(ctx context.Context, answerID string) (domain.Answer, error)
	FindByUserQuestion(ctx context.Context, userID, questionID string) (domain.Answer, error)
	Create(ctx context.Context, answer domain.Answer) error
	Update(ctx context.Context, answerID string, update domain.AnswerUpdate) (domain.Answer, error)
	ListByUserLesson(ctx context.Context, userID, lessonID string) ([]domain.Answer, error)
	CountByUser(ctx context.Context, userID string) (int, error)
	CountByScore(ctx context.Context, userID string, score int) (int, error)
	SumScoreByUser(ctx context.Context, userID string) (int, error)
	UserIDs(ctx context.Context) ([]string, error)
}

// LeaderboardStore persists per-user totals. ApplyDelta must be atomic: when no entry
// exists for seed.UserID the seed is stored as-is, otherwise the stored total is
// incremented by delta (never below zero) and UpdatedAt is taken from the seed.
type LeaderboardStore interface {
	ApplyDelta(ctx context.Context, seed domain.LeaderboardEntry, delta int) (domain.LeaderboardEntry, error)
	SetTotal(ctx context.Context, seed domain.LeaderboardEntry) (domain.LeaderboardEntry, error)
	Get(ctx context.Context, userID string) (domain.LeaderboardEntry, error)
	Top(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error)
}

// ProgressStore persists ProgressRecords, at most one per (user, lesson).
type ProgressStore interface {
	Find(ctx context.Context, userID, lessonID string) (domain.ProgressRecord, error)
	Create(ctx context.Context, record domain.ProgressRecord) error
	Update(ctx context.Context, recordID string, update domain.ProgressUpdate) (domain.ProgressRecord, error)
	ListByRange(ctx context.Context, userID string, min, max float64) ([]domain.ProgressRecord, error)
}

// NotificationStore keeps notifications for later listing.
type NotificationStore interface {
	Save(ctx context.Context, n domain.Notification) error
	ListByUser(ctx context.Context, userID string) ([]domain.Notification, error)
}

// Notifier delivers a notification somewhere (store, pub/sub, log).
type Notifier interface {
	Notify(ctx context.Context, n domain.Notification) error
}

// Locker serializes work on a key. The returned function releases the lock.
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}
