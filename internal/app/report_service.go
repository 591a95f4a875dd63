package app

import (
	"context"
	"errors"
	"log"

	"lesson-progress-service/internal/domain"
)

const (
	defaultLeaderboardLimit = 10
	maxLeaderboardLimit     = 100
)

// ReportService exposes read-only views over the workflow's persisted state.
type ReportService struct {
	catalog       Catalog
	answers       AnswerStore
	entries       LeaderboardStore
	progress      ProgressStore
	notifications NotificationStore
}

// NewReportService builds the read side. notifications may be nil.
func NewReportService(stores Stores, notifications NotificationStore) *ReportService {
	return &ReportService{
		catalog:       stores.Catalog,
		answers:       stores.Answers,
		entries:       stores.Leaderboard,
		progress:      stores.Progress,
		notifications: notifications,
	}
}

func (r *ReportService) Answer(ctx context.Context, answerID string) (domain.Answer, error) {
	return r.answers.Get(ctx, answerID)
}

func (r *ReportService) LeaderboardEntry(ctx context.Context, userID string) (domain.LeaderboardEntry, error) {
	return r.entries.Get(ctx, userID)
}

// Leaderboard returns the top entries; limit defaults to 10 and is capped at 100.
func (r *ReportService) Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	return r.entries.Top(ctx, ClampLimit(limit))
}

// ListProgress returns the user's lessons whose progress lies in [min, max], joined
// with lesson details and right-answer counts.
func (r *ReportService) ListProgress(ctx context.Context, userID string, min, max float64) ([]domain.LessonProgress, error) {
	if min < 0 || max > 100 || min > max {
		return nil, domain.ErrInvalidProgressRange
	}
	records, err := r.progress.ListByRange(ctx, userID, min, max)
	if err != nil {
		return nil, err
	}

	out := make([]domain.LessonProgress, 0, len(records))
	for _, record := range records {
		lesson, err := r.catalog.GetLesson(ctx, record.LessonID)
		if errors.Is(err, domain.ErrNotFound) {
			log.Printf("progress listing: lesson %s no longer exists", record.LessonID)
			continue
		}
		if err != nil {
			return nil, err
		}
		questions, err := r.catalog.QuestionsByLesson(ctx, lesson.ID)
		if err != nil {
			return nil, err
		}
		answers, err := r.answers.ListByUserLesson(ctx, userID, lesson.ID)
		if err != nil {
			return nil, err
		}
		right := 0
		for _, a := range answers {
			if a.Score == 1 {
				right++
			}
		}
		out = append(out, domain.LessonProgress{
			Lesson:            lesson,
			MyProgress:        record.Progress,
			TotalRightAnswers: right,
			TotalQuestions:    len(questions),
		})
	}
	return out, nil
}

// UserStats summarizes a user's answers, score and completed lessons.
func (r *ReportService) UserStats(ctx context.Context, userID string) (domain.UserStats, error) {
	if _, err := r.catalog.GetUser(ctx, userID); err != nil {
		return domain.UserStats{}, err
	}
	correct, err := r.answers.CountByScore(ctx, userID, 1)
	if err != nil {
		return domain.UserStats{}, err
	}
	answered, err := r.answers.CountByUser(ctx, userID)
	if err != nil {
		return domain.UserStats{}, err
	}
	total, err := r.answers.SumScoreByUser(ctx, userID)
	if err != nil {
		return domain.UserStats{}, err
	}
	completed, err := r.progress.ListByRange(ctx, userID, 100, 100)
	if err != nil {
		return domain.UserStats{}, err
	}
	return domain.UserStats{
		UserID:            userID,
		TotalScore:        total,
		CorrectAnswers:    correct,
		AnsweredQuestions: answered,
		CompletedLessons:  len(completed),
	}, nil
}

// Notifications lists what has been sent to the user; empty when no store is wired.
func (r *ReportService) Notifications(ctx context.Context, userID string) ([]domain.Notification, error) {
	if r.notifications == nil {
		return []domain.Notification{}, nil
	}
	return r.notifications.ListByUser(ctx, userID)
}

// ClampLimit applies the leaderboard default and cap.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return defaultLeaderboardLimit
	}
	if limit > maxLeaderboardLimit {
		return maxLeaderboardLimit
	}
	return limit
}
