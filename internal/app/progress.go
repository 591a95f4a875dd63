package app

import (
	"context"
	"errors"
	"log"
	"time"

	"lesson-progress-service/internal/domain"
)

// ProgressChange is the outcome of one recompute.
type ProgressChange struct {
	Record   domain.ProgressRecord
	Previous float64
	Created  bool
}

// JustCompleted reports whether this recompute moved the lesson to 100%.
func (c ProgressChange) JustCompleted() bool {
	return c.Record.Completed() && (c.Created || c.Previous < 100)
}

// ProgressCalculator derives per-(user, lesson) completion from the answer store.
type ProgressCalculator struct {
	catalog  Catalog
	answers  AnswerStore
	progress ProgressStore
	now      func() time.Time
	newID    func() string
}

func NewProgressCalculator(catalog Catalog, answers AnswerStore, progress ProgressStore, now func() time.Time, newID func() string) *ProgressCalculator {
	return &ProgressCalculator{catalog: catalog, answers: answers, progress: progress, now: now, newID: newID}
}

// Recompute recalculates progress for the pair from source data and upserts the record.
func (c *ProgressCalculator) Recompute(ctx context.Context, userID, lessonID string) (ProgressChange, error) {
	questions, err := c.catalog.QuestionsByLesson(ctx, lessonID)
	if err != nil {
		return ProgressChange{}, err
	}
	answers, err := c.answers.ListByUserLesson(ctx, userID, lessonID)
	if err != nil {
		return ProgressChange{}, err
	}
	value := lessonProgress(questions, answers)
	now := c.now()

	existing, err := c.progress.Find(ctx, userID, lessonID)
	switch {
	case err == nil:
		updated, err := c.progress.Update(ctx, existing.ID, domain.ProgressUpdate{
			Progress:  &value,
			UpdatedAt: &now,
		})
		if err != nil {
			return ProgressChange{}, err
		}
		return ProgressChange{Record: updated, Previous: existing.Progress}, nil
	case errors.Is(err, domain.ErrNotFound):
	default:
		return ProgressChange{}, err
	}

	record := domain.ProgressRecord{
		ID:        c.newID(),
		UserID:    userID,
		LessonID:  lessonID,
		CourseID:  c.courseFor(ctx, lessonID, questions),
		Progress:  value,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := c.progress.Create(ctx, record); err != nil {
		return ProgressChange{}, err
	}
	return ProgressChange{Record: record, Created: true}, nil
}

func (c *ProgressCalculator) courseFor(ctx context.Context, lessonID string, questions []domain.Question) string {
	lesson, err := c.catalog.GetLesson(ctx, lessonID)
	if err == nil {
		return lesson.CourseID
	}
	log.Printf("progress: lesson %s lookup failed, using question course: %v", lessonID, err)
	if len(questions) > 0 {
		return questions[0].CourseID
	}
	return ""
}

// lessonProgress counts distinct answered questions that still belong to the lesson.
func lessonProgress(questions []domain.Question, answers []domain.Answer) float64 {
	if len(questions) == 0 {
		return 0
	}
	inLesson := make(map[string]struct{}, len(questions))
	for _, q := range questions {
		inLesson[q.ID] = struct{}{}
	}
	answered := make(map[string]struct{}, len(answers))
	for _, a := range answers {
		if _, ok := inLesson[a.QuestionID]; ok {
			answered[a.QuestionID] = struct{}{}
		}
	}
	return 100.0 * float64(len(answered)) / float64(len(inLesson))
}
