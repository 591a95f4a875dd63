package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"lesson-progress-service/internal/domain"
)

// LedgerEntry is the outcome of recording one submission.
type LedgerEntry struct {
	Answer   domain.Answer
	OldScore int
	NewScore int
	LessonID string
	CourseID string
	Created  bool
}

// AnswerLedger owns per-(user, question) answer records.
type AnswerLedger struct {
	catalog Catalog
	answers AnswerStore
	now     func() time.Time
	newID   func() string
}

func NewAnswerLedger(catalog Catalog, answers AnswerStore, now func() time.Time, newID func() string) *AnswerLedger {
	return &AnswerLedger{catalog: catalog, answers: answers, now: now, newID: newID}
}

// Submit validates the submission, grades it against the question's current correct
// answer and creates or overwrites the user's answer for that question.
func (l *AnswerLedger) Submit(ctx context.Context, sub domain.AnswerSubmission) (LedgerEntry, error) {
	if err := validateSubmission(sub); err != nil {
		return LedgerEntry{}, err
	}
	if _, err := l.catalog.GetUser(ctx, sub.UserID); err != nil {
		return LedgerEntry{}, err
	}
	question, err := l.catalog.GetQuestion(ctx, sub.QuestionID)
	if err != nil {
		return LedgerEntry{}, err
	}
	return l.record(ctx, sub, question)
}

func (l *AnswerLedger) record(ctx context.Context, sub domain.AnswerSubmission, question domain.Question) (LedgerEntry, error) {
	newScore := gradeAnswer(question, sub.SubmitAnswer)
	now := l.now()

	existing, err := l.answers.FindByUserQuestion(ctx, sub.UserID, question.ID)
	switch {
	case err == nil:
		updated, err := l.answers.Update(ctx, existing.ID, domain.AnswerUpdate{
			SubmitAnswer: &sub.SubmitAnswer,
			RightAnswer:  &question.CorrectAnswer,
			Score:        &newScore,
			UpdatedAt:    &now,
		})
		if err != nil {
			return LedgerEntry{}, err
		}
		return LedgerEntry{
			Answer:   updated,
			OldScore: existing.Score,
			NewScore: newScore,
			LessonID: question.LessonID,
			CourseID: question.CourseID,
		}, nil
	case errors.Is(err, domain.ErrNotFound):
	default:
		return LedgerEntry{}, err
	}

	answer := domain.Answer{
		ID:           l.newID(),
		UserID:       sub.UserID,
		CourseID:     question.CourseID,
		LessonID:     question.LessonID,
		QuestionID:   question.ID,
		SubmitAnswer: sub.SubmitAnswer,
		RightAnswer:  question.CorrectAnswer,
		Score:        newScore,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := l.answers.Create(ctx, answer); err != nil {
		return LedgerEntry{}, err
	}
	return LedgerEntry{
		Answer:   answer,
		OldScore: 0,
		NewScore: newScore,
		LessonID: question.LessonID,
		CourseID: question.CourseID,
		Created:  true,
	}, nil
}

// gradeAnswer is an exact string comparison; no trimming or case folding.
func gradeAnswer(question domain.Question, submitted string) int {
	if submitted == question.CorrectAnswer {
		return 1
	}
	return 0
}

func validateSubmission(sub domain.AnswerSubmission) error {
	if strings.TrimSpace(sub.UserID) == "" || strings.TrimSpace(sub.QuestionID) == "" {
		return domain.ErrMissingID
	}
	if sub.SubmitAnswer == "" {
		return domain.ErrEmptySubmission
	}
	return nil
}
