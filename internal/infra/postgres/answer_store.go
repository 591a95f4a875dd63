package postgres

import (
	"context"

	"github.com/uptrace/bun"
	"lesson-progress-service/internal/domain"
)

// AnswerStore implements app.AnswerStore on bun.
type AnswerStore struct {
	db bun.IDB
}

func NewAnswerStore(db bun.IDB) *AnswerStore {
	return &AnswerStore{db: db}
}

func (s *AnswerStore) Get(ctx context.Context, answerID string) (domain.Answer, error) {
	var row answerRow
	err := s.db.NewSelect().Model(&row).Where("a.id = ?", answerID).Scan(ctx)
	if err != nil {
		return domain.Answer{}, storageErr("get answer", err, domain.ErrAnswerNotFound)
	}
	return row.toDomain(), nil
}

func (s *AnswerStore) FindByUserQuestion(ctx context.Context, userID, questionID string) (domain.Answer, error) {
	var row answerRow
	err := s.db.NewSelect().Model(&row).
		Where("a.user_id = ?", userID).
		Where("a.question_id = ?", questionID).
		Scan(ctx)
	if err != nil {
		return domain.Answer{}, storageErr("find answer", err, domain.ErrAnswerNotFound)
	}
	return row.toDomain(), nil
}

func (s *AnswerStore) Create(ctx context.Context, answer domain.Answer) error {
	row := newAnswerRow(answer)
	_, err := s.db.NewInsert().Model(&row).Exec(ctx)
	return storageErr("create answer", err, nil)
}

// Update writes only the fields present in update and returns the stored row.
func (s *AnswerStore) Update(ctx context.Context, answerID string, update domain.AnswerUpdate) (domain.Answer, error) {
	if update.IsEmpty() {
		return s.Get(ctx, answerID)
	}

	var row answerRow
	q := s.db.NewUpdate().Model(&row).Where("a.id = ?", answerID).Returning("*")
	if update.SubmitAnswer != nil {
		q = q.Set("submit_answer = ?", *update.SubmitAnswer)
	}
	if update.RightAnswer != nil {
		q = q.Set("right_answer = ?", *update.RightAnswer)
	}
	if update.Score != nil {
		q = q.Set("score = ?", *update.Score)
	}
	if update.UpdatedAt != nil {
		q = q.Set("updated_at = ?", *update.UpdatedAt)
	}
	if _, err := q.Exec(ctx); err != nil {
		return domain.Answer{}, storageErr("update answer", err, domain.ErrAnswerNotFound)
	}
	if row.ID == "" {
		return domain.Answer{}, domain.ErrAnswerNotFound
	}
	return row.toDomain(), nil
}

func (s *AnswerStore) ListByUserLesson(ctx context.Context, userID, lessonID string) ([]domain.Answer, error) {
	var rows []answerRow
	err := s.db.NewSelect().Model(&rows).
		Where("a.user_id = ?", userID).
		Where("a.lesson_id = ?", lessonID).
		Order("a.question_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, storageErr("list answers", err, nil)
	}
	out := make([]domain.Answer, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (s *AnswerStore) CountByUser(ctx context.Context, userID string) (int, error) {
	n, err := s.db.NewSelect().Model((*answerRow)(nil)).Where("a.user_id = ?", userID).Count(ctx)
	return n, storageErr("count answers", err, nil)
}

func (s *AnswerStore) CountByScore(ctx context.Context, userID string, score int) (int, error) {
	n, err := s.db.NewSelect().Model((*answerRow)(nil)).
		Where("a.user_id = ?", userID).
		Where("a.score = ?", score).
		Count(ctx)
	return n, storageErr("count answers by score", err, nil)
}

func (s *AnswerStore) SumScoreByUser(ctx context.Context, userID string) (int, error) {
	var sum int
	err := s.db.NewSelect().Model((*answerRow)(nil)).
		ColumnExpr("COALESCE(SUM(a.score), 0)").
		Where("a.user_id = ?", userID).
		Scan(ctx, &sum)
	return sum, storageErr("sum scores", err, nil)
}

func (s *AnswerStore) UserIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.db.NewSelect().Model((*answerRow)(nil)).
		Distinct().
		Column("user_id").
		Order("user_id ASC").
		Scan(ctx, &ids)
	if err != nil {
		return nil, storageErr("list answer users", err, nil)
	}
	return ids, nil
}
