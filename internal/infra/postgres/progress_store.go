package postgres

import (
	"context"

	"github.com/uptrace/bun"
	"lesson-progress-service/internal/domain"
)

// ProgressStore implements app.ProgressStore on bun.
type ProgressStore struct {
	db bun.IDB
}

func NewProgressStore(db bun.IDB) *ProgressStore {
	return &ProgressStore{db: db}
}

func (s *ProgressStore) Find(ctx context.Context, userID, lessonID string) (domain.ProgressRecord, error) {
	var row progressRow
	err := s.db.NewSelect().Model(&row).
		Where("p.user_id = ?", userID).
		Where("p.lesson_id = ?", lessonID).
		Scan(ctx)
	if err != nil {
		return domain.ProgressRecord{}, storageErr("find progress", err, domain.ErrProgressNotFound)
	}
	return row.toDomain(), nil
}

func (s *ProgressStore) Create(ctx context.Context, record domain.ProgressRecord) error {
	row := newProgressRow(record)
	_, err := s.db.NewInsert().Model(&row).Exec(ctx)
	return storageErr("create progress", err, nil)
}

func (s *ProgressStore) Update(ctx context.Context, recordID string, update domain.ProgressUpdate) (domain.ProgressRecord, error) {
	var row progressRow
	q := s.db.NewUpdate().Model(&row).Where("p.id = ?", recordID).Returning("*")
	changed := false
	if update.Progress != nil {
		q = q.Set("progress = ?", *update.Progress)
		changed = true
	}
	if update.CourseID != nil {
		q = q.Set("course_id = ?", *update.CourseID)
		changed = true
	}
	if update.UpdatedAt != nil {
		q = q.Set("updated_at = ?", *update.UpdatedAt)
		changed = true
	}
	if !changed {
		err := s.db.NewSelect().Model(&row).Where("p.id = ?", recordID).Scan(ctx)
		if err != nil {
			return domain.ProgressRecord{}, storageErr("get progress", err, domain.ErrProgressNotFound)
		}
		return row.toDomain(), nil
	}
	if _, err := q.Exec(ctx); err != nil {
		return domain.ProgressRecord{}, storageErr("update progress", err, domain.ErrProgressNotFound)
	}
	if row.ID == "" {
		return domain.ProgressRecord{}, domain.ErrProgressNotFound
	}
	return row.toDomain(), nil
}

// ListByRange returns the user's records with min <= progress <= max, by lesson id.
func (s *ProgressStore) ListByRange(ctx context.Context, userID string, min, max float64) ([]domain.ProgressRecord, error) {
	var rows []progressRow
	err := s.db.NewSelect().Model(&rows).
		Where("p.user_id = ?", userID).
		Where("p.progress >= ?", min).
		Where("p.progress <= ?", max).
		Order("p.lesson_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, storageErr("list progress", err, nil)
	}
	out := make([]domain.ProgressRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}
