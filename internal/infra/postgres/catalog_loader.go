package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"lesson-progress-service/internal/domain"
)

// CatalogLoader reads users, lessons and questions from Postgres.
// Question options are stored as a JSONB array.
type CatalogLoader struct {
	pool *pgxpool.Pool
}

func NewCatalogLoader(pool *pgxpool.Pool) *CatalogLoader {
	return &CatalogLoader{pool: pool}
}

func (l *CatalogLoader) GetUser(ctx context.Context, userID string) (domain.User, error) {
	var u domain.User
	err := l.pool.QueryRow(ctx, `SELECT id, name, email FROM users WHERE id=$1`, userID).
		Scan(&u.ID, &u.Name, &u.Email)
	if err != nil {
		return domain.User{}, loadErr("load user", err, domain.ErrUserNotFound)
	}
	return u, nil
}

func (l *CatalogLoader) GetLesson(ctx context.Context, lessonID string) (domain.Lesson, error) {
	var lesson domain.Lesson
	err := l.pool.QueryRow(ctx,
		`SELECT id, course_id, name, description, image_url, created_at, updated_at FROM lessons WHERE id=$1`,
		lessonID,
	).Scan(&lesson.ID, &lesson.CourseID, &lesson.Name, &lesson.Description, &lesson.ImageURL, &lesson.CreatedAt, &lesson.UpdatedAt)
	if err != nil {
		return domain.Lesson{}, loadErr("load lesson", err, domain.ErrLessonNotFound)
	}
	return lesson, nil
}

func (l *CatalogLoader) GetQuestion(ctx context.Context, questionID string) (domain.Question, error) {
	row := l.pool.QueryRow(ctx,
		`SELECT id, lesson_id, course_id, name, difficulty, options, correct_answer FROM questions WHERE id=$1`,
		questionID,
	)
	q, err := scanQuestion(row)
	if err != nil {
		return domain.Question{}, loadErr("load question", err, domain.ErrQuestionNotFound)
	}
	return q, nil
}

func (l *CatalogLoader) QuestionsByLesson(ctx context.Context, lessonID string) ([]domain.Question, error) {
	rows, err := l.pool.Query(ctx,
		`SELECT id, lesson_id, course_id, name, difficulty, options, correct_answer FROM questions WHERE lesson_id=$1 ORDER BY id`,
		lessonID,
	)
	if err != nil {
		return nil, loadErr("load lesson questions", err, nil)
	}
	defer rows.Close()

	out := make([]domain.Question, 0)
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, loadErr("scan question", err, nil)
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, loadErr("load lesson questions", err, nil)
	}
	return out, nil
}

// CatalogSeed is the reference data written by Seed.
type CatalogSeed struct {
	Users     []domain.User
	Courses   []domain.Course
	Lessons   []domain.Lesson
	Questions []domain.Question
}

// Seed upserts the catalog by id in one transaction.
func (l *CatalogLoader) Seed(ctx context.Context, seed CatalogSeed) error {
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin seed: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, u := range seed.Users {
		batch.Queue(`INSERT INTO users (id, name, email) VALUES ($1, $2, $3)
			ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name, email=EXCLUDED.email`,
			u.ID, u.Name, u.Email)
	}
	for _, c := range seed.Courses {
		batch.Queue(`INSERT INTO courses (id, name) VALUES ($1, $2)
			ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name`,
			c.ID, c.Name)
	}
	for _, lesson := range seed.Lessons {
		batch.Queue(`INSERT INTO lessons (id, course_id, name, description, image_url) VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO UPDATE SET course_id=EXCLUDED.course_id, name=EXCLUDED.name,
				description=EXCLUDED.description, image_url=EXCLUDED.image_url, updated_at=now()`,
			lesson.ID, lesson.CourseID, lesson.Name, lesson.Description, lesson.ImageURL)
	}
	for _, q := range seed.Questions {
		options := q.Options
		if options == nil {
			options = []string{}
		}
		raw, err := json.Marshal(options)
		if err != nil {
			return fmt.Errorf("marshal options for %s: %w", q.ID, err)
		}
		batch.Queue(`INSERT INTO questions (id, lesson_id, course_id, name, difficulty, options, correct_answer)
			VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7)
			ON CONFLICT (id) DO UPDATE SET lesson_id=EXCLUDED.lesson_id, course_id=EXCLUDED.course_id,
				name=EXCLUDED.name, difficulty=EXCLUDED.difficulty, options=EXCLUDED.options,
				correct_answer=EXCLUDED.correct_answer`,
			q.ID, q.LessonID, q.CourseID, q.Name, q.Difficulty, string(raw), q.CorrectAnswer)
	}

	if batch.Len() == 0 {
		return tx.Commit(ctx)
	}
	results := tx.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return fmt.Errorf("seed catalog: %w", err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("seed catalog: %w", err)
	}
	return tx.Commit(ctx)
}

func scanQuestion(row pgx.Row) (domain.Question, error) {
	var (
		q   domain.Question
		raw []byte
	)
	if err := row.Scan(&q.ID, &q.LessonID, &q.CourseID, &q.Name, &q.Difficulty, &raw, &q.CorrectAnswer); err != nil {
		return domain.Question{}, err
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &q.Options); err != nil {
			return domain.Question{}, fmt.Errorf("unmarshal options: %w", err)
		}
	}
	return q, nil
}

func loadErr(op string, err error, notFound error) error {
	if errors.Is(err, pgx.ErrNoRows) && notFound != nil {
		return notFound
	}
	return domain.WrapStorage(op, err)
}
