package postgres

import (
	"time"

	"github.com/uptrace/bun"
	"lesson-progress-service/internal/domain"
)

type answerRow struct {
	bun.BaseModel `bun:"table:answers,alias:a"`

	ID           string    `bun:"id,pk"`
	UserID       string    `bun:"user_id,notnull"`
	CourseID     string    `bun:"course_id,notnull"`
	LessonID     string    `bun:"lesson_id,notnull"`
	QuestionID   string    `bun:"question_id,notnull"`
	SubmitAnswer string    `bun:"submit_answer,notnull"`
	RightAnswer  string    `bun:"right_answer,notnull"`
	Score        int       `bun:"score,notnull"`
	CreatedAt    time.Time `bun:"created_at,notnull"`
	UpdatedAt    time.Time `bun:"updated_at,notnull"`
}

func newAnswerRow(a domain.Answer) answerRow {
	return answerRow{
		ID:           a.ID,
		UserID:       a.UserID,
		CourseID:     a.CourseID,
		LessonID:     a.LessonID,
		QuestionID:   a.QuestionID,
		SubmitAnswer: a.SubmitAnswer,
		RightAnswer:  a.RightAnswer,
		Score:        a.Score,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
}

func (r answerRow) toDomain() domain.Answer {
	return domain.Answer{
		ID:           r.ID,
		UserID:       r.UserID,
		CourseID:     r.CourseID,
		LessonID:     r.LessonID,
		QuestionID:   r.QuestionID,
		SubmitAnswer: r.SubmitAnswer,
		RightAnswer:  r.RightAnswer,
		Score:        r.Score,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

type leaderboardRow struct {
	bun.BaseModel `bun:"table:leaderboard_entries,alias:le"`

	ID         string    `bun:"id,pk"`
	UserID     string    `bun:"user_id,notnull"`
	TotalScore int       `bun:"total_score,notnull"`
	CreatedAt  time.Time `bun:"created_at,notnull"`
	UpdatedAt  time.Time `bun:"updated_at,notnull"`
}

func newLeaderboardRow(e domain.LeaderboardEntry) leaderboardRow {
	return leaderboardRow{
		ID:         e.ID,
		UserID:     e.UserID,
		TotalScore: e.TotalScore,
		CreatedAt:  e.CreatedAt,
		UpdatedAt:  e.UpdatedAt,
	}
}

func (r leaderboardRow) toDomain() domain.LeaderboardEntry {
	return domain.LeaderboardEntry{
		ID:         r.ID,
		UserID:     r.UserID,
		TotalScore: r.TotalScore,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

type progressRow struct {
	bun.BaseModel `bun:"table:progress_records,alias:p"`

	ID        string    `bun:"id,pk"`
	UserID    string    `bun:"user_id,notnull"`
	LessonID  string    `bun:"lesson_id,notnull"`
	CourseID  string    `bun:"course_id,notnull"`
	Progress  float64   `bun:"progress,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

func newProgressRow(p domain.ProgressRecord) progressRow {
	return progressRow{
		ID:        p.ID,
		UserID:    p.UserID,
		LessonID:  p.LessonID,
		CourseID:  p.CourseID,
		Progress:  p.Progress,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func (r progressRow) toDomain() domain.ProgressRecord {
	return domain.ProgressRecord{
		ID:        r.ID,
		UserID:    r.UserID,
		LessonID:  r.LessonID,
		CourseID:  r.CourseID,
		Progress:  r.Progress,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

type notificationRow struct {
	bun.BaseModel `bun:"table:notifications,alias:n"`

	ID          string    `bun:"id,pk"`
	UserID      string    `bun:"user_id,notnull"`
	Title       string    `bun:"title,notnull"`
	Description string    `bun:"description,notnull"`
	CreatedAt   time.Time `bun:"created_at,notnull"`
}
