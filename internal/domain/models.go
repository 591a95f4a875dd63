package domain

import "time"

// User is read-only reference data owned by the account service.
type User struct {
	ID    string `json:"id" yaml:"id"`
	Name  string `json:"name" yaml:"name"`
	Email string `json:"email" yaml:"email"`
}

type Course struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// Lesson belongs to a course; its question count is derived from the questions.
type Lesson struct {
	ID          string    `json:"id" yaml:"id"`
	CourseID    string    `json:"course_id" yaml:"course_id"`
	Name        string    `json:"name" yaml:"name"`
	Description string    `json:"description" yaml:"description"`
	ImageURL    string    `json:"image_url" yaml:"image_url"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" yaml:"updated_at"`
}

// Question models a catalog question with a single correct answer value.
type Question struct {
	ID            string   `json:"id" yaml:"id"`
	LessonID      string   `json:"lesson_id" yaml:"lesson_id"`
	CourseID      string   `json:"course_id" yaml:"course_id"`
	Name          string   `json:"name" yaml:"name"`
	Difficulty    string   `json:"difficulty" yaml:"difficulty"`
	Options       []string `json:"options" yaml:"options"`
	CorrectAnswer string   `json:"correct_answer" yaml:"correct_answer"`
}

// Answer is one user's current submission for one question.
type Answer struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	CourseID     string    `json:"course_id"`
	LessonID     string    `json:"lesson_id"`
	QuestionID   string    `json:"question_id"`
	SubmitAnswer string    `json:"submit_answer"`
	RightAnswer  string    `json:"right_answer"`
	Score        int       `json:"score"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// LeaderboardEntry holds a user's cumulative score. One per user.
type LeaderboardEntry struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	TotalScore int       `json:"total_score"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Leaderboard captures an ordered top-N view.
type Leaderboard struct {
	Entries   []LeaderboardEntry `json:"entries"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// ProgressRecord is the completion percentage for one (user, lesson) pair.
type ProgressRecord struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	LessonID  string    `json:"lesson_id"`
	CourseID  string    `json:"course_id"`
	Progress  float64   `json:"progress"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Completed reports whether every question in the lesson has been answered.
func (p ProgressRecord) Completed() bool {
	return p.Progress >= 100
}

// Notification is emitted when a user completes a lesson.
type Notification struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// AnswerSubmission is the client's input to the submission workflow.
type AnswerSubmission struct {
	UserID       string
	QuestionID   string
	SubmitAnswer string
}

// SubmissionResult summarizes what one submission changed.
type SubmissionResult struct {
	Answer   Answer           `json:"answer"`
	OldScore int              `json:"old_score"`
	NewScore int              `json:"new_score"`
	Entry    LeaderboardEntry `json:"leaderboard"`
	Progress ProgressRecord   `json:"progress"`
}

// LessonProgress joins a progress record with lesson details for range listings.
type LessonProgress struct {
	Lesson            Lesson  `json:"lesson"`
	MyProgress        float64 `json:"my_progress"`
	TotalRightAnswers int     `json:"total_right_answers"`
	TotalQuestions    int     `json:"total_questions"`
}

// UserStats is a per-user summary for dashboards.
type UserStats struct {
	UserID            string `json:"user_id"`
	TotalScore        int    `json:"total_score"`
	CorrectAnswers    int    `json:"correct_answers"`
	AnsweredQuestions int    `json:"answered_questions"`
	CompletedLessons  int    `json:"completed_lessons"`
}
