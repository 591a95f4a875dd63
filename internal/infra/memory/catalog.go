package memory

import (
	"context"
	"sort"
	"sync"

	"lesson-progress-service/internal/domain"
)

// Catalog is an in-memory catalog of users, lessons and questions (useful for tests/demos).
type Catalog struct {
	mu        sync.RWMutex
	users     map[string]domain.User
	lessons   map[string]domain.Lesson
	questions map[string]domain.Question
}

// CatalogData seeds a Catalog.
type CatalogData struct {
	Users     []domain.User
	Courses   []domain.Course
	Lessons   []domain.Lesson
	Questions []domain.Question
}

func NewCatalog(data CatalogData) *Catalog {
	c := &Catalog{
		users:     make(map[string]domain.User),
		lessons:   make(map[string]domain.Lesson),
		questions: make(map[string]domain.Question),
	}
	for _, u := range data.Users {
		c.users[u.ID] = u
	}
	for _, l := range data.Lessons {
		c.lessons[l.ID] = l
	}
	for _, q := range data.Questions {
		c.questions[q.ID] = q
	}
	return c
}

func (c *Catalog) GetUser(_ context.Context, userID string) (domain.User, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if u, ok := c.users[userID]; ok {
		return u, nil
	}
	return domain.User{}, domain.ErrUserNotFound
}

func (c *Catalog) GetLesson(_ context.Context, lessonID string) (domain.Lesson, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if l, ok := c.lessons[lessonID]; ok {
		return l, nil
	}
	return domain.Lesson{}, domain.ErrLessonNotFound
}

func (c *Catalog) GetQuestion(_ context.Context, questionID string) (domain.Question, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if q, ok := c.questions[questionID]; ok {
		return q, nil
	}
	return domain.Question{}, domain.ErrQuestionNotFound
}

// QuestionsByLesson returns the lesson's questions ordered by id.
func (c *Catalog) QuestionsByLesson(_ context.Context, lessonID string) ([]domain.Question, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.Question, 0)
	for _, q := range c.questions {
		if q.LessonID == lessonID {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// PutQuestion inserts or replaces a question, e.g. to simulate an admin edit.
func (c *Catalog) PutQuestion(q domain.Question) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.questions[q.ID] = q
}
