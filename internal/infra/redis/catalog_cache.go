package redis

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
	"lesson-progress-service/internal/app"
	"lesson-progress-service/internal/domain"
)

// CatalogCache caches catalog reads in Redis and falls back to a loader on cache miss.
// Questions are stored as: HSET catalog:question:{id} lesson_id .. course_id .. correct_answer ..
// Lessons and per-lesson question lists are stored as JSON strings.
type CatalogCache struct {
	client *redis.Client
	loader app.Catalog
	ttl    time.Duration
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewCatalogCache(client *redis.Client, loader app.Catalog, ttl time.Duration) *CatalogCache {
	return &CatalogCache{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *CatalogCache) GetUser(ctx context.Context, userID string) (domain.User, error) {
	return c.loader.GetUser(ctx, userID)
}

func (c *CatalogCache) GetQuestion(ctx context.Context, questionID string) (domain.Question, error) {
	key := questionKey(questionID)
	if fields, err := c.client.HGetAll(ctx, key).Result(); err == nil && len(fields) > 0 {
		return questionFromHash(questionID, fields), nil
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if fields, err := c.client.HGetAll(ctx, key).Result(); err == nil && len(fields) > 0 {
			return questionFromHash(questionID, fields), nil
		}

		q, err := c.loader.GetQuestion(ctx, questionID)
		if err != nil {
			return domain.Question{}, err
		}
		options, _ := json.Marshal(q.Options)

		pipe := c.client.Pipeline()
		pipe.HSet(ctx, key,
			"lesson_id", q.LessonID,
			"course_id", q.CourseID,
			"name", q.Name,
			"difficulty", q.Difficulty,
			"options", string(options),
			"correct_answer", q.CorrectAnswer,
		)
		if ttl := c.ttlWithJitter(); ttl > 0 {
			pipe.Expire(ctx, key, ttl)
		}
		// the cache is best effort; the loaded value is still returned
		_, _ = pipe.Exec(ctx)
		return q, nil
	})
	if err != nil {
		return domain.Question{}, err
	}
	return result.(domain.Question), nil
}

func (c *CatalogCache) GetLesson(ctx context.Context, lessonID string) (domain.Lesson, error) {
	var lesson domain.Lesson
	err := c.loadJSON(ctx, lessonKey(lessonID), &lesson, func(ctx context.Context) (any, error) {
		return c.loader.GetLesson(ctx, lessonID)
	})
	return lesson, err
}

func (c *CatalogCache) QuestionsByLesson(ctx context.Context, lessonID string) ([]domain.Question, error) {
	var questions []domain.Question
	err := c.loadJSON(ctx, lessonQuestionsKey(lessonID), &questions, func(ctx context.Context) (any, error) {
		return c.loader.QuestionsByLesson(ctx, lessonID)
	})
	if questions == nil {
		questions = []domain.Question{}
	}
	return questions, err
}

// Invalidate drops the cached entries of one question and its lesson.
func (c *CatalogCache) Invalidate(ctx context.Context, q domain.Question) error {
	return c.client.Del(ctx, questionKey(q.ID), lessonKey(q.LessonID), lessonQuestionsKey(q.LessonID)).Err()
}

func (c *CatalogCache) loadJSON(ctx context.Context, key string, dest any, fetch func(context.Context) (any, error)) error {
	if data, err := c.client.Get(ctx, key).Bytes(); err == nil {
		return json.Unmarshal(data, dest)
	} else if !errors.Is(err, redis.Nil) {
		// Redis trouble: serve straight from the loader
		v, err := fetch(ctx)
		if err != nil {
			return err
		}
		return assign(v, dest)
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		v, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		data, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		_ = c.client.Set(ctx, key, data, c.ttlWithJitter()).Err()
		return data, nil
	})
	if err != nil {
		return err
	}
	return json.Unmarshal(result.([]byte), dest)
}

func assign(v any, dest any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

func questionKey(questionID string) string {
	return "catalog:question:" + questionID
}

func lessonKey(lessonID string) string {
	return "catalog:lesson:" + lessonID
}

func lessonQuestionsKey(lessonID string) string {
	return "catalog:lesson:" + lessonID + ":questions"
}

func questionFromHash(questionID string, fields map[string]string) domain.Question {
	q := domain.Question{
		ID:            questionID,
		LessonID:      fields["lesson_id"],
		CourseID:      fields["course_id"],
		Name:          fields["name"],
		Difficulty:    fields["difficulty"],
		CorrectAnswer: fields["correct_answer"],
	}
	if raw, ok := fields["options"]; ok && raw != "" {
		_ = json.Unmarshal([]byte(raw), &q.Options)
	}
	return q
}

func (c *CatalogCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
