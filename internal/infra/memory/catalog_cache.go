package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"lesson-progress-service/internal/app"
	"lesson-progress-service/internal/domain"
)

// CachedCatalog caches lessons and questions with TTL to avoid repeated DB hits.
// User lookups are passed straight through.
type CachedCatalog struct {
	loader app.Catalog
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedValue
}

type cachedValue struct {
	value     any
	expiresAt time.Time
}

func NewCachedCatalog(loader app.Catalog, ttl time.Duration) *CachedCatalog {
	return &CachedCatalog{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedValue),
	}
}

func (c *CachedCatalog) GetUser(ctx context.Context, userID string) (domain.User, error) {
	return c.loader.GetUser(ctx, userID)
}

func (c *CachedCatalog) GetLesson(ctx context.Context, lessonID string) (domain.Lesson, error) {
	v, err := c.load(ctx, "lesson:"+lessonID, func(ctx context.Context) (any, error) {
		return c.loader.GetLesson(ctx, lessonID)
	})
	if err != nil {
		return domain.Lesson{}, err
	}
	return v.(domain.Lesson), nil
}

func (c *CachedCatalog) GetQuestion(ctx context.Context, questionID string) (domain.Question, error) {
	v, err := c.load(ctx, "question:"+questionID, func(ctx context.Context) (any, error) {
		return c.loader.GetQuestion(ctx, questionID)
	})
	if err != nil {
		return domain.Question{}, err
	}
	return v.(domain.Question), nil
}

func (c *CachedCatalog) QuestionsByLesson(ctx context.Context, lessonID string) ([]domain.Question, error) {
	v, err := c.load(ctx, "lesson-questions:"+lessonID, func(ctx context.Context) (any, error) {
		return c.loader.QuestionsByLesson(ctx, lessonID)
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.Question), nil
}

// Invalidate drops every cached value, e.g. after a catalog import.
func (c *CachedCatalog) Invalidate() {
	c.mu.Lock()
	c.cache = make(map[string]cachedValue)
	c.mu.Unlock()
}

func (c *CachedCatalog) load(ctx context.Context, key string, fetch func(context.Context) (any, error)) (any, error) {
	if v, ok := c.lookup(key); ok {
		return v, nil
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		// Re-check in case another goroutine filled it.
		if v, ok := c.lookup(key); ok {
			return v, nil
		}
		v, err := fetch(ctx)
		if err != nil {
			// misses are not cached so a newly created record shows up immediately
			return nil, err
		}
		now := c.clock()
		c.mu.Lock()
		c.cache[key] = cachedValue{value: v, expiresAt: now.Add(c.ttlWithJitter())}
		c.mu.Unlock()
		return v, nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (c *CachedCatalog) lookup(key string) (any, bool) {
	now := c.clock()
	c.mu.RLock()
	defer c.mu.RUnlock()
	if entry, ok := c.cache[key]; ok && entry.expiresAt.After(now) {
		return entry.value, true
	}
	return nil, false
}

func (c *CachedCatalog) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
