package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"whatsapp-quiz-bot/internal/domain"
)

// QuestionCache keeps generated questions per quiz with a TTL so a quiz that
// outlives its session does not pile up in memory forever.
type QuestionCache struct {
	ttl   time.Duration
	clock func() time.Time
	rnd   *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedQuestions
}

type cachedQuestions struct {
	questions map[int]domain.Question
	expiresAt time.Time
}

func NewQuestionCache(ttl time.Duration) *QuestionCache {
	return &QuestionCache{
		ttl:   ttl,
		clock: time.Now,
		rnd:   rand.New(rand.NewSource(time.Now().UnixNano())),
		cache: make(map[string]cachedQuestions),
	}
}

func (c *QuestionCache) GetQuestion(_ context.Context, quizID string, index int) (domain.Question, error) {
	now := c.clock()

	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.cache[quizID]
	if !ok || !entry.expiresAt.After(now) {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	q, ok := entry.questions[index]
	if !ok {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	return q, nil
}

func (c *QuestionCache) PutQuestion(_ context.Context, quizID string, q domain.Question) error {
	now := c.clock()

	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.cache[quizID]
	if !ok || !entry.expiresAt.After(now) {
		entry = cachedQuestions{
			questions: make(map[int]domain.Question),
			expiresAt: now.Add(c.ttlWithJitter()),
		}
	}
	entry.questions[q.Index] = q
	c.cache[quizID] = entry
	return nil
}

func (c *QuestionCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
