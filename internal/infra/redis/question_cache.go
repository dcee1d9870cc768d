package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"whatsapp-quiz-bot/internal/domain"
)

// QuestionCache stores generated questions as a hash per quiz so every
// instance serving the same conversation sees the same question text and
// answer key. Layout: HSET quizbot:quiz:{quizID}:questions {index} {json}.
type QuestionCache struct {
	client *redis.Client
	ttl    time.Duration
	rnd    *rand.Rand
}

func NewQuestionCache(client *redis.Client, ttl time.Duration) *QuestionCache {
	return &QuestionCache{
		client: client,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *QuestionCache) GetQuestion(ctx context.Context, quizID string, index int) (domain.Question, error) {
	raw, err := c.client.HGet(ctx, c.key(quizID), strconv.Itoa(index)).Bytes()
	if err == redis.Nil {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	if err != nil {
		return domain.Question{}, fmt.Errorf("get question %s/%d: %w", quizID, index, err)
	}

	var q domain.Question
	if err := json.Unmarshal(raw, &q); err != nil {
		return domain.Question{}, fmt.Errorf("decode question %s/%d: %w", quizID, index, err)
	}
	return q, nil
}

func (c *QuestionCache) PutQuestion(ctx context.Context, quizID string, q domain.Question) error {
	raw, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("encode question %s/%d: %w", quizID, q.Index, err)
	}

	key := c.key(quizID)
	pipe := c.client.Pipeline()
	pipe.HSet(ctx, key, strconv.Itoa(q.Index), raw)
	if ttl := c.ttlWithJitter(); ttl > 0 {
		pipe.Expire(ctx, key, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("put question %s/%d: %w", quizID, q.Index, err)
	}
	return nil
}

func (c *QuestionCache) key(quizID string) string {
	return keyPrefix + "quiz:" + quizID + ":questions"
}

func (c *QuestionCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
