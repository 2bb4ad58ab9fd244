package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"exam-bot-service/internal/app"
	"exam-bot-service/internal/domain"
)

// QuestionCache is a read-through cache in front of a QuestionStore.
// Documents are stored as: SET question:{id} {json} with TTL. Grading hits
// GetByID once per answered question, so serving primes the cache and the
// follow-up click usually avoids a store round trip. Random selection cannot
// be cached and always delegates.
type QuestionCache struct {
	client *redis.Client
	store  app.QuestionStore
	ttl    time.Duration
	sf     singleflight.Group

	rndMu sync.Mutex // rnd is not safe for concurrent use
	rnd   *rand.Rand
}

func NewQuestionCache(client *redis.Client, store app.QuestionStore, ttl time.Duration) *QuestionCache {
	return &QuestionCache{
		client: client,
		store:  store,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *QuestionCache) RandomUnseen(ctx context.Context, category string, seenIDs []string) (domain.Question, error) {
	question, err := c.store.RandomUnseen(ctx, category, seenIDs)
	if err != nil {
		return domain.Question{}, err
	}
	c.prime(ctx, question)
	return question, nil
}

func (c *QuestionCache) GetByID(ctx context.Context, id string) (domain.Question, error) {
	raw, err := c.client.Get(ctx, c.key(id)).Bytes()
	if err == nil {
		var question domain.Question
		if jsonErr := json.Unmarshal(raw, &question); jsonErr == nil {
			return question, nil
		}
		// Undecodable entry: fall through and refill from the store.
	}

	result, err, _ := c.sf.Do(id, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		raw, err := c.client.Get(ctx, c.key(id)).Bytes()
		if err == nil {
			var question domain.Question
			if jsonErr := json.Unmarshal(raw, &question); jsonErr == nil {
				return question, nil
			}
		}

		question, err := c.store.GetByID(ctx, id)
		if err != nil {
			return domain.Question{}, err
		}
		c.prime(ctx, question)
		return question, nil
	})
	if err != nil {
		return domain.Question{}, err
	}
	return result.(domain.Question), nil
}

// prime is best-effort; a failed cache write only costs a later store read.
func (c *QuestionCache) prime(ctx context.Context, question domain.Question) {
	raw, err := json.Marshal(question)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, c.key(question.ID), raw, c.ttlWithJitter()).Err()
}

func (c *QuestionCache) key(id string) string {
	return "question:" + id
}

func (c *QuestionCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
