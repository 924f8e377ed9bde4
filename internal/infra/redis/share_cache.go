package redis

import (
	"context"
	"encoding/json"
	"math/rand/v2"
	"time"

	"exam-practice-service/internal/app"
	"exam-practice-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// ShareCache caches shared exams in Redis as JSON and falls back to a loader on cache miss.
// Shared exams are stored as: SET exam:share:{shareID} {json} EX {ttl}
type ShareCache struct {
	client *redis.Client
	loader app.ShareReader
	ttl    time.Duration
	sf     singleflight.Group
}

func NewShareCache(client *redis.Client, loader app.ShareReader, ttl time.Duration) *ShareCache {
	return &ShareCache{
		client: client,
		loader: loader,
		ttl:    ttl,
	}
}

func (c *ShareCache) Share(ctx context.Context, shareID string) (domain.SharedExam, error) {
	if share, ok := c.cached(ctx, shareID); ok {
		return share, nil
	}

	result, err, _ := c.sf.Do(shareID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if share, ok := c.cached(ctx, shareID); ok {
			return share, nil
		}

		share, err := c.loader.Share(ctx, shareID)
		if err != nil {
			return domain.SharedExam{}, err
		}
		if payload, err := json.Marshal(share); err == nil {
			_ = c.client.Set(ctx, c.key(shareID), payload, c.ttlWithJitter()).Err()
		}
		return share, nil
	})
	if err != nil {
		return domain.SharedExam{}, err
	}
	return result.(domain.SharedExam), nil
}

// cached reads a share from Redis. Any Redis failure is treated as a miss.
func (c *ShareCache) cached(ctx context.Context, shareID string) (domain.SharedExam, bool) {
	payload, err := c.client.Get(ctx, c.key(shareID)).Bytes()
	if err != nil {
		return domain.SharedExam{}, false
	}
	var share domain.SharedExam
	if err := json.Unmarshal(payload, &share); err != nil {
		return domain.SharedExam{}, false
	}
	return share, true
}

func (c *ShareCache) key(shareID string) string {
	return "exam:share:" + shareID
}

func (c *ShareCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	return c.ttl + time.Duration(rand.Int64N(int64(c.ttl)/10+1))
}
