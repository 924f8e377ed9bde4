package memory

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"exam-practice-service/internal/app"
	"exam-practice-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// ShareCache caches shared exams with TTL to avoid repeated store hits.
type ShareCache struct {
	loader app.ShareReader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	mu    sync.RWMutex
	cache map[string]cachedShare
}

type cachedShare struct {
	share     domain.SharedExam
	expiresAt time.Time
}

func NewShareCache(loader app.ShareReader, ttl time.Duration) *ShareCache {
	return &ShareCache{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		cache:  make(map[string]cachedShare),
	}
}

func (c *ShareCache) Share(ctx context.Context, shareID string) (domain.SharedExam, error) {
	if share, ok := c.lookup(shareID); ok {
		return share, nil
	}

	result, err, _ := c.sf.Do(shareID, func() (interface{}, error) {
		if share, ok := c.lookup(shareID); ok {
			return share, nil
		}
		share, err := c.loader.Share(ctx, shareID)
		if err != nil {
			return domain.SharedExam{}, err
		}

		c.mu.Lock()
		c.cache[shareID] = cachedShare{share: share, expiresAt: c.clock().Add(c.ttlWithJitter())}
		c.mu.Unlock()
		return share, nil
	})
	if err != nil {
		return domain.SharedExam{}, err
	}
	return result.(domain.SharedExam), nil
}

func (c *ShareCache) lookup(shareID string) (domain.SharedExam, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.cache[shareID]
	if !ok || !entry.expiresAt.After(c.clock()) {
		return domain.SharedExam{}, false
	}
	return entry.share, true
}

func (c *ShareCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	return c.ttl + time.Duration(rand.Int64N(int64(c.ttl)/10+1))
}
