package redis

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"exam-practice-service/internal/app"
	"github.com/redis/go-redis/v9"
)

// AttemptStore is a Redis-aware implementation of app.AttemptRepository.
// Attempts stay in a local map because their countdown timers run in-process;
// Redis carries a liveness marker per attempt so operators can see what is in flight.
type AttemptStore struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	attempts map[string]*app.Attempt
}

type attemptMarker struct {
	ExamID    string `json:"examId"`
	UserID    string `json:"userId,omitempty"`
	ShareID   string `json:"shareId,omitempty"`
	Questions int    `json:"questions"`
}

func NewAttemptStore(client *redis.Client, ttl time.Duration) *AttemptStore {
	return &AttemptStore{
		client:   client,
		ttl:      ttl,
		attempts: make(map[string]*app.Attempt),
	}
}

func (s *AttemptStore) Save(ctx context.Context, a *app.Attempt) error {
	s.mu.Lock()
	s.attempts[a.ID()] = a
	s.mu.Unlock()

	def := a.Exam()
	marker, err := json.Marshal(attemptMarker{ExamID: def.ID, UserID: a.UserID(), ShareID: a.ShareID(), Questions: len(def.Questions)})
	if err != nil {
		return err
	}
	// best-effort liveness marker
	_ = s.client.Set(ctx, s.key(a.ID()), marker, s.ttl+time.Duration(def.TimeLimitSeconds)*time.Second).Err()
	return nil
}

func (s *AttemptStore) Get(_ context.Context, attemptID string) (*app.Attempt, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.attempts[attemptID]
	return a, ok
}

func (s *AttemptStore) Delete(ctx context.Context, attemptID string) {
	s.mu.Lock()
	delete(s.attempts, attemptID)
	s.mu.Unlock()
	_ = s.client.Del(ctx, s.key(attemptID)).Err()
}

func (s *AttemptStore) key(attemptID string) string {
	return "exam:attempt:" + attemptID
}
