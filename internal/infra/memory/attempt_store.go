package memory

import (
	"context"
	"sync"

	"exam-practice-service/internal/app"
)

// AttemptStore is an in-memory implementation of app.AttemptRepository.
type AttemptStore struct {
	mu       sync.RWMutex
	attempts map[string]*app.Attempt
}

func NewAttemptStore() *AttemptStore {
	return &AttemptStore{
		attempts: make(map[string]*app.Attempt),
	}
}

func (s *AttemptStore) Save(_ context.Context, a *app.Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts[a.ID()] = a
	return nil
}

func (s *AttemptStore) Get(_ context.Context, attemptID string) (*app.Attempt, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.attempts[attemptID]
	return a, ok
}

func (s *AttemptStore) Delete(_ context.Context, attemptID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.attempts, attemptID)
}

// Len reports how many attempts are held.
func (s *AttemptStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.attempts)
}
