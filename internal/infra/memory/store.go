package memory

import (
	"context"
	"sort"
	"sync"

	"exam-practice-service/internal/domain"
	"exam-practice-service/internal/exam"
)

// Store keeps users, results, streaks, the exam bank and shared exams in memory.
// It implements app.Store and auth.UserStore; everything is lost on restart.
type Store struct {
	mu           sync.RWMutex
	users        map[string]domain.User
	usernames    map[string]string
	results      map[string][]domain.ExamResult
	resultIDs    map[string]struct{}
	streaks      map[string]domain.Streak
	bank         map[string]domain.BankEntry
	shares       map[string]domain.SharedExam
	leaderboards map[string][]domain.LeaderboardEntry
}

func NewStore() *Store {
	return &Store{
		users:        make(map[string]domain.User),
		usernames:    make(map[string]string),
		results:      make(map[string][]domain.ExamResult),
		resultIDs:    make(map[string]struct{}),
		streaks:      make(map[string]domain.Streak),
		bank:         make(map[string]domain.BankEntry),
		shares:       make(map[string]domain.SharedExam),
		leaderboards: make(map[string][]domain.LeaderboardEntry),
	}
}

func (s *Store) CreateUser(_ context.Context, user domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.usernames[user.Username]; ok {
		return domain.ErrUsernameTaken
	}
	s.users[user.ID] = user
	s.usernames[user.Username] = user.ID
	return nil
}

func (s *Store) UserByUsername(_ context.Context, username string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	userID, ok := s.usernames[username]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return s.users[userID], nil
}

func (s *Store) UserByID(_ context.Context, userID string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[userID]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return user, nil
}

func (s *Store) AppendResult(_ context.Context, userID string, result domain.ExamResult, advance func(domain.Streak) domain.Streak) (domain.Streak, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current := s.streaks[userID]
	if _, dup := s.resultIDs[result.ID]; dup {
		return current, nil
	}
	result.UserID = userID
	s.results[userID] = append(s.results[userID], result)
	s.resultIDs[result.ID] = struct{}{}
	next := advance(current)
	s.streaks[userID] = next
	return next, nil
}

func (s *Store) Results(_ context.Context, userID string) ([]domain.ExamResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.ExamResult, len(s.results[userID]))
	copy(out, s.results[userID])
	return out, nil
}

func (s *Store) Result(_ context.Context, userID, resultID string) (domain.ExamResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.results[userID] {
		if r.ID == resultID {
			return r, nil
		}
	}
	return domain.ExamResult{}, domain.ErrResultNotFound
}

func (s *Store) Streak(_ context.Context, userID string) (domain.Streak, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.streaks[userID], nil
}

func (s *Store) SaveBankEntry(_ context.Context, entry domain.BankEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.bank[entry.ID]; ok && existing.UserID != entry.UserID {
		return domain.ErrBankEntryNotFound
	}
	s.bank[entry.ID] = entry
	return nil
}

// BankEntries returns the user's bank, most recently updated first.
func (s *Store) BankEntries(_ context.Context, userID string) ([]domain.BankEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.BankEntry, 0)
	for _, e := range s.bank {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) BankEntry(_ context.Context, userID, entryID string) (domain.BankEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.bank[entryID]
	if !ok || e.UserID != userID {
		return domain.BankEntry{}, domain.ErrBankEntryNotFound
	}
	return e, nil
}

func (s *Store) DeleteBankEntry(_ context.Context, userID, entryID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.bank[entryID]
	if !ok || e.UserID != userID {
		return domain.ErrBankEntryNotFound
	}
	delete(s.bank, entryID)
	return nil
}

func (s *Store) CreateShare(_ context.Context, share domain.SharedExam) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shares[share.ShareID] = share
	return nil
}

func (s *Store) Share(_ context.Context, shareID string) (domain.SharedExam, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	share, ok := s.shares[shareID]
	if !ok {
		return domain.SharedExam{}, domain.ErrShareNotFound
	}
	return share, nil
}

func (s *Store) AppendLeaderboardEntry(_ context.Context, shareID string, entry domain.LeaderboardEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.shares[shareID]; !ok {
		return domain.ErrShareNotFound
	}
	entries, err := exam.AppendEntry(s.leaderboards[shareID], entry)
	if err != nil {
		return err
	}
	s.leaderboards[shareID] = entries
	return nil
}

func (s *Store) LeaderboardEntries(_ context.Context, shareID string) ([]domain.LeaderboardEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.LeaderboardEntry, len(s.leaderboards[shareID]))
	copy(out, s.leaderboards[shareID])
	return out, nil
}
