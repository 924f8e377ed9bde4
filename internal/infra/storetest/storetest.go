// Package storetest holds the behaviour every persistence backend must share.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"exam-practice-service/internal/app"
	"exam-practice-service/internal/auth"
	"exam-practice-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Store is the full surface a backend implements.
type Store interface {
	app.Store
	auth.UserStore
}

// Run exercises a backend. newStore must return an empty store.
func Run(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("users", func(t *testing.T) { testUsers(t, newStore(t)) })
	t.Run("append result", func(t *testing.T) { testAppendResult(t, newStore(t)) })
	t.Run("concurrent append result", func(t *testing.T) { testConcurrentAppendResult(t, newStore(t)) })
	t.Run("bank", func(t *testing.T) { testBank(t, newStore(t)) })
	t.Run("shares", func(t *testing.T) { testShares(t, newStore(t)) })
}

var base = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

func testUsers(t *testing.T, s Store) {
	ctx := context.Background()
	user := domain.User{ID: "u1", Username: "alice", PasswordHash: []byte("hash"), CreatedAt: base}
	require.NoError(t, s.CreateUser(ctx, user))
	assert.ErrorIs(t, s.CreateUser(ctx, domain.User{ID: "u2", Username: "alice", PasswordHash: []byte("x"), CreatedAt: base}), domain.ErrUsernameTaken)

	got, err := s.UserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.ID)
	assert.Equal(t, []byte("hash"), got.PasswordHash)
	assert.True(t, got.CreatedAt.Equal(base))

	_, err = s.UserByID(ctx, "u2")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func testAppendResult(t *testing.T, s Store) {
	ctx := context.Background()
	calls := 0
	advance := func(st domain.Streak) domain.Streak {
		calls++
		st.Current++
		if st.Current > st.Longest {
			st.Longest = st.Current
		}
		at := base
		st.LastActivity = &at
		return st
	}

	streak, err := s.Streak(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.Streak{}, streak)

	first := result("r1", 50)
	streak, err = s.AppendResult(ctx, "u1", first, advance)
	require.NoError(t, err)
	assert.Equal(t, 1, streak.Current)

	streak, err = s.AppendResult(ctx, "u1", first, advance)
	require.NoError(t, err)
	assert.Equal(t, 1, streak.Current)
	assert.Equal(t, 1, calls)

	_, err = s.AppendResult(ctx, "u1", result("r2", 100), advance)
	require.NoError(t, err)

	results, err := s.Results(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "r1", results[0].ID)
	assert.Equal(t, "r2", results[1].ID)
	assert.Equal(t, first.Answers, results[0].Answers)

	stored, err := s.Streak(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, stored.Current)
	assert.Equal(t, 2, stored.Longest)
	require.NotNil(t, stored.LastActivity)
	assert.True(t, stored.LastActivity.Equal(base))

	got, err := s.Result(ctx, "u1", "r2")
	require.NoError(t, err)
	assert.Equal(t, 100.0, got.Percentage)
	_, err = s.Result(ctx, "u2", "r2")
	assert.ErrorIs(t, err, domain.ErrResultNotFound)

	empty, err := s.Results(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

// testConcurrentAppendResult races duplicate and distinct appends for one user.
// Each result id must be stored once and advance the streak once.
func testConcurrentAppendResult(t *testing.T, s Store) {
	ctx := context.Background()
	var calls atomic.Int32
	advance := func(st domain.Streak) domain.Streak {
		calls.Add(1)
		st.Current++
		if st.Current > st.Longest {
			st.Longest = st.Current
		}
		at := base
		st.LastActivity = &at
		return st
	}

	const copies = 8
	ids := []string{"c1", "c2", "c3"}
	errs := make(chan error, copies*len(ids))
	var wg sync.WaitGroup
	for i := 0; i < copies; i++ {
		for _, id := range ids {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				if _, err := s.AppendResult(ctx, "u1", result(id, 50), advance); err != nil {
					errs <- fmt.Errorf("append %s: %w", id, err)
				}
			}(id)
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	results, err := s.Results(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, results, len(ids))
	streak, err := s.Streak(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, len(ids), streak.Current)
	assert.Equal(t, int32(len(ids)), calls.Load())
}

func testBank(t *testing.T, s Store) {
	ctx := context.Background()
	entry := domain.BankEntry{ID: "b1", UserID: "u1", Exam: exam("b1", "Go basics"), CreatedAt: base, UpdatedAt: base}
	require.NoError(t, s.SaveBankEntry(ctx, entry))
	require.NoError(t, s.SaveBankEntry(ctx, domain.BankEntry{ID: "b2", UserID: "u1", Exam: exam("b2", "SQL"), CreatedAt: base, UpdatedAt: base.Add(time.Minute)}))

	entry.Exam.Title = "Go basics v2"
	entry.UpdatedAt = base.Add(time.Hour)
	require.NoError(t, s.SaveBankEntry(ctx, entry))
	assert.ErrorIs(t, s.SaveBankEntry(ctx, domain.BankEntry{ID: "b1", UserID: "intruder", Exam: exam("b1", "x"), CreatedAt: base, UpdatedAt: base}), domain.ErrBankEntryNotFound)

	entries, err := s.BankEntries(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "b1", entries[0].ID)
	assert.Equal(t, "Go basics v2", entries[0].Exam.Title)
	assert.True(t, entries[0].CreatedAt.Equal(base))

	_, err = s.BankEntry(ctx, "u2", "b1")
	assert.ErrorIs(t, err, domain.ErrBankEntryNotFound)
	assert.ErrorIs(t, s.DeleteBankEntry(ctx, "u2", "b1"), domain.ErrBankEntryNotFound)
	require.NoError(t, s.DeleteBankEntry(ctx, "u1", "b1"))
	_, err = s.BankEntry(ctx, "u1", "b1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func testShares(t *testing.T, s Store) {
	ctx := context.Background()
	_, err := s.Share(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrShareNotFound)
	assert.ErrorIs(t, s.AppendLeaderboardEntry(ctx, "nope", entry("x", 1)), domain.ErrShareNotFound)

	require.NoError(t, s.CreateShare(ctx, domain.SharedExam{ShareID: "s1", OwnerID: "u1", Exam: exam("s1", "Shared"), CreatedAt: base}))
	share, err := s.Share(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "Shared", share.Exam.Title)
	assert.Equal(t, []string{"4"}, share.Exam.Questions[0].CorrectAnswers)

	require.NoError(t, s.AppendLeaderboardEntry(ctx, "s1", entry("first", 1)))
	require.NoError(t, s.AppendLeaderboardEntry(ctx, "s1", entry("second", 2)))
	entries, err := s.LeaderboardEntries(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "first", entries[0].Nickname)
	assert.Equal(t, "second", entries[1].Nickname)
	assert.True(t, entries[1].SubmittedAt.Equal(base.Add(2*time.Second)))
}

func exam(id, title string) domain.ExamDefinition {
	return domain.ExamDefinition{
		ID:    id,
		Title: title,
		Questions: []domain.Question{
			{ID: "q1", Text: "2+2?", Options: []string{"3", "4"}, CorrectAnswers: []string{"4"}, Kind: domain.KindSingle},
		},
	}
}

func result(id string, pct float64) domain.ExamResult {
	return domain.ExamResult{
		ID: id, ExamID: "e1", Title: "Go basics", Score: 1, Total: 2, Percentage: pct,
		TimeTakenSeconds: 30, CreatedAt: base,
		Answers: []domain.AnswerOutcome{
			{QuestionID: "q1", QuestionText: "2+2?", Options: []string{"3", "4"}, SelectedAnswers: []string{"4"}, CorrectAnswers: []string{"4"}, IsCorrect: true},
		},
	}
}

func entry(nickname string, offset int) domain.LeaderboardEntry {
	return domain.LeaderboardEntry{
		Nickname: nickname, Score: 1, Total: 2, Percentage: 50, TimeTakenSeconds: 20,
		SubmittedAt: base.Add(time.Duration(offset) * time.Second),
	}
}
