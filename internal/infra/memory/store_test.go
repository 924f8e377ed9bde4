package memory

import (
	"context"
	"testing"
	"time"

	"exam-practice-service/internal/domain"
	"exam-practice-service/internal/infra/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreConformance(t *testing.T) {
	storetest.Run(t, func(*testing.T) storetest.Store { return NewStore() })
}

func TestAppendResultIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	advance := func(s domain.Streak) domain.Streak {
		s.Current++
		if s.Current > s.Longest {
			s.Longest = s.Current
		}
		return s
	}

	streak, err := store.AppendResult(ctx, "u1", domain.ExamResult{ID: "r1", Score: 1, Total: 2}, advance)
	require.NoError(t, err)
	assert.Equal(t, 1, streak.Current)

	streak, err = store.AppendResult(ctx, "u1", domain.ExamResult{ID: "r1", Score: 1, Total: 2}, advance)
	require.NoError(t, err)
	assert.Equal(t, 1, streak.Current)

	results, err := store.Results(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "u1", results[0].UserID)

	_, err = store.Result(ctx, "u2", "r1")
	assert.ErrorIs(t, err, domain.ErrResultNotFound)
}

func TestUsersAreUniqueByUsername(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	require.NoError(t, store.CreateUser(ctx, domain.User{ID: "1", Username: "ann"}))
	assert.ErrorIs(t, store.CreateUser(ctx, domain.User{ID: "2", Username: "ann"}), domain.ErrUsernameTaken)

	u, err := store.UserByUsername(ctx, "ann")
	require.NoError(t, err)
	assert.Equal(t, "1", u.ID)
	_, err = store.UserByID(ctx, "2")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestBankEntriesAreScopedToOwner(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.SaveBankEntry(ctx, domain.BankEntry{ID: "b1", UserID: "u1", UpdatedAt: t0}))
	require.NoError(t, store.SaveBankEntry(ctx, domain.BankEntry{ID: "b2", UserID: "u1", UpdatedAt: t0.Add(time.Hour)}))
	require.NoError(t, store.SaveBankEntry(ctx, domain.BankEntry{ID: "b3", UserID: "u2", UpdatedAt: t0}))

	entries, err := store.BankEntries(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "b2", entries[0].ID)

	_, err = store.BankEntry(ctx, "u2", "b1")
	assert.ErrorIs(t, err, domain.ErrBankEntryNotFound)
	assert.ErrorIs(t, store.DeleteBankEntry(ctx, "u2", "b1"), domain.ErrBankEntryNotFound)
	require.NoError(t, store.DeleteBankEntry(ctx, "u1", "b1"))
	_, err = store.BankEntry(ctx, "u1", "b1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLeaderboardEntriesKeepStorageOrder(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	assert.ErrorIs(t, store.AppendLeaderboardEntry(ctx, "abc123", domain.LeaderboardEntry{Nickname: "x", Score: 1, Total: 1}), domain.ErrShareNotFound)

	require.NoError(t, store.CreateShare(ctx, sampleShare()))
	require.NoError(t, store.AppendLeaderboardEntry(ctx, "abc123", domain.LeaderboardEntry{Nickname: "first", Score: 1, Total: 1}))
	require.NoError(t, store.AppendLeaderboardEntry(ctx, "abc123", domain.LeaderboardEntry{Nickname: " second ", Score: 0, Total: 1}))
	assert.ErrorIs(t, store.AppendLeaderboardEntry(ctx, "abc123", domain.LeaderboardEntry{Nickname: "", Score: 0, Total: 1}), domain.ErrValidation)

	entries, err := store.LeaderboardEntries(ctx, "abc123")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "first", entries[0].Nickname)
	assert.Equal(t, "second", entries[1].Nickname)
}
