package exam

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"exam-practice-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRankOrdersByPercentageThenTime(t *testing.T) {
	ranked := Rank([]domain.LeaderboardEntry{
		{Nickname: "a", Percentage: 80, TimeTakenSeconds: 50},
		{Nickname: "b", Percentage: 90, TimeTakenSeconds: 100},
		{Nickname: "c", Percentage: 90, TimeTakenSeconds: 60},
	})
	require.Len(t, ranked, 3)
	assert.Equal(t, []string{"c", "b", "a"}, nicknames(ranked))
}

func TestRankCapsViewAndKeepsInput(t *testing.T) {
	var entries []domain.LeaderboardEntry
	for i := 0; i < 25; i++ {
		entries = append(entries, domain.LeaderboardEntry{Nickname: fmt.Sprintf("p%d", i), Percentage: float64(i), Total: 10})
	}
	ranked := Rank(entries)
	assert.Len(t, ranked, LeaderboardLimit)
	assert.Equal(t, "p24", ranked[0].Nickname)
	assert.Len(t, entries, 25)
	assert.Equal(t, "p0", entries[0].Nickname)
}

func TestRankFullTieKeepsStorageOrder(t *testing.T) {
	ranked := Rank([]domain.LeaderboardEntry{
		{Nickname: "first", Percentage: 70, TimeTakenSeconds: 30},
		{Nickname: "second", Percentage: 70, TimeTakenSeconds: 30},
	})
	assert.Equal(t, []string{"first", "second"}, nicknames(ranked))
}

func TestAppendEntryValidates(t *testing.T) {
	existing := []domain.LeaderboardEntry{{Nickname: "x", Score: 1, Total: 2, Percentage: 50}}

	all, err := AppendEntry(existing, domain.LeaderboardEntry{Nickname: "  neo  ", Score: 2, Total: 2, Percentage: 100})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "neo", all[1].Nickname)
	assert.Len(t, existing, 1)

	bad := []domain.LeaderboardEntry{
		{Nickname: "   ", Score: 1, Total: 2},
		{Nickname: strings.Repeat("n", 31), Score: 1, Total: 2},
		{Nickname: "ok", Score: 3, Total: 2},
		{Nickname: "ok", Score: -1, Total: 2},
		{Nickname: "ok", Score: 0, Total: 0},
	}
	for _, e := range bad {
		_, err := AppendEntry(existing, e)
		assert.ErrorIs(t, err, domain.ErrValidation, "entry %+v", e)
	}

	_, err = ValidateEntry(domain.LeaderboardEntry{Nickname: strings.Repeat("é", 30), Score: 1, Total: 1})
	assert.NoError(t, err)
}

func TestNewEntryCopiesResult(t *testing.T) {
	when := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	e := NewEntry("ann", domain.ExamResult{Score: 3, Total: 4, Percentage: 75, TimeTakenSeconds: 61}, when)
	assert.Equal(t, domain.LeaderboardEntry{Nickname: "ann", Score: 3, Total: 4, Percentage: 75, TimeTakenSeconds: 61, SubmittedAt: when}, e)
}

func nicknames(entries []domain.LeaderboardEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Nickname
	}
	return out
}
