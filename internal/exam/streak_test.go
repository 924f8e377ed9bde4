package exam

import (
	"testing"
	"time"

	"exam-practice-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 3, 10, 9, 30, 0, 0, time.UTC)

func TestAdvanceStreak(t *testing.T) {
	cases := []struct {
		name        string
		last        *time.Time
		current     int
		longest     int
		wantCurrent int
		wantLongest int
	}{
		{"first submission", nil, 0, 0, 1, 1},
		{"continued from yesterday", at(now.AddDate(0, 0, -1).Add(-5 * time.Hour)), 3, 3, 4, 4},
		{"yesterday late evening", at(time.Date(2024, 3, 9, 23, 59, 0, 0, time.UTC)), 3, 7, 4, 7},
		{"same day repeat", at(now.Add(-2 * time.Hour)), 3, 5, 3, 5},
		{"three days ago resets", at(now.AddDate(0, 0, -3)), 3, 5, 1, 5},
		{"two days ago resets", at(time.Date(2024, 3, 8, 23, 0, 0, 0, time.UTC)), 9, 9, 1, 9},
		{"future date after skew", at(now.AddDate(0, 0, 1)), 2, 2, 2, 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := AdvanceStreak(domain.Streak{Current: tc.current, Longest: tc.longest, LastActivity: tc.last}, now)
			assert.Equal(t, tc.wantCurrent, got.Current)
			assert.Equal(t, tc.wantLongest, got.Longest)
			require.NotNil(t, got.LastActivity)
			assert.True(t, got.LastActivity.Equal(now))
		})
	}
}

func TestAdvanceStreakUsesNowLocation(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*3600)
	// 20:00 UTC on the 9th is already the 10th in Tokyo.
	last := time.Date(2024, 3, 9, 20, 0, 0, 0, time.UTC)
	submitted := time.Date(2024, 3, 10, 10, 0, 0, 0, tokyo)

	got := AdvanceStreak(domain.Streak{Current: 4, Longest: 4, LastActivity: &last}, submitted)
	assert.Equal(t, 4, got.Current)
}

func TestEffectiveStreak(t *testing.T) {
	lapsed := EffectiveStreak(domain.Streak{Current: 5, Longest: 8, LastActivity: at(now.AddDate(0, 0, -2))}, now)
	assert.Equal(t, 0, lapsed.Current)
	assert.Equal(t, 8, lapsed.Longest)

	live := EffectiveStreak(domain.Streak{Current: 5, Longest: 8, LastActivity: at(now.AddDate(0, 0, -1))}, now)
	assert.Equal(t, 5, live.Current)

	assert.Equal(t, 0, EffectiveStreak(domain.Streak{}, now).Current)
}

func at(t time.Time) *time.Time {
	return &t
}
