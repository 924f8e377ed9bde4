package exam

import (
	"time"

	"exam-practice-service/internal/domain"
)

// AdvanceStreak applies one submission made at now to the streak counters.
// Calendar days are taken in now's location:
//   - no previous activity, or last activity before yesterday: the streak restarts at 1
//   - last activity yesterday: the streak grows by one
//   - last activity today: unchanged, repeat submissions on one day count once
func AdvanceStreak(s domain.Streak, now time.Time) domain.Streak {
	next := domain.Streak{Current: s.Current, Longest: s.Longest}
	today := midnight(now)
	yesterday := today.AddDate(0, 0, -1)

	if s.LastActivity == nil {
		next.Current = 1
	} else {
		lastDay := midnight(s.LastActivity.In(now.Location()))
		switch {
		case lastDay.Before(yesterday):
			next.Current = 1
		case lastDay.Equal(yesterday):
			next.Current++
		default:
			// Same day, or a future day after clock skew.
			if next.Current < 1 {
				next.Current = 1
			}
		}
	}

	if next.Current > next.Longest {
		next.Longest = next.Current
	}
	at := now
	next.LastActivity = &at
	return next
}

// EffectiveStreak is the streak as shown at now: a streak whose last activity
// is older than yesterday has lapsed and reads as zero.
func EffectiveStreak(s domain.Streak, now time.Time) domain.Streak {
	if s.LastActivity == nil {
		return domain.Streak{Longest: s.Longest}
	}
	yesterday := midnight(now).AddDate(0, 0, -1)
	if midnight(s.LastActivity.In(now.Location())).Before(yesterday) {
		return domain.Streak{Longest: s.Longest, LastActivity: s.LastActivity}
	}
	return s
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
