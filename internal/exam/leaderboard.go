package exam

import (
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"exam-practice-service/internal/domain"
)

const (
	// LeaderboardLimit caps the ranked view; storage keeps every entry.
	LeaderboardLimit = 20
	// NicknameMaxLen is measured in runes.
	NicknameMaxLen = 30
)

// NewEntry builds the public leaderboard entry for a scored result.
func NewEntry(nickname string, result domain.ExamResult, at time.Time) domain.LeaderboardEntry {
	return domain.LeaderboardEntry{
		Nickname:         nickname,
		Score:            result.Score,
		Total:            result.Total,
		Percentage:       result.Percentage,
		TimeTakenSeconds: result.TimeTakenSeconds,
		SubmittedAt:      at,
	}
}

// ValidateNickname trims a leaderboard nickname and checks its length.
func ValidateNickname(nickname string) (string, error) {
	nickname = strings.TrimSpace(nickname)
	switch {
	case nickname == "":
		return nickname, domain.Invalid("nickname", "is required")
	case utf8.RuneCountInString(nickname) > NicknameMaxLen:
		return nickname, domain.Invalid("nickname", "must be at most 30 characters")
	}
	return nickname, nil
}

// ValidateEntry checks a new entry and returns it with the nickname trimmed.
func ValidateEntry(e domain.LeaderboardEntry) (domain.LeaderboardEntry, error) {
	nickname, err := ValidateNickname(e.Nickname)
	e.Nickname = nickname
	if err != nil {
		return e, err
	}
	switch {
	case e.Total <= 0:
		return e, domain.Invalid("total", "must be positive")
	case e.Score < 0 || e.Score > e.Total:
		return e, domain.Invalid("score", "must be between 0 and total")
	case e.TimeTakenSeconds < 0:
		return e, domain.Invalid("timeTakenSeconds", "must not be negative")
	}
	return e, nil
}

// AppendEntry validates entry and returns the full, uncapped list with it appended.
func AppendEntry(entries []domain.LeaderboardEntry, entry domain.LeaderboardEntry) ([]domain.LeaderboardEntry, error) {
	entry, err := ValidateEntry(entry)
	if err != nil {
		return nil, err
	}
	out := make([]domain.LeaderboardEntry, 0, len(entries)+1)
	out = append(out, entries...)
	return append(out, entry), nil
}

// Rank orders entries by percentage descending, faster time first on ties,
// keeping storage order for full ties, and caps the view at LeaderboardLimit.
func Rank(entries []domain.LeaderboardEntry) []domain.LeaderboardEntry {
	ranked := make([]domain.LeaderboardEntry, len(entries))
	copy(ranked, entries)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Percentage != ranked[j].Percentage {
			return ranked[i].Percentage > ranked[j].Percentage
		}
		return ranked[i].TimeTakenSeconds < ranked[j].TimeTakenSeconds
	})
	if len(ranked) > LeaderboardLimit {
		ranked = ranked[:LeaderboardLimit]
	}
	return ranked
}
