package exam

import (
	"sort"

	"exam-practice-service/internal/domain"
)

const (
	// WeakAreaLimit caps the practice queue.
	WeakAreaLimit = 30

	weakMinAttempts = 2
	weakWrongRate   = 0.4
)

// WeakAreas aggregates every answered question across results and returns the ones
// answered at least twice with a wrong-rate above 40%, weakest first.
// The question id is the durable key: when a question reappears with edited text,
// options or answers, the most recently seen snapshot wins.
func WeakAreas(results []domain.ExamResult, order Order) []domain.WeakAreaStat {
	index := make(map[string]int)
	var stats []domain.WeakAreaStat
	for _, r := range inChronologicalOrder(results, order) {
		for _, a := range r.Answers {
			i, ok := index[a.QuestionID]
			if !ok {
				i = len(stats)
				index[a.QuestionID] = i
				stats = append(stats, domain.WeakAreaStat{QuestionID: a.QuestionID})
			}
			st := &stats[i]
			st.Attempts++
			if !a.IsCorrect {
				st.WrongCount++
			}
			st.QuestionText = a.QuestionText
			st.Options = clone(a.Options)
			st.CorrectAnswers = clone(a.CorrectAnswers)
			st.Topic = a.Topic
		}
	}

	weak := make([]domain.WeakAreaStat, 0, len(stats))
	for _, st := range stats {
		if st.Attempts < weakMinAttempts {
			continue
		}
		wrongRate := float64(st.WrongCount) / float64(st.Attempts)
		if wrongRate <= weakWrongRate {
			continue
		}
		st.UserAccuracy = round2(1 - wrongRate)
		weak = append(weak, st)
	}

	sort.SliceStable(weak, func(i, j int) bool {
		return weak[i].UserAccuracy < weak[j].UserAccuracy
	})
	if len(weak) > WeakAreaLimit {
		weak = weak[:WeakAreaLimit]
	}
	return weak
}
