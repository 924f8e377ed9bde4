package app

import (
	"context"

	"exam-practice-service/internal/domain"
	"exam-practice-service/internal/exam"
)

// Dashboard is the stats view of a user's history.
type Dashboard struct {
	Stats  domain.HistoryStats `json:"stats"`
	Trend  []domain.TrendPoint `json:"trend"`
	Streak domain.Streak       `json:"streak"`
}

// Results lists a user's results, newest first.
func (s *ExamService) Results(ctx context.Context, userID string) ([]domain.ExamResult, error) {
	results, err := s.store.Results(ctx, userID)
	if err != nil {
		return nil, err
	}
	newest := make([]domain.ExamResult, len(results))
	for i, r := range results {
		newest[len(results)-1-i] = r
	}
	return newest, nil
}

// Result returns one of the user's results.
func (s *ExamService) Result(ctx context.Context, userID, resultID string) (domain.ExamResult, error) {
	return s.store.Result(ctx, userID, resultID)
}

// Dashboard summarises the user's history. A streak that was not continued
// by yesterday is reported as zero.
func (s *ExamService) Dashboard(ctx context.Context, userID string) (Dashboard, error) {
	results, err := s.store.Results(ctx, userID)
	if err != nil {
		return Dashboard{}, err
	}
	streak, err := s.store.Streak(ctx, userID)
	if err != nil {
		return Dashboard{}, err
	}
	return Dashboard{
		Stats:  exam.Summarize(results),
		Trend:  exam.Trend(results, exam.OldestFirst),
		Streak: exam.EffectiveStreak(streak, s.now().In(s.loc)),
	}, nil
}

// WeakAreas returns the questions the user gets wrong most often.
func (s *ExamService) WeakAreas(ctx context.Context, userID string) ([]domain.WeakAreaStat, error) {
	results, err := s.store.Results(ctx, userID)
	if err != nil {
		return nil, err
	}
	return exam.WeakAreas(results, exam.OldestFirst), nil
}
