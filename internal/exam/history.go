package exam

import (
	"math"

	"exam-practice-service/internal/domain"
)

// Order states how a slice of results is sorted in time.
type Order int

const (
	OldestFirst Order = iota
	NewestFirst
)

// TrendWindow is the number of recent results charted on the dashboard.
const TrendWindow = 10

// Summarize computes count, rounded mean percentage, best percentage and total time.
// An empty history yields all zeros.
func Summarize(results []domain.ExamResult) domain.HistoryStats {
	stats := domain.HistoryStats{TotalExams: len(results)}
	if len(results) == 0 {
		return stats
	}
	sum := 0.0
	for i, r := range results {
		sum += r.Percentage
		if i == 0 || r.Percentage > stats.BestScore {
			stats.BestScore = r.Percentage
		}
		stats.TotalTimeSeconds += r.TimeTakenSeconds
	}
	stats.AvgScore = int(math.Round(sum / float64(len(results))))
	return stats
}

// Trend returns the most recent TrendWindow percentages, oldest of the window first.
func Trend(results []domain.ExamResult, order Order) []domain.TrendPoint {
	chronological := inChronologicalOrder(results, order)
	if len(chronological) > TrendWindow {
		chronological = chronological[len(chronological)-TrendWindow:]
	}
	points := make([]domain.TrendPoint, 0, len(chronological))
	for _, r := range chronological {
		points = append(points, domain.TrendPoint{Percentage: r.Percentage})
	}
	return points
}

func inChronologicalOrder(results []domain.ExamResult, order Order) []domain.ExamResult {
	if order == OldestFirst {
		return results
	}
	reversed := make([]domain.ExamResult, len(results))
	for i, r := range results {
		reversed[len(results)-1-i] = r
	}
	return reversed
}
