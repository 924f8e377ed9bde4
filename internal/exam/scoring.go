package exam

import (
	"math"
	"time"

	"exam-practice-service/internal/domain"
)

// ScoreInput carries the attempt metadata copied into the result.
type ScoreInput struct {
	ResultID         string
	UserID           string
	TimeTakenSeconds int
	SubmittedAt      time.Time
}

// Score grades a finalized answer set against its exam definition.
// A question is correct only when the selection equals the correct set exactly;
// an empty or missing selection is always incorrect.
func Score(def domain.ExamDefinition, answers []domain.AnswerRecord, in ScoreInput) (domain.ExamResult, error) {
	total := len(def.Questions)
	if total == 0 {
		return domain.ExamResult{}, domain.ErrEmptyExam
	}

	byQuestion := make(map[string]domain.AnswerRecord, len(answers))
	for _, a := range answers {
		byQuestion[a.QuestionID] = a
	}

	score := 0
	outcomes := make([]domain.AnswerOutcome, 0, total)
	for _, q := range def.Questions {
		record := byQuestion[q.ID]
		correct := sameSet(record.SelectedAnswers, q.CorrectAnswers)
		if correct {
			score++
		}
		outcomes = append(outcomes, domain.AnswerOutcome{
			QuestionID:       q.ID,
			QuestionText:     q.Text,
			Options:          clone(q.Options),
			SelectedAnswers:  clone(record.SelectedAnswers),
			CorrectAnswers:   clone(q.CorrectAnswers),
			IsCorrect:        correct,
			TimeSpentSeconds: record.TimeSpentSeconds,
			Flagged:          record.Flagged,
			Topic:            q.Topic,
			Explanation:      q.Explanation,
		})
	}

	timeTaken := in.TimeTakenSeconds
	if timeTaken < 0 {
		timeTaken = 0
	}
	return domain.ExamResult{
		ID:               in.ResultID,
		UserID:           in.UserID,
		ExamID:           def.ID,
		Title:            def.Title,
		Subject:          def.Subject,
		Score:            score,
		Total:            total,
		Percentage:       Percentage(score, total),
		TimeTakenSeconds: timeTaken,
		Answers:          outcomes,
		CreatedAt:        in.SubmittedAt,
	}, nil
}

// Percentage returns score/total*100 rounded to two decimals. total must be positive.
func Percentage(score, total int) float64 {
	return round2(float64(score) / float64(total) * 100)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func sameSet(selected, correct []string) bool {
	if len(selected) == 0 {
		return false
	}
	want := make(map[string]struct{}, len(correct))
	for _, c := range correct {
		want[c] = struct{}{}
	}
	got := make(map[string]struct{}, len(selected))
	for _, s := range selected {
		if _, ok := want[s]; !ok {
			return false
		}
		got[s] = struct{}{}
	}
	return len(got) == len(want)
}

func clone(values []string) []string {
	if values == nil {
		return []string{}
	}
	out := make([]string, len(values))
	copy(out, values)
	return out
}
