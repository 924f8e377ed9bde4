package exam

import (
	"fmt"
	"testing"

	"exam-practice-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeakAreasThresholds(t *testing.T) {
	var history []domain.ExamResult
	// q-once: wrong once, never repeated.
	history = append(history, result(outcome("q-once", false)))
	// q-weak: 5 attempts, 3 wrong -> wrong rate 0.6, accuracy 0.40.
	for _, ok := range []bool{false, true, false, true, false} {
		history = append(history, result(outcome("q-weak", ok)))
	}
	// q-border: 5 attempts, 2 wrong -> wrong rate exactly 0.4, excluded.
	for _, ok := range []bool{false, true, false, true, true} {
		history = append(history, result(outcome("q-border", ok)))
	}

	weak := WeakAreas(history, OldestFirst)
	require.Len(t, weak, 1)
	assert.Equal(t, "q-weak", weak[0].QuestionID)
	assert.Equal(t, 5, weak[0].Attempts)
	assert.Equal(t, 3, weak[0].WrongCount)
	assert.Equal(t, 0.40, weak[0].UserAccuracy)
}

func TestWeakAreasSortStableAndLastSnapshotWins(t *testing.T) {
	first := outcome("a", false)
	first.QuestionText = "old text"
	edited := outcome("a", false)
	edited.QuestionText = "new text"
	edited.Topic = "edited"

	history := []domain.ExamResult{
		result(first, outcome("b", false), outcome("c", false)),
		result(edited, outcome("b", false), outcome("c", true)),
		result(outcome("c", false)),
	}

	weak := WeakAreas(history, OldestFirst)
	require.Len(t, weak, 3)
	// a and b tie at 0 accuracy and keep grouping order; c (1/3 correct) follows.
	assert.Equal(t, []string{"a", "b", "c"}, ids(weak))
	assert.Equal(t, "new text", weak[0].QuestionText)
	assert.Equal(t, "edited", weak[0].Topic)
	assert.Equal(t, 0.33, weak[2].UserAccuracy)

	again := WeakAreas(history, OldestFirst)
	assert.Equal(t, weak, again)

	reversed := []domain.ExamResult{history[2], history[1], history[0]}
	assert.Equal(t, weak, WeakAreas(reversed, NewestFirst))
}

func TestWeakAreasCap(t *testing.T) {
	var answers []domain.AnswerOutcome
	for i := 0; i < 40; i++ {
		answers = append(answers, outcome(fmt.Sprintf("q%d", i), false))
	}
	weak := WeakAreas([]domain.ExamResult{result(answers...), result(answers...)}, OldestFirst)
	assert.Len(t, weak, WeakAreaLimit)
	assert.Equal(t, "q0", weak[0].QuestionID)
}

func TestWeakAreasDoesNotMutateHistory(t *testing.T) {
	history := []domain.ExamResult{result(outcome("x", false)), result(outcome("x", false))}
	weak := WeakAreas(history, OldestFirst)
	weak[0].Options[0] = "mutated"
	assert.Equal(t, "A", history[1].Answers[0].Options[0])
}

func result(answers ...domain.AnswerOutcome) domain.ExamResult {
	return domain.ExamResult{Answers: answers}
}

func outcome(id string, correct bool) domain.AnswerOutcome {
	return domain.AnswerOutcome{
		QuestionID:     id,
		QuestionText:   "text of " + id,
		Options:        []string{"A", "B"},
		CorrectAnswers: []string{"A"},
		IsCorrect:      correct,
	}
}

func ids(stats []domain.WeakAreaStat) []string {
	out := make([]string, len(stats))
	for i, s := range stats {
		out[i] = s.QuestionID
	}
	return out
}
