package app

import (
	"testing"
	"time"

	"exam-practice-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testClock struct{ t time.Time }

func (c *testClock) Now() time.Time          { return c.t }
func (c *testClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newClock() *testClock {
	return &testClock{t: time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)}
}

func sampleExam() domain.ExamDefinition {
	return domain.ExamDefinition{
		ID:    "exam-1",
		Title: "Basics",
		Questions: []domain.Question{
			{ID: "q1", Text: "2+2?", Options: []string{"3", "4"}, CorrectAnswers: []string{"4"}, Kind: domain.KindSingle, Explanation: "arithmetic"},
			{ID: "q2", Text: "Primes?", Options: []string{"2", "3", "4"}, CorrectAnswers: []string{"2", "3"}, Kind: domain.KindMulti},
			{ID: "q3", Text: "Sky?", Options: []string{"blue", "green"}, CorrectAnswers: []string{"blue"}, Kind: domain.KindSingle},
		},
	}
}

func TestSelectAnswerSingleReplacesMultiToggles(t *testing.T) {
	a, err := NewAttemptWithClock("a1", sampleExam(), newClock().Now)
	require.NoError(t, err)

	require.NoError(t, a.SelectAnswer("q1", "3"))
	require.NoError(t, a.SelectAnswer("q1", "4"))
	require.NoError(t, a.SelectAnswer("q2", "2"))
	require.NoError(t, a.SelectAnswer("q2", "3"))
	require.NoError(t, a.SelectAnswer("q2", "2"))

	view := a.View()
	assert.Equal(t, []string{"4"}, view.Answers[0].SelectedAnswers)
	assert.Equal(t, []string{"3"}, view.Answers[1].SelectedAnswers)
	assert.Empty(t, view.Answers[2].SelectedAnswers)

	assert.ErrorIs(t, a.SelectAnswer("nope", "4"), domain.ErrQuestionNotFound)
	assert.ErrorIs(t, a.SelectAnswer("q1", "5"), domain.ErrOptionNotFound)
}

func TestNavigateClampsAndAccumulatesTime(t *testing.T) {
	clock := newClock()
	a, err := NewAttemptWithClock("a1", sampleExam(), clock.Now)
	require.NoError(t, err)

	a.Navigate(-1)
	assert.Equal(t, 0, a.CurrentIndex())

	clock.Advance(10 * time.Second)
	a.Navigate(1)
	clock.Advance(5 * time.Second)
	a.Navigate(-1)
	clock.Advance(3 * time.Second)
	a.JumpTo(99)
	assert.Equal(t, 2, a.CurrentIndex())
	clock.Advance(1400 * time.Millisecond)

	fin, err := a.Submit()
	require.NoError(t, err)
	assert.Equal(t, 13, fin.Answers[0].TimeSpentSeconds)
	assert.Equal(t, 5, fin.Answers[1].TimeSpentSeconds)
	assert.Equal(t, 1, fin.Answers[2].TimeSpentSeconds)
	assert.Equal(t, 19, fin.TimeTakenSeconds)
	assert.False(t, fin.Expired)
	assert.Equal(t, StateSubmitted, a.State())
}

func TestToggleFlagIsIndependentOfAnswers(t *testing.T) {
	a, err := NewAttemptWithClock("a1", sampleExam(), newClock().Now)
	require.NoError(t, err)

	require.NoError(t, a.ToggleFlag("q3"))
	assert.True(t, a.View().Answers[2].Flagged)
	assert.Empty(t, a.View().Answers[2].SelectedAnswers)
	require.NoError(t, a.ToggleFlag("q3"))
	assert.False(t, a.View().Answers[2].Flagged)
	assert.ErrorIs(t, a.ToggleFlag("zzz"), domain.ErrQuestionNotFound)
}

func TestTerminalStatesRejectFurtherChanges(t *testing.T) {
	a, err := NewAttemptWithClock("a1", sampleExam(), newClock().Now)
	require.NoError(t, err)
	require.NoError(t, a.SelectAnswer("q1", "4"))
	require.NoError(t, a.Quit())

	assert.Equal(t, StateAbandoned, a.State())
	assert.Nil(t, a.View().Answers)
	assert.NoError(t, a.SelectAnswer("q1", "3"))
	_, err = a.Submit()
	assert.ErrorIs(t, err, domain.ErrAttemptClosed)
	assert.ErrorIs(t, a.Quit(), domain.ErrAttemptClosed)
	_, ok := a.ExpireTimer()
	assert.False(t, ok)

	b, err := NewAttemptWithClock("b1", sampleExam(), newClock().Now)
	require.NoError(t, err)
	_, err = b.Submit()
	require.NoError(t, err)
	_, ok = b.ExpireTimer()
	assert.False(t, ok)
	_, err = b.Submit()
	assert.ErrorIs(t, err, domain.ErrAttemptClosed)
}

func TestExpireTimerUsesElapsedTime(t *testing.T) {
	clock := newClock()
	def := sampleExam()
	def.TimeLimitSeconds = 90
	a, err := NewAttemptWithClock("a1", def, clock.Now)
	require.NoError(t, err)

	clock.Advance(30 * time.Second)
	left, ok := a.Remaining()
	require.True(t, ok)
	assert.Equal(t, 60*time.Second, left)

	clock.Advance(60 * time.Second)
	fin, ok := a.ExpireTimer()
	require.True(t, ok)
	assert.True(t, fin.Expired)
	assert.Equal(t, 90, fin.TimeTakenSeconds)

	clock.Advance(time.Minute)
	left, _ = a.Remaining()
	assert.Zero(t, left)
}

func TestViewHidesAnswersUntilSubmitted(t *testing.T) {
	a, err := NewAttemptWithClock("a1", sampleExam(), newClock().Now)
	require.NoError(t, err)

	active := a.View()
	assert.Empty(t, active.Questions[0].CorrectAnswers)
	assert.Empty(t, active.Questions[0].Explanation)
	assert.Nil(t, active.RemainingSeconds)

	_, err = a.Submit()
	require.NoError(t, err)
	done := a.View()
	assert.Equal(t, []string{"4"}, done.Questions[0].CorrectAnswers)
	assert.Equal(t, "arithmetic", done.Questions[0].Explanation)
}

func TestNewAttemptRejectsEmptyExam(t *testing.T) {
	_, err := NewAttempt("a1", domain.ExamDefinition{ID: "empty"})
	assert.ErrorIs(t, err, domain.ErrEmptyExam)
}
