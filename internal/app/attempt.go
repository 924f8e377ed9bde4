package app

import (
	"sync"
	"time"

	"exam-practice-service/internal/domain"
)

// AttemptState is the lifecycle state of one exam attempt.
type AttemptState string

const (
	StateActive    AttemptState = "active"
	StateSubmitted AttemptState = "submitted"
	StateAbandoned AttemptState = "abandoned"
)

// Finalized is the frozen answer set of a submitted attempt.
type Finalized struct {
	Answers          []domain.AnswerRecord
	TimeTakenSeconds int
	StartedAt        time.Time
	FinishedAt       time.Time
	Expired          bool
}

// Attempt tracks one run of an exam: answers, flags, navigation and per-question time.
// It is owned by a single client; the mutex only guards against the countdown timer
// firing while a request is in flight.
type Attempt struct {
	id       string
	userID   string
	shareID  string
	nickname string
	exam     domain.ExamDefinition
	now      func() time.Time

	mu         sync.Mutex
	state      AttemptState
	index      int
	selected   [][]string
	flagged    []bool
	spent      []time.Duration
	startedAt  time.Time
	enteredAt  time.Time
	finishedAt time.Time
	expired    bool
	stopTimer  func() bool
	stopIdle   func() bool
	submission *Submission
	done       chan struct{}
}

// NewAttempt starts an attempt at the first question.
func NewAttempt(id string, def domain.ExamDefinition) (*Attempt, error) {
	return NewAttemptWithClock(id, def, time.Now)
}

// NewAttemptWithClock allows deterministic timestamps in tests.
func NewAttemptWithClock(id string, def domain.ExamDefinition, now func() time.Time) (*Attempt, error) {
	n := len(def.Questions)
	if n == 0 {
		return nil, domain.ErrEmptyExam
	}
	started := now()
	return &Attempt{
		id:        id,
		exam:      def,
		now:       now,
		state:     StateActive,
		selected:  make([][]string, n),
		flagged:   make([]bool, n),
		spent:     make([]time.Duration, n),
		startedAt: started,
		enteredAt: started,
		done:      make(chan struct{}),
	}, nil
}

func (a *Attempt) ID() string                   { return a.id }
func (a *Attempt) UserID() string               { return a.userID }
func (a *Attempt) ShareID() string              { return a.shareID }
func (a *Attempt) Exam() domain.ExamDefinition  { return a.exam }
func (a *Attempt) Done() <-chan struct{}        { return a.done }
func (a *Attempt) setOwner(userID string)       { a.userID = userID }
func (a *Attempt) setShare(shareID, nick string) { a.shareID, a.nickname = shareID, nick }

// State returns the current lifecycle state.
func (a *Attempt) State() AttemptState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// SelectAnswer replaces the selection of a single-select question or toggles
// option membership of a multi-select one. It is a no-op once the attempt is closed.
func (a *Attempt) SelectAnswer(questionID, option string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != StateActive {
		return nil
	}
	i, q, err := a.questionLocked(questionID)
	if err != nil {
		return err
	}
	if !q.HasOption(option) {
		return domain.ErrOptionNotFound
	}

	if q.Kind != domain.KindMulti {
		a.selected[i] = []string{option}
		return nil
	}
	current := a.selected[i]
	for j, s := range current {
		if s == option {
			a.selected[i] = append(current[:j:j], current[j+1:]...)
			return nil
		}
	}
	a.selected[i] = append(current, option)
	return nil
}

// ToggleFlag flips the review flag of a question.
func (a *Attempt) ToggleFlag(questionID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != StateActive {
		return nil
	}
	i, _, err := a.questionLocked(questionID)
	if err != nil {
		return err
	}
	a.flagged[i] = !a.flagged[i]
	return nil
}

// Navigate moves by delta questions, clamped to the exam bounds.
func (a *Attempt) Navigate(delta int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.moveLocked(a.index + delta)
}

// JumpTo moves straight to a question index, clamped to the exam bounds.
func (a *Attempt) JumpTo(index int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.moveLocked(index)
}

// CurrentIndex returns the index of the active question.
func (a *Attempt) CurrentIndex() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.index
}

// Submit freezes the answers and closes the attempt.
func (a *Attempt) Submit() (Finalized, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != StateActive {
		return Finalized{}, domain.ErrAttemptClosed
	}
	return a.finalizeLocked(false), nil
}

// ExpireTimer force-submits an active attempt when its time limit runs out.
// The boolean is false when the attempt was already closed.
func (a *Attempt) ExpireTimer() (Finalized, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != StateActive {
		return Finalized{}, false
	}
	return a.finalizeLocked(true), true
}

// Quit abandons the attempt and discards every answer.
func (a *Attempt) Quit() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != StateActive {
		return domain.ErrAttemptClosed
	}
	a.state = StateAbandoned
	a.finishedAt = a.now()
	a.selected = nil
	a.flagged = nil
	a.spent = nil
	a.stopTimerLocked()
	a.stopIdleLocked()
	close(a.done)
	return nil
}

// Remaining reports the time left on a timed attempt; ok is false for untimed exams.
func (a *Attempt) Remaining() (time.Duration, bool) {
	if a.exam.TimeLimitSeconds <= 0 {
		return 0, false
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	end := a.now()
	if a.state != StateActive {
		end = a.finishedAt
	}
	left := a.limit() - end.Sub(a.startedAt)
	if left < 0 {
		left = 0
	}
	return left, true
}

// Submission returns the recorded outcome of a submitted attempt, if any.
func (a *Attempt) Submission() (Submission, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.submission == nil {
		return Submission{}, false
	}
	return *a.submission, true
}

func (a *Attempt) setSubmission(sub Submission) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.submission != nil {
		return
	}
	a.submission = &sub
	close(a.done)
}

func (a *Attempt) setTimer(stop func() bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopTimer = stop
}

// setIdleTimer arms the eviction of an attempt that is never finished.
func (a *Attempt) setIdleTimer(stop func() bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != StateActive {
		stop()
		return
	}
	a.stopIdle = stop
}

func (a *Attempt) limit() time.Duration {
	return time.Duration(a.exam.TimeLimitSeconds) * time.Second
}

func (a *Attempt) questionLocked(questionID string) (int, domain.Question, error) {
	for i, q := range a.exam.Questions {
		if q.ID == questionID {
			return i, q, nil
		}
	}
	return 0, domain.Question{}, domain.ErrQuestionNotFound
}

func (a *Attempt) moveLocked(target int) {
	if a.state != StateActive {
		return
	}
	if target < 0 {
		target = 0
	}
	if last := len(a.exam.Questions) - 1; target > last {
		target = last
	}
	a.flushLocked()
	a.index = target
}

// flushLocked credits the time since the current question was entered to it.
func (a *Attempt) flushLocked() {
	t := a.now()
	if d := t.Sub(a.enteredAt); d > 0 {
		a.spent[a.index] += d
	}
	a.enteredAt = t
}

func (a *Attempt) finalizeLocked(expired bool) Finalized {
	a.flushLocked()
	a.state = StateSubmitted
	a.finishedAt = a.enteredAt
	a.expired = expired
	if !expired {
		a.stopTimerLocked()
	}
	a.stopIdleLocked()
	return Finalized{
		Answers:          a.recordsLocked(),
		TimeTakenSeconds: seconds(a.finishedAt.Sub(a.startedAt)),
		StartedAt:        a.startedAt,
		FinishedAt:       a.finishedAt,
		Expired:          expired,
	}
}

func (a *Attempt) stopTimerLocked() {
	if a.stopTimer != nil {
		a.stopTimer()
		a.stopTimer = nil
	}
}

func (a *Attempt) stopIdleLocked() {
	if a.stopIdle != nil {
		a.stopIdle()
		a.stopIdle = nil
	}
}

// recordsLocked snapshots every answer record, including time on the active question.
func (a *Attempt) recordsLocked() []domain.AnswerRecord {
	if a.selected == nil {
		return nil
	}
	var inFlight time.Duration
	if a.state == StateActive {
		inFlight = a.now().Sub(a.enteredAt)
	}
	records := make([]domain.AnswerRecord, len(a.exam.Questions))
	for i, q := range a.exam.Questions {
		spent := a.spent[i]
		if i == a.index && inFlight > 0 {
			spent += inFlight
		}
		selected := make([]string, len(a.selected[i]))
		copy(selected, a.selected[i])
		records[i] = domain.AnswerRecord{
			QuestionID:       q.ID,
			SelectedAnswers:  selected,
			TimeSpentSeconds: seconds(spent),
			Flagged:          a.flagged[i],
		}
	}
	return records
}

func seconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(d.Round(time.Second) / time.Second)
}

// QuestionView is the client-facing form of a question. Correct answers and
// explanations are withheld until the attempt is submitted.
type QuestionView struct {
	ID             string              `json:"id"`
	Text           string              `json:"text"`
	Options        []string            `json:"options"`
	Kind           domain.QuestionKind `json:"kind"`
	Topic          string              `json:"topic,omitempty"`
	CorrectAnswers []string            `json:"correctAnswers,omitempty"`
	Explanation    string              `json:"explanation,omitempty"`
}

// AttemptView is a read-only snapshot of an attempt.
type AttemptView struct {
	ID               string                `json:"id"`
	State            AttemptState          `json:"state"`
	ExamID           string                `json:"examId"`
	Title            string                `json:"title"`
	Subject          string                `json:"subject,omitempty"`
	ShareID          string                `json:"shareId,omitempty"`
	Questions        []QuestionView        `json:"questions"`
	CurrentIndex     int                   `json:"currentIndex"`
	Answers          []domain.AnswerRecord `json:"answers"`
	TimeLimitSeconds int                   `json:"timeLimitSeconds,omitempty"`
	RemainingSeconds *int                  `json:"remainingSeconds,omitempty"`
	StartedAt        time.Time             `json:"startedAt"`
	Submission       *Submission           `json:"submission,omitempty"`
}

// View snapshots the attempt for clients.
func (a *Attempt) View() AttemptView {
	a.mu.Lock()
	defer a.mu.Unlock()

	reveal := a.state == StateSubmitted
	questions := make([]QuestionView, len(a.exam.Questions))
	for i, q := range a.exam.Questions {
		qv := QuestionView{ID: q.ID, Text: q.Text, Options: q.Options, Kind: q.Kind, Topic: q.Topic}
		if reveal {
			qv.CorrectAnswers = q.CorrectAnswers
			qv.Explanation = q.Explanation
		}
		questions[i] = qv
	}

	view := AttemptView{
		ID:               a.id,
		State:            a.state,
		ExamID:           a.exam.ID,
		Title:            a.exam.Title,
		Subject:          a.exam.Subject,
		ShareID:          a.shareID,
		Questions:        questions,
		CurrentIndex:     a.index,
		Answers:          a.recordsLocked(),
		TimeLimitSeconds: a.exam.TimeLimitSeconds,
		StartedAt:        a.startedAt,
	}
	if a.exam.TimeLimitSeconds > 0 && a.state == StateActive {
		left := seconds(a.limit() - a.now().Sub(a.startedAt))
		view.RemainingSeconds = &left
	}
	if a.submission != nil {
		sub := *a.submission
		view.Submission = &sub
	}
	return view
}
