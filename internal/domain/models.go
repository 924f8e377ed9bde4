package domain

import "time"

// QuestionKind discriminates single-select from multi-select questions.
type QuestionKind string

const (
	KindSingle QuestionKind = "single"
	KindMulti  QuestionKind = "multi"
)

// Question models an MCQ question. Kind is multi iff there is more than one correct answer.
type Question struct {
	ID             string       `json:"id"`
	Text           string       `json:"text"`
	Options        []string     `json:"options"`
	CorrectAnswers []string     `json:"correctAnswers"`
	Kind           QuestionKind `json:"kind"`
	Explanation    string       `json:"explanation,omitempty"`
	Topic          string       `json:"topic,omitempty"`
}

// HasOption reports whether option is one of the question's choices.
func (q Question) HasOption(option string) bool {
	for _, o := range q.Options {
		if o == option {
			return true
		}
	}
	return false
}

// ExamDefinition is a static question set plus an optional time limit.
type ExamDefinition struct {
	ID               string     `json:"id"`
	Title            string     `json:"title"`
	Subject          string     `json:"subject,omitempty"`
	Questions        []Question `json:"questions"`
	TimeLimitSeconds int        `json:"timeLimitSeconds,omitempty"` // zero means untimed
}

// AnswerRecord is the per-question answer state of one attempt.
type AnswerRecord struct {
	QuestionID       string   `json:"questionId"`
	SelectedAnswers  []string `json:"selectedAnswers"`
	TimeSpentSeconds int      `json:"timeSpentSeconds"`
	Flagged          bool     `json:"flagged"`
}

// AnswerOutcome is the scored snapshot of one question inside a result.
type AnswerOutcome struct {
	QuestionID       string   `json:"questionId"`
	QuestionText     string   `json:"questionText"`
	Options          []string `json:"options,omitempty"`
	SelectedAnswers  []string `json:"selectedAnswers"`
	CorrectAnswers   []string `json:"correctAnswers"`
	IsCorrect        bool     `json:"isCorrect"`
	TimeSpentSeconds int      `json:"timeSpentSeconds,omitempty"`
	Flagged          bool     `json:"flagged,omitempty"`
	Topic            string   `json:"topic,omitempty"`
	Explanation      string   `json:"explanation,omitempty"`
}

// ExamResult is the immutable record of a submitted attempt.
type ExamResult struct {
	ID               string          `json:"id"`
	UserID           string          `json:"userId,omitempty"`
	ExamID           string          `json:"examId"`
	Title            string          `json:"title"`
	Subject          string          `json:"subject,omitempty"`
	Score            int             `json:"score"`
	Total            int             `json:"total"`
	Percentage       float64         `json:"percentage"`
	TimeTakenSeconds int             `json:"timeTakenSeconds"`
	Answers          []AnswerOutcome `json:"answers"`
	CreatedAt        time.Time       `json:"createdAt"`
}

// Streak holds the consecutive-day activity counters of a user.
type Streak struct {
	Current      int        `json:"currentStreak"`
	Longest      int        `json:"longestStreak"`
	LastActivity *time.Time `json:"lastActivityDate,omitempty"`
}

// User is an account known to the credential service.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// UserProfile is the history and streak view of a user. History is ordered oldest first.
type UserProfile struct {
	UserID   string       `json:"userId"`
	Username string       `json:"username"`
	History  []ExamResult `json:"examHistory"`
	Streak   Streak       `json:"streak"`
}

// LeaderboardEntry is one public submission on a shared exam.
type LeaderboardEntry struct {
	Nickname         string    `json:"nickname"`
	Score            int       `json:"score"`
	Total            int       `json:"total"`
	Percentage       float64   `json:"percentage"`
	TimeTakenSeconds int       `json:"timeTakenSeconds"`
	SubmittedAt      time.Time `json:"submittedAt"`
}

// Leaderboard captures the ranked view of a shared exam.
type Leaderboard struct {
	ShareID      string             `json:"shareId"`
	Title        string             `json:"title"`
	Entries      []LeaderboardEntry `json:"entries"`
	TotalEntries int                `json:"totalEntries"`
	UpdatedAt    time.Time          `json:"updatedAt"`
}

// WeakAreaStat is the derived per-question accuracy of a user.
type WeakAreaStat struct {
	QuestionID     string   `json:"questionId"`
	QuestionText   string   `json:"question"`
	Options        []string `json:"options"`
	CorrectAnswers []string `json:"correctAnswers"`
	Topic          string   `json:"topic,omitempty"`
	Attempts       int      `json:"attempts"`
	WrongCount     int      `json:"wrongCount"`
	UserAccuracy   float64  `json:"userAccuracy"`
}

// HistoryStats summarises a user's past results.
type HistoryStats struct {
	TotalExams       int     `json:"totalExams"`
	AvgScore         int     `json:"avgScore"`
	BestScore        float64 `json:"bestScore"`
	TotalTimeSeconds int     `json:"totalTimeSeconds"`
}

// TrendPoint is one charted result.
type TrendPoint struct {
	Percentage float64 `json:"percentage"`
}

// BankEntry is an exam saved to a user's personal bank.
type BankEntry struct {
	ID        string         `json:"id"`
	UserID    string         `json:"userId"`
	Exam      ExamDefinition `json:"exam"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// SharedExam is an exam published under an opaque share id.
type SharedExam struct {
	ShareID   string         `json:"shareId"`
	OwnerID   string         `json:"ownerId"`
	Exam      ExamDefinition `json:"exam"`
	CreatedAt time.Time      `json:"createdAt"`
}
