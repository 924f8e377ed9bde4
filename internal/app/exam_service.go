package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"exam-practice-service/internal/domain"
	"exam-practice-service/internal/exam"
	"exam-practice-service/internal/id"
)

// AttemptRepository abstracts where live attempts are kept (in-memory, Redis-backed, etc).
type AttemptRepository interface {
	Save(ctx context.Context, a *Attempt) error
	Get(ctx context.Context, attemptID string) (*Attempt, bool)
	Delete(ctx context.Context, attemptID string)
}

// ResultStore persists results together with the user's streak.
type ResultStore interface {
	// AppendResult stores result and replaces the user's streak with advance(current)
	// in one unit of work. A result id that is already stored is a no-op returning
	// the current streak.
	AppendResult(ctx context.Context, userID string, result domain.ExamResult, advance func(domain.Streak) domain.Streak) (domain.Streak, error)
	// Results returns a user's history, oldest first.
	Results(ctx context.Context, userID string) ([]domain.ExamResult, error)
	Result(ctx context.Context, userID, resultID string) (domain.ExamResult, error)
	Streak(ctx context.Context, userID string) (domain.Streak, error)
}

// BankStore persists the personal exam bank.
type BankStore interface {
	SaveBankEntry(ctx context.Context, entry domain.BankEntry) error
	BankEntries(ctx context.Context, userID string) ([]domain.BankEntry, error)
	BankEntry(ctx context.Context, userID, entryID string) (domain.BankEntry, error)
	DeleteBankEntry(ctx context.Context, userID, entryID string) error
}

// ShareReader loads shared exams (from cache/backing store).
type ShareReader interface {
	Share(ctx context.Context, shareID string) (domain.SharedExam, error)
}

// ShareStore persists shared exams and their leaderboards.
type ShareStore interface {
	ShareReader
	CreateShare(ctx context.Context, share domain.SharedExam) error
	// AppendLeaderboardEntry stores a validated entry after every existing one.
	AppendLeaderboardEntry(ctx context.Context, shareID string, entry domain.LeaderboardEntry) error
	// LeaderboardEntries returns every entry in storage order.
	LeaderboardEntries(ctx context.Context, shareID string) ([]domain.LeaderboardEntry, error)
}

// Store is the full persistence surface used by the exam service.
type Store interface {
	ResultStore
	BankStore
	ShareStore
}

// Submission is the outcome of a finished attempt. The result is always present;
// persistence problems are reported next to it instead of replacing it.
type Submission struct {
	Result           domain.ExamResult   `json:"result"`
	Expired          bool                `json:"expired"`
	Saved            bool                `json:"saved"`
	SaveError        string              `json:"saveError,omitempty"`
	Streak           *domain.Streak      `json:"streak,omitempty"`
	Leaderboard      *domain.Leaderboard `json:"leaderboard,omitempty"`
	LeaderboardError string              `json:"leaderboardError,omitempty"`
}

// Option configures an ExamService.
type Option func(*ExamService)

// WithClock replaces time.Now, for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(s *ExamService) { s.now = now }
}

// WithLocation sets the zone in which streak calendar days are evaluated.
func WithLocation(loc *time.Location) Option {
	return func(s *ExamService) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithRetention sets how long finished attempts stay readable.
func WithRetention(d time.Duration) Option {
	return func(s *ExamService) {
		if d > 0 {
			s.retention = d
		}
	}
}

// WithScheduler replaces time.AfterFunc for countdowns and eviction.
func WithScheduler(after func(d time.Duration, f func()) (stop func() bool)) Option {
	return func(s *ExamService) { s.afterFunc = after }
}

// WithIDs replaces the attempt and share id generators.
func WithIDs(newID, newShareID func() string) Option {
	return func(s *ExamService) {
		if newID != nil {
			s.newID = newID
		}
		if newShareID != nil {
			s.newShareID = newShareID
		}
	}
}

// ExamService contains the exam practice use cases.
type ExamService struct {
	store    Store
	attempts AttemptRepository
	shares   ShareReader
	hub      *LeaderboardHub
	logger   *slog.Logger

	now        func() time.Time
	loc        *time.Location
	retention  time.Duration
	afterFunc  func(d time.Duration, f func()) func() bool
	newID      func() string
	newShareID func() string
}

// NewExamService wires the service. shares may be a cache in front of store; nil uses store directly.
func NewExamService(store Store, attempts AttemptRepository, shares ShareReader, hub *LeaderboardHub, logger *slog.Logger, opts ...Option) *ExamService {
	if shares == nil {
		shares = store
	}
	if hub == nil {
		hub = NewLeaderboardHub()
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &ExamService{
		store:     store,
		attempts:  attempts,
		shares:    shares,
		hub:       hub,
		logger:    logger,
		now:       time.Now,
		loc:       time.Local,
		retention: 30 * time.Minute,
		afterFunc: func(d time.Duration, f func()) func() bool {
			return time.AfterFunc(d, f).Stop
		},
		newID:      id.New,
		newShareID: id.ShareToken,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StartRequest selects the exam to attempt. Exactly one of Exam, BankEntryID and ShareID is set.
type StartRequest struct {
	UserID      string
	Exam        *exam.QuestionSet
	BankEntryID string
	ShareID     string
	// Nickname is used for the leaderboard of a shared exam, including on timer expiry.
	Nickname string
}

// StartAttempt begins a new attempt and arms its countdown when the exam is timed.
func (s *ExamService) StartAttempt(ctx context.Context, req StartRequest) (AttemptView, error) {
	attemptID := s.newID()
	def, err := s.resolveExam(ctx, attemptID, req)
	if err != nil {
		return AttemptView{}, err
	}
	if req.ShareID != "" && req.Nickname != "" {
		if _, err := exam.ValidateNickname(req.Nickname); err != nil {
			return AttemptView{}, err
		}
	}

	a, err := NewAttemptWithClock(attemptID, def, s.now)
	if err != nil {
		return AttemptView{}, err
	}
	a.setOwner(req.UserID)
	a.setShare(req.ShareID, req.Nickname)
	if err := s.attempts.Save(ctx, a); err != nil {
		return AttemptView{}, err
	}
	if def.TimeLimitSeconds > 0 {
		a.setTimer(s.afterFunc(a.limit(), func() { s.expire(attemptID) }))
	}
	// Unfinished attempts are dropped after the time limit plus retention.
	a.setIdleTimer(s.afterFunc(a.limit()+s.retention, func() { s.evictIdle(attemptID) }))

	s.logger.Info("attempt started",
		slog.String("attempt_id", attemptID),
		slog.String("exam_id", def.ID),
		slog.Int("questions", len(def.Questions)),
		slog.Bool("timed", def.TimeLimitSeconds > 0))
	return a.View(), nil
}

func (s *ExamService) resolveExam(ctx context.Context, attemptID string, req StartRequest) (domain.ExamDefinition, error) {
	sources := 0
	for _, set := range []bool{req.Exam != nil, req.BankEntryID != "", req.ShareID != ""} {
		if set {
			sources++
		}
	}
	if sources != 1 {
		return domain.ExamDefinition{}, domain.Invalid("exam", "provide exactly one of exam, bankEntryId or shareId")
	}

	switch {
	case req.Exam != nil:
		return exam.BuildDefinition(attemptID, *req.Exam)
	case req.BankEntryID != "":
		if req.UserID == "" {
			return domain.ExamDefinition{}, domain.ErrUnauthorized
		}
		entry, err := s.store.BankEntry(ctx, req.UserID, req.BankEntryID)
		if err != nil {
			return domain.ExamDefinition{}, err
		}
		return entry.Exam, nil
	default:
		share, err := s.shares.Share(ctx, req.ShareID)
		if err != nil {
			return domain.ExamDefinition{}, err
		}
		return share.Exam, nil
	}
}

// Attempt returns the current view of an attempt.
func (s *ExamService) Attempt(ctx context.Context, attemptID, userID string) (AttemptView, error) {
	a, err := s.lookup(ctx, attemptID, userID)
	if err != nil {
		return AttemptView{}, err
	}
	return a.View(), nil
}

// SelectAnswer records an option choice on a question.
func (s *ExamService) SelectAnswer(ctx context.Context, attemptID, userID, questionID, option string) (AttemptView, error) {
	a, err := s.lookup(ctx, attemptID, userID)
	if err != nil {
		return AttemptView{}, err
	}
	if err := a.SelectAnswer(questionID, option); err != nil {
		return AttemptView{}, err
	}
	return a.View(), nil
}

// Navigate moves the attempt by delta questions.
func (s *ExamService) Navigate(ctx context.Context, attemptID, userID string, delta int) (AttemptView, error) {
	a, err := s.lookup(ctx, attemptID, userID)
	if err != nil {
		return AttemptView{}, err
	}
	a.Navigate(delta)
	return a.View(), nil
}

// JumpTo moves the attempt to the question at index.
func (s *ExamService) JumpTo(ctx context.Context, attemptID, userID string, index int) (AttemptView, error) {
	a, err := s.lookup(ctx, attemptID, userID)
	if err != nil {
		return AttemptView{}, err
	}
	a.JumpTo(index)
	return a.View(), nil
}

// ToggleFlag flips the review flag of a question.
func (s *ExamService) ToggleFlag(ctx context.Context, attemptID, userID, questionID string) (AttemptView, error) {
	a, err := s.lookup(ctx, attemptID, userID)
	if err != nil {
		return AttemptView{}, err
	}
	if err := a.ToggleFlag(questionID); err != nil {
		return AttemptView{}, err
	}
	return a.View(), nil
}

// Submit finalizes an attempt, scores it and records it for the owner.
// Retrying a submit returns the stored outcome; a nickname posts the result
// to the leaderboard of a shared exam.
func (s *ExamService) Submit(ctx context.Context, attemptID, userID, nickname string) (Submission, error) {
	a, err := s.lookup(ctx, attemptID, userID)
	if err != nil {
		return Submission{}, err
	}
	if sub, ok := a.Submission(); ok {
		return sub, nil
	}
	if nickname == "" {
		nickname = a.nickname
	}
	if a.shareID != "" && nickname != "" {
		if nickname, err = exam.ValidateNickname(nickname); err != nil {
			return Submission{}, err
		}
	}

	fin, err := a.Submit()
	if errors.Is(err, domain.ErrAttemptClosed) && a.State() == StateSubmitted {
		// Lost the race with the countdown; wait for its outcome.
		select {
		case <-a.Done():
			sub, _ := a.Submission()
			return sub, nil
		case <-ctx.Done():
			return Submission{}, ctx.Err()
		}
	}
	if err != nil {
		return Submission{}, err
	}
	return s.complete(ctx, a, fin, nickname), nil
}

// Quit abandons an attempt; its answers are discarded and nothing is stored.
func (s *ExamService) Quit(ctx context.Context, attemptID, userID string) error {
	a, err := s.lookup(ctx, attemptID, userID)
	if err != nil {
		return err
	}
	if err := a.Quit(); err != nil {
		return err
	}
	s.attempts.Delete(ctx, attemptID)
	s.logger.Info("attempt abandoned", slog.String("attempt_id", attemptID))
	return nil
}

func (s *ExamService) lookup(ctx context.Context, attemptID, userID string) (*Attempt, error) {
	a, ok := s.attempts.Get(ctx, attemptID)
	if !ok {
		return nil, domain.ErrAttemptNotFound
	}
	if owner := a.UserID(); owner != "" && owner != userID {
		return nil, domain.ErrAttemptNotFound
	}
	return a, nil
}

// expire is the countdown callback of a timed attempt.
func (s *ExamService) expire(attemptID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	a, ok := s.attempts.Get(ctx, attemptID)
	if !ok {
		return
	}
	fin, ok := a.ExpireTimer()
	if !ok {
		return
	}
	nickname := a.nickname
	if nickname != "" {
		nickname, _ = exam.ValidateNickname(nickname)
	}
	sub := s.complete(ctx, a, fin, nickname)
	s.logger.Info("attempt expired",
		slog.String("attempt_id", attemptID),
		slog.Int("score", sub.Result.Score),
		slog.Int("total", sub.Result.Total))
}

// evictIdle drops an attempt that was neither submitted nor quit in time.
// Finished attempts follow their own retention eviction.
func (s *ExamService) evictIdle(attemptID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	a, ok := s.attempts.Get(ctx, attemptID)
	if !ok {
		return
	}
	if err := a.Quit(); err != nil {
		return
	}
	s.attempts.Delete(ctx, attemptID)
	s.logger.Info("idle attempt evicted", slog.String("attempt_id", attemptID))
}

// complete scores a finalized attempt and runs the storage side effects.
// Storage failures never hide the computed result.
func (s *ExamService) complete(ctx context.Context, a *Attempt, fin Finalized, nickname string) Submission {
	result, err := exam.Score(a.Exam(), fin.Answers, exam.ScoreInput{
		ResultID:         a.ID(),
		UserID:           a.UserID(),
		TimeTakenSeconds: fin.TimeTakenSeconds,
		SubmittedAt:      fin.FinishedAt,
	})
	if err != nil {
		// Attempts cannot be created without questions.
		s.logger.Error("score attempt", slog.String("attempt_id", a.ID()), slog.Any("error", err))
	}
	sub := Submission{Result: result, Expired: fin.Expired}

	if owner := a.UserID(); owner != "" {
		day := fin.FinishedAt.In(s.loc)
		streak, err := s.store.AppendResult(ctx, owner, result, func(current domain.Streak) domain.Streak {
			return exam.AdvanceStreak(current, day)
		})
		if err != nil {
			perr := &domain.PersistenceError{Op: "append result", Err: err}
			s.logger.Error("save result", slog.String("attempt_id", a.ID()), slog.Any("error", perr))
			sub.SaveError = perr.Error()
		} else {
			sub.Saved = true
			sub.Streak = &streak
		}
	}

	if shareID := a.ShareID(); shareID != "" && nickname != "" {
		lb, err := s.recordLeaderboard(ctx, shareID, exam.NewEntry(nickname, result, fin.FinishedAt))
		if err != nil {
			s.logger.Error("record leaderboard entry", slog.String("share_id", shareID), slog.Any("error", err))
			sub.LeaderboardError = err.Error()
		} else {
			sub.Leaderboard = &lb
		}
	}

	a.setSubmission(sub)
	s.afterFunc(s.retention, func() {
		evictCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.attempts.Delete(evictCtx, a.ID())
	})

	s.logger.Info("attempt submitted",
		slog.String("attempt_id", a.ID()),
		slog.Float64("percentage", result.Percentage),
		slog.Bool("saved", sub.Saved),
		slog.Bool("expired", fin.Expired))
	return sub
}

func (s *ExamService) recordLeaderboard(ctx context.Context, shareID string, entry domain.LeaderboardEntry) (domain.Leaderboard, error) {
	entry, err := exam.ValidateEntry(entry)
	if err != nil {
		return domain.Leaderboard{}, err
	}
	if err := s.store.AppendLeaderboardEntry(ctx, shareID, entry); err != nil {
		return domain.Leaderboard{}, &domain.PersistenceError{Op: "append leaderboard entry", Err: err}
	}
	lb, err := s.Leaderboard(ctx, shareID)
	if err != nil {
		return domain.Leaderboard{}, err
	}
	s.hub.Publish(lb)
	return lb, nil
}
