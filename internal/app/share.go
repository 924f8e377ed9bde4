package app

import (
	"context"

	"exam-practice-service/internal/domain"
	"exam-practice-service/internal/exam"
)

// ShareRequest selects what to publish. Exactly one field is set.
type ShareRequest struct {
	BankEntryID string
	Exam        *exam.QuestionSet
}

// ShareExam publishes an exam under a new opaque share id.
func (s *ExamService) ShareExam(ctx context.Context, userID string, req ShareRequest) (domain.SharedExam, error) {
	if (req.BankEntryID == "") == (req.Exam == nil) {
		return domain.SharedExam{}, domain.Invalid("exam", "provide exactly one of exam or bankEntryId")
	}
	shareID := s.newShareID()

	var def domain.ExamDefinition
	if req.BankEntryID != "" {
		entry, err := s.store.BankEntry(ctx, userID, req.BankEntryID)
		if err != nil {
			return domain.SharedExam{}, err
		}
		def = entry.Exam
	} else {
		var err error
		if def, err = exam.BuildDefinition(shareID, *req.Exam); err != nil {
			return domain.SharedExam{}, err
		}
	}
	def.ID = shareID

	share := domain.SharedExam{ShareID: shareID, OwnerID: userID, Exam: def, CreatedAt: s.now()}
	if err := s.store.CreateShare(ctx, share); err != nil {
		return domain.SharedExam{}, err
	}
	s.logger.Info("exam shared", "share_id", shareID, "questions", len(def.Questions))
	return share, nil
}

// SharedExam returns the public form of a shared exam: questions without answers.
func (s *ExamService) SharedExam(ctx context.Context, shareID string) (domain.SharedExam, error) {
	share, err := s.shares.Share(ctx, shareID)
	if err != nil {
		return domain.SharedExam{}, err
	}
	questions := make([]domain.Question, len(share.Exam.Questions))
	for i, q := range share.Exam.Questions {
		q.CorrectAnswers = nil
		q.Explanation = ""
		questions[i] = q
	}
	share.Exam.Questions = questions
	return share, nil
}

// Leaderboard returns the ranked view for a shared exam.
func (s *ExamService) Leaderboard(ctx context.Context, shareID string) (domain.Leaderboard, error) {
	share, err := s.shares.Share(ctx, shareID)
	if err != nil {
		return domain.Leaderboard{}, err
	}
	entries, err := s.store.LeaderboardEntries(ctx, shareID)
	if err != nil {
		return domain.Leaderboard{}, err
	}
	return domain.Leaderboard{
		ShareID:      shareID,
		Title:        share.Exam.Title,
		Entries:      exam.Rank(entries),
		TotalEntries: len(entries),
		UpdatedAt:    s.now(),
	}, nil
}

// SubscribeLeaderboard returns a channel that receives leaderboard updates for a shared exam.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *ExamService) SubscribeLeaderboard(ctx context.Context, shareID string) (<-chan domain.Leaderboard, func(), error) {
	return s.hub.Subscribe(shareID, func() (domain.Leaderboard, error) {
		return s.Leaderboard(ctx, shareID)
	})
}

// SubscriberCount reports how many live subscribers a shared exam has.
func (s *ExamService) SubscriberCount(shareID string) int {
	return s.hub.Subscribers(shareID)
}
