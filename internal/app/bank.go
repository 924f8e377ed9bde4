package app

import (
	"context"

	"exam-practice-service/internal/domain"
	"exam-practice-service/internal/exam"
)

// SaveBankEntry normalizes set and stores it in the user's bank.
func (s *ExamService) SaveBankEntry(ctx context.Context, userID string, set exam.QuestionSet) (domain.BankEntry, error) {
	entryID := s.newID()
	def, err := exam.BuildDefinition(entryID, set)
	if err != nil {
		return domain.BankEntry{}, err
	}
	now := s.now()
	entry := domain.BankEntry{ID: entryID, UserID: userID, Exam: def, CreatedAt: now, UpdatedAt: now}
	if err := s.store.SaveBankEntry(ctx, entry); err != nil {
		return domain.BankEntry{}, err
	}
	return entry, nil
}

// UpdateBankEntry replaces the exam of an existing bank entry.
func (s *ExamService) UpdateBankEntry(ctx context.Context, userID, entryID string, set exam.QuestionSet) (domain.BankEntry, error) {
	entry, err := s.store.BankEntry(ctx, userID, entryID)
	if err != nil {
		return domain.BankEntry{}, err
	}
	def, err := exam.BuildDefinition(entryID, set)
	if err != nil {
		return domain.BankEntry{}, err
	}
	entry.Exam = def
	entry.UpdatedAt = s.now()
	if err := s.store.SaveBankEntry(ctx, entry); err != nil {
		return domain.BankEntry{}, err
	}
	return entry, nil
}

func (s *ExamService) BankEntries(ctx context.Context, userID string) ([]domain.BankEntry, error) {
	return s.store.BankEntries(ctx, userID)
}

func (s *ExamService) BankEntry(ctx context.Context, userID, entryID string) (domain.BankEntry, error) {
	return s.store.BankEntry(ctx, userID, entryID)
}

func (s *ExamService) DeleteBankEntry(ctx context.Context, userID, entryID string) error {
	return s.store.DeleteBankEntry(ctx, userID, entryID)
}
