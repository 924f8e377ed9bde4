package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"exam-practice-service/internal/domain"
)

func TestShareCacheCaches(t *testing.T) {
	loader := &countingLoader{store: NewStore()}
	if err := loader.store.CreateShare(context.Background(), sampleShare()); err != nil {
		t.Fatalf("create share: %v", err)
	}
	cache := NewShareCache(loader, time.Minute)

	if _, err := cache.Share(context.Background(), "abc123"); err != nil {
		t.Fatalf("get share: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls)
	}

	share, err := cache.Share(context.Background(), "abc123")
	if err != nil {
		t.Fatalf("get share 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}
	if share.Exam.Title != "Networking" {
		t.Fatalf("unexpected share %+v", share)
	}
}

func TestShareCacheExpires(t *testing.T) {
	loader := &countingLoader{store: NewStore()}
	_ = loader.store.CreateShare(context.Background(), sampleShare())
	cache := NewShareCache(loader, time.Minute)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	cache.clock = func() time.Time { return now }

	_, _ = cache.Share(context.Background(), "abc123")
	now = now.Add(2 * time.Minute)
	_, _ = cache.Share(context.Background(), "abc123")
	if loader.calls != 2 {
		t.Fatalf("expected reload after ttl, loader calls %d", loader.calls)
	}
}

func TestShareCacheMissIsNotCached(t *testing.T) {
	loader := &countingLoader{store: NewStore()}
	cache := NewShareCache(loader, time.Minute)

	for i := 0; i < 2; i++ {
		_, err := cache.Share(context.Background(), "missing")
		if !errors.Is(err, domain.ErrShareNotFound) {
			t.Fatalf("expected share not found, got %v", err)
		}
	}
	if loader.calls != 2 {
		t.Fatalf("expected misses to hit the loader, got %d", loader.calls)
	}
}

type countingLoader struct {
	store *Store
	calls int
}

func (l *countingLoader) Share(ctx context.Context, shareID string) (domain.SharedExam, error) {
	l.calls++
	return l.store.Share(ctx, shareID)
}

func sampleShare() domain.SharedExam {
	return domain.SharedExam{
		ShareID: "abc123",
		OwnerID: "u1",
		Exam: domain.ExamDefinition{
			ID:    "abc123",
			Title: "Networking",
			Questions: []domain.Question{
				{ID: "q1", Text: "Default HTTPS port?", Options: []string{"80", "443"}, CorrectAnswers: []string{"443"}, Kind: domain.KindSingle},
			},
		},
	}
}
