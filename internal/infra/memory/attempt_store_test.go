package memory

import (
	"context"
	"testing"

	"exam-practice-service/internal/app"
)

func TestAttemptStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewAttemptStore()

	attempt, err := app.NewAttempt("a1", sampleShare().Exam)
	if err != nil {
		t.Fatalf("new attempt: %v", err)
	}
	if err := store.Save(ctx, attempt); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, ok := store.Get(ctx, "a1")
	if !ok || got != attempt {
		t.Fatalf("expected attempt present")
	}

	store.Delete(ctx, "a1")
	if _, ok := store.Get(ctx, "a1"); ok {
		t.Fatalf("expected attempt removed")
	}
	if store.Len() != 0 {
		t.Fatalf("expected empty store, got %d", store.Len())
	}
}
