package redis

import (
	"context"
	"testing"
	"time"

	"exam-practice-service/internal/app"
	miniredis "github.com/alicebob/miniredis/v2"
)

func TestAttemptStoreSetsAndClearsKeys(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	store := NewAttemptStore(newClient(mr), time.Minute)

	def := sampleShare().Exam
	def.TimeLimitSeconds = 30
	attempt, err := app.NewAttempt("a1", def)
	if err != nil {
		t.Fatalf("new attempt: %v", err)
	}
	if err := store.Save(ctx, attempt); err != nil {
		t.Fatalf("save: %v", err)
	}
	if !mr.Exists("exam:attempt:a1") {
		t.Fatalf("expected redis key to be set")
	}
	if ttl := mr.TTL("exam:attempt:a1"); ttl != 90*time.Second {
		t.Fatalf("expected ttl to cover the time limit, got %v", ttl)
	}
	if got, ok := store.Get(ctx, "a1"); !ok || got != attempt {
		t.Fatalf("expected attempt present")
	}

	store.Delete(ctx, "a1")
	if mr.Exists("exam:attempt:a1") {
		t.Fatalf("expected redis key to be removed")
	}
	if _, ok := store.Get(ctx, "a1"); ok {
		t.Fatalf("expected attempt removed")
	}
}
