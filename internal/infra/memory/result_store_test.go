package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"reading-quiz-service/internal/domain"
)

func TestResultStoreOneResultPerQuiz(t *testing.T) {
	ctx := context.Background()
	store := NewResultStore(NewUserStore())

	first := domain.QuizResult{QuizID: 1, UserID: 1, OverallScore: 50}
	if err := store.CreateResult(ctx, &first); err != nil {
		t.Fatalf("create: %v", err)
	}
	again := domain.QuizResult{QuizID: 1, UserID: 1, OverallScore: 90}
	if err := store.CreateResult(ctx, &again); !errors.Is(err, domain.ErrResultExists) {
		t.Fatalf("expected duplicate rejection, got %v", err)
	}
	got, err := store.GetResultByQuiz(ctx, 1)
	if err != nil || got.OverallScore != 50 {
		t.Fatalf("expected original result, got %+v err=%v", got, err)
	}
	if _, err := store.GetResultByQuiz(ctx, 2); !errors.Is(err, domain.ErrResultNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestResultStoreScanOrderAndNicknames(t *testing.T) {
	ctx := context.Background()
	users := NewUserStore()
	alice := domain.User{Email: "a@example.com", Nickname: "alice"}
	bob := domain.User{Email: "b@example.com", Nickname: "bob"}
	_ = users.CreateUser(ctx, &alice)
	_ = users.CreateUser(ctx, &bob)

	store := NewResultStore(users)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, r := range []domain.QuizResult{
		{QuizID: 1, UserID: alice.ID, OverallScore: 60, CreatedAt: base.Add(2 * time.Hour)},
		{QuizID: 2, UserID: bob.ID, OverallScore: 80, CreatedAt: base.Add(time.Hour)},
		{QuizID: 3, UserID: bob.ID, OverallScore: 60, CreatedAt: base},
	} {
		r := r
		if err := store.CreateResult(ctx, &r); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}

	scanned, err := store.ScanResults(ctx)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(scanned) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(scanned))
	}
	if scanned[0].OverallScore != 80 || scanned[0].Nickname != "bob" {
		t.Fatalf("expected bob's 80 first, got %+v", scanned[0])
	}
	if !scanned[1].CreatedAt.Equal(base) || scanned[2].Nickname != "alice" {
		t.Fatalf("expected ties ordered oldest first, got %+v", scanned[1:])
	}
}
