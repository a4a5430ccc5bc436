package services

import (
	"context"
	"testing"
	"time"

	"github.com/prepbuddy/go-quiz-backend/internal/repo"
)

func TestLedgerCommit_CreatesUserAndAccumulates(t *testing.T) {
	ctx := context.Background()
	db := newServicesDB(t)
	s := &LedgerService{DB: db}

	at1 := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	at2 := at1.Add(time.Hour)

	// No user row exists yet; Commit must create it rather than fail.
	if err := s.Commit(ctx, 1, ResultSnapshot{Score: 3, TotalQuestions: 5, CorrectCount: 3, At: at1}); err != nil {
		t.Fatalf("first commit: %v", err)
	}
	if err := s.Commit(ctx, 1, ResultSnapshot{Score: 2, TotalQuestions: 4, CorrectCount: 2, At: at2}); err != nil {
		t.Fatalf("second commit: %v", err)
	}

	user, err := repo.GetUser(ctx, db, 1)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if user.DailyScore != 5 || user.MonthlyScore != 5 || user.TotalScore != 5 {
		t.Fatalf("scores not accumulated: %d %d %d", user.DailyScore, user.MonthlyScore, user.TotalScore)
	}
	if user.LastScore != 2 || user.LastTotal != 4 {
		t.Fatalf("last-result mirror stale: %d/%d", user.LastScore, user.LastTotal)
	}

	results, err := s.History(ctx, 1, 0)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 log rows, got %d", len(results))
	}
	// Newest first.
	if results[0].Score != 2 || results[1].Score != 3 {
		t.Fatalf("unexpected order: %d, %d", results[0].Score, results[1].Score)
	}
}

func TestLastResult(t *testing.T) {
	ctx := context.Background()
	db := newServicesDB(t)
	s := &LedgerService{DB: db}

	if _, err := repo.EnsureUser(ctx, db, 1, "alice"); err != nil {
		t.Fatalf("ensure user: %v", err)
	}

	if _, ok, err := s.LastResult(ctx, 1); err != nil || ok {
		t.Fatalf("fresh user should have no last result: ok=%v err=%v", ok, err)
	}

	at := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	if err := s.Commit(ctx, 1, ResultSnapshot{Score: 4, TotalQuestions: 5, CorrectCount: 4, At: at}); err != nil {
		t.Fatalf("commit: %v", err)
	}

	snap, ok, err := s.LastResult(ctx, 1)
	if err != nil || !ok {
		t.Fatalf("last result: ok=%v err=%v", ok, err)
	}
	if snap.Score != 4 || snap.TotalQuestions != 5 || !snap.At.Equal(at) {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}

	if _, _, err := s.LastResult(ctx, 404); err != ErrUserNotFound {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestLeaderboards(t *testing.T) {
	ctx := context.Background()
	db := newServicesDB(t)
	s := &LedgerService{DB: db}

	at := time.Now()
	for i, score := range []int{1, 5, 3} {
		userID := int64(i + 1)
		if err := s.Commit(ctx, userID, ResultSnapshot{Score: score, TotalQuestions: 5, CorrectCount: score, At: at}); err != nil {
			t.Fatalf("commit %d: %v", userID, err)
		}
	}

	top, err := s.TopDaily(ctx, 2)
	if err != nil {
		t.Fatalf("top daily: %v", err)
	}
	if len(top) != 2 || top[0].ID != 2 || top[1].ID != 3 {
		t.Fatalf("unexpected leaderboard: %+v", top)
	}
}
