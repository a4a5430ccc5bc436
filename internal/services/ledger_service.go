// Score ledger. Every finalized session lands here exactly once: the user's
// daily, monthly, and lifetime scores are incremented, the last-result mirror
// is refreshed, and an immutable row is appended to the results log, all
// inside a single transaction.
package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/prepbuddy/go-quiz-backend/internal/domain"
	"github.com/prepbuddy/go-quiz-backend/internal/repo"
)

// ResultSnapshot is the scoring outcome of one finalized session.
type ResultSnapshot struct {
	Score          int
	TotalQuestions int
	CorrectCount   int
	At             time.Time
}

// LedgerService records session outcomes and serves score lookups.
type LedgerService struct {
	DB *gorm.DB
}

// Commit records one session outcome for userID. Unknown users are created
// on the fly rather than rejected, so a score is never dropped because the
// user row lagged behind. Safe to call with a zero snapshot; zero results
// are still logged.
func (s *LedgerService) Commit(ctx context.Context, userID int64, snap ResultSnapshot) error {
	at := snap.At
	if at.IsZero() {
		at = time.Now()
	}
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		_, err := repo.GetUser(ctx, tx, userID)
		if err == repo.ErrNotFound {
			err = tx.WithContext(ctx).Create(&domain.User{ID: userID}).Error
		}
		if err != nil {
			return err
		}
		if err := repo.ApplyResult(ctx, tx, userID, snap.Score, snap.TotalQuestions, snap.CorrectCount, at); err != nil {
			return err
		}
		_, err = repo.CreateResult(ctx, tx, userID, snap.Score, snap.TotalQuestions, snap.CorrectCount, at)
		return err
	})
}

// LastResult returns the most recent outcome mirrored on the user row.
// A user who never finished a session yields ok=false with a nil error.
func (s *LedgerService) LastResult(ctx context.Context, userID int64) (ResultSnapshot, bool, error) {
	user, err := repo.GetUser(ctx, s.DB, userID)
	if err != nil {
		if err == repo.ErrNotFound {
			return ResultSnapshot{}, false, ErrUserNotFound
		}
		return ResultSnapshot{}, false, err
	}
	if user.LastResultAt == nil {
		return ResultSnapshot{}, false, nil
	}
	return ResultSnapshot{
		Score:          user.LastScore,
		TotalQuestions: user.LastTotal,
		CorrectCount:   user.LastCorrect,
		At:             *user.LastResultAt,
	}, true, nil
}

// History returns the user's results log, newest first. limit <= 0 returns
// everything.
func (s *LedgerService) History(ctx context.Context, userID int64, limit int) ([]domain.Result, error) {
	return repo.ListResults(ctx, s.DB, userID, limit)
}

// TopDaily returns the day's leaderboard.
func (s *LedgerService) TopDaily(ctx context.Context, limit int) ([]domain.User, error) {
	return repo.TopUsersByDailyScore(ctx, s.DB, limit)
}

// TopMonthly returns the month's leaderboard.
func (s *LedgerService) TopMonthly(ctx context.Context, limit int) ([]domain.User, error) {
	return repo.TopUsersByMonthlyScore(ctx, s.DB, limit)
}

// TopAllTime returns the lifetime leaderboard.
func (s *LedgerService) TopAllTime(ctx context.Context, limit int) ([]domain.User, error) {
	return repo.TopUsersByTotalScore(ctx, s.DB, limit)
}
