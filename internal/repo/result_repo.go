// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the append-only
// results log and the leaderboard queries built on the user score columns.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/prepbuddy/go-quiz-backend/internal/domain"
)

// CreateResult appends one immutable result row.
func CreateResult(ctx context.Context, db *gorm.DB, userID int64, score, total, correct int, at time.Time) (*domain.Result, error) {
	r := &domain.Result{
		ID:             uuid.NewString(),
		UserID:         userID,
		Score:          score,
		TotalQuestions: total,
		CorrectCount:   correct,
		CreatedAt:      at,
	}
	if err := db.WithContext(ctx).Create(r).Error; err != nil {
		return nil, err
	}
	return r, nil
}

// ListResults returns a user's result history, most recent first.
func ListResults(ctx context.Context, db *gorm.DB, userID int64, limit int) ([]domain.Result, error) {
	var out []domain.Result
	q := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}

// scoreColumns whitelists the orderable leaderboard columns. Never interpolate
// caller input into ORDER BY.
var scoreColumns = map[string]string{
	"daily":   "daily_score",
	"monthly": "monthly_score",
	"total":   "total_score",
}

func topUsersBy(ctx context.Context, db *gorm.DB, column string, limit int) ([]domain.User, error) {
	if limit <= 0 {
		limit = 10
	}
	var out []domain.User
	err := db.WithContext(ctx).
		Order(column + " DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// TopUsersByDailyScore returns the daily leaderboard, highest score first.
func TopUsersByDailyScore(ctx context.Context, db *gorm.DB, limit int) ([]domain.User, error) {
	return topUsersBy(ctx, db, scoreColumns["daily"], limit)
}

// TopUsersByMonthlyScore returns the monthly leaderboard, highest score first.
func TopUsersByMonthlyScore(ctx context.Context, db *gorm.DB, limit int) ([]domain.User, error) {
	return topUsersBy(ctx, db, scoreColumns["monthly"], limit)
}

// TopUsersByTotalScore returns the all-time leaderboard, highest score first.
func TopUsersByTotalScore(ctx context.Context, db *gorm.DB, limit int) ([]domain.User, error) {
	return topUsersBy(ctx, db, scoreColumns["total"], limit)
}
