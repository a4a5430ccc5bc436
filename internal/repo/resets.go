// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the bulk reset updates run by the
// periodic scheduler: daily question counters, daily scores, monthly scores.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/prepbuddy/go-quiz-backend/internal/domain"
)

// ResetDailyQuestions zeroes the daily counter for every user lacking active
// paid access: the flag unset, or set with an expiry already in the past.
// Returns the number of rows touched.
func ResetDailyQuestions(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	res := db.WithContext(ctx).Model(&domain.User{}).
		Where("unlimited_access = ? OR (unlimited_expiry IS NOT NULL AND unlimited_expiry <= ?)", false, now).
		Updates(map[string]any{"daily_questions": 0})
	return res.RowsAffected, res.Error
}

// ResetDailyScores zeroes daily_score for all users.
func ResetDailyScores(ctx context.Context, db *gorm.DB) (int64, error) {
	res := db.WithContext(ctx).Model(&domain.User{}).
		Where("daily_score <> 0").
		Updates(map[string]any{"daily_score": 0})
	return res.RowsAffected, res.Error
}

// ResetMonthlyScores zeroes monthly_score for all users.
func ResetMonthlyScores(ctx context.Context, db *gorm.DB) (int64, error) {
	res := db.WithContext(ctx).Model(&domain.User{}).
		Where("monthly_score <> 0").
		Updates(map[string]any{"monthly_score": 0})
	return res.RowsAffected, res.Error
}
