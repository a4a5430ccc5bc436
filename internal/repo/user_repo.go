// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the User model:
// upsert-on-first-interaction, rate-window bookkeeping, plan grants, and the
// score/last-result write-through performed on every quiz finalize.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions. They follow the "thin repository"
// approach: no business logic, only CRUD persistence and query composition.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/prepbuddy/go-quiz-backend/internal/domain"
)

// GetUser fetches a user by id, or ErrNotFound if missing.
func GetUser(ctx context.Context, db *gorm.DB, id int64) (*domain.User, error) {
	var u domain.User
	if err := db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// EnsureUser upserts a user record for id, refreshing the display name.
// Existing rate-limit and score fields are left untouched.
func EnsureUser(ctx context.Context, db *gorm.DB, id int64, username string) (*domain.User, error) {
	u := &domain.User{ID: id, Username: username, CreatedAt: time.Now().UTC()}
	err := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.Assignments(map[string]any{"username": username}),
	}).Create(u).Error
	if err != nil {
		return nil, err
	}
	return GetUser(ctx, db, id)
}

// SetDailyWindow writes the daily counter and the calendar day it applies to.
func SetDailyWindow(ctx context.Context, db *gorm.DB, id int64, windowDate string, used int) error {
	if used < 0 {
		used = 0
	}
	return db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).
		Updates(map[string]any{
			"daily_window_date": windowDate,
			"daily_questions":   used,
		}).Error
}

// SetHourlyWindow writes the rolling-hour window state.
func SetHourlyWindow(ctx context.Context, db *gorm.DB, id int64, start time.Time, count int) error {
	return db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).
		Updates(map[string]any{
			"hourly_window_start": start,
			"hourly_window_count": count,
		}).Error
}

// GrantUnlimited marks a user as having paid access until expiry.
// A nil expiry grants lifetime access.
func GrantUnlimited(ctx context.Context, db *gorm.DB, id int64, expiry *time.Time) error {
	res := db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).
		Updates(map[string]any{
			"unlimited_access": true,
			"unlimited_expiry": expiry,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// RevokeUnlimited clears a user's paid access and hourly window state.
// Unknown ids return gorm.ErrRecordNotFound.
func RevokeUnlimited(ctx context.Context, db *gorm.DB, id int64) error {
	res := db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).
		Updates(map[string]any{
			"unlimited_access":    false,
			"unlimited_expiry":    nil,
			"hourly_window_start": nil,
			"hourly_window_count": 0,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ApplyResult increments the three score accumulators by score and mirrors
// the result snapshot onto the user row. The caller runs this inside the
// same transaction that appends the results-log row.
func ApplyResult(ctx context.Context, db *gorm.DB, id int64, score, total, correct int, at time.Time) error {
	return db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).
		Updates(map[string]any{
			"daily_score":    gorm.Expr("daily_score + ?", score),
			"monthly_score":  gorm.Expr("monthly_score + ?", score),
			"total_score":    gorm.Expr("total_score + ?", score),
			"last_score":     score,
			"last_total":     total,
			"last_correct":   correct,
			"last_result_at": at,
		}).Error
}
