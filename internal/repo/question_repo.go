// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides read-only repository functions for the
// Question model. Questions are ingested out-of-band; the core never writes
// them.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/prepbuddy/go-quiz-backend/internal/domain"
)

// ListQuestionsByCategory returns all questions carrying the given normalized
// category tag, translations preloaded. An unknown tag yields an empty slice,
// never an error.
func ListQuestionsByCategory(ctx context.Context, db *gorm.DB, category string) ([]domain.Question, error) {
	var out []domain.Question
	err := db.WithContext(ctx).
		Preload("Translations").
		Where("category = ?", category).
		Find(&out).Error
	return out, err
}

// ListQuestionsByDate returns all questions for the exact (year, month, day)
// tuple, translations preloaded.
func ListQuestionsByDate(ctx context.Context, db *gorm.DB, year, month, day int) ([]domain.Question, error) {
	var out []domain.Question
	err := db.WithContext(ctx).
		Preload("Translations").
		Where("year = ? AND month = ? AND day = ?", year, month, day).
		Find(&out).Error
	return out, err
}

// GetQuestions fetches questions by id, translations preloaded. The result
// order is unspecified; callers needing dispatch order re-sort by their own
// id sequence.
func GetQuestions(ctx context.Context, db *gorm.DB, ids []string) ([]domain.Question, error) {
	if len(ids) == 0 {
		return []domain.Question{}, nil
	}
	var out []domain.Question
	err := db.WithContext(ctx).
		Preload("Translations").
		Where("id IN ?", ids).
		Find(&out).Error
	return out, err
}
