// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Session
// model plus SessionStore, a handle-carrying adapter that satisfies the
// storage-agnostic store contract declared by the service layer.
//
// Deletes are generation-checked: a session row is removed only when its
// stored SessionID still matches, so a finalize racing a supersession can
// never delete the successor's record.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/prepbuddy/go-quiz-backend/internal/domain"
)

// SaveSession inserts or replaces the single live session row for a user.
func SaveSession(ctx context.Context, db *gorm.DB, s *domain.Session) error {
	return db.WithContext(ctx).Save(s).Error
}

// GetSessionByUser fetches a user's live session row, or ErrNotFound.
func GetSessionByUser(ctx context.Context, db *gorm.DB, userID int64) (*domain.Session, error) {
	var s domain.Session
	if err := db.WithContext(ctx).First(&s, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// DeleteSession removes the session row for userID only if it still belongs
// to the given generation (sessionID). A missing or superseded row is not an
// error; finalize must tolerate an already-absent record.
func DeleteSession(ctx context.Context, db *gorm.DB, userID int64, sessionID string) error {
	return db.WithContext(ctx).
		Where("user_id = ? AND session_id = ?", userID, sessionID).
		Delete(&domain.Session{}).Error
}

// SessionStore adapts the free functions above to the session-store contract
// expected by the service layer, binding them to a concrete *gorm.DB.
type SessionStore struct {
	DB *gorm.DB
}

// Save proxies SaveSession.
func (s SessionStore) Save(ctx context.Context, rec *domain.Session) error {
	return SaveSession(ctx, s.DB, rec)
}

// GetByUser proxies GetSessionByUser.
func (s SessionStore) GetByUser(ctx context.Context, userID int64) (*domain.Session, error) {
	return GetSessionByUser(ctx, s.DB, userID)
}

// Delete proxies DeleteSession.
func (s SessionStore) Delete(ctx context.Context, userID int64, sessionID string) error {
	return DeleteSession(ctx, s.DB, userID, sessionID)
}
