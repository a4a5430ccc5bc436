package services

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/prepbuddy/go-quiz-backend/internal/domain"
	"github.com/prepbuddy/go-quiz-backend/internal/repo"
)

// newServicesDB opens a throwaway SQLite database with the full schema.
func newServicesDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("services_test_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	// Ensure the file handle is released before TempDir cleanup (Windows needs this).
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

// stubMessenger records outgoing traffic for assertions.
type stubMessenger struct {
	mu       sync.Mutex
	messages []sentMessage
	polls    []sentPoll
	admin    []string

	sendErr error
	pollErr error
}

type sentMessage struct {
	chatID int64
	text   string
}

type sentPoll struct {
	chatID     int64
	question   string
	options    []string
	correctIdx int
	pollID     string
}

func (m *stubMessenger) SendMessage(_ context.Context, chatID int64, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return m.sendErr
	}
	m.messages = append(m.messages, sentMessage{chatID: chatID, text: text})
	return nil
}

func (m *stubMessenger) SendPoll(_ context.Context, chatID int64, question string, options []string, correctIdx int) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pollErr != nil {
		return "", m.pollErr
	}
	id := fmt.Sprintf("poll-%d", len(m.polls)+1)
	m.polls = append(m.polls, sentPoll{
		chatID:     chatID,
		question:   question,
		options:    options,
		correctIdx: correctIdx,
		pollID:     id,
	})
	return id, nil
}

func (m *stubMessenger) NotifyAdmin(_ context.Context, event string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.admin = append(m.admin, event)
	return nil
}

func (m *stubMessenger) sentMessages() []sentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]sentMessage, len(m.messages))
	copy(out, m.messages)
	return out
}

func (m *stubMessenger) sentPolls() []sentPoll {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]sentPoll, len(m.polls))
	copy(out, m.polls)
	return out
}

// memStore is an in-memory SessionStore.
type memStore struct {
	mu   sync.Mutex
	rows map[int64]*domain.Session

	saveErr error
}

func newMemStore() *memStore {
	return &memStore{rows: make(map[int64]*domain.Session)}
}

func (s *memStore) Save(_ context.Context, rec *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	cp := *rec
	s.rows[rec.UserID] = &cp
	return nil
}

func (s *memStore) GetByUser(_ context.Context, userID int64) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.rows[userID]
	if !ok {
		return nil, repo.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (s *memStore) Delete(_ context.Context, userID int64, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.rows[userID]; ok && rec.SessionID == sessionID {
		delete(s.rows, userID)
	}
	return nil
}

func (s *memStore) row(userID int64) *domain.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.rows[userID]
	if !ok {
		return nil
	}
	cp := *rec
	return &cp
}

// recordingLedger counts Commit calls and keeps their snapshots.
type recordingLedger struct {
	mu      sync.Mutex
	commits []ledgerCommit
}

type ledgerCommit struct {
	userID int64
	snap   ResultSnapshot
}

func (l *recordingLedger) Commit(_ context.Context, userID int64, snap ResultSnapshot) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.commits = append(l.commits, ledgerCommit{userID: userID, snap: snap})
	return nil
}

func (l *recordingLedger) all() []ledgerCommit {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]ledgerCommit, len(l.commits))
	copy(out, l.commits)
	return out
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, d time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", d)
}

// seedQuizQuestion inserts a question with translations for each given lang.
func seedQuizQuestion(t *testing.T, db *gorm.DB, id, category string, langs ...string) {
	t.Helper()
	q := &domain.Question{ID: id, Category: category, Year: 2026, Month: 8, Day: 29}
	if err := db.Create(q).Error; err != nil {
		t.Fatalf("seed question %s: %v", id, err)
	}
	for _, lang := range langs {
		tr := &domain.QuestionTranslation{
			QuestionID:  id,
			Lang:        lang,
			Text:        fmt.Sprintf("%s text (%s)", id, lang),
			CorrectIdx:  1,
			Explanation: fmt.Sprintf("%s why (%s)", id, lang),
		}
		tr.SetOptions([]string{"a", "b", "c", "d"})
		if err := db.Create(tr).Error; err != nil {
			t.Fatalf("seed translation %s/%s: %v", id, lang, err)
		}
	}
}
