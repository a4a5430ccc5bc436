package repo

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/prepbuddy/go-quiz-backend/internal/domain"
)

func newQuestionRepoDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("question_repo_test_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := db.AutoMigrate(&domain.Question{}, &domain.QuestionTranslation{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func seedQuestion(t *testing.T, db *gorm.DB, id, category string, y, m, d int) {
	t.Helper()
	q := &domain.Question{ID: id, Category: category, Year: y, Month: m, Day: d, CreatedAt: time.Now().UTC()}
	if err := db.Create(q).Error; err != nil {
		t.Fatalf("seed question %s: %v", id, err)
	}
	tr := &domain.QuestionTranslation{QuestionID: id, Lang: "en", Text: "t-" + id, OptionsJSON: `["a","b","c"]`, CorrectIdx: 1}
	if err := db.Create(tr).Error; err != nil {
		t.Fatalf("seed translation %s: %v", id, err)
	}
}

func TestListQuestionsByCategory(t *testing.T) {
	db := newQuestionRepoDB(t)
	ctx := context.Background()

	seedQuestion(t, db, "q1", "sports", 0, 0, 0)
	seedQuestion(t, db, "q2", "sports", 0, 0, 0)
	seedQuestion(t, db, "q3", "important-days", 0, 0, 0)

	got, err := ListQuestionsByCategory(ctx, db, "sports")
	if err != nil {
		t.Fatalf("ListQuestionsByCategory: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 sports questions, got %d", len(got))
	}
	// Translations preloaded.
	if len(got[0].Translations) != 1 || got[0].Translations[0].Lang != "en" {
		t.Fatalf("translations not preloaded: %+v", got[0])
	}

	// Unknown tag: empty slice, no error.
	got, err = ListQuestionsByCategory(ctx, db, "no-such-tag")
	if err != nil {
		t.Fatalf("unexpected error for unknown tag: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty result, got %d", len(got))
	}
}

func TestListQuestionsByDate_ExactTuple(t *testing.T) {
	db := newQuestionRepoDB(t)
	ctx := context.Background()

	seedQuestion(t, db, "q1", "national", 2026, 8, 29)
	seedQuestion(t, db, "q2", "national", 2026, 8, 30)

	got, err := ListQuestionsByDate(ctx, db, 2026, 8, 29)
	if err != nil {
		t.Fatalf("ListQuestionsByDate: %v", err)
	}
	if len(got) != 1 || got[0].ID != "q1" {
		t.Fatalf("expected only q1, got %+v", got)
	}
}

func TestGetQuestions(t *testing.T) {
	db := newQuestionRepoDB(t)
	ctx := context.Background()

	seedQuestion(t, db, "q1", "sports", 0, 0, 0)
	seedQuestion(t, db, "q2", "sports", 0, 0, 0)

	got, err := GetQuestions(ctx, db, []string{"q2", "q1", "missing"})
	if err != nil {
		t.Fatalf("GetQuestions: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(got))
	}

	got, err = GetQuestions(ctx, db, nil)
	if err != nil || len(got) != 0 {
		t.Fatalf("empty id list should return empty slice, got %v err=%v", got, err)
	}
}
