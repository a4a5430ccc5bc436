// Question lookup and selection. Questions are stored once with per-language
// translations; callers ask for a category or a calendar date and get back a
// randomized sample localized to the requester's language.
package services

import (
	"context"
	"math/rand/v2"
	"strings"

	"golang.org/x/text/language"
	"gorm.io/gorm"

	"github.com/prepbuddy/go-quiz-backend/internal/domain"
	"github.com/prepbuddy/go-quiz-backend/internal/repo"
)

// QuestionReader abstracts question persistence for QuestionService.
type QuestionReader interface {
	ListByCategory(ctx context.Context, db *gorm.DB, category string) ([]domain.Question, error)
	ListByDate(ctx context.Context, db *gorm.DB, year, month, day int) ([]domain.Question, error)
	Get(ctx context.Context, db *gorm.DB, ids []string) ([]domain.Question, error)
}

// questionRepoShim adapts the package-level repo functions to QuestionReader.
type questionRepoShim struct{}

func (questionRepoShim) ListByCategory(ctx context.Context, db *gorm.DB, category string) ([]domain.Question, error) {
	return repo.ListQuestionsByCategory(ctx, db, category)
}

func (questionRepoShim) ListByDate(ctx context.Context, db *gorm.DB, year, month, day int) ([]domain.Question, error) {
	return repo.ListQuestionsByDate(ctx, db, year, month, day)
}

func (questionRepoShim) Get(ctx context.Context, db *gorm.DB, ids []string) ([]domain.Question, error) {
	return repo.GetQuestions(ctx, db, ids)
}

// QuestionService resolves question sets for dispatch.
type QuestionService struct {
	DB   *gorm.DB
	Repo QuestionReader
}

// NewQuestionService wires a QuestionService against the default repository.
func NewQuestionService(db *gorm.DB) *QuestionService {
	return &QuestionService{DB: db, Repo: questionRepoShim{}}
}

// NormalizeCategory canonicalizes user-supplied category names: lowercase,
// trimmed, with interior whitespace collapsed to single dashes.
func NormalizeCategory(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(s))), "-")
}

// ByCategory returns all questions in a category. The category is normalized
// before lookup. An unknown category yields an empty slice, not an error;
// callers decide what emptiness means for them.
func (s *QuestionService) ByCategory(ctx context.Context, category string) ([]domain.Question, error) {
	return s.Repo.ListByCategory(ctx, s.DB, NormalizeCategory(category))
}

// ByDate returns all questions published on a calendar date. Like ByCategory,
// no match is an empty slice, never an error.
func (s *QuestionService) ByDate(ctx context.Context, year, month, day int) ([]domain.Question, error) {
	return s.Repo.ListByDate(ctx, s.DB, year, month, day)
}

// Sample returns up to n questions drawn uniformly without replacement.
// When n meets or exceeds the pool size the whole pool is returned, shuffled.
func Sample(pool []domain.Question, n int) []domain.Question {
	if n <= 0 {
		return nil
	}
	out := make([]domain.Question, len(pool))
	copy(out, pool)
	rand.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	if n < len(out) {
		out = out[:n]
	}
	return out
}

// Localize picks the best translation of q for the preferred language tag.
// Matching uses BCP 47 semantics, so "en-GB" still finds an "en" translation.
// When nothing matches, the first stored translation is used; a question with
// no translations yields nil and must not be dispatched.
func Localize(q *domain.Question, preferred string) *domain.QuestionTranslation {
	if len(q.Translations) == 0 {
		return nil
	}
	tags := make([]language.Tag, len(q.Translations))
	for i, tr := range q.Translations {
		tags[i] = language.Make(tr.Lang)
	}
	matcher := language.NewMatcher(tags)
	want, err := language.Parse(preferred)
	if err != nil {
		return &q.Translations[0]
	}
	_, idx, conf := matcher.Match(want)
	if conf == language.No {
		return &q.Translations[0]
	}
	return &q.Translations[idx]
}
