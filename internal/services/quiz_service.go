// Quiz dispatch. One entry point receives "send me N questions from X" and
// runs the whole admission pipeline: user upsert, rate-limit check, question
// selection and localization, session open, poll fan-out, and finally the
// daily-quota commit once everything actually went out.
package services

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/prepbuddy/go-quiz-backend/internal/domain"
	"github.com/prepbuddy/go-quiz-backend/internal/metrics"
	"github.com/prepbuddy/go-quiz-backend/internal/outbound"
	"github.com/prepbuddy/go-quiz-backend/internal/repo"
)

// DispatchRequest asks for one batch of quiz questions. Either Category or
// the (Year, Month, Day) tuple selects the pool; Category wins when both are
// set.
type DispatchRequest struct {
	UserID   int64
	ChatID   int64
	Username string

	Category         string
	Year, Month, Day int

	Count    int
	Language string
}

// QuizService orchestrates dispatch and answer intake.
type QuizService struct {
	DB        *gorm.DB
	Questions *QuestionService
	Limits    *LimitService
	Sessions  *SessionService
	Messenger outbound.Messenger
}

// Dispatch runs one quiz request end to end and returns the opened session
// id. Quota errors come back as *RateLimitedError; an empty selection as
// ErrNoQuestionsFound. The daily quota is charged only after the polls went
// out, and for the number of questions actually dispatched.
func (s *QuizService) Dispatch(ctx context.Context, req DispatchRequest) (string, error) {
	if _, err := repo.EnsureUser(ctx, s.DB, req.UserID, req.Username); err != nil {
		return "", err
	}

	adm, err := s.Limits.CheckAdmission(ctx, req.UserID, req.Count)
	if err != nil {
		return "", err
	}

	pool, err := s.selectPool(ctx, req)
	if err != nil {
		return "", err
	}

	items := localizeSample(Sample(pool, req.Count), req.Language)
	if len(items) == 0 {
		return "", ErrNoQuestionsFound
	}

	sessionID, err := s.Sessions.Open(ctx, req.UserID, req.ChatID, req.Language, items)
	if err != nil {
		return "", err
	}

	s.sendPolls(ctx, req, sessionID, items)

	if adm.Policy == "daily" {
		if err := s.Limits.CommitDaily(ctx, req.UserID, len(items)); err != nil {
			log.Error().Err(err).Int64("user_id", req.UserID).Msg("daily quota commit failed")
		}
	}
	return sessionID, nil
}

// SubmitAnswer feeds one poll answer into the user's live session. Answers
// that arrive after their session closed are dropped without error; the
// transport has no one to complain to.
func (s *QuizService) SubmitAnswer(ctx context.Context, userID int64, pollID string, optionIdx int) error {
	_, err := s.Sessions.RecordAnswer(ctx, userID, pollID, optionIdx)
	if errors.Is(err, ErrStaleAnswer) {
		log.Debug().Int64("user_id", userID).Str("poll_id", pollID).Msg("stale answer dropped")
		return nil
	}
	return err
}

func (s *QuizService) selectPool(ctx context.Context, req DispatchRequest) ([]domain.Question, error) {
	if req.Category != "" {
		return s.Questions.ByCategory(ctx, req.Category)
	}
	return s.Questions.ByDate(ctx, req.Year, req.Month, req.Day)
}

// sendPolls fans the selected questions out as polls and binds each poll id
// back to the session. A failed send is logged and skipped; the question
// stays in the session and runs out with the deadline.
func (s *QuizService) sendPolls(ctx context.Context, req DispatchRequest, sessionID string, items []DispatchedQuestion) {
	for _, it := range items {
		pollID, err := s.Messenger.SendPoll(ctx, req.ChatID, it.Text, it.Options, it.CorrectIdx)
		if err != nil {
			metrics.SendFailures.Inc()
			log.Warn().Err(err).
				Int64("chat_id", req.ChatID).
				Str("question_id", it.QuestionID).
				Msg("poll dispatch failed")
			continue
		}
		if err := s.Sessions.BindPoll(ctx, req.UserID, sessionID, pollID, domain.PollBinding{
			QuestionID: it.QuestionID,
			CorrectIdx: it.CorrectIdx,
		}); err != nil {
			log.Warn().Err(err).Str("session_id", sessionID).Msg("poll binding rejected")
			return
		}
	}
}

// localizeSample resolves each sampled question to its best translation for
// lang. Questions with no usable translation are dropped.
func localizeSample(sample []domain.Question, lang string) []DispatchedQuestion {
	items := make([]DispatchedQuestion, 0, len(sample))
	for i := range sample {
		tr := Localize(&sample[i], lang)
		if tr == nil {
			continue
		}
		items = append(items, DispatchedQuestion{
			QuestionID:  sample[i].ID,
			Text:        tr.Text,
			Options:     tr.Options(),
			CorrectIdx:  tr.CorrectIdx,
			Explanation: tr.Explanation,
		})
	}
	return items
}
