// Package scheduler runs the periodic maintenance the quiz core depends on:
// daily quota and score resets at local midnight, and the monthly score
// reset when a new month starts. The loop recomputes the next midnight from
// the wall clock on every tick, so DST shifts and clock drift cannot skew it.
package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/prepbuddy/go-quiz-backend/internal/metrics"
	"github.com/prepbuddy/go-quiz-backend/internal/repo"
)

// Scheduler drives the midnight maintenance loop.
type Scheduler struct {
	DB *gorm.DB
	// Loc is the timezone whose midnight triggers the resets; nil means
	// time.Local.
	Loc *time.Location
	// Now is injectable for tests; nil means time.Now.
	Now func() time.Time
}

func (s *Scheduler) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Scheduler) loc() *time.Location {
	if s.Loc != nil {
		return s.Loc
	}
	return time.Local
}

// NextMidnight returns the first midnight in loc strictly after now.
func NextMidnight(now time.Time, loc *time.Location) time.Time {
	local := now.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, loc)
}

// Run blocks until ctx is cancelled, firing RunMaintenance at every local
// midnight. Meant to be started as a goroutine at process boot.
func (s *Scheduler) Run(ctx context.Context) {
	for {
		now := s.now()
		next := NextMidnight(now, s.loc())
		timer := time.NewTimer(next.Sub(now))
		log.Debug().Time("next", next).Msg("reset scheduler armed")

		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			s.RunMaintenance(ctx, s.now())
		}
	}
}

// RunMaintenance performs the resets due at the midnight that starts the day
// containing now: daily quotas and daily scores always, monthly scores when
// a new month just began. Failures are logged and left for the next tick;
// a missed reset self-heals because the daily quota also rolls lazily on use.
func (s *Scheduler) RunMaintenance(ctx context.Context, now time.Time) {
	local := now.In(s.loc())

	if n, err := repo.ResetDailyQuestions(ctx, s.DB, now); err != nil {
		log.Error().Err(err).Msg("daily quota reset failed")
	} else {
		metrics.ResetsRun.WithLabelValues("daily_questions").Inc()
		log.Info().Int64("users", n).Msg("daily quotas reset")
	}

	if n, err := repo.ResetDailyScores(ctx, s.DB); err != nil {
		log.Error().Err(err).Msg("daily score reset failed")
	} else {
		metrics.ResetsRun.WithLabelValues("daily_scores").Inc()
		log.Info().Int64("users", n).Msg("daily scores reset")
	}

	if local.Day() != 1 {
		return
	}
	if n, err := repo.ResetMonthlyScores(ctx, s.DB); err != nil {
		log.Error().Err(err).Msg("monthly score reset failed")
	} else {
		metrics.ResetsRun.WithLabelValues("monthly_scores").Inc()
		log.Info().Int64("users", n).Msg("monthly scores reset")
	}
}
