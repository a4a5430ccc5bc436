// Rate-limit admission. Free users spend a daily quota that resets at local
// midnight; unlimited-plan users are paced by a rolling-hour cap instead.
// The two policies commit differently: the hourly window is charged at
// admission time, while the daily quota is charged only after the questions
// actually go out, so a failed dispatch never burns quota.
package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/prepbuddy/go-quiz-backend/internal/domain"
	"github.com/prepbuddy/go-quiz-backend/internal/metrics"
	"github.com/prepbuddy/go-quiz-backend/internal/repo"
)

const dailyWindowLayout = "2006-01-02"

// Admission is a granted rate-limit decision for one dispatch request.
type Admission struct {
	// Policy is the quota that admitted the request: "daily" or "hourly".
	Policy string
	// Count is the number of questions admitted.
	Count int
}

// LimitService enforces per-user dispatch quotas.
type LimitService struct {
	DB            *gorm.DB
	DailyCap      int
	HourlyCap     int
	MaxPerRequest int
	// Loc anchors the daily window; nil means time.Local.
	Loc *time.Location
	// Now is injectable for tests; nil means time.Now.
	Now func() time.Time
}

func (s *LimitService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *LimitService) loc() *time.Location {
	if s.Loc != nil {
		return s.Loc
	}
	return time.Local
}

// planActive reports whether u holds a currently valid unlimited plan.
// A nil expiry means a lifetime grant.
func planActive(u *domain.User, now time.Time) bool {
	if !u.UnlimitedAccess {
		return false
	}
	return u.UnlimitedExpiry == nil || u.UnlimitedExpiry.After(now)
}

// CheckAdmission decides whether userID may be sent count questions now.
// It returns ErrInvalidCount for an out-of-range count, ErrUserNotFound for
// an unknown user, and *RateLimitedError when a quota rejects the request.
// On an hourly admission the window is charged immediately; a daily admission
// must be charged separately with CommitDaily once the dispatch succeeds.
func (s *LimitService) CheckAdmission(ctx context.Context, userID int64, count int) (*Admission, error) {
	if count < 1 || count > s.MaxPerRequest {
		metrics.RateLimited.WithLabelValues("count").Inc()
		return nil, ErrInvalidCount
	}

	now := s.now()
	var adm *Admission
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := repo.GetUser(ctx, tx, userID)
		if err != nil {
			if err == repo.ErrNotFound {
				return ErrUserNotFound
			}
			return err
		}

		if planActive(user, now) {
			a, err := s.admitHourly(ctx, tx, user, count, now)
			if err != nil {
				return err
			}
			adm = a
			return nil
		}
		a, err := s.admitDaily(ctx, tx, user, count, now)
		if err != nil {
			return err
		}
		adm = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return adm, nil
}

// admitHourly applies the rolling-hour policy for plan holders. The window is
// a fixed hour anchored at the first dispatch after the previous window
// lapsed; usage inside it is charged up front.
func (s *LimitService) admitHourly(ctx context.Context, tx *gorm.DB, user *domain.User, count int, now time.Time) (*Admission, error) {
	start := user.HourlyWindowStart
	used := user.HourlyWindowCount
	if start == nil || now.Sub(*start) >= time.Hour {
		fresh := now
		start = &fresh
		used = 0
	}
	if used+count > s.HourlyCap {
		metrics.RateLimited.WithLabelValues("hourly").Inc()
		return nil, &RateLimitedError{
			Policy:     "hourly",
			RetryAfter: start.Add(time.Hour).Sub(now),
		}
	}
	if err := repo.SetHourlyWindow(ctx, tx, user.ID, *start, used+count); err != nil {
		return nil, err
	}
	return &Admission{Policy: "hourly", Count: count}, nil
}

// admitDaily applies the daily quota for free users. A stale window (any day
// other than today in the reset timezone) counts as empty. The quota is not
// charged here.
func (s *LimitService) admitDaily(ctx context.Context, tx *gorm.DB, user *domain.User, count int, now time.Time) (*Admission, error) {
	today := now.In(s.loc()).Format(dailyWindowLayout)
	used := user.DailyQuestions
	if user.DailyWindowDate != today {
		used = 0
		if err := repo.SetDailyWindow(ctx, tx, user.ID, today, 0); err != nil {
			return nil, err
		}
	}
	if used+count > s.DailyCap {
		metrics.RateLimited.WithLabelValues("daily").Inc()
		return nil, &RateLimitedError{
			Policy:    "daily",
			Remaining: s.DailyCap - used,
		}
	}
	return &Admission{Policy: "daily", Count: count}, nil
}

// CommitDaily charges count questions against the user's daily window. It is
// called after a successful dispatch under a daily admission. The commit
// rolls a stale window forward first, so a dispatch straddling midnight is
// charged to the new day.
func (s *LimitService) CommitDaily(ctx context.Context, userID int64, count int) error {
	now := s.now()
	today := now.In(s.loc()).Format(dailyWindowLayout)
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := repo.GetUser(ctx, tx, userID)
		if err != nil {
			if err == repo.ErrNotFound {
				return ErrUserNotFound
			}
			return err
		}
		used := user.DailyQuestions
		if user.DailyWindowDate != today {
			used = 0
		}
		return repo.SetDailyWindow(ctx, tx, userID, today, used+count)
	})
}
