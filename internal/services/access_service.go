// Unlimited-access plans. Plan holders swap the daily quota for the
// rolling-hour cap. Grants carry an expiry (or none, for lifetime access);
// expired plans are revoked lazily the next time they are consulted.
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/prepbuddy/go-quiz-backend/internal/outbound"
	"github.com/prepbuddy/go-quiz-backend/internal/repo"
)

// expiryWarningDays is how close to expiry a plan must be before Status
// starts flagging it.
const expiryWarningDays = 5

// AccessService manages unlimited-access grants.
type AccessService struct {
	DB        *gorm.DB
	Messenger outbound.Messenger
	// PlanDays is the default grant length when none is given.
	PlanDays int
	// Now is injectable for tests; nil means time.Now.
	Now func() time.Time
}

func (s *AccessService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// PlanStatus describes a user's current plan.
type PlanStatus struct {
	Active bool
	// Lifetime is true for grants with no expiry.
	Lifetime bool
	// DaysLeft is the whole days until expiry; zero for lifetime grants.
	DaysLeft int
	// ExpiringSoon is set when DaysLeft is positive but small.
	ExpiringSoon bool
}

// Grant gives userID unlimited access for days; days <= 0 means the default
// plan length. The user row is created if missing and the user is notified
// best-effort.
func (s *AccessService) Grant(ctx context.Context, userID int64, username string, days int) error {
	if days <= 0 {
		days = s.PlanDays
	}
	expiry := s.now().AddDate(0, 0, days)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := repo.EnsureUser(ctx, tx, userID, username); err != nil {
			return err
		}
		return repo.GrantUnlimited(ctx, tx, userID, &expiry)
	})
	if err != nil {
		return err
	}
	log.Info().Int64("user_id", userID).Time("expiry", expiry).Msg("unlimited access granted")
	s.notify(ctx, userID, fmt.Sprintf("Unlimited access activated for %d days.", days))
	return nil
}

// GrantLifetime gives userID unlimited access with no expiry.
func (s *AccessService) GrantLifetime(ctx context.Context, userID int64, username string) error {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := repo.EnsureUser(ctx, tx, userID, username); err != nil {
			return err
		}
		return repo.GrantUnlimited(ctx, tx, userID, nil)
	})
	if err != nil {
		return err
	}
	log.Info().Int64("user_id", userID).Msg("lifetime unlimited access granted")
	s.notify(ctx, userID, "Unlimited access activated.")
	return nil
}

// Revoke removes userID's plan. Revoking a user without one is a no-op.
func (s *AccessService) Revoke(ctx context.Context, userID int64) error {
	if err := repo.RevokeUnlimited(ctx, s.DB, userID); err != nil {
		if err == repo.ErrNotFound {
			return ErrUserNotFound
		}
		return err
	}
	log.Info().Int64("user_id", userID).Msg("unlimited access revoked")
	s.notify(ctx, userID, "Your unlimited access has ended.")
	return nil
}

// Status reports userID's plan state. An expired grant is revoked here as a
// side effect, so rate limiting and status agree on what the user holds.
func (s *AccessService) Status(ctx context.Context, userID int64) (PlanStatus, error) {
	user, err := repo.GetUser(ctx, s.DB, userID)
	if err != nil {
		if err == repo.ErrNotFound {
			return PlanStatus{}, ErrUserNotFound
		}
		return PlanStatus{}, err
	}
	if !user.UnlimitedAccess {
		return PlanStatus{}, nil
	}
	now := s.now()
	if user.UnlimitedExpiry == nil {
		return PlanStatus{Active: true, Lifetime: true}, nil
	}
	if !user.UnlimitedExpiry.After(now) {
		if err := repo.RevokeUnlimited(ctx, s.DB, userID); err != nil {
			return PlanStatus{}, err
		}
		log.Info().Int64("user_id", userID).Msg("expired plan revoked")
		return PlanStatus{}, nil
	}
	daysLeft := int(user.UnlimitedExpiry.Sub(now).Hours() / 24)
	return PlanStatus{
		Active:       true,
		DaysLeft:     daysLeft,
		ExpiringSoon: daysLeft < expiryWarningDays,
	}, nil
}

// RequestVerification forwards a plan request to the admin channel.
func (s *AccessService) RequestVerification(ctx context.Context, userID int64, username string) error {
	return s.Messenger.NotifyAdmin(ctx, fmt.Sprintf("access request from user %d (%s)", userID, username))
}

func (s *AccessService) notify(ctx context.Context, userID int64, text string) {
	// Direct chats share the user's id.
	if err := s.Messenger.SendMessage(ctx, userID, text); err != nil {
		log.Warn().Err(err).Int64("user_id", userID).Msg("plan notification failed")
	}
}
