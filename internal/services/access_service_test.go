package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/prepbuddy/go-quiz-backend/internal/repo"
)

func newAccessService(db *gorm.DB, msgr *stubMessenger, now time.Time) *AccessService {
	return &AccessService{
		DB:        db,
		Messenger: msgr,
		PlanDays:  30,
		Now:       func() time.Time { return now },
	}
}

func TestGrant_CreatesUserAndNotifies(t *testing.T) {
	ctx := context.Background()
	db := newServicesDB(t)
	msgr := &stubMessenger{}
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	s := newAccessService(db, msgr, now)

	if err := s.Grant(ctx, 1, "alice", 0); err != nil {
		t.Fatalf("grant: %v", err)
	}

	user, err := repo.GetUser(ctx, db, 1)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if !user.UnlimitedAccess || user.UnlimitedExpiry == nil {
		t.Fatalf("plan not applied: %+v", user)
	}
	if want := now.AddDate(0, 0, 30); !user.UnlimitedExpiry.Equal(want) {
		t.Fatalf("expiry = %s, want default plan length %s", user.UnlimitedExpiry, want)
	}

	msgs := msgr.sentMessages()
	if len(msgs) != 1 || msgs[0].chatID != 1 {
		t.Fatalf("expected one notification to user 1, got %v", msgs)
	}

	st, err := s.Status(ctx, 1)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !st.Active || st.Lifetime || st.DaysLeft != 30 || st.ExpiringSoon {
		t.Fatalf("unexpected status: %+v", st)
	}
}

func TestGrantLifetime(t *testing.T) {
	ctx := context.Background()
	db := newServicesDB(t)
	s := newAccessService(db, &stubMessenger{}, time.Now())

	if err := s.GrantLifetime(ctx, 1, "alice"); err != nil {
		t.Fatalf("grant lifetime: %v", err)
	}
	st, err := s.Status(ctx, 1)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !st.Active || !st.Lifetime {
		t.Fatalf("unexpected status: %+v", st)
	}
}

func TestStatus_RevokesExpiredPlan(t *testing.T) {
	ctx := context.Background()
	db := newServicesDB(t)
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	s := newAccessService(db, &stubMessenger{}, now)

	if _, err := repo.EnsureUser(ctx, db, 1, "alice"); err != nil {
		t.Fatalf("ensure user: %v", err)
	}
	expired := now.Add(-time.Minute)
	if err := repo.GrantUnlimited(ctx, db, 1, &expired); err != nil {
		t.Fatalf("grant: %v", err)
	}

	st, err := s.Status(ctx, 1)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if st.Active {
		t.Fatalf("expired plan reported active: %+v", st)
	}
	// The lazy revoke must have cleared the flag in storage too.
	user, _ := repo.GetUser(ctx, db, 1)
	if user.UnlimitedAccess {
		t.Fatal("expired plan not revoked in storage")
	}
}

func TestStatus_FlagsExpiringSoon(t *testing.T) {
	ctx := context.Background()
	db := newServicesDB(t)
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	s := newAccessService(db, &stubMessenger{}, now)

	if _, err := repo.EnsureUser(ctx, db, 1, "alice"); err != nil {
		t.Fatalf("ensure user: %v", err)
	}
	soon := now.AddDate(0, 0, 3)
	if err := repo.GrantUnlimited(ctx, db, 1, &soon); err != nil {
		t.Fatalf("grant: %v", err)
	}

	st, err := s.Status(ctx, 1)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !st.Active || !st.ExpiringSoon || st.DaysLeft != 3 {
		t.Fatalf("unexpected status: %+v", st)
	}
}

func TestRevoke(t *testing.T) {
	ctx := context.Background()
	db := newServicesDB(t)
	msgr := &stubMessenger{}
	s := newAccessService(db, msgr, time.Now())

	if err := s.GrantLifetime(ctx, 1, "alice"); err != nil {
		t.Fatalf("grant: %v", err)
	}
	if err := s.Revoke(ctx, 1); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	st, err := s.Status(ctx, 1)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if st.Active {
		t.Fatalf("plan still active after revoke: %+v", st)
	}

	if err := s.Revoke(ctx, 404); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestRequestVerification(t *testing.T) {
	msgr := &stubMessenger{}
	s := newAccessService(newServicesDB(t), msgr, time.Now())

	if err := s.RequestVerification(context.Background(), 42, "bob"); err != nil {
		t.Fatalf("request verification: %v", err)
	}
	if len(msgr.admin) != 1 || !strings.Contains(msgr.admin[0], "42") {
		t.Fatalf("admin not notified: %v", msgr.admin)
	}
}
