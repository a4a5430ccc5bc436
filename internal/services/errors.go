// Package services defines the business logic of the quiz core: question
// lookup, rate-limit admission, the session state machine, the score ledger,
// and access plans. This file centralizes common service-level error values
// so that they can be consistently returned by service methods and checked
// by callers.
//
// These errors are intended for internal use by the service layer; translation
// into user-facing messages should be performed at the transport layer.
package services

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidCount is returned when a dispatch request asks for a number
	// of questions outside the per-request bounds (1..MaxPerRequest).
	ErrInvalidCount = errors.New("question count out of range")

	// ErrNoQuestionsFound is returned when the selected category or date
	// has no questions to dispatch.
	ErrNoQuestionsFound = errors.New("no questions found for selection")

	// ErrStaleAnswer is returned when an answer references a poll with no
	// live session: the session already closed, the poll belongs to a
	// superseded generation, or the poll was never ours. Callers drop it
	// silently; it is not the user's fault and is never retried.
	ErrStaleAnswer = errors.New("answer for a poll with no live session")

	// ErrNoActiveSession is returned when an operation requires a live
	// session and the user has none.
	ErrNoActiveSession = errors.New("no active session")

	// ErrUserNotFound indicates the referenced user record does not exist.
	ErrUserNotFound = errors.New("user not found")
)

// RateLimitedError reports a dispatch rejection by either quota policy.
// Exactly one of the detail fields is meaningful: RetryAfter for the
// rolling-hour policy, Remaining for the daily policy.
type RateLimitedError struct {
	// Policy is "daily" or "hourly".
	Policy string
	// RetryAfter is the wait until the hourly window reopens; zero for daily.
	RetryAfter time.Duration
	// Remaining is the daily quota still available today; zero for hourly.
	Remaining int
}

// Error implements the error interface.
func (e *RateLimitedError) Error() string {
	if e.Policy == "hourly" {
		return fmt.Sprintf("rate limited: hourly cap reached, retry in %s", e.RetryAfter.Round(time.Second))
	}
	return fmt.Sprintf("rate limited: daily cap reached, %d questions remaining today", e.Remaining)
}

// IsRateLimited reports whether err is a RateLimitedError and returns it.
func IsRateLimited(err error) (*RateLimitedError, bool) {
	var rl *RateLimitedError
	if errors.As(err, &rl) {
		return rl, true
	}
	return nil, false
}
