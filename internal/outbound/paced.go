// Package outbound – Paced
//
// This file implements Paced, a Messenger decorator that throttles outbound
// calls through a token bucket (golang.org/x/time/rate). Messaging platforms
// enforce flood limits on bots; pacing at the source keeps a burst of
// end-of-quiz reports or a multi-question dispatch from tripping them.
//
// Waits respect the caller's context, so a cancelled session operation never
// blocks on the bucket.
package outbound

import (
	"context"

	"golang.org/x/time/rate"
)

// Paced wraps a Messenger with token-bucket pacing. One token is consumed per
// outbound call, polls and messages alike.
type Paced struct {
	next    Messenger
	limiter *rate.Limiter
}

// NewPaced constructs a pacing decorator around next.
//
//   - rps:   outbound calls replenished per second (values <= 0 coerce to 1).
//   - burst: maximum burst size; values <= 0 are coerced to 1.
func NewPaced(next Messenger, rps float64, burst int) *Paced {
	if rps <= 0 {
		rps = 1
	}
	if burst <= 0 {
		burst = 1
	}
	return &Paced{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// SendMessage waits for a token, then delegates.
func (p *Paced) SendMessage(ctx context.Context, chatID int64, text string) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return err
	}
	return p.next.SendMessage(ctx, chatID, text)
}

// SendPoll waits for a token, then delegates.
func (p *Paced) SendPoll(ctx context.Context, chatID int64, question string, options []string, correctIdx int) (string, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return p.next.SendPoll(ctx, chatID, question, options, correctIdx)
}

// NotifyAdmin waits for a token, then delegates.
func (p *Paced) NotifyAdmin(ctx context.Context, event string) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return err
	}
	return p.next.NotifyAdmin(ctx, event)
}

// compile-time conformance check
var _ Messenger = (*Paced)(nil)
