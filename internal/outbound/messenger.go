// Package outbound declares the contracts the quiz core uses to talk to its
// messaging collaborator. The core never owns a wire protocol: a bot-transport
// layer implements Messenger, and the core calls it best-effort: delivery
// failures are logged and counted, never retried, and never fail the
// surrounding session operation.
package outbound

import "context"

// Messenger is the outbound surface of the quiz core.
//
// SendMessage delivers one text block; callers are responsible for chunking
// long reports to the transport's size ceiling before calling. SendPoll
// dispatches a single quiz poll and returns the transport-issued poll id the
// answer callbacks will reference. NotifyAdmin forwards an operational event
// (plan-verification requests, grant notices) to the admin channel.
type Messenger interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
	SendPoll(ctx context.Context, chatID int64, question string, options []string, correctIdx int) (pollID string, err error)
	NotifyAdmin(ctx context.Context, event string) error
}
