// Session lifecycle. A user has at most one live quiz session. Sessions are
// held in memory for the hot path (answer recording, deadline timers) and
// mirrored to the session store so an interrupted process can still settle
// scores afterwards. Finalization runs exactly once per session no matter
// which trigger fires first: last answer, deadline, or supersession by a new
// dispatch.
package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/prepbuddy/go-quiz-backend/internal/domain"
	"github.com/prepbuddy/go-quiz-backend/internal/metrics"
	"github.com/prepbuddy/go-quiz-backend/internal/outbound"
	"github.com/prepbuddy/go-quiz-backend/internal/utils"
)

// Finalize reasons, used for logging, metrics, and report headers.
const (
	ReasonCompleted  = "completed"
	ReasonTimeout    = "timeout"
	ReasonSuperseded = "superseded"
	ReasonRecovered  = "recovered"
)

const (
	stateActive int32 = iota
	stateFinalizing
	stateClosed
)

// DispatchedQuestion is one localized question unit handed to a session when
// it opens. The session keeps it for the final report.
type DispatchedQuestion struct {
	QuestionID  string
	Text        string
	Options     []string
	CorrectIdx  int
	Explanation string
}

// SessionStore is the persistence contract for session records. It is
// satisfied by repo.SessionStore.
type SessionStore interface {
	Save(ctx context.Context, rec *domain.Session) error
	GetByUser(ctx context.Context, userID int64) (*domain.Session, error)
	Delete(ctx context.Context, userID int64, sessionID string) error
}

// ResultCommitter settles a finalized session into the score ledger.
// It is satisfied by *LedgerService.
type ResultCommitter interface {
	Commit(ctx context.Context, userID int64, snap ResultSnapshot) error
}

// liveSession is the in-memory hot state of one open session. state moves
// Active -> Finalizing -> Closed; the CAS on that transition is the
// exactly-once guard. mu covers the mutable answer bookkeeping and orders
// store mirror writes against finalize's snapshot-then-delete.
type liveSession struct {
	id        string
	userID    int64
	chatID    int64
	language  string
	requested int
	deadline  time.Time
	entries   []DispatchedQuestion

	state atomic.Int32

	mu       sync.Mutex
	answered int
	correct  map[string]struct{}
	polls    map[string]domain.PollBinding

	timer *time.Timer
}

// SessionService owns every live session and drives finalization.
type SessionService struct {
	Store     SessionStore
	Ledger    ResultCommitter
	Messenger outbound.Messenger

	// PerQuestionAllowance sets the deadline: opening N questions gives the
	// user N times this allowance to answer.
	PerQuestionAllowance time.Duration
	// ChunkSize bounds outgoing report messages.
	ChunkSize int
	// Now is injectable for tests; nil means time.Now.
	Now func() time.Time

	mu   sync.Mutex
	live map[int64]*liveSession
}

func (m *SessionService) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

func (m *SessionService) lookup(userID int64) *liveSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.live[userID]
}

// Open starts a session for userID over the given questions and returns the
// new session id. If the user already has a live session it is force-closed
// first with its partial score settled. A persisted record with no live
// counterpart is left over from a previous process; its score is settled
// silently before the new session starts.
func (m *SessionService) Open(ctx context.Context, userID, chatID int64, lang string, items []DispatchedQuestion) (string, error) {
	if len(items) == 0 {
		return "", ErrNoQuestionsFound
	}

	if prev := m.lookup(userID); prev != nil {
		m.finalize(ctx, prev, ReasonSuperseded)
	} else if rec, err := m.Store.GetByUser(ctx, userID); err == nil {
		m.settleOrphan(ctx, rec)
	}

	now := m.now()
	ls := &liveSession{
		id:        uuid.NewString(),
		userID:    userID,
		chatID:    chatID,
		language:  lang,
		requested: len(items),
		deadline:  now.Add(time.Duration(len(items)) * m.PerQuestionAllowance),
		entries:   items,
		correct:   make(map[string]struct{}),
		polls:     make(map[string]domain.PollBinding),
	}

	rec := &domain.Session{
		UserID:    userID,
		SessionID: ls.id,
		ChatID:    chatID,
		Language:  lang,
		Requested: ls.requested,
		Deadline:  ls.deadline,
	}
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.QuestionID
	}
	rec.SetQuestionIDs(ids)
	if err := m.Store.Save(ctx, rec); err != nil {
		return "", err
	}

	m.mu.Lock()
	if m.live == nil {
		m.live = make(map[int64]*liveSession)
	}
	m.live[userID] = ls
	m.mu.Unlock()

	ls.timer = time.AfterFunc(ls.deadline.Sub(now), func() {
		m.onDeadline(userID, ls.id)
	})

	metrics.SessionsOpened.Inc()
	metrics.SessionsActive.Inc()
	log.Info().
		Int64("user_id", userID).
		Str("session_id", ls.id).
		Int("questions", ls.requested).
		Time("deadline", ls.deadline).
		Msg("session opened")
	return ls.id, nil
}

// BindPoll associates a dispatched poll id with its question inside the
// session identified by sessionID. Bindings arriving after the session
// closed (or for a superseded generation) get ErrNoActiveSession.
func (m *SessionService) BindPoll(ctx context.Context, userID int64, sessionID, pollID string, b domain.PollBinding) error {
	ls := m.lookup(userID)
	if ls == nil || ls.id != sessionID || ls.state.Load() != stateActive {
		return ErrNoActiveSession
	}
	ls.mu.Lock()
	ls.polls[pollID] = b
	ls.mu.Unlock()
	m.persist(ctx, ls)
	return nil
}

// RecordAnswer scores one poll answer against the user's live session and
// reports whether it was correct. Answers for polls of closed or superseded
// sessions return ErrStaleAnswer; callers drop those without user feedback.
// When the last outstanding answer arrives the session finalizes inline.
func (m *SessionService) RecordAnswer(ctx context.Context, userID int64, pollID string, optionIdx int) (bool, error) {
	ls := m.lookup(userID)
	if ls == nil || ls.state.Load() != stateActive {
		metrics.AnswersRecorded.WithLabelValues("stale").Inc()
		return false, ErrStaleAnswer
	}

	ls.mu.Lock()
	b, ok := ls.polls[pollID]
	if !ok {
		ls.mu.Unlock()
		metrics.AnswersRecorded.WithLabelValues("stale").Inc()
		return false, ErrStaleAnswer
	}
	correct := optionIdx == b.CorrectIdx
	if correct {
		ls.correct[b.QuestionID] = struct{}{}
	}
	ls.answered++
	done := ls.answered >= ls.requested
	ls.mu.Unlock()

	if correct {
		metrics.AnswersRecorded.WithLabelValues("correct").Inc()
	} else {
		metrics.AnswersRecorded.WithLabelValues("wrong").Inc()
	}
	m.persist(ctx, ls)

	if done {
		m.finalize(ctx, ls, ReasonCompleted)
	}
	return correct, nil
}

// Active returns the live session id and deadline for userID, if any.
func (m *SessionService) Active(userID int64) (string, time.Time, bool) {
	ls := m.lookup(userID)
	if ls == nil || ls.state.Load() != stateActive {
		return "", time.Time{}, false
	}
	return ls.id, ls.deadline, true
}

// Stop persists the hot state of every live session and cancels their
// timers. Meant for process shutdown; interrupted sessions settle on the
// next dispatch via the orphan path in Open.
func (m *SessionService) Stop(ctx context.Context) {
	m.mu.Lock()
	all := make([]*liveSession, 0, len(m.live))
	for _, ls := range m.live {
		all = append(all, ls)
	}
	m.mu.Unlock()

	for _, ls := range all {
		if ls.timer != nil {
			ls.timer.Stop()
		}
		m.persist(ctx, ls)
	}
}

// onDeadline fires from the session timer. The id check drops timers that
// outlived their generation: a completed or superseded session already
// removed itself from the live map, or was replaced by a newer one.
func (m *SessionService) onDeadline(userID int64, sessionID string) {
	ls := m.lookup(userID)
	if ls == nil || ls.id != sessionID {
		return
	}
	m.finalize(context.Background(), ls, ReasonTimeout)
}

// finalize settles ls exactly once: the CAS admits a single caller, all
// others return immediately. The winner stops the timer, snapshots the
// score, emits the report, commits the ledger, and drops both the persisted
// record and the live entry.
func (m *SessionService) finalize(ctx context.Context, ls *liveSession, reason string) {
	if !ls.state.CompareAndSwap(stateActive, stateFinalizing) {
		return
	}
	if ls.timer != nil {
		ls.timer.Stop()
	}

	ls.mu.Lock()
	answered := ls.answered
	score := len(ls.correct)
	correctIDs := make(map[string]struct{}, len(ls.correct))
	for id := range ls.correct {
		correctIDs[id] = struct{}{}
	}
	ls.mu.Unlock()

	snap := ResultSnapshot{
		Score:          score,
		TotalQuestions: ls.requested,
		CorrectCount:   score,
		At:             m.now(),
	}

	m.sendReport(ctx, ls, reason, correctIDs, snap)

	if err := m.Ledger.Commit(ctx, ls.userID, snap); err != nil {
		log.Error().Err(err).
			Int64("user_id", ls.userID).
			Str("session_id", ls.id).
			Msg("ledger commit failed; session score lost")
	}
	if err := m.Store.Delete(ctx, ls.userID, ls.id); err != nil {
		log.Warn().Err(err).
			Int64("user_id", ls.userID).
			Str("session_id", ls.id).
			Msg("session record cleanup failed")
	}

	m.mu.Lock()
	if m.live[ls.userID] == ls {
		delete(m.live, ls.userID)
	}
	m.mu.Unlock()
	ls.state.Store(stateClosed)

	metrics.SessionsFinalized.WithLabelValues(reason).Inc()
	metrics.SessionsActive.Dec()
	log.Info().
		Int64("user_id", ls.userID).
		Str("session_id", ls.id).
		Str("reason", reason).
		Int("answered", answered).
		Int("score", score).
		Int("total", ls.requested).
		Msg("session finalized")
}

// settleOrphan commits the score of a persisted session record whose process
// died. No report is sent; the chat context it belonged to is long gone.
func (m *SessionService) settleOrphan(ctx context.Context, rec *domain.Session) {
	correct := rec.CorrectIDs()
	snap := ResultSnapshot{
		Score:          len(correct),
		TotalQuestions: rec.Requested,
		CorrectCount:   len(correct),
		At:             m.now(),
	}
	if err := m.Ledger.Commit(ctx, rec.UserID, snap); err != nil {
		log.Error().Err(err).
			Int64("user_id", rec.UserID).
			Str("session_id", rec.SessionID).
			Msg("orphan session ledger commit failed")
		return
	}
	if err := m.Store.Delete(ctx, rec.UserID, rec.SessionID); err != nil {
		log.Warn().Err(err).Int64("user_id", rec.UserID).Msg("orphan session cleanup failed")
	}
	metrics.SessionsFinalized.WithLabelValues(ReasonRecovered).Inc()
	log.Info().
		Int64("user_id", rec.UserID).
		Str("session_id", rec.SessionID).
		Int("score", snap.Score).
		Msg("orphan session settled")
}

// sendReport delivers the scored summary to the session's chat, split into
// transport-sized chunks. Delivery is best-effort; the score still settles.
func (m *SessionService) sendReport(ctx context.Context, ls *liveSession, reason string, correctIDs map[string]struct{}, snap ResultSnapshot) {
	report := buildReport(ls.entries, reason, correctIDs, snap)
	for _, chunk := range utils.ChunkText(report, m.ChunkSize) {
		if err := m.Messenger.SendMessage(ctx, ls.chatID, chunk); err != nil {
			metrics.SendFailures.Inc()
			log.Warn().Err(err).
				Int64("chat_id", ls.chatID).
				Str("session_id", ls.id).
				Msg("report delivery failed")
			return
		}
	}
}

// buildReport renders the end-of-session summary: a headline with the score
// plus a per-question breakdown with explanations, in dispatch order.
func buildReport(entries []DispatchedQuestion, reason string, correctIDs map[string]struct{}, snap ResultSnapshot) string {
	var sb strings.Builder
	switch reason {
	case ReasonTimeout:
		sb.WriteString("Time is up!\n")
	case ReasonSuperseded:
		sb.WriteString("Previous quiz closed.\n")
	}
	fmt.Fprintf(&sb, "You scored %d out of %d.\n", snap.Score, snap.TotalQuestions)
	for i, e := range entries {
		mark := "❌"
		if _, ok := correctIDs[e.QuestionID]; ok {
			mark = "✅"
		}
		fmt.Fprintf(&sb, "\n%d. %s %s\n", i+1, mark, e.Text)
		if e.Explanation != "" {
			sb.WriteString(e.Explanation)
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// persist mirrors ls's answer bookkeeping onto its session record. Failures
// are logged and tolerated; the in-memory state stays authoritative while
// the process lives.
//
// The Save runs under the session mutex, and only while the session is still
// Active. finalize snapshots under the same mutex after winning the state
// CAS, so an in-flight mirror write always completes before finalize deletes
// the record, and no mirror write can start afterwards. Without that
// ordering a slow Save could land after the delete and resurrect the row,
// which the next Open would settle as an orphan: the same session scored
// twice.
func (m *SessionService) persist(ctx context.Context, ls *liveSession) {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	if ls.state.Load() != stateActive {
		return
	}

	rec := &domain.Session{
		UserID:    ls.userID,
		SessionID: ls.id,
		ChatID:    ls.chatID,
		Language:  ls.language,
		Requested: ls.requested,
		Answered:  ls.answered,
		Deadline:  ls.deadline,
	}
	ids := make([]string, len(ls.entries))
	for i, e := range ls.entries {
		ids[i] = e.QuestionID
	}
	rec.SetQuestionIDs(ids)
	correct := make([]string, 0, len(ls.correct))
	for id := range ls.correct {
		correct = append(correct, id)
	}
	rec.SetCorrectIDs(correct)
	rec.SetPolls(ls.polls)

	if err := m.Store.Save(ctx, rec); err != nil {
		log.Warn().Err(err).
			Int64("user_id", ls.userID).
			Str("session_id", ls.id).
			Msg("session persist failed")
	}
}
