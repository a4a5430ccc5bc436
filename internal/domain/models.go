// Package domain defines the persistence models for users, quiz questions,
// sessions, and results. These types are mapped with GORM and form the core
// data layer of the quiz backend.
package domain

import (
	"encoding/json"
	"time"
)

// User represents a quiz participant. Users are created on first interaction
// (upsert) and never hard-deleted. The record carries both rate-limit windows
// and the accumulated scores consumed by leaderboards.
//
// Fields:
//   - ID: opaque numeric identity assigned by the messaging platform.
//   - Username: display name, refreshed on each interaction.
//   - DailyQuestions / DailyWindowDate: free-tier daily counter and the
//     calendar day ("2006-01-02") it applies to. The counter is meaningful
//     only while DailyWindowDate equals today; a stale date reads as 0.
//   - UnlimitedAccess / UnlimitedExpiry: paid-plan flag and its expiry.
//     A nil expiry with the flag set means lifetime access.
//   - HourlyWindowStart / HourlyWindowCount: rolling-hour rate state,
//     meaningful only while UnlimitedAccess holds.
//   - DailyScore / MonthlyScore / TotalScore: leaderboard accumulators.
//   - LastScore / LastTotal / LastCorrect / LastResultAt: mirror of the most
//     recent ResultSnapshot for quick readback.
type User struct {
	ID              int64      `json:"id"             gorm:"primaryKey"`
	Username        string     `json:"username"       gorm:"type:varchar(64)"`
	DailyQuestions  int        `json:"daily_questions"`
	DailyWindowDate string     `json:"daily_window_date" gorm:"type:varchar(10)"`
	UnlimitedAccess bool       `json:"unlimited_access"`
	UnlimitedExpiry *time.Time `json:"unlimited_expiry,omitempty"`

	HourlyWindowStart *time.Time `json:"hourly_window_start,omitempty"`
	HourlyWindowCount int        `json:"hourly_window_count"`

	DailyScore   int `json:"daily_score"   gorm:"index"`
	MonthlyScore int `json:"monthly_score" gorm:"index"`
	TotalScore   int `json:"total_score"   gorm:"index"`

	LastScore    int        `json:"last_score"`
	LastTotal    int        `json:"last_total"`
	LastCorrect  int        `json:"last_correct"`
	LastResultAt *time.Time `json:"last_result_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// Question is an immutable quiz content unit, ingested by an out-of-band
// process and read-only to this core. A question is addressable either by a
// normalized category tag or by a calendar date tuple; the per-language
// payload lives in QuestionTranslation rows.
//
// Year/Month/Day are zero when the question is category-only.
type Question struct {
	ID       string `json:"id"       gorm:"type:varchar(64);primaryKey"`
	Category string `json:"category" gorm:"type:varchar(64);index"`
	Year     int    `json:"year"     gorm:"index:idx_question_date,priority:1"`
	Month    int    `json:"month"    gorm:"index:idx_question_date,priority:2"`
	Day      int    `json:"day"      gorm:"index:idx_question_date,priority:3"`

	Translations []QuestionTranslation `json:"translations,omitempty" gorm:"foreignKey:QuestionID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`

	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for Question.
func (Question) TableName() string { return "questions" }

// QuestionTranslation holds the per-language payload of a question: prompt
// text, up to ten answer options, the index of the correct option, and an
// explanation shown in the post-quiz report. One row per (question, lang).
type QuestionTranslation struct {
	ID          uint   `json:"id"          gorm:"primaryKey"`
	QuestionID  string `json:"question_id" gorm:"type:varchar(64);not null;index;uniqueIndex:ux_question_lang"`
	Lang        string `json:"lang"        gorm:"type:varchar(8);not null;uniqueIndex:ux_question_lang"`
	Text        string `json:"text"        gorm:"type:text;not null"`
	OptionsJSON string `json:"-"           gorm:"column:options;type:text;not null"`
	CorrectIdx  int    `json:"correct_idx"`
	Explanation string `json:"explanation" gorm:"type:text"`
}

// TableName returns the database table name for QuestionTranslation.
func (QuestionTranslation) TableName() string { return "question_translations" }

// Options decodes the stored JSON option list. A malformed column yields nil;
// content is validated at ingestion time, not here.
func (t *QuestionTranslation) Options() []string {
	var out []string
	if err := json.Unmarshal([]byte(t.OptionsJSON), &out); err != nil {
		return nil
	}
	return out
}

// SetOptions encodes the option list into the stored JSON column.
func (t *QuestionTranslation) SetOptions(opts []string) error {
	b, err := json.Marshal(opts)
	if err != nil {
		return err
	}
	t.OptionsJSON = string(b)
	return nil
}

// Session is the stored record of a live quiz session. At most one row exists
// per user: opening a new session supersedes (and first finalizes) any prior
// one. SessionID is unique per activation so a late timer or answer from a
// superseded generation is detectable by id mismatch.
//
// QuestionIDsJSON preserves dispatch order; CorrectIDsJSON holds the set of
// question ids answered correctly; PollsJSON is the session-scoped mapping
// from dispatched poll id to (question id, correct option index). All three
// are garbage-collected with the row when the session closes.
type Session struct {
	UserID    int64     `json:"user_id"    gorm:"primaryKey"`
	SessionID string    `json:"session_id" gorm:"type:char(36);not null;uniqueIndex"`
	ChatID    int64     `json:"chat_id"`
	Language  string    `json:"language"   gorm:"type:varchar(8)"`
	Requested int       `json:"requested"`
	Answered  int       `json:"answered"`
	Deadline  time.Time `json:"deadline"`

	QuestionIDsJSON string `json:"-" gorm:"column:question_ids;type:text"`
	CorrectIDsJSON  string `json:"-" gorm:"column:correct_ids;type:text"`
	PollsJSON       string `json:"-" gorm:"column:polls;type:text"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for Session.
func (Session) TableName() string { return "sessions" }

// PollBinding records which question a dispatched poll belongs to and which
// option index is correct. Bindings live inside the owning session record.
type PollBinding struct {
	QuestionID string `json:"question_id"`
	CorrectIdx int    `json:"correct_idx"`
}

// QuestionIDs decodes the ordered question id list.
func (s *Session) QuestionIDs() []string { return decodeStrings(s.QuestionIDsJSON) }

// SetQuestionIDs encodes the ordered question id list.
func (s *Session) SetQuestionIDs(ids []string) { s.QuestionIDsJSON = encodeJSON(ids) }

// CorrectIDs decodes the set of correctly answered question ids.
func (s *Session) CorrectIDs() []string { return decodeStrings(s.CorrectIDsJSON) }

// SetCorrectIDs encodes the set of correctly answered question ids.
func (s *Session) SetCorrectIDs(ids []string) { s.CorrectIDsJSON = encodeJSON(ids) }

// Polls decodes the poll-id binding map. Nil when no polls were recorded.
func (s *Session) Polls() map[string]PollBinding {
	if s.PollsJSON == "" {
		return nil
	}
	var out map[string]PollBinding
	if err := json.Unmarshal([]byte(s.PollsJSON), &out); err != nil {
		return nil
	}
	return out
}

// SetPolls encodes the poll-id binding map.
func (s *Session) SetPolls(m map[string]PollBinding) { s.PollsJSON = encodeJSON(m) }

// Result is one immutable scored outcome, appended to the results log on
// every finalize and mirrored onto the owning User.
type Result struct {
	ID             string    `json:"id"      gorm:"type:char(36);primaryKey"`
	UserID         int64     `json:"user_id" gorm:"not null;index"`
	Score          int       `json:"score"`
	TotalQuestions int       `json:"total_questions"`
	CorrectCount   int       `json:"correct_count"`
	CreatedAt      time.Time `json:"created_at" gorm:"index"`
}

// TableName returns the database table name for Result.
func (Result) TableName() string { return "results" }

func encodeJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

func decodeStrings(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil
	}
	return out
}
