package model

import "time"

// AutomationSettings is the per-user automation row. Every trigger re-reads it; nothing caches it.
type AutomationSettings struct {
	ID string `json:"id"`

	LeetCodeSession string  `json:"-"`
	CSRFToken       string  `json:"-"`
	GeminiAPIKey    *string `json:"-"`

	TelegramToken  string `json:"-"`
	TelegramChatID string `json:"telegram_chat_id"`

	IsActive             bool       `json:"is_active"`
	LastSolvedDate       *time.Time `json:"last_solved_date,omitempty"` // UTC midnight of the solved day
	TargetTime           *time.Time `json:"target_time,omitempty"`
	LastTelegramUpdateID *int64     `json:"last_telegram_update_id,omitempty"`
	LeaseHolder          *string    `json:"-"`
	LeaseExpiresAt       *time.Time `json:"lease_expires_at,omitempty"`

	CFHandle     *string `json:"cf_handle,omitempty"`
	CFJSessionID *string `json:"-"`
	CFCSRFToken  *string `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SolvedOn reports whether last_solved_date equals the given day.
func (s *AutomationSettings) SolvedOn(day time.Time) bool {
	return s.LastSolvedDate != nil && SameDay(*s.LastSolvedDate, day)
}

// TargetFor returns the stored target time when it falls on the UTC calendar day of day.
func (s *AutomationSettings) TargetFor(day time.Time) (time.Time, bool) {
	if s.TargetTime == nil || !SameDay(*s.TargetTime, day) {
		return time.Time{}, false
	}
	return *s.TargetTime, true
}

// Day truncates t to its UTC calendar day. LeetCode rolls the daily problem over at 00:00 UTC.
func Day(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

func SameDay(a, b time.Time) bool {
	return Day(a).Equal(Day(b))
}
