package domain

import "time"

// Session is one server-side session row. UserID is nil until the session is
// logged in; anonymous sessions exist so flash messages survive redirects.
// AuthHash snapshots the user's password hash at login time: when the stored
// hash changes, every session carrying the old value becomes invalid.
type Session struct {
	ID        string
	UserID    *int64
	AuthHash  string
	Flashes   []Flash
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Flash is a one-shot message rendered on the next page load.
type Flash struct {
	Kind    string `json:"kind"` // "success", "error", "info"
	Message string `json:"message"`
}

// IsAuthenticated reports whether the session is bound to a user.
func (s *Session) IsAuthenticated() bool {
	return s != nil && s.UserID != nil
}

// IsExpired reports whether the session passed its inactivity deadline.
func (s *Session) IsExpired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
