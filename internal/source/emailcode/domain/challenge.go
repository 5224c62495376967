package domain

import "time"

// Challenge is a pending emailed one-time code (stored in email_challenges).
// Only the code's hash is persisted; the plain code exists in the outbound
// mail and nowhere else.
type Challenge struct {
	ID        string
	UserID    string
	CodeHash  string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired reports whether the challenge is past its expiry at now.
func (c *Challenge) Expired(now time.Time) bool {
	return !c.ExpiresAt.After(now)
}
