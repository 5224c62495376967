package domain

import "time"

// Enforcement holds an org's second-factor enforcement settings (one row per
// org). Enforcement can force a challenge on users with no enrolled source; it
// never waives a challenge for users the detect chain already flagged.
type Enforcement struct {
	OrgID           string
	RequireAlways   bool
	RequireForRoles []string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
