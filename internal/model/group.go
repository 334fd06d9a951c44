package model

import "time"

// Group is a short-lived namespace that resort visitors join with a
// 6-digit code.  Devices inside a group can see each other's check-ins
// and, when shared, accommodation.  Groups are never mutated after
// creation; they expire by policy (season end).
//
// Fields:
//  Code      – globally unique 6-digit numeric join code.
//  CreatedAt – creation timestamp.
//  ExpiresAt – optional expiry timestamp (nullable).
type Group struct {
	Code      string     `json:"code"`                 // presence_groups.code
	CreatedAt time.Time  `json:"created_at"`           // presence_groups.created_at
	ExpiresAt *time.Time `json:"expires_at,omitempty"` // presence_groups.expires_at (nullable)
}
