// Package auth contains domain-level types for sessions. Authentication
// itself happens upstream; this service only resolves a session token to
// the creator identity it belongs to.
package auth

import "time"

// Identity is the principal attached to incoming requests. The upstream
// auth service establishes it; we trust the session record.
type Identity struct {
	UserID string     // stable user identifier
	Handle string     // public display handle
	Tier   TierString // account tier as issued at login
}

// TierString mirrors the account tier carried in session records. Kept as
// a plain string so the session layer stays free of domain imports.
type TierString string

const (
	TierFree TierString = "free"
	TierPro  TierString = "pro"
)

// Session is the server-side record persisted for an authenticated user.
// ID is an opaque session identifier (e.g., random URL-safe string).
type Session struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	Handle    string     `json:"handle"`
	Tier      TierString `json:"tier"`
	ExpiresAt time.Time  `json:"expires_at"`
}

// Identity projects the session into the request principal.
func (s Session) Identity() Identity {
	return Identity{UserID: s.UserID, Handle: s.Handle, Tier: s.Tier}
}

// Expired reports whether the session has passed its expiry.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}
