// Package session stores the per-user login session in the cluster. Each
// user holds exactly one session slot: a new login overwrites the previous
// session rather than queueing alongside it, and every save re-arms the
// sliding inactivity window.
package session

import (
	"time"

	"github.com/google/uuid"
)

// DefaultTTL is the sliding inactivity window a session stays live for.
// Every save, including activity refreshes, resets the window in full.
const DefaultTTL = 30 * time.Minute

// KeyPrefix is the namespace sessions live under. It is wire-visible in the
// cluster and shared with existing deployments, so it must not change.
const KeyPrefix = "session:user:"

// Session is the stored per-user session record.
type Session struct {
	UserID       string    `json:"userId"`
	SessionID    string    `json:"sessionId"`
	LastActivity time.Time `json:"lastActivity"`
}

// New mints a fresh session for userID with a random session identity and
// the current time as its last activity.
func New(userID string) Session {
	return Session{
		UserID:       userID,
		SessionID:    uuid.NewString(),
		LastActivity: time.Now().UTC(),
	}
}
