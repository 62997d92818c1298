// Package ratelimit stores per-client request counters in the cluster. A
// counter carries its own window expiry; entries past that instant are
// treated as absent at read time even when the backend has not physically
// evicted them yet, since backend TTL eviction is asynchronous and cannot be
// relied on for the rate-limit decision.
package ratelimit

import "time"

// KeyPrefix is the namespace counters live under. It is wire-visible in the
// cluster and shared with existing deployments, so it must not change.
const KeyPrefix = "ratelimit:"

// Counter is the stored per-client rate-limit state. Count never decreases
// within a window; ExpiresAt always equals the expiry supplied to the most
// recent increment or save.
type Counter struct {
	ClientID  string    `json:"clientId"`
	Count     int64     `json:"count"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Expired reports whether the counter's window has ended as of now.
func (c Counter) Expired(now time.Time) bool {
	return !c.ExpiresAt.After(now)
}
