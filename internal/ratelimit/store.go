package ratelimit

import (
	"context"
	"log/slog"
	"time"

	"github.com/ktb-chatapp/backend/internal/cluster"
	"github.com/ktb-chatapp/backend/internal/logger"
	"github.com/ktb-chatapp/backend/internal/metrics"
	"github.com/ktb-chatapp/backend/internal/store"
)

// Store keeps rate-limit counters in the cluster. Backend failures are
// returned to the caller unmodified: whether to fail open or closed on a
// limiter outage is the caller's policy, not this layer's.
type Store struct {
	data *store.Store
	log  *slog.Logger
}

// NewStore creates a rate-limit store on the given cluster client.
func NewStore(client *cluster.Client) *Store {
	return &Store{
		data: store.New(client, KeyPrefix),
		log:  logger.WithComponent("ratelimit"),
	}
}

// FindByClient returns the client's counter, if it has a live one. A stored
// counter whose window has already ended is treated as absent and cleaned up
// best-effort, regardless of whether the backend has evicted the key.
func (s *Store) FindByClient(ctx context.Context, clientID string) (Counter, bool, error) {
	c, found, err := store.Get[Counter](ctx, s.data, clientID)
	if err != nil {
		return Counter{}, false, err
	}
	if !found {
		return Counter{}, false, nil
	}
	if c.Expired(time.Now()) {
		metrics.RateLimitLazyExpirations.Inc()
		// Cleanup is opportunistic; a failure here must not mask the
		// rate-limit decision.
		if err := s.data.Delete(ctx, clientID); err != nil {
			s.log.Warn("failed to clean up expired rate-limit entry", "client_id", clientID, "error", err)
		}
		return Counter{}, false, nil
	}
	return c, true, nil
}

// Save persists the counter with a TTL of ExpiresAt minus now. When that
// remainder is zero or negative the entry is not written and any existing
// entry is deleted instead: persisting an already-ended window is a no-op
// delete, not an error.
func (s *Store) Save(ctx context.Context, c Counter) (Counter, error) {
	ttl := time.Until(c.ExpiresAt)
	if ttl <= 0 {
		s.log.Debug("rate-limit window already ended, deleting instead of saving", "client_id", c.ClientID)
		if err := s.data.Delete(ctx, c.ClientID); err != nil {
			return Counter{}, err
		}
		return c, nil
	}
	if err := s.data.Set(ctx, c.ClientID, c, ttl); err != nil {
		return Counter{}, err
	}
	return c, nil
}

// Increment bumps the client's counter and stamps it with windowExpiry,
// which also becomes the entry's new TTL anchor. An absent or lazily
// expired counter restarts at 1. The stored expiry is always exactly the
// one supplied here; sliding versus fixed window policy is the caller's
// choice and is not enforced by this store.
//
// Increment is a read-then-write, not a single atomic backend operation:
// two concurrent increments for the same client can read the same base
// count and undercount by one. This is an accepted tradeoff.
func (s *Store) Increment(ctx context.Context, clientID string, windowExpiry time.Time) (Counter, error) {
	current, found, err := s.FindByClient(ctx, clientID)
	if err != nil {
		return Counter{}, err
	}

	var c Counter
	if found {
		c = current
		c.Count++
		c.ExpiresAt = windowExpiry
	} else {
		c = Counter{ClientID: clientID, Count: 1, ExpiresAt: windowExpiry}
	}
	return s.Save(ctx, c)
}

// Delete removes the client's counter.
func (s *Store) Delete(ctx context.Context, clientID string) error {
	return s.data.Delete(ctx, clientID)
}
