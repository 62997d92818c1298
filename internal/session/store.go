package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/ktb-chatapp/backend/internal/cluster"
	"github.com/ktb-chatapp/backend/internal/logger"
	"github.com/ktb-chatapp/backend/internal/metrics"
	"github.com/ktb-chatapp/backend/internal/store"
)

// Store keeps one live session per user in the cluster.
type Store struct {
	data *store.Store
	ttl  time.Duration
	log  *slog.Logger
}

// NewStore creates a session store on the given cluster client. A ttl of
// zero or less selects DefaultTTL.
func NewStore(client *cluster.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		data: store.New(client, KeyPrefix),
		ttl:  ttl,
		log:  logger.WithComponent("session"),
	}
}

// FindByUser returns the user's current session, if any. When reads are
// routed to replicas the result can lag the primary by the intra-cluster
// replication delay.
func (s *Store) FindByUser(ctx context.Context, userID string) (Session, bool, error) {
	return store.Get[Session](ctx, s.data, userID)
}

// Save writes sess into the user's single session slot with the full
// sliding TTL, silently replacing any previous session. Logging in from a
// second location therefore evicts the first session's entry.
func (s *Store) Save(ctx context.Context, sess Session) (Session, error) {
	if err := s.data.Set(ctx, sess.UserID, sess, s.ttl); err != nil {
		return Session{}, err
	}
	s.log.Debug("session saved", "user_id", sess.UserID, "ttl", s.ttl)
	return sess, nil
}

// Delete removes the user's session only if it still carries sessionID. The
// current session is re-read first: when a newer login has already replaced
// it, the delete is a no-op and Delete reports false, so a stale client's
// logout cannot evict the session that superseded it.
func (s *Store) Delete(ctx context.Context, userID, sessionID string) (bool, error) {
	current, found, err := s.FindByUser(ctx, userID)
	if err != nil {
		return false, err
	}
	if !found || current.SessionID != sessionID {
		if found {
			metrics.SessionDeleteMismatches.Inc()
			s.log.Debug("session delete skipped, slot held by a newer session", "user_id", userID)
		}
		return false, nil
	}
	if err := s.data.Delete(ctx, userID); err != nil {
		return false, err
	}
	s.log.Debug("session deleted", "user_id", userID)
	return true, nil
}

// DeleteAll removes the user's session slot unconditionally.
func (s *Store) DeleteAll(ctx context.Context, userID string) error {
	return s.data.Delete(ctx, userID)
}

// RefreshActivity updates the session's last-activity timestamp and, by
// re-saving, extends the TTL window. This is a read-modify-write: under
// concurrent refreshes for the same user the last completed write wins, so
// the active window is anchored to the most recently completed refresh.
// Refreshing a user with no session is a no-op.
func (s *Store) RefreshActivity(ctx context.Context, userID string, at time.Time) error {
	current, found, err := s.FindByUser(ctx, userID)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}
	current.LastActivity = at
	_, err = s.Save(ctx, current)
	return err
}
