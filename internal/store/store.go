// Package store provides a namespaced key-value store with per-entry TTLs on
// top of the cluster client. Each instance owns a fixed key prefix; all
// reads, writes, and bulk operations stay inside that namespace. Values are
// stored as JSON, so any serializable type can be kept in a single store as
// long as its producers agree on the shape.
package store

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/ktb-chatapp/backend/internal/cluster"
	"github.com/ktb-chatapp/backend/internal/logger"
	"github.com/ktb-chatapp/backend/internal/metrics"
)

// Store is a keyed TTL store scoped to a single namespace prefix. Prefixes
// are fixed per instance and must never overlap between facades sharing one
// cluster; the prefix is what makes Size and Clear safe.
type Store struct {
	client *cluster.Client
	prefix string
	log    *slog.Logger
}

// New creates a store for the given namespace prefix.
func New(client *cluster.Client, prefix string) *Store {
	return &Store{
		client: client,
		prefix: prefix,
		log:    logger.WithComponent("store").With("namespace", prefix),
	}
}

// Prefix returns the store's namespace prefix.
func (s *Store) Prefix() string { return s.prefix }

func (s *Store) key(k string) string { return s.prefix + k }

// Get retrieves the entry at key and decodes it into T. A stored value that
// does not decode into T is treated as absent and logged as a warning, not
// returned as an error: multiple producers can transiently disagree on
// schema during a rollout, and a non-absent result is therefore not
// guaranteed to satisfy every caller's expected shape.
func Get[T any](ctx context.Context, s *Store, key string) (T, bool, error) {
	var zero T

	raw, found, err := s.client.Get(ctx, s.key(key))
	if err != nil {
		return zero, false, err
	}
	if !found {
		metrics.StoreMisses.WithLabelValues(s.prefix).Inc()
		return zero, false, nil
	}

	var v T
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&v); err != nil {
		metrics.StoreTypeMismatches.WithLabelValues(s.prefix).Inc()
		s.log.Warn("stored value does not match expected type, treating as absent",
			"key", key, "error", err)
		return zero, false, nil
	}

	metrics.StoreHits.WithLabelValues(s.prefix).Inc()
	return v, true, nil
}

// Set stores value at key, replacing any previous value and expiry. A ttl of
// zero or less means the entry does not expire.
func (s *Store) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(key), string(data), ttl)
}

// Delete removes the entry at key. Deleting an absent key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	return s.client.Delete(ctx, s.key(key))
}

// Size returns the number of live entries in the namespace. This is not
// O(1): it walks the namespace with a cursor-based scan, so the cost grows
// with the number of live keys and the result is only eventually consistent
// with concurrent writers.
func (s *Store) Size(ctx context.Context) (int, error) {
	return s.client.CountKeys(ctx, s.prefix+"*")
}

// Clear removes every entry in the namespace. Like Size it is scan-based;
// entries created mid-scan may survive.
func (s *Store) Clear(ctx context.Context) error {
	deleted, err := s.client.DeleteByPattern(ctx, s.prefix+"*")
	if err != nil {
		return err
	}
	s.log.Debug("namespace cleared", "deleted", deleted)
	return nil
}
