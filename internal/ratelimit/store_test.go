package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/ktb-chatapp/backend/internal/cluster"
	"github.com/ktb-chatapp/backend/internal/store"
)

// newTestStore also returns the raw namespace store so tests can plant
// entries directly, e.g. a counter whose window has already ended.
func newTestStore(t *testing.T) (*Store, *store.Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	client := cluster.NewWithClient(rdb)
	return NewStore(client), store.New(client, KeyPrefix), mr
}

func TestIncrementSequence(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	var last Counter
	var expiry time.Time
	for i := int64(1); i <= 5; i++ {
		expiry = time.Now().Add(time.Duration(60+i) * time.Second)
		c, err := s.Increment(ctx, "client-1", expiry)
		if err != nil {
			t.Fatalf("increment %d: %v", i, err)
		}
		if c.Count != i {
			t.Errorf("increment %d: count = %d, want %d", i, c.Count, i)
		}
		last = c
	}

	// The stored expiry is always the most recently supplied one.
	got, found, err := s.FindByClient(ctx, "client-1")
	if err != nil || !found {
		t.Fatalf("find: found=%v err=%v", found, err)
	}
	if !got.ExpiresAt.Equal(expiry) {
		t.Errorf("stored expiry = %v, want %v", got.ExpiresAt, expiry)
	}
	if got.Count != last.Count {
		t.Errorf("stored count = %d, want %d", got.Count, last.Count)
	}
}

func TestFindByClientAbsent(t *testing.T) {
	s, _, _ := newTestStore(t)

	_, found, err := s.FindByClient(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if found {
		t.Error("expected no counter")
	}
}

func TestLazyExpiryDoubleCheck(t *testing.T) {
	s, raw, mr := newTestStore(t)
	ctx := context.Background()

	// Plant an entry whose logical window has ended but which the backend
	// has not evicted: its expiry is in the past while its backend TTL is
	// still generous.
	stale := Counter{
		ClientID:  "client-1",
		Count:     7,
		ExpiresAt: time.Now().Add(-time.Second),
	}
	if err := raw.Set(ctx, "client-1", stale, time.Hour); err != nil {
		t.Fatalf("plant stale entry: %v", err)
	}
	if !mr.Exists(KeyPrefix + "client-1") {
		t.Fatal("precondition: key should physically exist")
	}

	_, found, err := s.FindByClient(ctx, "client-1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if found {
		t.Error("entry past its expiry must read as absent")
	}

	// The stale entry is cleaned up opportunistically.
	if mr.Exists(KeyPrefix + "client-1") {
		t.Error("expected stale entry deleted during lookup")
	}
}

func TestSaveExpiredWindowDeletesInstead(t *testing.T) {
	s, _, mr := newTestStore(t)
	ctx := context.Background()

	// Establish a live counter first.
	if _, err := s.Increment(ctx, "client-1", time.Now().Add(time.Minute)); err != nil {
		t.Fatalf("increment: %v", err)
	}

	// Saving a counter whose window has already ended removes the entry.
	_, err := s.Save(ctx, Counter{
		ClientID:  "client-1",
		Count:     3,
		ExpiresAt: time.Now().Add(-time.Minute),
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if mr.Exists(KeyPrefix + "client-1") {
		t.Error("expected prior entry removed")
	}
	if _, found, _ := s.FindByClient(ctx, "client-1"); found {
		t.Error("expected no retrievable entry")
	}
}

func TestSaveSetsBackendTTL(t *testing.T) {
	s, _, mr := newTestStore(t)
	ctx := context.Background()

	_, err := s.Save(ctx, Counter{
		ClientID:  "client-1",
		Count:     1,
		ExpiresAt: time.Now().Add(time.Minute),
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	mr.FastForward(61 * time.Second)
	if mr.Exists(KeyPrefix + "client-1") {
		t.Error("expected backend TTL to evict the entry")
	}
}

func TestWindowLifecycle(t *testing.T) {
	s, _, mr := newTestStore(t)
	ctx := context.Background()

	expiry := time.Now().Add(60 * time.Second)
	for i := int64(1); i <= 3; i++ {
		c, err := s.Increment(ctx, "client-1", expiry)
		if err != nil {
			t.Fatalf("increment %d: %v", i, err)
		}
		if c.Count != i {
			t.Errorf("increment %d: count = %d, want %d", i, c.Count, i)
		}
		if !c.ExpiresAt.Equal(expiry) {
			t.Errorf("increment %d: expiry = %v, want %v", i, c.ExpiresAt, expiry)
		}
	}

	// The window elapses and the counter disappears.
	mr.FastForward(61 * time.Second)
	if _, found, _ := s.FindByClient(ctx, "client-1"); found {
		t.Fatal("expected counter absent after the window")
	}

	// The next increment starts a fresh window at 1.
	c, err := s.Increment(ctx, "client-1", time.Now().Add(60*time.Second))
	if err != nil {
		t.Fatalf("increment after reset: %v", err)
	}
	if c.Count != 1 {
		t.Errorf("count after reset = %d, want 1", c.Count)
	}
}

func TestIncrementAfterLazyExpiryResets(t *testing.T) {
	s, raw, _ := newTestStore(t)
	ctx := context.Background()

	stale := Counter{
		ClientID:  "client-1",
		Count:     99,
		ExpiresAt: time.Now().Add(-time.Second),
	}
	if err := raw.Set(ctx, "client-1", stale, time.Hour); err != nil {
		t.Fatalf("plant stale entry: %v", err)
	}

	c, err := s.Increment(ctx, "client-1", time.Now().Add(time.Minute))
	if err != nil {
		t.Fatalf("increment: %v", err)
	}
	if c.Count != 1 {
		t.Errorf("count = %d, want 1 after lazy expiry", c.Count)
	}
}

func TestDelete(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	s.Increment(ctx, "client-1", time.Now().Add(time.Minute))
	if err := s.Delete(ctx, "client-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, found, _ := s.FindByClient(ctx, "client-1"); found {
		t.Error("expected counter removed")
	}

	if err := s.Delete(ctx, "client-1"); err != nil {
		t.Errorf("deleting an absent counter should be a no-op: %v", err)
	}
}
