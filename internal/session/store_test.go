package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/ktb-chatapp/backend/internal/cluster"
)

func newTestStore(t *testing.T, ttl time.Duration) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewStore(cluster.NewWithClient(rdb), ttl), mr
}

func TestNewSession(t *testing.T) {
	a := New("user-42")
	b := New("user-42")
	if a.UserID != "user-42" {
		t.Errorf("unexpected user id %q", a.UserID)
	}
	if a.SessionID == "" || a.SessionID == b.SessionID {
		t.Error("session ids must be unique and non-empty")
	}
	if a.LastActivity.IsZero() {
		t.Error("last activity should be initialized")
	}
}

func TestSaveAndFindByUser(t *testing.T) {
	s, _ := newTestStore(t, 0)
	ctx := context.Background()

	sess := New("user-42")
	if _, err := s.Save(ctx, sess); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, found, err := s.FindByUser(ctx, "user-42")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if !found {
		t.Fatal("expected session present")
	}
	if got.SessionID != sess.SessionID {
		t.Errorf("got session %q, want %q", got.SessionID, sess.SessionID)
	}
}

func TestFindByUserAbsent(t *testing.T) {
	s, _ := newTestStore(t, 0)

	_, found, err := s.FindByUser(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if found {
		t.Error("expected no session")
	}
}

func TestSingleSlotOverwrite(t *testing.T) {
	s, _ := newTestStore(t, 0)
	ctx := context.Background()

	first := New("user-42")
	second := New("user-42")
	s.Save(ctx, first)
	s.Save(ctx, second)

	got, found, _ := s.FindByUser(ctx, "user-42")
	if !found || got.SessionID != second.SessionID {
		t.Errorf("expected second login to hold the slot, got %+v", got)
	}
}

func TestDeleteChecksIdentity(t *testing.T) {
	s, _ := newTestStore(t, 0)
	ctx := context.Background()

	a := New("user-42")
	s.Save(ctx, a)
	b := New("user-42")
	s.Save(ctx, b)

	// A stale logout from session A must not evict session B.
	deleted, err := s.Delete(ctx, "user-42", a.SessionID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if deleted {
		t.Error("delete with a superseded session id should be a no-op")
	}

	got, found, _ := s.FindByUser(ctx, "user-42")
	if !found || got.SessionID != b.SessionID {
		t.Errorf("expected session B to survive, got %+v found=%v", got, found)
	}

	// A matching logout removes the slot.
	deleted, err = s.Delete(ctx, "user-42", b.SessionID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !deleted {
		t.Error("matching delete should remove the session")
	}
	if _, found, _ := s.FindByUser(ctx, "user-42"); found {
		t.Error("expected slot empty after matching delete")
	}
}

func TestDeleteAbsentUser(t *testing.T) {
	s, _ := newTestStore(t, 0)

	deleted, err := s.Delete(context.Background(), "nobody", "whatever")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if deleted {
		t.Error("deleting an absent session should report false")
	}
}

func TestDeleteAll(t *testing.T) {
	s, _ := newTestStore(t, 0)
	ctx := context.Background()

	s.Save(ctx, New("user-42"))
	if err := s.DeleteAll(ctx, "user-42"); err != nil {
		t.Fatalf("delete all: %v", err)
	}
	if _, found, _ := s.FindByUser(ctx, "user-42"); found {
		t.Error("expected session removed")
	}
}

func TestSessionExpiresAfterTTL(t *testing.T) {
	s, mr := newTestStore(t, 30*time.Minute)
	ctx := context.Background()

	s.Save(ctx, New("user-42"))
	mr.FastForward(31 * time.Minute)

	if _, found, _ := s.FindByUser(ctx, "user-42"); found {
		t.Error("expected session expired after the inactivity window")
	}
}

func TestRefreshActivityExtendsTTL(t *testing.T) {
	s, mr := newTestStore(t, 30*time.Minute)
	ctx := context.Background()

	sess := New("user-42")
	s.Save(ctx, sess)

	// Just before expiry, activity arrives and re-arms the window.
	mr.FastForward(29 * time.Minute)
	at := time.Now().UTC()
	if err := s.RefreshActivity(ctx, "user-42", at); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	// Past the original 30 minute mark, the session must still be live.
	mr.FastForward(2 * time.Minute)
	got, found, err := s.FindByUser(ctx, "user-42")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if !found {
		t.Fatal("expected session alive after refresh")
	}
	if !got.LastActivity.Equal(at) {
		t.Errorf("last activity = %v, want %v", got.LastActivity, at)
	}
	if got.SessionID != sess.SessionID {
		t.Error("refresh must not change the session identity")
	}
}

func TestRefreshActivityAbsentIsNoop(t *testing.T) {
	s, _ := newTestStore(t, 0)

	if err := s.RefreshActivity(context.Background(), "nobody", time.Now()); err != nil {
		t.Fatalf("refresh on absent session should be a no-op: %v", err)
	}
	if _, found, _ := s.FindByUser(context.Background(), "nobody"); found {
		t.Error("refresh must not create a session")
	}
}
