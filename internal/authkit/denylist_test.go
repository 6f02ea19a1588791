package authkit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
)

func TestMemoryDenylistExpiresEntries(t *testing.T) {
	t.Parallel()

	clock := newTestClock()
	denylist := NewMemoryDenylist(clock)
	ctx := context.Background()

	if err := denylist.Revoke(ctx, "jti-1", clock.Now().Add(time.Minute)); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if revoked, _ := denylist.IsRevoked(ctx, "jti-1"); !revoked {
		t.Fatalf("expected jti-1 revoked")
	}
	if revoked, _ := denylist.IsRevoked(ctx, "jti-2"); revoked {
		t.Fatalf("jti-2 was never revoked")
	}

	clock.Advance(time.Minute)
	if revoked, _ := denylist.IsRevoked(ctx, "jti-1"); revoked {
		t.Fatalf("expected entry to lapse with the token")
	}

	if err := denylist.Revoke(ctx, "", clock.Now().Add(time.Minute)); !errors.Is(err, ErrEmptyTokenID) {
		t.Fatalf("expected ErrEmptyTokenID, got %v", err)
	}
	if err := denylist.Revoke(ctx, "stale", clock.Now().Add(-time.Second)); err != nil {
		t.Fatalf("revoking an expired token should be a no-op, got %v", err)
	}
	if revoked, _ := denylist.IsRevoked(ctx, "stale"); revoked {
		t.Fatalf("expired token should not be recorded")
	}
}

func newMiniredisDenylist(t *testing.T, clock Clock) (*RedisDenylist, *miniredis.Miniredis) {
	t.Helper()
	server := miniredis.RunT(t)
	denylist, err := NewRedisDenylistFromURL(context.Background(), "redis://"+server.Addr()+"/0", clock)
	if err != nil {
		t.Fatalf("redis denylist: %v", err)
	}
	t.Cleanup(func() { _ = denylist.Close() })
	return denylist, server
}

func TestRedisDenylistRevokeWithTTL(t *testing.T) {
	clock := newTestClock()
	denylist, server := newMiniredisDenylist(t, clock)
	ctx := context.Background()

	if err := denylist.Revoke(ctx, "jti-1", clock.Now().Add(90*time.Second)); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	revoked, err := denylist.IsRevoked(ctx, "jti-1")
	if err != nil || !revoked {
		t.Fatalf("expected revoked, got %v (%v)", revoked, err)
	}
	if ttl := server.TTL(denylistKeyPrefix + "jti-1"); ttl != 90*time.Second {
		t.Fatalf("expected ttl 90s, got %v", ttl)
	}

	server.FastForward(91 * time.Second)
	revoked, err = denylist.IsRevoked(ctx, "jti-1")
	if err != nil || revoked {
		t.Fatalf("expected entry to expire, got %v (%v)", revoked, err)
	}

	if err := denylist.Revoke(ctx, "stale", clock.Now().Add(-time.Second)); err != nil {
		t.Fatalf("revoke stale: %v", err)
	}
	if server.Exists(denylistKeyPrefix + "stale") {
		t.Fatalf("expired token should not be written")
	}
}

func TestRedisDenylistSurfacesBackendErrors(t *testing.T) {
	clock := newTestClock()
	denylist, server := newMiniredisDenylist(t, clock)
	server.Close()

	if _, err := denylist.IsRevoked(context.Background(), "jti-1"); err == nil {
		t.Fatalf("expected lookup error with redis down")
	}
}

func TestNewRedisDenylistFromURLRejectsBadURL(t *testing.T) {
	t.Parallel()

	if _, err := NewRedisDenylistFromURL(context.Background(), "http://nope", nil); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestRedisDenylistSharedAcrossClients(t *testing.T) {
	clock := newTestClock()
	first, server := newMiniredisDenylist(t, clock)
	second := NewRedisDenylist(goredis.NewClient(&goredis.Options{Addr: server.Addr()}), clock)
	t.Cleanup(func() { _ = second.Close() })

	if err := first.Revoke(context.Background(), "jti-shared", clock.Now().Add(time.Minute)); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	revoked, err := second.IsRevoked(context.Background(), "jti-shared")
	if err != nil || !revoked {
		t.Fatalf("expected revocation visible to another replica, got %v (%v)", revoked, err)
	}
}
