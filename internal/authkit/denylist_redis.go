package authkit

import (
	"context"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const denylistKeyPrefix = "denylist:jti:"

// RedisDenylist shares revocations across server replicas. Entries carry a Redis TTL equal to
// the remaining token lifetime, so the keyspace never outgrows the set of live tokens.
type RedisDenylist struct {
	client *goredis.Client
	clock  Clock
}

// NewRedisDenylist wraps an existing client.
func NewRedisDenylist(client *goredis.Client, clock Clock) *RedisDenylist {
	if clock == nil {
		clock = NewSystemClock()
	}
	return &RedisDenylist{client: client, clock: clock}
}

// NewRedisDenylistFromURL parses a redis:// URL and pings the server.
func NewRedisDenylistFromURL(ctx context.Context, redisURL string, clock Clock) (*RedisDenylist, error) {
	options, parseErr := goredis.ParseURL(redisURL)
	if parseErr != nil {
		return nil, fmt.Errorf("denylist.redis.parse_url: %w", parseErr)
	}
	client := goredis.NewClient(options)
	if pingErr := client.Ping(ctx).Err(); pingErr != nil {
		_ = client.Close()
		return nil, fmt.Errorf("denylist.redis.ping: %w", pingErr)
	}
	return NewRedisDenylist(client, clock), nil
}

// Revoke stores the jti with a TTL bounded by the token expiry.
func (denylist *RedisDenylist) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	if strings.TrimSpace(tokenID) == "" {
		return ErrEmptyTokenID
	}
	remaining := expiresAt.Sub(denylist.clock.Now())
	if remaining <= 0 {
		return nil
	}
	if remaining < time.Second {
		remaining = time.Second
	}
	if err := denylist.client.Set(ctx, denylistKey(tokenID), expiresAt.Unix(), remaining).Err(); err != nil {
		return fmt.Errorf("denylist.redis.revoke: %w", err)
	}
	return nil
}

// IsRevoked checks key existence.
func (denylist *RedisDenylist) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	count, err := denylist.client.Exists(ctx, denylistKey(tokenID)).Result()
	if err != nil {
		return false, fmt.Errorf("denylist.redis.lookup: %w", err)
	}
	return count > 0, nil
}

// Ping checks that Redis is reachable.
func (denylist *RedisDenylist) Ping(ctx context.Context) error {
	if err := denylist.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("denylist.redis.ping: %w", err)
	}
	return nil
}

// Close releases the underlying client.
func (denylist *RedisDenylist) Close() error {
	return denylist.client.Close()
}

func denylistKey(tokenID string) string {
	return denylistKeyPrefix + tokenID
}
