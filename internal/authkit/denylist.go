package authkit

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

// ErrEmptyTokenID indicates a revocation request without a jti.
var ErrEmptyTokenID = errors.New("denylist.empty_token_id")

// Denylist records revoked token ids until the tokens would have expired anyway.
type Denylist interface {
	// Revoke denylists tokenID until expiresAt.
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
	// IsRevoked reports whether tokenID is currently denylisted.
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

type memoryDenylist struct {
	mutex   sync.Mutex
	entries map[string]time.Time
	clock   Clock
}

// NewMemoryDenylist constructs a process-local Denylist.
func NewMemoryDenylist(clock Clock) Denylist {
	if clock == nil {
		clock = NewSystemClock()
	}
	return &memoryDenylist{
		entries: make(map[string]time.Time),
		clock:   clock,
	}
}

func (denylist *memoryDenylist) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	if strings.TrimSpace(tokenID) == "" {
		return ErrEmptyTokenID
	}
	denylist.mutex.Lock()
	defer denylist.mutex.Unlock()
	denylist.purgeExpiredLocked()
	if !denylist.clock.Now().Before(expiresAt) {
		return nil
	}
	denylist.entries[tokenID] = expiresAt
	return nil
}

func (denylist *memoryDenylist) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	denylist.mutex.Lock()
	defer denylist.mutex.Unlock()
	expiry, ok := denylist.entries[tokenID]
	if !ok {
		return false, nil
	}
	if !denylist.clock.Now().Before(expiry) {
		delete(denylist.entries, tokenID)
		return false, nil
	}
	return true, nil
}

func (denylist *memoryDenylist) purgeExpiredLocked() {
	if len(denylist.entries) == 0 {
		return
	}
	now := denylist.clock.Now()
	for tokenID, expiry := range denylist.entries {
		if !now.Before(expiry) {
			delete(denylist.entries, tokenID)
		}
	}
}
