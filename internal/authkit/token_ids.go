package authkit

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// TokenIDGenerator produces jti values.
type TokenIDGenerator interface {
	NewTokenID(at time.Time) string
}

// ulidTokenIDs draws from a monotonic entropy source, so two ids minted within the same
// millisecond still sort and never collide.
type ulidTokenIDs struct {
	mutex   sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// NewULIDTokenIDs constructs a concurrency-safe ULID generator.
func NewULIDTokenIDs() TokenIDGenerator {
	return &ulidTokenIDs{entropy: ulid.Monotonic(rand.Reader, 0)}
}

func (generator *ulidTokenIDs) NewTokenID(at time.Time) string {
	generator.mutex.Lock()
	defer generator.mutex.Unlock()
	return ulid.MustNew(ulid.Timestamp(at), generator.entropy).String()
}
