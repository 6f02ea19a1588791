package authkit

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const limiterIdleTTL = 10 * time.Minute

// LoginRateLimiter throttles credential endpoints per client IP.
type LoginRateLimiter struct {
	mutex       sync.Mutex
	limiters    map[string]*limiterEntry
	limit       rate.Limit
	burst       int
	clock       Clock
	lastCleanup time.Time
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewLoginRateLimiter allows requestsPerMinute attempts per IP, all available as a burst.
func NewLoginRateLimiter(requestsPerMinute int, clock Clock) *LoginRateLimiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 10
	}
	if clock == nil {
		clock = NewSystemClock()
	}
	return &LoginRateLimiter{
		limiters: make(map[string]*limiterEntry),
		limit:    rate.Limit(float64(requestsPerMinute) / time.Minute.Seconds()),
		burst:    requestsPerMinute,
		clock:    clock,
	}
}

// Allow reports whether key may make another attempt now.
func (limiter *LoginRateLimiter) Allow(key string) bool {
	limiter.mutex.Lock()
	defer limiter.mutex.Unlock()
	now := limiter.clock.Now()
	limiter.cleanupLocked(now)
	entry, ok := limiter.limiters[key]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(limiter.limit, limiter.burst)}
		limiter.limiters[key] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}

// Middleware rejects requests over the limit with 429.
func (limiter *LoginRateLimiter) Middleware() gin.HandlerFunc {
	return func(contextGin *gin.Context) {
		if !limiter.Allow(contextGin.ClientIP()) {
			contextGin.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"message": "Trop de tentatives, réessayez plus tard",
				"code":    "rate_limited",
			})
			return
		}
		contextGin.Next()
	}
}

func (limiter *LoginRateLimiter) cleanupLocked(now time.Time) {
	if now.Sub(limiter.lastCleanup) < limiterIdleTTL {
		return
	}
	limiter.lastCleanup = now
	for key, entry := range limiter.limiters {
		if now.Sub(entry.lastSeen) > limiterIdleTTL {
			delete(limiter.limiters, key)
		}
	}
}
