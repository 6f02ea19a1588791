package authkit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestLoginRateLimiterRefills(t *testing.T) {
	t.Parallel()

	clock := newTestClock()
	limiter := NewLoginRateLimiter(2, clock)

	if !limiter.Allow("10.0.0.1") || !limiter.Allow("10.0.0.1") {
		t.Fatalf("expected burst of two")
	}
	if limiter.Allow("10.0.0.1") {
		t.Fatalf("expected third attempt to be throttled")
	}
	if !limiter.Allow("10.0.0.2") {
		t.Fatalf("limits must be per key")
	}

	clock.Advance(31 * time.Second)
	if !limiter.Allow("10.0.0.1") {
		t.Fatalf("expected one token refilled after 31s")
	}
}

func TestLoginRateLimiterMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	limiter := NewLoginRateLimiter(1, newTestClock())
	router := gin.New()
	router.POST("/login", limiter.Middleware(), func(contextGin *gin.Context) {
		contextGin.Status(http.StatusNoContent)
	})

	first := httptest.NewRecorder()
	router.ServeHTTP(first, httptest.NewRequest(http.MethodPost, "/login", nil))
	if first.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", first.Code)
	}

	second := httptest.NewRecorder()
	router.ServeHTTP(second, httptest.NewRequest(http.MethodPost, "/login", nil))
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", second.Code)
	}
}
