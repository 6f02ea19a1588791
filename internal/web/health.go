package web

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const healthCheckTimeout = 2 * time.Second

// HealthCheck probes a backing dependency such as the credential database or the denylist.
type HealthCheck func(ctx context.Context) error

// HandleHealth reports 200 when every named check passes and 503 otherwise.
func HandleHealth(logger *zap.Logger, checks map[string]HealthCheck) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(contextGin *gin.Context) {
		ctx, cancel := context.WithTimeout(contextGin.Request.Context(), healthCheckTimeout)
		defer cancel()

		statuses := make(map[string]string, len(checks))
		healthy := true
		for name, check := range checks {
			if err := check(ctx); err != nil {
				healthy = false
				statuses[name] = "down"
				logger.Warn("health check failed",
					zap.String("code", "health.check_failed"),
					zap.String("dependency", name),
					zap.Error(err))
				continue
			}
			statuses[name] = "up"
		}
		if !healthy {
			contextGin.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "checks": statuses})
			return
		}
		contextGin.JSON(http.StatusOK, gin.H{"status": "ok", "checks": statuses})
	}
}
