package main

import (
	"context"
	"strings"

	"github.com/tyemirov/pollutionauth/internal/authkit"
	"github.com/tyemirov/pollutionauth/internal/web"
	"go.uber.org/zap"
)

type authBackends struct {
	credentials  authkit.CredentialStore
	denylist     authkit.Denylist
	healthChecks map[string]web.HealthCheck
	closers      []func() error
}

// openBackends picks durable stores when URLs are configured and falls back to memory otherwise.
func openBackends(ctx context.Context, logger *zap.Logger, databaseURL string, redisURL string) (*authBackends, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	backends := &authBackends{healthChecks: map[string]web.HealthCheck{}}

	if strings.TrimSpace(databaseURL) != "" {
		store, storeErr := authkit.NewDatabaseCredentialStore(ctx, databaseURL)
		if storeErr != nil {
			return nil, storeErr
		}
		backends.credentials = store
		backends.healthChecks["credentials"] = store.Ping
		backends.closers = append(backends.closers, store.Close)
		logger.Info("credential store ready", zap.String("driver", store.Driver()))
	} else {
		backends.credentials = authkit.NewMemoryCredentialStore()
		logger.Warn("using in-memory credential store", zap.String("code", "credential_store.memory"))
	}

	if strings.TrimSpace(redisURL) != "" {
		denylist, denylistErr := authkit.NewRedisDenylistFromURL(ctx, redisURL, authkit.NewSystemClock())
		if denylistErr != nil {
			backends.close(logger)
			return nil, denylistErr
		}
		backends.denylist = denylist
		backends.healthChecks["denylist"] = denylist.Ping
		backends.closers = append(backends.closers, denylist.Close)
		logger.Info("denylist ready", zap.String("driver", "redis"))
	} else {
		backends.denylist = authkit.NewMemoryDenylist(authkit.NewSystemClock())
	}

	return backends, nil
}

func (backends *authBackends) close(logger *zap.Logger) {
	for index := len(backends.closers) - 1; index >= 0; index-- {
		if err := backends.closers[index](); err != nil {
			logger.Warn("backend close failed", zap.String("code", "server.backend_close_failed"), zap.Error(err))
		}
	}
	backends.closers = nil
}
