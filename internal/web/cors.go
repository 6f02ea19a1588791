package web

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const corsPreflightMaxAge = 12 * time.Hour

var (
	errNoAllowedOrigins = errors.New("cors.no_allowed_origins")
	errWildcardOrigin   = errors.New("cors.wildcard_origin")
	errMalformedOrigin  = errors.New("cors.malformed_origin")
)

// ConfigureCORS lets browser clients on the listed origins call the auth API.
// Tokens travel in the Authorization header, so credentials mode stays off.
func ConfigureCORS(logger *zap.Logger, allowedOrigins []string) (gin.HandlerFunc, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	origins, err := sanitizeOrigins(logger, allowedOrigins)
	if err != nil {
		return nil, err
	}
	return cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Type"},
		AllowCredentials: false,
		MaxAge:           corsPreflightMaxAge,
	}), nil
}

// sanitizeOrigins normalizes each origin to scheme://host, dropping blanks and duplicates
// while keeping the configured order.
func sanitizeOrigins(logger *zap.Logger, allowedOrigins []string) ([]string, error) {
	seen := make(map[string]struct{}, len(allowedOrigins))
	origins := make([]string, 0, len(allowedOrigins))
	for _, raw := range allowedOrigins {
		candidate := strings.TrimSpace(raw)
		if candidate == "" {
			continue
		}
		origin, plainHTTP, err := normalizeOrigin(candidate)
		if err != nil {
			return nil, err
		}
		if _, duplicate := seen[origin]; duplicate {
			continue
		}
		seen[origin] = struct{}{}
		if plainHTTP {
			logger.Warn("cors origin served over plain http",
				zap.String("code", "cors.origin.unsafe"),
				zap.String("origin", origin))
		}
		origins = append(origins, origin)
	}
	if len(origins) == 0 {
		return nil, errNoAllowedOrigins
	}
	return origins, nil
}

func normalizeOrigin(candidate string) (string, bool, error) {
	if candidate == "*" {
		return "", false, errWildcardOrigin
	}
	parsed, parseErr := url.Parse(candidate)
	if parseErr != nil || parsed.Host == "" {
		return "", false, fmt.Errorf("%w: %s", errMalformedOrigin, candidate)
	}
	if strings.Trim(parsed.Path, "/") != "" || parsed.RawQuery != "" || parsed.Fragment != "" {
		return "", false, fmt.Errorf("%w: %s must not carry a path, query, or fragment", errMalformedOrigin, candidate)
	}
	scheme := strings.ToLower(parsed.Scheme)
	switch scheme {
	case "https":
		return scheme + "://" + parsed.Host, false, nil
	case "http":
		hostname := parsed.Hostname()
		local := hostname == "localhost" || hostname == "127.0.0.1"
		return scheme + "://" + parsed.Host, !local, nil
	default:
		return "", false, fmt.Errorf("%w: %s needs an http or https scheme", errMalformedOrigin, candidate)
	}
}
