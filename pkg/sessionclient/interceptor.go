package sessionclient

import (
	"context"
	"net/http"

	"go.uber.org/zap"
)

type sessionHandle interface {
	SnapshotReader
	Dispatch(ctx context.Context, command Command) error
}

// Interceptor is an http.RoundTripper that attaches the session's access token and
// logs the session out when the server answers 401 or 403.
type Interceptor struct {
	next      http.RoundTripper
	session   sessionHandle
	navigator Navigator
	loginPath string
	logger    *zap.Logger
}

// NewInterceptor wraps next. A nil next uses http.DefaultTransport.
func NewInterceptor(next http.RoundTripper, session sessionHandle, navigator Navigator, loginPath string, logger *zap.Logger) *Interceptor {
	if next == nil {
		next = http.DefaultTransport
	}
	if loginPath == "" {
		loginPath = DefaultLoginPath
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Interceptor{
		next:      next,
		session:   session,
		navigator: navigator,
		loginPath: loginPath,
		logger:    logger,
	}
}

// RoundTrip never mutates the caller's request; a clone carries the Authorization header.
func (interceptor *Interceptor) RoundTrip(request *http.Request) (*http.Response, error) {
	outbound := request
	if interceptor.session != nil {
		if accessToken := interceptor.session.Snapshot().AccessToken; accessToken != "" {
			outbound = request.Clone(request.Context())
			outbound.Header.Set("Authorization", "Bearer "+accessToken)
		}
	}
	response, err := interceptor.next.RoundTrip(outbound)
	if err != nil {
		return response, err
	}
	if response.StatusCode == http.StatusUnauthorized || response.StatusCode == http.StatusForbidden {
		interceptor.expire(request.Context(), response.StatusCode)
	}
	return response, nil
}

func (interceptor *Interceptor) expire(ctx context.Context, status int) {
	interceptor.logger.Info("session rejected by server",
		zap.String("code", "session.interceptor.rejected"),
		zap.Int("status", status))
	if interceptor.session != nil {
		if dispatchErr := interceptor.session.Dispatch(context.WithoutCancel(ctx), Logout{}); dispatchErr != nil {
			interceptor.logger.Warn("session logout failed",
				zap.String("code", "session.interceptor.logout_failed"),
				zap.Error(dispatchErr))
		}
	}
	if interceptor.navigator != nil {
		interceptor.navigator.Navigate(interceptor.loginPath)
	}
}
