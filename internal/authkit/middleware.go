package authkit

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ClaimsContextKey is the gin context key holding the verified *ClaimSet.
const ClaimsContextKey = "auth_claims"

const bearerScheme = "bearer"

// RequireBearer validates the bearer token in the Authorization header and injects claims.
// A missing header or token segment yields 401. A scheme other than Bearer, or a token that
// fails verification, yields 403.
func RequireBearer(verifier *TokenVerifier, logger *zap.Logger) gin.HandlerFunc {
	if verifier == nil {
		panic("token verifier is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(contextGin *gin.Context) {
		scheme, tokenString, found := splitAuthorization(contextGin.GetHeader("Authorization"))
		if !found {
			abortWithError(contextGin, newError(KindUnauthenticated, ErrTokenMissing))
			return
		}
		if !strings.EqualFold(scheme, bearerScheme) {
			abortWithError(contextGin, newError(KindForbidden, ErrTokenInvalid))
			return
		}
		claims, verifyErr := verifier.Verify(contextGin.Request.Context(), tokenString)
		if verifyErr != nil {
			switch {
			case errors.Is(verifyErr, ErrTokenMissing):
				abortWithError(contextGin, newError(KindUnauthenticated, verifyErr))
			case errors.Is(verifyErr, ErrTokenExpired), errors.Is(verifyErr, ErrTokenInvalid),
				errors.Is(verifyErr, ErrTokenRevoked), errors.Is(verifyErr, ErrTokenNotAccess):
				logger.Debug("bearer token rejected",
					zap.String("code", "auth.bearer.rejected"),
					zap.Error(verifyErr))
				abortWithError(contextGin, newError(KindForbidden, verifyErr))
			default:
				logger.Error("bearer verification failed",
					zap.String("code", "auth.bearer.verify_error"),
					zap.Error(verifyErr))
				abortWithError(contextGin, newError(KindInternal, verifyErr))
			}
			return
		}
		contextGin.Set(ClaimsContextKey, claims)
		contextGin.Next()
	}
}

// ClaimsFromContext returns the claims injected by RequireBearer.
func ClaimsFromContext(contextGin *gin.Context) (*ClaimSet, bool) {
	value, found := contextGin.Get(ClaimsContextKey)
	if !found {
		return nil, false
	}
	claims, ok := value.(*ClaimSet)
	return claims, ok && claims != nil
}

// splitAuthorization returns the scheme and the second space-separated segment of the header.
func splitAuthorization(headerValue string) (string, string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(headerValue), " ")
	token = strings.TrimSpace(token)
	if !found || token == "" {
		return "", "", false
	}
	return scheme, token, true
}

func abortWithError(contextGin *gin.Context, authError *Error) {
	body := gin.H{
		"message": authError.Message,
		"code":    authError.Kind,
	}
	if len(authError.Fields) > 0 {
		body["errors"] = authError.Fields
	}
	contextGin.AbortWithStatusJSON(authError.Kind.HTTPStatus(), body)
}
