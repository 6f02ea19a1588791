package authkit

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RouteDependencies collects the collaborators the auth routes call into.
type RouteDependencies struct {
	Credentials  *CredentialVerifier
	Issuer       *TokenIssuer
	Verifier     *TokenVerifier
	Denylist     Denylist
	Metrics      MetricsRecorder
	Logger       *zap.Logger
	LoginLimiter *LoginRateLimiter
}

type registerRequest struct {
	Login    string `json:"login"`
	Password string `json:"pass"`
	Nom      string `json:"nom"`
	Prenom   string `json:"prenom"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Login    string `json:"login"`
	Password string `json:"password"`
}

func (request loginRequest) identifier() string {
	if strings.TrimSpace(request.Email) != "" {
		return request.Email
	}
	return request.Login
}

type authResponse struct {
	User         User   `json:"user"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// MountAuthRoutes registers /register, /login, /me, and /logout on router.
func MountAuthRoutes(router gin.IRouter, dependencies RouteDependencies) {
	if dependencies.Credentials == nil || dependencies.Issuer == nil || dependencies.Verifier == nil {
		panic("credentials, issuer, and verifier are required")
	}
	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := dependencies.Metrics
	if metrics == nil {
		metrics = NewCounterMetrics()
	}

	throttled := func(handler gin.HandlerFunc) []gin.HandlerFunc {
		if dependencies.LoginLimiter == nil {
			return []gin.HandlerFunc{handler}
		}
		return []gin.HandlerFunc{dependencies.LoginLimiter.Middleware(), handler}
	}

	router.POST("/register", throttled(func(contextGin *gin.Context) {
		var inbound registerRequest
		if err := contextGin.ShouldBindJSON(&inbound); err != nil {
			metrics.Increment(EventRegisterFailure)
			abortWithError(contextGin, ValidationFailure([]FieldError{{Field: "body", Message: "JSON invalide"}}))
			return
		}
		credential, registerErr := dependencies.Credentials.Register(contextGin.Request.Context(), RegistrationInput{
			Login:    inbound.Login,
			Password: inbound.Password,
			Nom:      inbound.Nom,
			Prenom:   inbound.Prenom,
		})
		if registerErr != nil {
			metrics.Increment(EventRegisterFailure)
			respondWithError(contextGin, logger, "auth.register", registerErr)
			return
		}
		if respondWithTokens(contextGin, logger, dependencies.Issuer, credential.User(), http.StatusCreated) {
			metrics.Increment(EventRegisterSuccess)
		}
	})...)

	router.POST("/login", throttled(func(contextGin *gin.Context) {
		var inbound loginRequest
		if err := contextGin.ShouldBindJSON(&inbound); err != nil {
			metrics.Increment(EventLoginFailure)
			abortWithError(contextGin, LoginValidationFailure([]FieldError{{Field: "body", Message: "JSON invalide"}}))
			return
		}
		credential, loginErr := dependencies.Credentials.Login(contextGin.Request.Context(), inbound.identifier(), inbound.Password)
		if loginErr != nil {
			metrics.Increment(EventLoginFailure)
			respondWithError(contextGin, logger, "auth.login", loginErr)
			return
		}
		if respondWithTokens(contextGin, logger, dependencies.Issuer, credential.User(), http.StatusOK) {
			metrics.Increment(EventLoginSuccess)
		}
	})...)

	requireBearer := RequireBearer(dependencies.Verifier, logger)

	router.GET("/me", requireBearer, func(contextGin *gin.Context) {
		claims, ok := ClaimsFromContext(contextGin)
		if !ok {
			logger.Warn("missing auth claims on context",
				zap.String("code", "auth.me.missing_claims"))
			abortWithError(contextGin, newError(KindUnauthenticated, nil))
			return
		}
		contextGin.JSON(http.StatusOK, gin.H{"user": claims.User()})
	})

	router.POST("/logout", requireBearer, func(contextGin *gin.Context) {
		claims, ok := ClaimsFromContext(contextGin)
		if !ok {
			abortWithError(contextGin, newError(KindUnauthenticated, nil))
			return
		}
		if dependencies.Denylist != nil && claims.ExpiresAt != nil {
			if revokeErr := dependencies.Denylist.Revoke(contextGin.Request.Context(), claims.RegisteredClaims.ID, claims.ExpiresAt.Time); revokeErr != nil {
				respondWithError(contextGin, logger, "auth.logout", revokeErr)
				return
			}
		}
		metrics.Increment(EventLogout)
		contextGin.Status(http.StatusNoContent)
	})
}

func respondWithTokens(contextGin *gin.Context, logger *zap.Logger, issuer *TokenIssuer, user User, status int) bool {
	pair, issueErr := issuer.IssuePair(user)
	if issueErr != nil {
		respondWithError(contextGin, logger, "auth.issue", issueErr)
		return false
	}
	contextGin.JSON(status, authResponse{
		User:         user,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
	return true
}

func respondWithError(contextGin *gin.Context, logger *zap.Logger, code string, err error) {
	authError := AsError(err)
	if authError.Kind == KindInternal {
		logger.Error("auth request failed",
			zap.String("code", code+".internal"),
			zap.Error(err))
	} else {
		logger.Info("auth request rejected",
			zap.String("code", code+"."+string(authError.Kind)))
	}
	abortWithError(contextGin, authError)
}
