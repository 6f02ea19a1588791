// Package sessionvalidator lets other pollution services accept access tokens minted by the
// auth server without importing its internals.
package sessionvalidator

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Clock provides the current time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

// Now returns the current UTC timestamp.
func (systemClock) Now() time.Time {
	return time.Now().UTC()
}

// Config configures the Validator.
type Config struct {
	// SigningKeys maps kid header values to HS256 secrets. Tokens without a kid are tried
	// against every key.
	SigningKeys map[string][]byte
	Issuer      string
	Audience    string
	Clock       Clock
}

// DefaultContextKey is used by GinMiddleware when no explicit key is provided.
const DefaultContextKey = "auth_claims"

// Sentinel errors exposed by the validator.
var (
	ErrMissingSigningKey = errors.New("session.validator.missing_signing_key")
	ErrMissingIssuer     = errors.New("session.validator.missing_issuer")
	ErrMissingToken      = errors.New("session.validator.missing_token")
	ErrInvalidToken      = errors.New("session.validator.invalid_token")
	ErrInvalidIssuer     = errors.New("session.validator.invalid_issuer")
	ErrTokenExpired      = errors.New("session.validator.expired")
	ErrNotAccessToken    = errors.New("session.validator.not_access_token")
)

const refreshTokenType = "refresh"

// Validator validates bearer access tokens.
type Validator struct {
	signingKeys map[string][]byte
	issuer      string
	audience    string
	clock       Clock
}

// Claims mirror the identity claims written by the auth server. TokenType is "access" or
// "refresh"; tokens without it are treated as access tokens.
type Claims struct {
	UserID    string `json:"id"`
	Login     string `json:"login"`
	Nom       string `json:"nom"`
	Prenom    string `json:"prenom"`
	TokenType string `json:"typ,omitempty"`
	jwt.RegisteredClaims
}

// GetUserID returns the user identifier from the token.
func (claims *Claims) GetUserID() string {
	if claims == nil {
		return ""
	}
	return claims.UserID
}

// GetLogin returns the login the token was issued to.
func (claims *Claims) GetLogin() string {
	if claims == nil {
		return ""
	}
	return claims.Login
}

// GetDisplayName joins the name parts, falling back to the login.
func (claims *Claims) GetDisplayName() string {
	if claims == nil {
		return ""
	}
	display := strings.TrimSpace(claims.Prenom + " " + claims.Nom)
	if display == "" {
		return claims.Login
	}
	return display
}

// GetExpiresAt returns the expiry timestamp.
func (claims *Claims) GetExpiresAt() time.Time {
	if claims == nil || claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}

// New constructs a Validator after validating the supplied configuration.
func New(configuration Config) (*Validator, error) {
	signingKeys := make(map[string][]byte, len(configuration.SigningKeys))
	for keyID, secret := range configuration.SigningKeys {
		if len(secret) > 0 {
			signingKeys[keyID] = secret
		}
	}
	if len(signingKeys) == 0 {
		return nil, fmt.Errorf("session.validator.new: %w", ErrMissingSigningKey)
	}
	if strings.TrimSpace(configuration.Issuer) == "" {
		return nil, fmt.Errorf("session.validator.new: %w", ErrMissingIssuer)
	}
	clock := configuration.Clock
	if clock == nil {
		clock = systemClock{}
	}
	return &Validator{
		signingKeys: signingKeys,
		issuer:      configuration.Issuer,
		audience:    strings.TrimSpace(configuration.Audience),
		clock:       clock,
	}, nil
}

// ValidateToken validates the provided JWT string and returns the parsed claims.
func (validator *Validator) ValidateToken(tokenString string) (*Claims, error) {
	if strings.TrimSpace(tokenString) == "" {
		return nil, fmt.Errorf("session.validator.validate_token: %w", ErrMissingToken)
	}
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time {
			return validator.clock.Now()
		}),
	}
	if validator.audience != "" {
		options = append(options, jwt.WithAudience(validator.audience))
	}
	var parsedToken *jwt.Token
	var parseErr error
	for _, secret := range validator.candidateKeys(tokenString) {
		parsedToken, parseErr = jwt.ParseWithClaims(tokenString, &Claims{}, func(parsed *jwt.Token) (interface{}, error) {
			return secret, nil
		}, options...)
		if !errors.Is(parseErr, jwt.ErrTokenSignatureInvalid) {
			break
		}
	}
	if parseErr != nil {
		if errors.Is(parseErr, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("session.validator.validate_token: %w", ErrTokenExpired)
		}
		return nil, fmt.Errorf("session.validator.validate_token: %w", ErrInvalidToken)
	}
	if parsedToken == nil || !parsedToken.Valid {
		return nil, fmt.Errorf("session.validator.validate_token: %w", ErrInvalidToken)
	}
	claims, ok := parsedToken.Claims.(*Claims)
	if !ok {
		return nil, fmt.Errorf("session.validator.validate_token: %w", ErrInvalidToken)
	}
	if claims.Issuer != validator.issuer {
		return nil, fmt.Errorf("session.validator.validate_token: %w", ErrInvalidIssuer)
	}
	if claims.TokenType == refreshTokenType {
		return nil, fmt.Errorf("session.validator.validate_token: %w", ErrNotAccessToken)
	}
	return claims, nil
}

// candidateKeys returns the secret named by the kid header, or every secret when the token
// carries none. Malformed tokens and unknown kids yield no candidates.
func (validator *Validator) candidateKeys(tokenString string) [][]byte {
	unverified, _, err := jwt.NewParser().ParseUnverified(tokenString, &Claims{})
	if err != nil {
		return nil
	}
	if keyID, ok := unverified.Header["kid"].(string); ok && keyID != "" {
		secret, found := validator.signingKeys[keyID]
		if !found {
			return nil
		}
		return [][]byte{secret}
	}
	keys := make([][]byte, 0, len(validator.signingKeys))
	for _, secret := range validator.signingKeys {
		keys = append(keys, secret)
	}
	return keys
}

// ValidateRequest reads the bearer token from the Authorization header and validates it.
// A header without a token segment is ErrMissingToken; any other scheme is ErrInvalidToken.
func (validator *Validator) ValidateRequest(request *http.Request) (*Claims, error) {
	if request == nil {
		return nil, fmt.Errorf("session.validator.validate_request: %w", ErrMissingToken)
	}
	scheme, token, found := strings.Cut(strings.TrimSpace(request.Header.Get("Authorization")), " ")
	token = strings.TrimSpace(token)
	if !found || token == "" {
		return nil, fmt.Errorf("session.validator.validate_request: %w", ErrMissingToken)
	}
	if !strings.EqualFold(scheme, "bearer") {
		return nil, fmt.Errorf("session.validator.validate_request: %w", ErrInvalidToken)
	}
	return validator.ValidateToken(token)
}

// GinMiddleware returns a Gin middleware that validates the bearer token and injects claims.
// A missing token yields 401; a rejected token or scheme yields 403.
func (validator *Validator) GinMiddleware(contextKey string) gin.HandlerFunc {
	if strings.TrimSpace(contextKey) == "" {
		contextKey = DefaultContextKey
	}
	return func(contextGin *gin.Context) {
		claims, err := validator.ValidateRequest(contextGin.Request)
		if err != nil {
			if errors.Is(err, ErrMissingToken) {
				contextGin.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Token manquant", "code": "unauthenticated"})
				return
			}
			contextGin.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "Token invalide ou expiré", "code": "forbidden"})
			return
		}
		contextGin.Set(contextKey, claims)
		contextGin.Next()
	}
}
