package authkit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrTokenMissing indicates that no token was presented.
	ErrTokenMissing = errors.New("token.verify.missing")
	// ErrTokenInvalid indicates a malformed token or a bad signature, issuer, or audience.
	ErrTokenInvalid = errors.New("token.verify.invalid")
	// ErrTokenExpired indicates a well-signed token past its exp claim.
	ErrTokenExpired = errors.New("token.verify.expired")
	// ErrTokenRevoked indicates a token whose jti was denylisted.
	ErrTokenRevoked = errors.New("token.verify.revoked")
	// ErrTokenNotAccess indicates a refresh token presented where an access token is required.
	ErrTokenNotAccess = errors.New("token.verify.not_access")
	// ErrUnknownKeyID indicates a kid header that names no key in the ring.
	ErrUnknownKeyID = errors.New("token.verify.unknown_kid")
)

// TokenVerifier validates signed tokens against the key ring and the clock.
type TokenVerifier struct {
	keys     KeyRing
	issuer   string
	audience string
	clock    Clock
	denylist Denylist
}

// NewTokenVerifier builds a verifier; denylist may be nil when revocation is disabled.
func NewTokenVerifier(configuration ServerConfig, clock Clock, denylist Denylist) (*TokenVerifier, error) {
	if configuration.SigningKeys.IsEmpty() {
		return nil, fmt.Errorf("token.verifier.new: %w", ErrEmptyKeyRing)
	}
	if clock == nil {
		clock = NewSystemClock()
	}
	issuer := configuration.Issuer
	if strings.TrimSpace(issuer) == "" {
		issuer = DefaultIssuer
	}
	audience := configuration.Audience
	if strings.TrimSpace(audience) == "" {
		audience = DefaultAudience
	}
	return &TokenVerifier{
		keys:     configuration.SigningKeys,
		issuer:   issuer,
		audience: audience,
		clock:    clock,
		denylist: denylist,
	}, nil
}

// Verify checks signature, algorithm, issuer, audience, expiry, token type, and revocation.
func (verifier *TokenVerifier) Verify(ctx context.Context, tokenString string) (*ClaimSet, error) {
	if strings.TrimSpace(tokenString) == "" {
		return nil, fmt.Errorf("token.verify: %w", ErrTokenMissing)
	}
	claims, parseErr := verifier.parse(tokenString)
	if parseErr != nil {
		return nil, parseErr
	}
	if claims.TokenType == TokenTypeRefresh {
		return nil, fmt.Errorf("token.verify: %w", ErrTokenNotAccess)
	}
	if verifier.denylist != nil && claims.RegisteredClaims.ID != "" {
		revoked, lookupErr := verifier.denylist.IsRevoked(ctx, claims.RegisteredClaims.ID)
		if lookupErr != nil {
			return nil, fmt.Errorf("token.verify.denylist: %w", lookupErr)
		}
		if revoked {
			return nil, fmt.Errorf("token.verify: %w", ErrTokenRevoked)
		}
	}
	return claims, nil
}

func (verifier *TokenVerifier) parse(tokenString string) (*ClaimSet, error) {
	unverified, _, unverifiedErr := jwt.NewParser().ParseUnverified(tokenString, &ClaimSet{})
	if unverifiedErr != nil {
		return nil, fmt.Errorf("token.verify: %w", ErrTokenInvalid)
	}
	candidates := verifier.keys.All()
	if keyID, hasKeyID := unverified.Header["kid"].(string); hasKeyID && keyID != "" {
		secret, found := verifier.keys.Lookup(keyID)
		if !found {
			return nil, fmt.Errorf("token.verify: %w: %w", ErrTokenInvalid, ErrUnknownKeyID)
		}
		candidates = []SigningKey{{ID: keyID, Secret: secret}}
	}

	var lastErr error
	for _, candidate := range candidates {
		claims, err := verifier.parseWithKey(tokenString, candidate.Secret)
		if err == nil {
			return claims, nil
		}
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("token.verify: %w", ErrTokenExpired)
		}
		lastErr = err
		if !errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			break
		}
	}
	return nil, fmt.Errorf("token.verify: %w: %v", ErrTokenInvalid, lastErr)
}

func (verifier *TokenVerifier) parseWithKey(tokenString string, secret []byte) (*ClaimSet, error) {
	parsedToken, parseErr := jwt.ParseWithClaims(tokenString, &ClaimSet{}, func(parsed *jwt.Token) (interface{}, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(verifier.issuer),
		jwt.WithAudience(verifier.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time {
			return verifier.clock.Now()
		}),
	)
	if parseErr != nil {
		return nil, parseErr
	}
	claims, ok := parsedToken.Claims.(*ClaimSet)
	if !ok || !parsedToken.Valid {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
