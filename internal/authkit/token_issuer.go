package authkit

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrEmptySubject indicates an attempt to mint a token without a user id.
	ErrEmptySubject = errors.New("token.mint.empty_subject")
	// ErrNonPositiveTTL indicates a token lifetime that is zero or negative.
	ErrNonPositiveTTL = errors.New("token.mint.non_positive_ttl")
)

// User is the public projection of a credential and the identity carried by tokens.
type User struct {
	ID     string `json:"id"`
	Login  string `json:"login"`
	Nom    string `json:"nom"`
	Prenom string `json:"prenom"`
}

// Token types written to the typ claim.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// ClaimSet is the payload embedded in access and refresh tokens.
type ClaimSet struct {
	ID        string `json:"id"`
	Login     string `json:"login"`
	Nom       string `json:"nom"`
	Prenom    string `json:"prenom"`
	TokenType string `json:"typ,omitempty"`
	jwt.RegisteredClaims
}

// User returns the identity carried by the claims.
func (claims *ClaimSet) User() User {
	if claims == nil {
		return User{}
	}
	return User{ID: claims.ID, Login: claims.Login, Nom: claims.Nom, Prenom: claims.Prenom}
}

// TokenPair is the result of a successful login or registration.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	AccessClaims *ClaimSet
}

// TokenIssuer mints signed, time-bounded tokens.
type TokenIssuer struct {
	keys       KeyRing
	issuer     string
	audience   string
	accessTTL  time.Duration
	refreshTTL time.Duration
	clock      Clock
	tokenIDs   TokenIDGenerator
}

// NewTokenIssuer builds an issuer from the server configuration.
func NewTokenIssuer(configuration ServerConfig, clock Clock, tokenIDs TokenIDGenerator) (*TokenIssuer, error) {
	if configuration.SigningKeys.IsEmpty() {
		return nil, fmt.Errorf("token.issuer.new: %w", ErrEmptyKeyRing)
	}
	if clock == nil {
		clock = NewSystemClock()
	}
	if tokenIDs == nil {
		tokenIDs = NewULIDTokenIDs()
	}
	issuer := configuration.Issuer
	if strings.TrimSpace(issuer) == "" {
		issuer = DefaultIssuer
	}
	audience := configuration.Audience
	if strings.TrimSpace(audience) == "" {
		audience = DefaultAudience
	}
	accessTTL := configuration.AccessTTL
	if accessTTL <= 0 {
		accessTTL = DefaultAccessTTL
	}
	refreshTTL := configuration.RefreshTTL
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTTL
	}
	return &TokenIssuer{
		keys:       configuration.SigningKeys,
		issuer:     issuer,
		audience:   audience,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		clock:      clock,
		tokenIDs:   tokenIDs,
	}, nil
}

// Issue signs an access claim set for user that expires ttl after the current clock reading.
func (issuer *TokenIssuer) Issue(user User, ttl time.Duration) (string, *ClaimSet, error) {
	return issuer.issue(user, ttl, TokenTypeAccess)
}

func (issuer *TokenIssuer) issue(user User, ttl time.Duration, tokenType string) (string, *ClaimSet, error) {
	if strings.TrimSpace(user.ID) == "" {
		return "", nil, fmt.Errorf("token.issue: %w", ErrEmptySubject)
	}
	if ttl <= 0 {
		return "", nil, fmt.Errorf("token.issue: %w", ErrNonPositiveTTL)
	}
	issuedAt := issuer.clock.Now().UTC().Truncate(time.Second)
	claims := &ClaimSet{
		ID:        user.ID,
		Login:     user.Login,
		Nom:       user.Nom,
		Prenom:    user.Prenom,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    issuer.issuer,
			Audience:  jwt.ClaimStrings{issuer.audience},
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ttl)),
			ID:        issuer.tokenIDs.NewTokenID(issuedAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signingKey := issuer.keys.Current
	if signingKey.ID != "" {
		token.Header["kid"] = signingKey.ID
	}
	signed, signErr := token.SignedString(signingKey.Secret)
	if signErr != nil {
		return "", nil, fmt.Errorf("token.issue.sign: %w", signErr)
	}
	return signed, claims, nil
}

// IssuePair mints the access and refresh tokens handed back after login or registration.
func (issuer *TokenIssuer) IssuePair(user User) (TokenPair, error) {
	accessToken, accessClaims, accessErr := issuer.issue(user, issuer.accessTTL, TokenTypeAccess)
	if accessErr != nil {
		return TokenPair{}, accessErr
	}
	refreshToken, _, refreshErr := issuer.issue(user, issuer.refreshTTL, TokenTypeRefresh)
	if refreshErr != nil {
		return TokenPair{}, refreshErr
	}
	return TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		AccessClaims: accessClaims,
	}, nil
}
