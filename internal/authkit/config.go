package authkit

import (
	"time"
)

const (
	// DefaultIssuer is written to the iss claim of every minted token.
	DefaultIssuer = "pollution-api"
	// DefaultAudience is written to the aud claim of every minted token.
	DefaultAudience = "pollution-app"
	// DefaultAccessTTL is the lifetime of access tokens.
	DefaultAccessTTL = time.Hour
	// DefaultRefreshTTL is the lifetime of refresh tokens.
	DefaultRefreshTTL = 7 * 24 * time.Hour
	// DefaultPasswordCost is the bcrypt work factor applied at registration.
	DefaultPasswordCost = 10
)

// ServerConfig configures token issuance, verification, and credential hashing.
type ServerConfig struct {
	SigningKeys        KeyRing
	Issuer             string
	Audience           string
	AccessTTL          time.Duration
	RefreshTTL         time.Duration
	PasswordCost       int
	LoginRatePerMinute int
}
