package authkit

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyKeyRing indicates that no signing key was configured.
	ErrEmptyKeyRing = errors.New("keyring.empty")
	// ErrEmptySigningKey indicates a key entry without secret material.
	ErrEmptySigningKey = errors.New("keyring.empty_secret")
	// ErrDuplicateKeyID indicates two keys share an identifier.
	ErrDuplicateKeyID = errors.New("keyring.duplicate_key_id")
	// ErrMalformedKeySpec indicates a previous-key entry not shaped as id:secret.
	ErrMalformedKeySpec = errors.New("keyring.malformed_key_spec")
)

// SigningKey is an HS256 secret with the identifier written to the kid header.
type SigningKey struct {
	ID     string
	Secret []byte
}

// KeyRing holds the key used for signing and the keys still accepted for verification.
// Previous keys keep tokens minted before a rotation valid until their natural expiry.
type KeyRing struct {
	Current  SigningKey
	Previous []SigningKey
}

// NewKeyRing validates the supplied keys and assembles a ring.
func NewKeyRing(current SigningKey, previous ...SigningKey) (KeyRing, error) {
	if len(current.Secret) == 0 {
		return KeyRing{}, fmt.Errorf("keyring.new: %w", ErrEmptyKeyRing)
	}
	seen := map[string]struct{}{current.ID: {}}
	accepted := make([]SigningKey, 0, len(previous))
	for _, key := range previous {
		if len(key.Secret) == 0 {
			return KeyRing{}, fmt.Errorf("keyring.new.%s: %w", key.ID, ErrEmptySigningKey)
		}
		if _, exists := seen[key.ID]; exists {
			return KeyRing{}, fmt.Errorf("keyring.new.%s: %w", key.ID, ErrDuplicateKeyID)
		}
		seen[key.ID] = struct{}{}
		accepted = append(accepted, key)
	}
	return KeyRing{Current: current, Previous: accepted}, nil
}

// ParseSigningKeySpecs parses entries of the form "id:secret".
func ParseSigningKeySpecs(specs []string) ([]SigningKey, error) {
	keys := make([]SigningKey, 0, len(specs))
	for _, spec := range specs {
		trimmed := strings.TrimSpace(spec)
		if trimmed == "" {
			continue
		}
		keyID, secret, found := strings.Cut(trimmed, ":")
		if !found || strings.TrimSpace(keyID) == "" || secret == "" {
			return nil, fmt.Errorf("keyring.parse: %w", ErrMalformedKeySpec)
		}
		keys = append(keys, SigningKey{ID: strings.TrimSpace(keyID), Secret: []byte(secret)})
	}
	return keys, nil
}

// IsEmpty reports whether the ring can sign tokens.
func (ring KeyRing) IsEmpty() bool {
	return len(ring.Current.Secret) == 0
}

// Lookup returns the secret registered under keyID.
func (ring KeyRing) Lookup(keyID string) ([]byte, bool) {
	if ring.Current.ID == keyID && len(ring.Current.Secret) > 0 {
		return ring.Current.Secret, true
	}
	for _, key := range ring.Previous {
		if key.ID == keyID {
			return key.Secret, true
		}
	}
	return nil, false
}

// All returns every accepted key, current first.
func (ring KeyRing) All() []SigningKey {
	keys := make([]SigningKey, 0, len(ring.Previous)+1)
	if !ring.IsEmpty() {
		keys = append(keys, ring.Current)
	}
	return append(keys, ring.Previous...)
}
