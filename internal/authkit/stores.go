package authkit

import (
	"context"
	"errors"
)

var (
	// ErrCredentialNotFound indicates no credential matched the login.
	ErrCredentialNotFound = errors.New("credential_store.not_found")
	// ErrCredentialExists indicates the login is already registered.
	ErrCredentialExists = errors.New("credential_store.exists")
)

// Credential is a stored login record. PasswordHash never leaves the server.
type Credential struct {
	ID           string
	Login        string
	PasswordHash string
	Nom          string
	Prenom       string
}

// User returns the public projection of the credential.
func (credential Credential) User() User {
	return User{ID: credential.ID, Login: credential.Login, Nom: credential.Nom, Prenom: credential.Prenom}
}

// CredentialStore persists and retrieves credentials by login.
type CredentialStore interface {
	FindByLogin(ctx context.Context, login string) (Credential, error)
	Create(ctx context.Context, credential Credential) error
}
