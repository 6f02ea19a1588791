package authkit

import (
	"context"
	"sync"
)

// MemoryCredentialStore is an in-memory store intended for tests and dev.
type MemoryCredentialStore struct {
	mutex   sync.RWMutex
	byLogin map[string]Credential
}

// NewMemoryCredentialStore creates an empty store.
func NewMemoryCredentialStore() *MemoryCredentialStore {
	return &MemoryCredentialStore{byLogin: make(map[string]Credential)}
}

// FindByLogin returns the credential registered under login.
func (store *MemoryCredentialStore) FindByLogin(ctx context.Context, login string) (Credential, error) {
	store.mutex.RLock()
	defer store.mutex.RUnlock()
	credential, ok := store.byLogin[login]
	if !ok {
		return Credential{}, ErrCredentialNotFound
	}
	return credential, nil
}

// Create inserts a credential, rejecting duplicate logins.
func (store *MemoryCredentialStore) Create(ctx context.Context, credential Credential) error {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	if _, exists := store.byLogin[credential.Login]; exists {
		return ErrCredentialExists
	}
	store.byLogin[credential.Login] = credential
	return nil
}
