package authkit

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
)

// Validator checks input format before any store access.
type Validator interface {
	ValidateLogin(identifier string, password string) []FieldError
	ValidateRegistration(input RegistrationInput) []FieldError
}

// RegistrationInput carries the fields submitted to the registration endpoint.
type RegistrationInput struct {
	Login    string
	Password string
	Nom      string
	Prenom   string
}

// CredentialVerifier checks submitted credentials against the store.
type CredentialVerifier struct {
	store     CredentialStore
	validator Validator
	hasher    PasswordHasher
	newID     func() string
	// decoyHash is compared against on a lookup miss so unknown logins cost a bcrypt round too.
	decoyHash string
}

// NewCredentialVerifier wires a verifier. A nil validator accepts every input.
func NewCredentialVerifier(store CredentialStore, validator Validator, hasher PasswordHasher) (*CredentialVerifier, error) {
	if store == nil {
		return nil, errors.New("credentials.new: credential store is required")
	}
	if hasher == nil {
		hasher = NewBcryptHasher(DefaultPasswordCost)
	}
	decoyHash, hashErr := hasher.Hash(uuid.NewString())
	if hashErr != nil {
		return nil, hashErr
	}
	return &CredentialVerifier{
		store:     store,
		validator: validator,
		hasher:    hasher,
		newID:     uuid.NewString,
		decoyHash: decoyHash,
	}, nil
}

// Login returns the stored credential when identifier and password match.
// Unknown logins and wrong passwords produce the same InvalidCredentials error.
func (verifier *CredentialVerifier) Login(ctx context.Context, identifier string, password string) (Credential, error) {
	if verifier.validator != nil {
		if fieldErrors := verifier.validator.ValidateLogin(identifier, password); len(fieldErrors) > 0 {
			return Credential{}, LoginValidationFailure(fieldErrors)
		}
	}
	credential, findErr := verifier.store.FindByLogin(ctx, identifier)
	if findErr != nil {
		if errors.Is(findErr, ErrCredentialNotFound) {
			_ = verifier.hasher.Compare(verifier.decoyHash, password)
			return Credential{}, newError(KindInvalidCredentials, findErr)
		}
		return Credential{}, newError(KindInternal, findErr)
	}
	if compareErr := verifier.hasher.Compare(credential.PasswordHash, password); compareErr != nil {
		if errors.Is(compareErr, ErrPasswordMismatch) {
			return Credential{}, newError(KindInvalidCredentials, compareErr)
		}
		return Credential{}, newError(KindInternal, compareErr)
	}
	return credential, nil
}

// Register hashes the password and persists a new credential.
func (verifier *CredentialVerifier) Register(ctx context.Context, input RegistrationInput) (Credential, error) {
	if verifier.validator != nil {
		if fieldErrors := verifier.validator.ValidateRegistration(input); len(fieldErrors) > 0 {
			return Credential{}, ValidationFailure(fieldErrors)
		}
	}
	if strings.TrimSpace(input.Login) == "" || input.Password == "" {
		return Credential{}, ValidationFailure([]FieldError{{Field: "login", Message: "Login est requis"}})
	}
	_, findErr := verifier.store.FindByLogin(ctx, input.Login)
	switch {
	case findErr == nil:
		return Credential{}, newError(KindConflict, ErrCredentialExists)
	case !errors.Is(findErr, ErrCredentialNotFound):
		return Credential{}, newError(KindInternal, findErr)
	}
	passwordHash, hashErr := verifier.hasher.Hash(input.Password)
	if hashErr != nil {
		return Credential{}, newError(KindInternal, hashErr)
	}
	credential := Credential{
		ID:           verifier.newID(),
		Login:        input.Login,
		PasswordHash: passwordHash,
		Nom:          input.Nom,
		Prenom:       input.Prenom,
	}
	if createErr := verifier.store.Create(ctx, credential); createErr != nil {
		if errors.Is(createErr, ErrCredentialExists) {
			return Credential{}, newError(KindConflict, createErr)
		}
		return Credential{}, newError(KindInternal, createErr)
	}
	return credential, nil
}
